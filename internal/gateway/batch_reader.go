package gateway

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"invoice-reconciliation/internal/domain"
)

// batchEntry is one transfer as written in a batch file. Amounts are kept as
// the literal YAML text so that no float rounding happens before parsing.
type batchEntry struct {
	TransferAmount        string  `yaml:"transfer_amount"`
	InvoiceFile           string  `yaml:"invoice_file"`
	Tolerance             *string `yaml:"tolerance"`
	BacktrackingThreshold int     `yaml:"backtracking_threshold"`
}

// YAMLBatchRepository reads batch task files: a YAML list of transfers.
type YAMLBatchRepository struct{}

// NewYAMLBatchRepository creates a new repository instance.
func NewYAMLBatchRepository() *YAMLBatchRepository {
	return &YAMLBatchRepository{}
}

// GetBatchTasks parses the batch file at path. Relative invoice files are
// resolved against the directory of the batch file. A task without its own
// tolerance parses its transfer amount with the given one.
func (r *YAMLBatchRepository) GetBatchTasks(ctx context.Context, path string, tolerance decimal.Decimal) ([]domain.BatchTask, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch file %s: %w", path, err)
	}

	var entries []batchEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: batch file %s: %v", domain.ErrInvalidInput, path, err)
	}

	dir := filepath.Dir(path)
	tasks := make([]domain.BatchTask, 0, len(entries))
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		task := domain.BatchTask{
			InvoiceFile:           entry.InvoiceFile,
			BacktrackingThreshold: entry.BacktrackingThreshold,
		}
		if task.InvoiceFile == "" {
			return nil, fmt.Errorf("%w: batch task %d has no invoice_file", domain.ErrInvalidInput, i+1)
		}
		if !filepath.IsAbs(task.InvoiceFile) {
			task.InvoiceFile = filepath.Join(dir, task.InvoiceFile)
		}

		taskTolerance := tolerance
		if entry.Tolerance != nil {
			t, err := decimal.NewFromString(*entry.Tolerance)
			if err != nil || t.IsNegative() {
				return nil, fmt.Errorf("%w: batch task %d has an invalid tolerance '%s'", domain.ErrInvalidInput, i+1, *entry.Tolerance)
			}
			task.Tolerance = &t
			taskTolerance = t
		}

		amount, err := domain.ParseAmount(entry.TransferAmount, taskTolerance)
		if err != nil {
			return nil, fmt.Errorf("batch task %d: %w", i+1, err)
		}
		task.Payment = domain.Payment{Amount: amount}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

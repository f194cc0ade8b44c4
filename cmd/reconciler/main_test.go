package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoice-reconciliation/internal/domain"
)

const invoiceCSV = `ID;Customer;Supplier;Amount;Date
1001;42;7;30.00;2025-09-01 10:00:00
1002;42;7;70.00;2025-09-02 10:00:00
1003;42;7;45.00;2025-09-03 10:00:00
1004;42;7;25.00;2025-09-04 10:00:00
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) ([]byte, error) {
	t.Helper()
	var stdout bytes.Buffer
	cmd := NewCLI()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	return stdout.Bytes(), err
}

func TestReconcileCommand(t *testing.T) {
	invoices := writeFile(t, t.TempDir(), "invoices.csv", invoiceCSV)

	tests := []struct {
		name       string
		args       []string
		wantStatus domain.Status
		wantIDs    []string
		wantMethod domain.Method
	}{
		{
			name:       "exact match",
			args:       []string{"reconcile", "--payment", "100.00", "--invoices", invoices},
			wantStatus: domain.StatusUniqueSolution,
			wantIDs:    []string{"1001", "1002"},
			wantMethod: domain.MethodExactMatch,
		},
		{
			name:       "threshold flag forces greedy",
			args:       []string{"reconcile", "--payment", "100.00", "--invoices", invoices, "--threshold", "1"},
			wantStatus: domain.StatusGreedySolution,
			wantIDs:    []string{"1001", "1002"},
			wantMethod: domain.MethodGreedyApprox,
		},
		{
			name:       "residual bound rejects greedy result",
			args:       []string{"reconcile", "--payment", "99.00", "--invoices", invoices, "--max-residual", "0.50"},
			wantStatus: domain.StatusNoSolution,
			wantMethod: domain.MethodGreedyApprox,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			require.NoError(t, err)

			var report domain.ReconciliationReport
			require.NoError(t, json.Unmarshal(out, &report))
			require.NotNil(t, report.Result)
			assert.True(t, strings.HasPrefix(report.Metadata.RequestID, "recon_"))
			assert.Equal(t, invoices, report.Metadata.InvoiceFile)
			assert.Equal(t, tt.wantStatus, report.Result.Status)
			assert.Equal(t, tt.wantMethod, report.Result.MethodUsed)
			if tt.wantIDs != nil {
				require.NotNil(t, report.Result.Solution)
				assert.Equal(t, tt.wantIDs, report.Result.Solution.InvoiceIDs)
			}
		})
	}
}

func TestReconcileCommand_Errors(t *testing.T) {
	invoices := writeFile(t, t.TempDir(), "invoices.csv", invoiceCSV)

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing payment", args: []string{"reconcile", "--invoices", invoices}},
		{name: "payment is not a number", args: []string{"reconcile", "--payment", "lots", "--invoices", invoices}},
		{name: "negative payment", args: []string{"reconcile", "--payment", "-5", "--invoices", invoices}},
		{name: "unknown tie-break", args: []string{"reconcile", "--payment", "100", "--invoices", invoices, "--tie-break", "coin"}},
		{name: "missing invoice file", args: []string{"reconcile", "--payment", "100", "--invoices", "absent.csv"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			assert.Error(t, err)
			assert.Empty(t, out)
		})
	}
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "invoices.csv", invoiceCSV)
	tasks := writeFile(t, dir, "tasks.yaml", `
- transfer_amount: 55.00
  invoice_file: invoices.csv
  tolerance: 0.0
  backtracking_threshold: 15
- transfer_amount: 10.00
  invoice_file: absent.csv
  backtracking_threshold: 10
`)

	out, err := run(t, "batch", "--file", tasks)
	require.NoError(t, err)

	var batch domain.BatchReport
	require.NoError(t, json.Unmarshal(out, &batch))
	assert.Equal(t, 1, batch.Succeeded)
	assert.Equal(t, 1, batch.Failed)
	require.Len(t, batch.Reports, 2)
	require.NotNil(t, batch.Reports[0].Result)
	assert.Equal(t, []string{"1001", "1004"}, batch.Reports[0].Result.Solution.InvoiceIDs)
	assert.NotEmpty(t, batch.Reports[1].Error)
}

func TestConfigCommand_RejectsBadFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown log level", args: []string{"config", "--log-level", "bogus"}},
		{name: "unknown log format", args: []string{"config", "--log-format", "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Empty(t, out)
		})
	}
}

func TestConfigCommand(t *testing.T) {
	t.Setenv("RECON_BACKTRACKING_THRESHOLD", "25")

	out, err := run(t, "config", "--log-level", "debug")
	require.NoError(t, err)

	var cnf map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &cnf))
	assert.Equal(t, float64(25), cnf["backtracking_threshold"])
	assert.Equal(t, "debug", cnf["log_level"])
	assert.Equal(t, "fewest", cnf["tie_break"])
}

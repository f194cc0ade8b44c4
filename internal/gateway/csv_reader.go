package gateway

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"invoice-reconciliation/internal/domain"
)

// Invoice files have the columns ID;Customer;Supplier;Amount;Date. The header
// row is optional and the date column may be left empty.
const (
	colID = iota
	colCustomer
	colSupplier
	colAmount
	colDate
	minColumns = colAmount + 1
)

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// CSVInvoiceRepository implements the InvoiceRepository interface for CSV files.
type CSVInvoiceRepository struct{}

// NewCSVInvoiceRepository creates a new repository instance.
func NewCSVInvoiceRepository() *CSVInvoiceRepository {
	return &CSVInvoiceRepository{}
}

// GetInvoices reads and parses a semicolon separated invoice file. Amounts
// are converted to minor units, allowing at most tolerance of rounding.
func (r *CSVInvoiceRepository) GetInvoices(ctx context.Context, path string, tolerance decimal.Decimal) ([]domain.Invoice, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open invoice file %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var invoices []domain.Invoice
	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading record from %s: %w", path, err)
		}
		if line == 1 {
			record[colID] = strings.TrimPrefix(record[colID], "\ufeff")
			if isHeader(record) {
				continue
			}
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		inv, err := parseInvoice(record, tolerance)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

func isHeader(record []string) bool {
	return strings.EqualFold(strings.TrimSpace(record[colID]), "id")
}

func parseInvoice(record []string, tolerance decimal.Decimal) (domain.Invoice, error) {
	if len(record) < minColumns {
		return domain.Invoice{}, fmt.Errorf("%w: expected at least %d columns, got %d", domain.ErrInvalidInput, minColumns, len(record))
	}

	amount, err := domain.ParseAmount(strings.TrimSpace(record[colAmount]), tolerance)
	if err != nil {
		return domain.Invoice{}, err
	}

	inv := domain.Invoice{
		ID:       strings.TrimSpace(record[colID]),
		Amount:   amount,
		Customer: strings.TrimSpace(record[colCustomer]),
		Supplier: strings.TrimSpace(record[colSupplier]),
	}
	if len(record) > colDate {
		if inv.Date, err = parseDate(strings.TrimSpace(record[colDate])); err != nil {
			return domain.Invoice{}, err
		}
	}
	return inv, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: could not parse date '%s'", domain.ErrInvalidInput, s)
}

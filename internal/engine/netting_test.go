package engine

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoice-reconciliation/internal/domain"
)

func TestNet(t *testing.T) {
	tests := []struct {
		name           string
		invoices       domain.CandidateSet
		wantEffects    map[string]domain.NetEffect
		wantNet        map[string]string
		wantNettedWith map[string][]string
		wantCandidates domain.CandidateSet
	}{
		{
			name: "credit note reduces invoice of same counterparty",
			invoices: domain.CandidateSet{
				invoice("INV-1", "120.00"),
				invoice("CN-1", "-20.00"),
			},
			wantEffects: map[string]domain.NetEffect{
				"INV-1": domain.NetPartiallyNetted,
				"CN-1":  domain.NetCreditApplied,
			},
			wantNet: map[string]string{"INV-1": "100.00", "CN-1": "0.00"},
			wantNettedWith: map[string][]string{
				"INV-1": {"CN-1"},
				"CN-1":  {"INV-1"},
			},
			wantCandidates: domain.CandidateSet{invoice("INV-1", "100.00")},
		},
		{
			name: "credit note absorbs the closest invoice",
			invoices: domain.CandidateSet{
				invoice("INV-1", "20.00"),
				invoice("INV-2", "50.00"),
				invoice("CN-1", "-20.00"),
			},
			wantEffects: map[string]domain.NetEffect{
				"INV-1": domain.NetAbsorbedByCreditNote,
				"INV-2": domain.NetUnchanged,
				"CN-1":  domain.NetCreditApplied,
			},
			wantNet:        map[string]string{"INV-1": "0.00", "INV-2": "50.00", "CN-1": "0.00"},
			wantCandidates: domain.CandidateSet{invoice("INV-2", "50.00")},
		},
		{
			name: "credit note spread over several invoices",
			invoices: domain.CandidateSet{
				invoice("INV-1", "10.00"),
				invoice("INV-2", "15.00"),
				invoice("CN-1", "-25.00"),
			},
			wantEffects: map[string]domain.NetEffect{
				"INV-1": domain.NetAbsorbedByCreditNote,
				"INV-2": domain.NetAbsorbedByCreditNote,
				"CN-1":  domain.NetCreditApplied,
			},
			wantNettedWith: map[string][]string{"CN-1": {"INV-2", "INV-1"}},
			wantCandidates: domain.CandidateSet{},
		},
		{
			name: "credit note larger than open invoices",
			invoices: domain.CandidateSet{
				invoice("INV-1", "10.00"),
				invoice("CN-1", "-30.00"),
			},
			wantEffects: map[string]domain.NetEffect{
				"INV-1": domain.NetAbsorbedByCreditNote,
				"CN-1":  domain.NetCreditPartiallyApplied,
			},
			wantNet:        map[string]string{"CN-1": "-20.00"},
			wantCandidates: domain.CandidateSet{},
		},
		{
			name: "credit note of another counterparty stays unmatched",
			invoices: domain.CandidateSet{
				invoiceFor("INV-1", "120.00", "ACME"),
				invoiceFor("CN-1", "-20.00", "GLOBEX"),
			},
			wantEffects: map[string]domain.NetEffect{
				"INV-1": domain.NetUnchanged,
				"CN-1":  domain.NetCreditUnmatched,
			},
			wantNet:        map[string]string{"INV-1": "120.00", "CN-1": "-20.00"},
			wantCandidates: domain.CandidateSet{invoiceFor("INV-1", "120.00", "ACME")},
		},
		{
			name: "no credit notes",
			invoices: domain.CandidateSet{
				invoice("INV-1", "30.00"),
				invoice("INV-2", "70.00"),
			},
			wantEffects: map[string]domain.NetEffect{
				"INV-1": domain.NetUnchanged,
				"INV-2": domain.NetUnchanged,
			},
			wantCandidates: domain.CandidateSet{
				invoice("INV-1", "30.00"),
				invoice("INV-2", "70.00"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Net(tt.invoices)

			require.Len(t, got.Entries, len(tt.invoices))
			for i, entry := range got.Entries {
				assert.Equal(t, tt.invoices[i].ID, entry.ID, "entries keep input order")
				assert.Equal(t, tt.invoices[i].Amount, entry.Original)
			}
			for id, effect := range tt.wantEffects {
				entry, ok := got.Entry(id)
				require.True(t, ok, id)
				assert.Equal(t, effect, entry.Effect, id)
			}
			for id, net := range tt.wantNet {
				entry, _ := got.Entry(id)
				assert.Equal(t, domain.MustParseAmount(net), entry.Net, id)
			}
			for id, with := range tt.wantNettedWith {
				entry, _ := got.Entry(id)
				assert.Equal(t, with, entry.NettedWith, id)
			}
			assert.Equal(t, tt.wantCandidates, got.Candidates)
		})
	}
}

func TestNet_Properties(t *testing.T) {
	faker := gofakeit.New(42)

	for run := 0; run < 200; run++ {
		invoices := randomCandidates(faker, faker.Number(1, 12), 5000)
		for i := range invoices {
			if faker.Bool() {
				invoices[i].Amount = -invoices[i].Amount
			}
		}

		first := Net(invoices)
		for _, c := range first.Candidates {
			assert.Positive(t, int64(c.Amount), "candidates are positive")
			entry, ok := first.Entry(c.ID)
			require.True(t, ok)
			assert.LessOrEqual(t, c.Amount, entry.Original, "netting never increases an amount")
		}

		second := Net(first.Candidates)
		assert.Equal(t, first.Candidates, second.Candidates, "netting is idempotent")
		for _, entry := range second.Entries {
			assert.Equal(t, domain.NetUnchanged, entry.Effect)
		}
	}
}

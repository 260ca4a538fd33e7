package report_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
	"github.com/boddenberg/carteira-recebiveis-go/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSnapshot(t *testing.T) {
	snap := domain.Snapshot{
		Today:            domain.NewDate(2025, time.June, 10),
		ActiveCapital:    domain.MustMoney("1000.00"),
		TotalReceivables: domain.MustMoney("1050.00"),
		ActiveCount:      1,
		Distribution: []domain.StatusSlice{
			{Status: domain.StatusAberto, Count: 1, CurrentDebt: domain.MustMoney("1050.00")},
		},
		Reminders: []domain.Reminder{
			{OperationID: 1, TitleNumber: "DP|01", DueDate: domain.NewDate(2025, time.June, 11), DaysLeft: 1,
				CurrentDebt: domain.MustMoney("1050.00"), Status: domain.StatusAberto},
		},
		Buckets: map[domain.DueBucket][]int64{domain.BucketThisWeek: {1}},
		Exposure: []domain.ClientExposure{
			{ClientID: 3, ClientName: "Padaria", LimiteCredito: domain.MustMoney("500.00"),
				CurrentDebt: domain.MustMoney("1050.00"), OverLimit: true},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, report.RenderSnapshot(&buf, snap))
	out := buf.String()

	assert.Contains(t, out, "# Carteira de recebíveis em 10/06/2025")
	assert.Contains(t, out, "| Total a receber | R$1.050,00 |")
	assert.Contains(t, out, `| DP\|01 | 11/06/2025 | amanhã |`)
	assert.Contains(t, out, "| Próximos 7 dias | 1 |")
	assert.Contains(t, out, "| Vencidas | 0 |")
	assert.Contains(t, out, "Padaria ⚠")
}

func TestRenderReminders_Empty(t *testing.T) {
	var buf bytes.Buffer
	report.RenderReminders(&buf, nil)
	assert.Contains(t, buf.String(), "Nenhum vencimento próximo.")
}

func TestRenderInstallments_Totals(t *testing.T) {
	ops := []domain.Operation{
		{TitleNumber: "P 1/2", DueDate: domain.NewDate(2025, time.July, 1), NominalValue: domain.MustMoney("50.00"), NetValue: domain.MustMoney("51.00")},
		{TitleNumber: "P 2/2", DueDate: domain.NewDate(2025, time.August, 1), NominalValue: domain.MustMoney("50.00"), NetValue: domain.MustMoney("51.00")},
	}
	var buf bytes.Buffer
	report.RenderInstallments(&buf, ops)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// header, separator, one row per installment, total
	assert.Len(t, lines, 5)
	assert.Equal(t, "| **Total** | | **R$100,00** | **R$102,00** |", lines[len(lines)-1])
}

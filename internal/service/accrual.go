package service

import (
	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
)

// ============================================================
// Accrual: net value and derived balances
// ============================================================

// ComputeNetValue returns nominal plus one month of interest at rate, rounded
// to centavos. A zero rate yields the nominal value.
func ComputeNetValue(nominal domain.Money, rate domain.Rate) domain.Money {
	return nominal.Mul(rate.Factor()).Round2()
}

// TotalPrincipalPaid sums the principal of every receipt of operationID.
func TotalPrincipalPaid(operationID int64, receipts []domain.Receipt) domain.Money {
	total := domain.ZeroMoney
	for _, r := range receipts {
		if r.OperationID == operationID {
			total = total.Add(r.ValorPrincipalPago)
		}
	}
	return total
}

// RemainingBalances derives what is still owed on op. The net value is the
// base principal payments are subtracted from; the markup (net - nominal) is
// the base for interest payments. Both remainders are floored at zero, so an
// overpayment never turns into a negative debt. Receipts of other operations
// are ignored.
func RemainingBalances(op domain.Operation, receipts []domain.Receipt) domain.Balances {
	b := domain.Balances{
		OriginalInterest: op.NetValue.Sub(op.NominalValue),
		PaidPrincipal:    domain.ZeroMoney,
		PaidInterest:     domain.ZeroMoney,
	}
	for _, r := range receipts {
		if r.OperationID != op.ID {
			continue
		}
		b.PaidPrincipal = b.PaidPrincipal.Add(r.ValorPrincipalPago)
		b.PaidInterest = b.PaidInterest.Add(r.ValorJurosPago)
	}
	b.RemainingPrincipal = op.NetValue.Sub(b.PaidPrincipal).FloorZero()
	b.RemainingInterest = b.OriginalInterest.Sub(b.PaidInterest).FloorZero()
	b.CurrentDebt = b.RemainingPrincipal.Add(b.RemainingInterest)
	return b
}

// receiptsByOperation indexes receipts by operation id.
func receiptsByOperation(receipts []domain.Receipt) map[int64][]domain.Receipt {
	idx := make(map[int64][]domain.Receipt, len(receipts))
	for _, r := range receipts {
		idx[r.OperationID] = append(idx[r.OperationID], r)
	}
	return idx
}

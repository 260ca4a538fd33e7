package service

import (
	"fmt"
	"strings"

	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
)

const (
	minInstallments = 2
	maxInstallments = 60
)

// ExpandInstallments turns one request into the operations to persist.
// With fewer than two installments it yields a single operation; otherwise
// the nominal value is split so the parts sum back exactly, and installment i
// falls due i calendar months after the first due date.
// The rate must already be resolved (rate is never nil here).
func ExpandInstallments(req domain.OperationRequest, rate domain.Rate) ([]domain.Operation, error) {
	if req.Installments <= 1 {
		return []domain.Operation{{
			ClientID:     req.ClientID,
			Type:         req.Type,
			TitleNumber:  strings.TrimSpace(req.TitleNumber),
			NominalValue: req.NominalValue.Round2(),
			NetValue:     ComputeNetValue(req.NominalValue.Round2(), rate),
			IssueDate:    req.IssueDate,
			DueDate:      req.DueDate,
			Taxa:         rate,
			Status:       domain.StatusAberto,
			Notes:        req.Notes,
		}}, nil
	}

	n := req.Installments
	if n < minInstallments || n > maxInstallments {
		return nil, &domain.ErrBusinessRule{
			Rule:    "installments",
			Message: fmt.Sprintf("número de parcelas deve estar entre %d e %d, recebido %d", minInstallments, maxInstallments, n),
		}
	}

	opType := req.Type
	if opType == "" {
		opType = domain.OperationParcelamento
	}
	base := strings.TrimSpace(req.TitleNumber)

	values := req.NominalValue.Split(n)
	if req.NominalValue.IsPositive() {
		// Rounding each part up can leave the last one at or below zero.
		for _, v := range values {
			if !v.IsPositive() {
				return nil, &domain.ErrValidation{
					Field:   "nominalValue",
					Message: fmt.Sprintf("%s não comporta %d parcelas com valor positivo", req.NominalValue, n),
				}
			}
		}
	}
	ops := make([]domain.Operation, n)
	for i, v := range values {
		ops[i] = domain.Operation{
			ClientID:     req.ClientID,
			Type:         opType,
			TitleNumber:  installmentTitle(base, i+1, n),
			NominalValue: v,
			NetValue:     ComputeNetValue(v, rate),
			IssueDate:    req.IssueDate,
			DueDate:      req.DueDate.AddMonths(i),
			Taxa:         rate,
			Status:       domain.StatusAberto,
			Notes:        req.Notes,
		}
	}
	return ops, nil
}

func installmentTitle(base string, i, n int) string {
	if base == "" {
		return fmt.Sprintf("%d/%d", i, n)
	}
	return fmt.Sprintf("%s-%d/%d", base, i, n)
}

package service

import (
	"strings"

	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
)

// Validation runs before any store write.

func validateClientDraft(d domain.ClientDraft) error {
	if strings.TrimSpace(d.Name) == "" {
		return &domain.ErrValidation{Field: "name", Message: "obrigatório"}
	}
	if d.LimiteCredito.IsNegative() {
		return &domain.ErrValidation{Field: "limiteCredito", Message: "não pode ser negativo"}
	}
	if d.TaxaJurosMensal.IsNegative() {
		return &domain.ErrValidation{Field: "taxaJurosMensal", Message: "não pode ser negativa"}
	}
	return nil
}

func validateClientPatch(p domain.ClientPatch) error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return &domain.ErrValidation{Field: "name", Message: "não pode ficar vazio"}
	}
	if p.LimiteCredito != nil && p.LimiteCredito.IsNegative() {
		return &domain.ErrValidation{Field: "limiteCredito", Message: "não pode ser negativo"}
	}
	if p.TaxaJurosMensal != nil && p.TaxaJurosMensal.IsNegative() {
		return &domain.ErrValidation{Field: "taxaJurosMensal", Message: "não pode ser negativa"}
	}
	return nil
}

func validateOperationRequest(r *domain.OperationRequest) error {
	if r.Type == "" && r.Installments >= minInstallments {
		r.Type = domain.OperationParcelamento
	}
	if !r.Type.Valid() {
		return &domain.ErrValidation{Field: "type", Message: "deve ser duplicata, cheque ou parcelamento"}
	}
	if r.NominalValue.IsNegative() {
		return &domain.ErrValidation{Field: "nominalValue", Message: "não pode ser negativo"}
	}
	if r.DueDate.IsZero() {
		return &domain.ErrValidation{Field: "dueDate", Message: "obrigatório"}
	}
	if r.Taxa != nil && r.Taxa.IsNegative() {
		return &domain.ErrValidation{Field: "taxa", Message: "não pode ser negativa"}
	}
	if r.Installments < 0 {
		return &domain.ErrValidation{Field: "installments", Message: "não pode ser negativo"}
	}
	return nil
}

func validateReceiptDraft(d domain.ReceiptDraft) error {
	if d.OperationID <= 0 {
		return &domain.ErrValidation{Field: "operationId", Message: "obrigatório"}
	}
	if d.DataRecebimento.IsZero() {
		return &domain.ErrValidation{Field: "dataRecebimento", Message: "obrigatório"}
	}
	for field, v := range map[string]domain.Money{
		"valorTotalRecebido": d.ValorTotalRecebido,
		"valorPrincipalPago": d.ValorPrincipalPago,
		"valorJurosPago":     d.ValorJurosPago,
	} {
		if v.IsNegative() {
			return &domain.ErrValidation{Field: field, Message: "não pode ser negativo"}
		}
	}
	return nil
}

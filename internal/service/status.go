package service

import (
	"fmt"

	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
)

// ============================================================
// Operation status machine
// ============================================================

// Trigger is what drives a status change.
type Trigger string

const (
	// TriggerOverdue is the due date passing while the operation is open.
	TriggerOverdue Trigger = "overdue"
	// TriggerSettlement is a receipt bringing principal paid up to the nominal value.
	TriggerSettlement Trigger = "settlement"
	// TriggerExtension is a receipt carrying a new due date.
	TriggerExtension Trigger = "extension"
	// TriggerReversal is the deletion of a receipt of a paid operation.
	TriggerReversal Trigger = "reversal"
	// TriggerManual is the user marking an operation paid after confirmation.
	TriggerManual Trigger = "manual"
)

// allowedTransitions lists, per trigger, the source statuses and the targets
// they may move to.
var allowedTransitions = map[Trigger]map[domain.Status][]domain.Status{
	TriggerOverdue: {
		domain.StatusAberto: {domain.StatusAtrasado},
	},
	TriggerSettlement: {
		domain.StatusAberto:   {domain.StatusPago},
		domain.StatusAtrasado: {domain.StatusPago},
	},
	TriggerExtension: {
		domain.StatusAberto:   {domain.StatusAberto},
		domain.StatusAtrasado: {domain.StatusAberto},
		domain.StatusPago:     {domain.StatusAberto},
	},
	TriggerReversal: {
		domain.StatusPago: {domain.StatusAberto, domain.StatusAtrasado},
	},
	TriggerManual: {
		domain.StatusAberto:   {domain.StatusPago},
		domain.StatusAtrasado: {domain.StatusPago},
	},
}

// Transition validates moving from current to target under trigger.
// It returns domain.ErrNoChange when target equals current, and an
// ErrBusinessRule for any move the trigger does not permit.
func Transition(current domain.Status, trigger Trigger, target domain.Status) (domain.Status, error) {
	if !target.Valid() {
		return current, &domain.ErrValidation{Field: "status", Message: fmt.Sprintf("status desconhecido '%s'", target)}
	}
	if current == target {
		return current, domain.ErrNoChange
	}
	for _, to := range allowedTransitions[trigger][current] {
		if to == target {
			return target, nil
		}
	}
	return current, &domain.ErrBusinessRule{
		Rule:    "status_transition",
		Message: fmt.Sprintf("transição %s → %s não permitida (%s)", current, target, trigger),
	}
}

// IsOverdue reports whether due is strictly before today.
func IsOverdue(due, today domain.Date) bool { return due.Before(today) }

// EffectiveStatus is the status to display and aggregate: an open operation
// whose due date has passed reads as overdue even if the store still says open.
func EffectiveStatus(op domain.Operation, today domain.Date) domain.Status {
	if op.Status == domain.StatusAberto && IsOverdue(op.DueDate, today) {
		return domain.StatusAtrasado
	}
	return op.Status
}

// StatusAfterReversal is where a paid operation lands once it is no longer
// fully paid: overdue if its due date has passed, open otherwise.
func StatusAfterReversal(op domain.Operation, today domain.Date) domain.Status {
	if IsOverdue(op.DueDate, today) {
		return domain.StatusAtrasado
	}
	return domain.StatusAberto
}

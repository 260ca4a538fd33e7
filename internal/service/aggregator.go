package service

import (
	"sort"

	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
)

// ============================================================
// Portfolio aggregation: pure derivations over a snapshot
// ============================================================

// DefaultReminderWindow is how many days ahead reminders look.
const DefaultReminderWindow = 7

// SnapshotInput is a read-only copy of the collections to aggregate.
type SnapshotInput struct {
	Clients    []domain.Client
	Operations []domain.Operation
	Receipts   []domain.Receipt
	Today      domain.Date
	Dismissed  map[int64]bool
	Window     int // days; <= 0 means DefaultReminderWindow
}

// BuildSnapshot computes the dashboard metrics. Only operations whose
// effective status is aberto or atrasado are active; delinquency counts
// atrasado only. The inputs are never modified.
func BuildSnapshot(in SnapshotInput) domain.Snapshot {
	window := in.Window
	if window <= 0 {
		window = DefaultReminderWindow
	}
	today := in.Today
	horizon := today.AddDays(window)
	byOp := receiptsByOperation(in.Receipts)

	snap := domain.Snapshot{
		Today:             today,
		ActiveCapital:     domain.ZeroMoney,
		InterestToReceive: domain.ZeroMoney,
		TotalReceivables:  domain.ZeroMoney,
		DelinquencyValue:  domain.ZeroMoney,
		Reminders:         []domain.Reminder{},
		Buckets: map[domain.DueBucket][]int64{
			domain.BucketOverdue:  {},
			domain.BucketToday:    {},
			domain.BucketThisWeek: {},
			domain.BucketUpcoming: {},
		},
	}

	dist := map[domain.Status]*domain.StatusSlice{
		domain.StatusAberto:   {Status: domain.StatusAberto},
		domain.StatusAtrasado: {Status: domain.StatusAtrasado},
		domain.StatusPago:     {Status: domain.StatusPago},
	}
	exposure := map[int64]*domain.ClientExposure{}
	for _, c := range in.Clients {
		exposure[c.ID] = &domain.ClientExposure{
			ClientID:      c.ID,
			ClientName:    c.Name,
			LimiteCredito: c.LimiteCredito,
		}
	}

	for _, op := range in.Operations {
		status := EffectiveStatus(op, today)
		bal := RemainingBalances(op, byOp[op.ID])

		if s, ok := dist[status]; ok {
			s.Count++
			if status.Active() {
				s.CurrentDebt = s.CurrentDebt.Add(bal.CurrentDebt)
			}
		}
		if !status.Active() {
			continue
		}

		snap.ActiveCount++
		snap.ActiveCapital = snap.ActiveCapital.Add(bal.RemainingPrincipal)
		snap.InterestToReceive = snap.InterestToReceive.Add(bal.RemainingInterest)
		if status == domain.StatusAtrasado {
			snap.OverdueCount++
			snap.DelinquencyValue = snap.DelinquencyValue.Add(bal.CurrentDebt)
		}

		bucket := DueBucketFor(op.DueDate, today, window)
		snap.Buckets[bucket] = append(snap.Buckets[bucket], op.ID)

		if !op.DueDate.Before(today) && !op.DueDate.After(horizon) && !in.Dismissed[op.ID] {
			snap.Reminders = append(snap.Reminders, domain.Reminder{
				OperationID: op.ID,
				ClientID:    op.ClientID,
				TitleNumber: op.TitleNumber,
				DueDate:     op.DueDate,
				DaysLeft:    today.DaysUntil(op.DueDate),
				CurrentDebt: bal.CurrentDebt,
				Status:      status,
			})
		}

		if e, ok := exposure[op.ClientID]; ok {
			e.CurrentDebt = e.CurrentDebt.Add(bal.CurrentDebt)
			if status == domain.StatusAtrasado {
				e.OverdueDebt = e.OverdueDebt.Add(bal.CurrentDebt)
			}
		}
	}
	snap.TotalReceivables = snap.ActiveCapital.Add(snap.InterestToReceive)

	sort.SliceStable(snap.Reminders, func(i, j int) bool {
		a, b := snap.Reminders[i], snap.Reminders[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		return a.OperationID < b.OperationID
	})

	snap.Distribution = []domain.StatusSlice{
		*dist[domain.StatusAberto],
		*dist[domain.StatusAtrasado],
		*dist[domain.StatusPago],
	}

	snap.Exposure = make([]domain.ClientExposure, 0, len(in.Clients))
	for _, c := range in.Clients {
		e := exposure[c.ID]
		e.AvailableCredit = e.LimiteCredito.Sub(e.CurrentDebt).FloorZero()
		e.OverLimit = e.LimiteCredito.IsPositive() && e.LimiteCredito.LessThan(e.CurrentDebt)
		snap.Exposure = append(snap.Exposure, *e)
	}

	return snap
}

// DueBucketFor classifies a due date relative to today.
func DueBucketFor(due, today domain.Date, window int) domain.DueBucket {
	switch {
	case due.Before(today):
		return domain.BucketOverdue
	case due.Equal(today):
		return domain.BucketToday
	case !due.After(today.AddDays(window)):
		return domain.BucketThisWeek
	default:
		return domain.BucketUpcoming
	}
}

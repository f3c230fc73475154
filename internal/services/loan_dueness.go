package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"funds/internal/core"
)

// Dueness classifies an open loan against its due date.
type Dueness string

const (
	DueSettled  Dueness = "settled"
	DueOverdue  Dueness = "overdue"
	DueToday    Dueness = "due_today"
	DueSoon     Dueness = "due_soon"
	DueUpcoming Dueness = "upcoming"
)

// DueSoonWindow is how far ahead a due date counts as soon.
const DueSoonWindow = 7 * 24 * time.Hour

// LoanView is a loan with its repayment status and dueness.
type LoanView struct {
	Transaction core.Transaction
	Status      core.LoanStatus
	Dueness     Dueness
	DaysLeft    int // negative when overdue
}

// ClassifyDueness compares the due date with the calendar day of now.
func ClassifyDueness(status core.LoanStatus, due core.Date, now time.Time) (Dueness, int) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	days := int(dueDay.Sub(today).Hours() / 24)

	switch {
	case status.Settled():
		return DueSettled, days
	case due.IsZero():
		return DueUpcoming, 0
	case days < 0:
		return DueOverdue, days
	case days == 0:
		return DueToday, days
	case dueDay.Sub(today) <= DueSoonWindow:
		return DueSoon, days
	default:
		return DueUpcoming, days
	}
}

// Loans lists every loan ordered by due date, earliest first. Loans without
// a due date come last.
func (s *LedgerService) Loans(ctx context.Context) ([]LoanView, error) {
	s.mu.Lock()
	txs, err := s.store.LoadTransactions(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	now := s.now()
	var out []LoanView
	for _, tx := range txs {
		status, ok := core.LoanStatusOf(tx)
		if !ok {
			continue
		}
		due, days := ClassifyDueness(status, tx.DueDate, now)
		out = append(out, LoanView{Transaction: tx, Status: status, Dueness: due, DaysLeft: days})
	}

	slices.SortStableFunc(out, func(a, b LoanView) int {
		ad, bd := a.Transaction.DueDate, b.Transaction.DueDate
		switch {
		case ad.IsZero() && bd.IsZero():
			return 0
		case ad.IsZero():
			return 1
		case bd.IsZero():
			return -1
		}
		return ad.Compare(bd.Time)
	})
	return out, nil
}

package core

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Contribution is what a single record adds to the running total.
//
// A non-loan contributes its amount. A receivable loan (amount > 0) contributes
// what is still owed to the user, amount - paid. A payable loan (amount <= 0)
// contributes amount + paid, moving toward zero as it is repaid.
func Contribution(tx Transaction) Money {
	if !tx.IsLoan {
		return tx.Amount
	}
	if tx.Amount.IsPositive() {
		return tx.Amount.Sub(tx.PaidAmount)
	}
	return tx.Amount.Add(tx.PaidAmount)
}

// Total derives the running total from the full ledger.
func Total(txs []Transaction) Money {
	var total Money
	for _, tx := range txs {
		total = total.Add(Contribution(tx))
	}
	return total
}

// RepayEffect is the change a repayment of paid applies to the running total
// of a ledger containing tx.
func RepayEffect(tx Transaction, paid Money) Money {
	if tx.Amount.IsPositive() {
		return paid.Neg()
	}
	return paid
}

// IndexOfTransaction returns the position of the first record with id, or -1.
func IndexOfTransaction(txs []Transaction, id string) int {
	return slices.IndexFunc(txs, func(tx Transaction) bool { return tx.ID == id })
}

// IndexOfTarget returns the position of the first target with id, or -1.
func IndexOfTarget(targets []Target, id int64) int {
	return slices.IndexFunc(targets, func(t Target) bool { return t.ID == id })
}

// SortNewestFirst orders records by creation time, newest first. Records
// sharing a timestamp keep their stored order.
func SortNewestFirst(txs []Transaction) {
	slices.SortStableFunc(txs, func(a, b Transaction) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
}

// NewTransactionID returns a unique, time-ordered identifier.
func NewTransactionID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NextTargetID returns a creation-time identifier strictly greater than every
// identifier already in targets.
func NextTargetID(targets []Target, now time.Time) int64 {
	id := now.UnixMilli()
	for _, t := range targets {
		if t.ID >= id {
			id = t.ID + 1
		}
	}
	return id
}

// AssignTransactionIDs gives every record without an identifier a fresh one.
// It reports whether anything changed.
func AssignTransactionIDs(txs []Transaction, newID func() string) bool {
	changed := false
	for i := range txs {
		if txs[i].ID == "" {
			txs[i].ID = newID()
			changed = true
		}
	}
	return changed
}

// AssignTargetIDs gives every target without an identifier a fresh one.
func AssignTargetIDs(targets []Target, now time.Time) bool {
	changed := false
	for i := range targets {
		if targets[i].ID == 0 {
			targets[i].ID = NextTargetID(targets, now)
			changed = true
		}
	}
	return changed
}

// LoanStatus describes repayment of a single loan record.
type LoanStatus struct {
	Principal  Money // |amount|
	Paid       Money
	Remaining  Money // principal - paid, negative when overpaid
	Percentage decimal.Decimal
}

// Outstanding is the remaining balance clamped at zero for display.
func (l LoanStatus) Outstanding() Money {
	return l.Remaining.Max(Money{})
}

// Settled reports whether the loan has been fully repaid.
func (l LoanStatus) Settled() bool {
	return !l.Remaining.IsPositive()
}

// LoanStatusOf computes the repayment status of tx. The second result is
// false when tx is not a loan.
func LoanStatusOf(tx Transaction) (LoanStatus, bool) {
	if !tx.IsLoan {
		return LoanStatus{}, false
	}
	principal := tx.Amount.Abs()
	st := LoanStatus{
		Principal: principal,
		Paid:      tx.PaidAmount,
		Remaining: principal.Sub(tx.PaidAmount),
	}
	if principal.IsZero() {
		st.Percentage = hundred
		return st, true
	}
	pct := tx.PaidAmount.Decimal().Mul(hundred).DivRound(principal.Decimal(), 2)
	st.Percentage = decimal.Min(pct, hundred)
	return st, true
}

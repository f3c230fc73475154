package core

import "github.com/shopspring/decimal"

// Progress is a target measured against the running total.
type Progress struct {
	Target     Target
	Percentage decimal.Decimal // clamped to [0, 100]
	Remaining  Money           // never negative
	Complete   bool
}

// ProgressOf measures target against total. Every target is measured against
// the same shared total; targets do not partition the balance.
func ProgressOf(target Target, total Money) Progress {
	p := Progress{
		Target:    target,
		Remaining: target.Amount.Sub(total).Max(Money{}),
	}
	if !target.Amount.IsPositive() {
		p.Percentage = hundred
		p.Complete = true
		return p
	}
	pct := total.Decimal().Mul(hundred).DivRound(target.Amount.Decimal(), 2)
	switch {
	case pct.IsNegative():
		pct = decimal.Zero
	case pct.GreaterThan(hundred):
		pct = hundred
	}
	p.Percentage = pct
	p.Complete = pct.GreaterThanOrEqual(hundred)
	return p
}

// Summary is the full derived view of the stored collections: the ledger
// newest first, the running total and each target's progress.
type Summary struct {
	Transactions []Transaction
	Total        Money
	Targets      []Progress
}

// Summarize derives a Summary from the authoritative collections. The input
// slices are not modified.
func Summarize(txs []Transaction, targets []Target) Summary {
	sorted := make([]Transaction, len(txs))
	copy(sorted, txs)
	SortNewestFirst(sorted)

	s := Summary{
		Transactions: sorted,
		Total:        Total(txs),
		Targets:      make([]Progress, 0, len(targets)),
	}
	for _, t := range targets {
		s.Targets = append(s.Targets, ProgressOf(t, s.Total))
	}
	return s
}

package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressOf(t *testing.T) {
	goal := Target{ID: 1, Name: "bike", Amount: Cents(100000)}

	tests := []struct {
		name      string
		total     int64
		pct       string
		remaining int64
		complete  bool
	}{
		{"partial", 25000, "25", 75000, false},
		{"fraction", 33333, "33.33", 66667, false},
		{"exact", 100000, "100", 0, true},
		{"clamped above", 250000, "100", 0, true},
		{"negative total", -5000, "0", 105000, false},
		{"zero total", 0, "0", 100000, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ProgressOf(goal, Cents(tt.total))
			assert.Equal(t, tt.pct, p.Percentage.String())
			assert.Equal(t, Cents(tt.remaining), p.Remaining)
			assert.Equal(t, tt.complete, p.Complete)
		})
	}
}

func TestSummarize_SharedTotal(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	txs := []Transaction{
		{ID: "first", Timestamp: base, Amount: Cents(60000)},
		{ID: "second", Timestamp: base.Add(time.Minute), Amount: Cents(-10000)},
	}
	targets := []Target{
		{ID: 1, Name: "phone", Amount: Cents(50000)},
		{ID: 2, Name: "laptop", Amount: Cents(100000)},
	}

	s := Summarize(txs, targets)

	assert.Equal(t, Cents(50000), s.Total)
	assert.Equal(t, "second", s.Transactions[0].ID)
	assert.Equal(t, "first", txs[0].ID, "input must not be reordered")
	if assert.Len(t, s.Targets, 2) {
		assert.True(t, s.Targets[0].Complete)
		assert.Equal(t, "50", s.Targets[1].Percentage.String())
	}
}

package google

import (
	"time"

	"funds/internal/core"
)

var (
	transactionHeader = []any{"ID", "Timestamp", "Note", "Amount", "Display", "Loan", "Due date", "Paid", "Remaining"}
	targetHeader      = []any{"ID", "Name", "Goal", "Progress %", "Remaining", "Complete"}
)

// TransactionRows renders the ledger as a header row plus one row per
// record. Amounts are plain decimals so the sheet can sum them.
func TransactionRows(txs []core.Transaction, currency string) [][]any {
	rows := make([][]any, 0, len(txs)+1)
	rows = append(rows, transactionHeader)
	for _, tx := range txs {
		ts := ""
		if !tx.Timestamp.IsZero() {
			ts = tx.Timestamp.UTC().Format(time.RFC3339)
		}
		row := []any{tx.ID, ts, tx.Note, tx.Amount.String(), tx.Amount.Format(currency), tx.IsLoan, "", "", ""}
		if st, ok := core.LoanStatusOf(tx); ok {
			row[6] = tx.DueDate.String()
			row[7] = st.Paid.String()
			row[8] = st.Outstanding().String()
		}
		rows = append(rows, row)
	}
	return rows
}

func TargetRows(progress []core.Progress, currency string) [][]any {
	rows := make([][]any, 0, len(progress)+1)
	rows = append(rows, targetHeader)
	for _, p := range progress {
		rows = append(rows, []any{
			p.Target.ID,
			p.Target.Name,
			p.Target.Amount.Format(currency),
			p.Percentage.StringFixed(2),
			p.Remaining.Format(currency),
			p.Complete,
		})
	}
	return rows
}

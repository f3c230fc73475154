package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"funds/internal/core"
	"funds/internal/services"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func (a *App) printTransactions(txs []core.Transaction) {
	if len(txs) == 0 {
		fmt.Fprintln(a.Out, "No transactions.")
		return
	}
	tw := newTable(a.Out)
	fmt.Fprintln(tw, "ID\tDATE\tNOTE\tAMOUNT\tLOAN")
	for _, tx := range txs {
		date := "-"
		if !tx.Timestamp.IsZero() {
			date = tx.Timestamp.Format("2006-01-02 15:04")
		}
		loan := ""
		if status, ok := core.LoanStatusOf(tx); ok {
			loan = fmt.Sprintf("due %s, paid %s, %s%%", tx.DueDate, a.money(status.Paid), status.Percentage.StringFixed(0))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", tx.ID, date, tx.Note, a.money(tx.Amount), loan)
	}
	tw.Flush()
}

func (a *App) printTargets(progress []core.Progress) {
	if len(progress) == 0 {
		fmt.Fprintln(a.Out, "No targets.")
		return
	}
	tw := newTable(a.Out)
	fmt.Fprintln(tw, "ID\tNAME\tTARGET\tPROGRESS\tREMAINING")
	for _, p := range progress {
		state := p.Percentage.StringFixed(2) + "%"
		if p.Complete {
			state += " done"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", p.Target.ID, p.Target.Name, a.money(p.Target.Amount), state, a.money(p.Remaining))
	}
	tw.Flush()
}

func (a *App) printLoans(loans []services.LoanView) {
	if len(loans) == 0 {
		fmt.Fprintln(a.Out, "No loans.")
		return
	}
	tw := newTable(a.Out)
	fmt.Fprintln(tw, "ID\tNOTE\tDIRECTION\tPRINCIPAL\tREMAINING\tDUE\tSTATUS")
	for _, l := range loans {
		direction := "lent"
		if !l.Transaction.Amount.IsPositive() {
			direction = "borrowed"
		}
		status := string(l.Dueness)
		switch l.Dueness {
		case services.DueOverdue:
			status = fmt.Sprintf("overdue by %d days", -l.DaysLeft)
		case services.DueSoon, services.DueUpcoming:
			if !l.Transaction.DueDate.IsZero() {
				status = fmt.Sprintf("%s (%d days)", l.Dueness, l.DaysLeft)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			l.Transaction.ID, l.Transaction.Note, direction,
			a.money(l.Status.Principal), a.money(l.Status.Outstanding()),
			l.Transaction.DueDate, status)
	}
	tw.Flush()
}

func (a *App) printTotal(total core.Money) {
	fmt.Fprintf(a.Out, "Total: %s\n", a.money(total))
}

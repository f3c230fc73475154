package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"

	"funds/internal/core"
	"funds/internal/services"
)

type addCmd struct {
	app  *App
	kind string
	loan bool
	due  string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record an income or outgoing transaction" }
func (*addCmd) Usage() string {
	return `funds add [-kind income|outgoing] [-loan -due <YYYY-MM-DD>] <amount> <note...>

  Records a transaction. The amount is always entered positive, the kind
  decides whether it adds to or subtracts from the total. A loan needs a due
  date: an income loan is money lent out, an outgoing loan is money borrowed.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.kind, "kind", string(core.Income), "income or outgoing")
	f.BoolVar(&c.loan, "loan", false, "record the transaction as a loan")
	f.StringVar(&c.due, "due", "", "loan due date (YYYY-MM-DD)")
}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 2 {
		return c.app.usageError("add needs an amount and a note")
	}
	amount, err := core.ParseMoney(f.Arg(0))
	if err != nil {
		return c.app.usageError("Error parsing amount %q: %v", f.Arg(0), err)
	}
	in := core.NewTransaction{
		Kind:   core.Kind(strings.ToLower(c.kind)),
		Note:   strings.Join(f.Args()[1:], " "),
		Amount: amount,
		IsLoan: c.loan,
	}
	if c.due != "" {
		if !c.loan {
			return c.app.usageError("-due only applies to loans")
		}
		due, err := core.ParseDate(c.due)
		if err != nil {
			return c.app.usageError("Error parsing due date %q: %v", c.due, err)
		}
		in.DueDate = due
	}
	if err := in.Validate(); err != nil {
		return c.app.usageError("Error: %v", err)
	}

	return c.app.withService(ctx, func(svc *services.LedgerService) error {
		tx, err := svc.AddTransaction(ctx, in)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.app.Out, "Added %s %s (%s)\n", tx.Note, c.app.money(tx.Amount), tx.ID)
		return nil
	})
}

type listCmd struct {
	app   *App
	limit int
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "show the total, transactions and targets" }
func (*listCmd) Usage() string {
	return `funds list [-n <count>]

  Shows the running total, the transactions newest first and the progress of
  every target.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 0, "show at most this many transactions (0 shows all)")
}

func (c *listCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.limit < 0 {
		return c.app.usageError("-n must not be negative")
	}
	return c.app.withService(ctx, func(svc *services.LedgerService) error {
		s, err := svc.Summary(ctx)
		if err != nil {
			return err
		}
		txs := s.Transactions
		if c.limit > 0 && len(txs) > c.limit {
			txs = txs[:c.limit]
		}
		c.app.printTotal(s.Total)
		fmt.Fprintln(c.app.Out)
		c.app.printTransactions(txs)
		fmt.Fprintln(c.app.Out)
		c.app.printTargets(s.Targets)
		return nil
	})
}

type repayCmd struct {
	app *App
}

func (*repayCmd) Name() string     { return "repay" }
func (*repayCmd) Synopsis() string { return "record a repayment against a loan" }
func (*repayCmd) Usage() string {
	return `funds repay <id> <amount>

  Adds amount to what has been repaid on the loan. The id may be any unique
  prefix of the transaction id.
`
}

func (*repayCmd) SetFlags(*flag.FlagSet) {}

func (c *repayCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return c.app.usageError("repay needs a transaction id and an amount")
	}
	paid, err := core.ParseMoney(f.Arg(1))
	if err != nil {
		return c.app.usageError("Error parsing amount %q: %v", f.Arg(1), err)
	}
	return c.app.withService(ctx, func(svc *services.LedgerService) error {
		s, err := svc.Summary(ctx)
		if err != nil {
			return err
		}
		id, err := resolveTransactionID(s.Transactions, f.Arg(0))
		if err != nil {
			return err
		}
		s, err = svc.Repay(ctx, id, paid)
		if err != nil {
			return err
		}
		tx := s.Transactions[core.IndexOfTransaction(s.Transactions, id)]
		status, _ := core.LoanStatusOf(tx)
		fmt.Fprintf(c.app.Out, "Repaid %s on %s, %s remaining\n", c.app.money(paid), tx.Note, c.app.money(status.Outstanding()))
		c.app.printTotal(s.Total)
		return nil
	})
}

type deleteCmd struct {
	app *App
	yes bool
}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "delete a transaction" }
func (*deleteCmd) Usage() string {
	return `funds delete [-yes] <id>

  Deletes a transaction and reverses its effect on the total. Asks for
  confirmation unless -yes is given.
`
}

func (c *deleteCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "yes", false, "do not ask for confirmation")
}

func (c *deleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return c.app.usageError("delete needs exactly one transaction id")
	}
	return c.app.withService(ctx, func(svc *services.LedgerService) error {
		s, err := svc.Summary(ctx)
		if err != nil {
			return err
		}
		id, err := resolveTransactionID(s.Transactions, f.Arg(0))
		if err != nil {
			return err
		}
		tx := s.Transactions[core.IndexOfTransaction(s.Transactions, id)]
		if !c.yes && !c.app.confirm(fmt.Sprintf("Delete %q (%s)?", tx.Note, c.app.money(tx.Amount))) {
			return core.ErrNotConfirmed
		}
		s, err = svc.DeleteTransaction(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.app.Out, "Deleted %s\n", tx.Note)
		c.app.printTotal(s.Total)
		return nil
	})
}

type loansCmd struct {
	app *App
	all bool
}

func (*loansCmd) Name() string     { return "loans" }
func (*loansCmd) Synopsis() string { return "list loans by due date" }
func (*loansCmd) Usage() string {
	return `funds loans [-all]

  Lists open loans, earliest due first, with what is left to repay.
`
}

func (c *loansCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.all, "all", false, "include settled loans")
}

func (c *loansCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.withService(ctx, func(svc *services.LedgerService) error {
		loans, err := svc.Loans(ctx)
		if err != nil {
			return err
		}
		if !c.all {
			open := loans[:0]
			for _, l := range loans {
				if l.Dueness != services.DueSettled {
					open = append(open, l)
				}
			}
			loans = open
		}
		c.app.printLoans(loans)
		return nil
	})
}

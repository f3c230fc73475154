package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/subcommands"

	"funds/internal/core"
	"funds/internal/services"
)

// App is what every subcommand shares: where to write, where to read
// confirmations from and how to open the ledger.
type App struct {
	Out      io.Writer
	Err      io.Writer
	In       io.Reader
	Currency string
	Open     func(ctx context.Context) (*services.LedgerService, error)
}

// Register adds the funds subcommands to c.
func Register(c *subcommands.Commander, app *App) {
	c.Register(&addCmd{app: app}, "transactions")
	c.Register(&listCmd{app: app}, "transactions")
	c.Register(&repayCmd{app: app}, "transactions")
	c.Register(&deleteCmd{app: app}, "transactions")
	c.Register(&loansCmd{app: app}, "transactions")

	c.Register(&targetAddCmd{app: app}, "targets")
	c.Register(&targetsCmd{app: app}, "targets")
	c.Register(&targetRemoveCmd{app: app}, "targets")

	c.Register(&exportCmd{app: app}, "data")
	c.Register(&importCmd{app: app}, "data")
	c.Register(&resetCmd{app: app}, "data")
}

// withService opens the ledger, runs fn and closes it again. Errors are
// printed and mapped to an exit status.
func (a *App) withService(ctx context.Context, fn func(*services.LedgerService) error) subcommands.ExitStatus {
	svc, err := a.Open(ctx)
	if err != nil {
		fmt.Fprintf(a.Err, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer svc.Close()

	if err := fn(svc); err != nil {
		if errors.Is(err, core.ErrNotConfirmed) {
			fmt.Fprintln(a.Err, "Cancelled.")
		} else {
			fmt.Fprintf(a.Err, "Error: %v\n", err)
		}
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (a *App) usageError(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(a.Err, format+"\n", args...)
	return subcommands.ExitUsageError
}

// confirm asks a yes/no question on In. Anything but y or yes is a no.
func (a *App) confirm(question string) bool {
	fmt.Fprintf(a.Out, "%s [y/N]: ", question)
	if a.In == nil {
		return false
	}
	line, err := bufio.NewReader(a.In).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func (a *App) money(m core.Money) string {
	if a.Currency == "" {
		return m.Format(core.DefaultCurrency)
	}
	return m.Format(a.Currency)
}

// resolveTransactionID accepts a full id or a unique prefix of one.
func resolveTransactionID(txs []core.Transaction, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", core.ErrNotFound
	}
	var match string
	for _, tx := range txs {
		if tx.ID == ref {
			return ref, nil
		}
		if strings.HasPrefix(tx.ID, ref) {
			if match != "" && match != tx.ID {
				return "", fmt.Errorf("id prefix %q is ambiguous", ref)
			}
			match = tx.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("transaction %s: %w", ref, core.ErrNotFound)
	}
	return match, nil
}

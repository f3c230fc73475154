package cli

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/subcommands"

	"funds/internal/core"
	"funds/internal/services"
)

type targetAddCmd struct {
	app *App
}

func (*targetAddCmd) Name() string     { return "target-add" }
func (*targetAddCmd) Synopsis() string { return "add a savings target" }
func (*targetAddCmd) Usage() string {
	return `funds target-add <amount> <name...>

  Adds a savings target. Progress is measured against the running total.
`
}

func (*targetAddCmd) SetFlags(*flag.FlagSet) {}

func (c *targetAddCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 2 {
		return c.app.usageError("target-add needs an amount and a name")
	}
	amount, err := core.ParseMoney(f.Arg(0))
	if err != nil {
		return c.app.usageError("Error parsing amount %q: %v", f.Arg(0), err)
	}
	name := strings.Join(f.Args()[1:], " ")

	return c.app.withService(ctx, func(svc *services.LedgerService) error {
		t, err := svc.AddTarget(ctx, name, amount)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.app.Out, "Added target %s %s (%d)\n", t.Name, c.app.money(t.Amount), t.ID)
		return nil
	})
}

type targetsCmd struct {
	app *App
}

func (*targetsCmd) Name() string     { return "targets" }
func (*targetsCmd) Synopsis() string { return "show progress towards every target" }
func (*targetsCmd) Usage() string {
	return `funds targets

  Shows each target with its progress against the running total.
`
}

func (*targetsCmd) SetFlags(*flag.FlagSet) {}

func (c *targetsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.withService(ctx, func(svc *services.LedgerService) error {
		s, err := svc.Summary(ctx)
		if err != nil {
			return err
		}
		c.app.printTotal(s.Total)
		c.app.printTargets(s.Targets)
		return nil
	})
}

type targetRemoveCmd struct {
	app *App
	yes bool
}

func (*targetRemoveCmd) Name() string     { return "target-rm" }
func (*targetRemoveCmd) Synopsis() string { return "remove a savings target" }
func (*targetRemoveCmd) Usage() string {
	return `funds target-rm [-yes] <id>

  Removes a target. Asks for confirmation unless -yes is given.
`
}

func (c *targetRemoveCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "yes", false, "do not ask for confirmation")
}

func (c *targetRemoveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return c.app.usageError("target-rm needs exactly one target id")
	}
	id, err := strconv.ParseInt(f.Arg(0), 10, 64)
	if err != nil {
		return c.app.usageError("Error parsing target id %q: %v", f.Arg(0), err)
	}

	return c.app.withService(ctx, func(svc *services.LedgerService) error {
		s, err := svc.Summary(ctx)
		if err != nil {
			return err
		}
		var name string
		found := false
		for _, p := range s.Targets {
			if p.Target.ID == id {
				name, found = p.Target.Name, true
				break
			}
		}
		if !found {
			return fmt.Errorf("target %d: %w", id, core.ErrNotFound)
		}
		if !c.yes && !c.app.confirm(fmt.Sprintf("Remove target %q?", name)) {
			return core.ErrNotConfirmed
		}
		if err := svc.RemoveTarget(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(c.app.Out, "Removed target %s\n", name)
		return nil
	})
}

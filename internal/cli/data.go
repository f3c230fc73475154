package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"

	"funds/internal/core"
	"funds/internal/services"
)

// DefaultExportFile is the file name offered for exports.
const DefaultExportFile = "funds-tracker-backup.json"

type exportCmd struct {
	app    *App
	output string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export transactions and targets as JSON" }
func (*exportCmd) Usage() string {
	return `funds export [-o <file>]

  Writes both collections as one JSON document, to stdout unless -o is set.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "output file, e.g. "+DefaultExportFile+" (default stdout)")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.withService(ctx, func(svc *services.LedgerService) error {
		doc, err := svc.Export(ctx)
		if err != nil {
			return err
		}
		if c.output == "" || c.output == "-" {
			return core.EncodeDocument(c.app.Out, doc)
		}

		f, err := os.Create(c.output)
		if err != nil {
			return fmt.Errorf("create %s: %w", c.output, err)
		}
		if err := core.EncodeDocument(f, doc); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", c.output, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", c.output, err)
		}
		fmt.Fprintf(c.app.Err, "Exported %d transactions and %d targets to %s\n", len(doc.Transactions), len(doc.Targets), c.output)
		return nil
	})
}

type importCmd struct {
	app *App
	yes bool
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "replace data from an exported JSON document" }
func (*importCmd) Usage() string {
	return `funds import [-yes] <file|->

  Replaces every collection present in the document. A collection missing
  from the document is kept. Reading from stdin (-) requires -yes.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "yes", false, "do not ask for confirmation")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return c.app.usageError("import needs exactly one file")
	}
	path := f.Arg(0)
	if path == "-" && !c.yes {
		return c.app.usageError("importing from stdin requires -yes")
	}

	var r io.Reader = c.app.In
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			fmt.Fprintf(c.app.Err, "Error opening %q: %v\n", path, err)
			return subcommands.ExitFailure
		}
		defer file.Close()
		r = file
	}
	doc, err := core.DecodeDocument(r)
	if err != nil {
		fmt.Fprintf(c.app.Err, "Error reading %q: %v\n", path, err)
		return subcommands.ExitFailure
	}

	return c.app.withService(ctx, func(svc *services.LedgerService) error {
		var parts []string
		if doc.HasTransactions {
			parts = append(parts, fmt.Sprintf("%d transactions", len(doc.Transactions)))
		}
		if doc.HasTargets {
			parts = append(parts, fmt.Sprintf("%d targets", len(doc.Targets)))
		}
		if len(parts) == 0 {
			fmt.Fprintln(c.app.Out, "Nothing to import.")
			return nil
		}
		what := strings.Join(parts, " and ")
		if !c.yes && !c.app.confirm(fmt.Sprintf("Replace stored data with %s?", what)) {
			return core.ErrNotConfirmed
		}
		if err := svc.Import(ctx, doc); err != nil {
			return err
		}
		fmt.Fprintf(c.app.Out, "Imported %s\n", what)
		return nil
	})
}

type resetCmd struct {
	app *App
	yes bool
}

func (*resetCmd) Name() string     { return "reset" }
func (*resetCmd) Synopsis() string { return "delete all transactions and targets" }
func (*resetCmd) Usage() string {
	return `funds reset [-yes]

  Deletes every transaction and target. Asks for confirmation unless -yes
  is given.
`
}

func (c *resetCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "yes", false, "do not ask for confirmation")
}

func (c *resetCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.withService(ctx, func(svc *services.LedgerService) error {
		if !c.yes && !c.app.confirm("Delete ALL transactions and targets?") {
			return core.ErrNotConfirmed
		}
		if err := svc.Reset(ctx); err != nil {
			return err
		}
		fmt.Fprintln(c.app.Out, "All data deleted.")
		return nil
	})
}

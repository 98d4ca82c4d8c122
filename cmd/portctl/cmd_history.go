package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/portctl/pkg/auth"
	"github.com/newtron-network/portctl/pkg/cli"
	"github.com/newtron-network/portctl/pkg/history"
	"github.com/newtron-network/portctl/pkg/model"
	"github.com/newtron-network/portctl/pkg/rollback"
	"github.com/newtron-network/portctl/pkg/util"
)

var (
	historyLimit     int
	showAt           string
	rollbackPrevious bool
)

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", history.DefaultLimit, "Maximum entries to list")
	showCmd.Flags().StringVar(&showAt, "at", "", "Show the configuration in effect at this RFC3339 time (with -d/-i)")
	rollbackCmd.Flags().BoolVar(&rollbackPrevious, "previous", false, "Roll -d/-i back to its previous configuration")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List change history, most recent first",
	Long: `List recorded changes. -d and -i narrow the listing.

Examples:
  portctl history
  portctl -d leaf-01 history --limit 10
  portctl -d leaf-01 -i Ethernet1/1 history`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.checkView(auth.PermHistoryView); err != nil {
			return err
		}
		entries, err := app.store.History(cmd.Context(), history.Query{
			Device:    deviceName,
			Interface: interfaceName,
			Limit:     historyLimit,
		})
		if err != nil {
			return err
		}

		summaries := make([]model.HistorySummary, 0, len(entries))
		for _, e := range entries {
			summaries = append(summaries, e.Summary())
		}
		if jsonOutput {
			return printJSON(summaries)
		}
		if len(summaries) == 0 {
			fmt.Println("No history entries found")
			return nil
		}

		t := cli.NewTable("ID", "TIMESTAMP", "DEVICE", "INTERFACE", "MODE", "VLANS", "APPLIED", "USER", "MESSAGE")
		for _, s := range summaries {
			t.Row(s.ID, s.Timestamp.Local().Format("2006-01-02 15:04:05"), s.Device, s.Interface,
				string(s.Mode), cli.OrDash(s.VLANs), cli.YesNo(s.Applied), cli.OrDash(s.User),
				cli.Truncate(s.Message, 50))
		}
		t.Flush()
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show [entry-id]",
	Short: "Show a history entry and its configuration",
	Long: `Show one history entry. Without an id, shows the latest entry of -d/-i,
or the entry in effect at --at.

Examples:
  portctl show 3f9a1c2b7d4e
  portctl -d leaf-01 -i Ethernet1/1 show
  portctl -d leaf-01 -i Ethernet1/1 show --at 2026-03-01T12:00:00Z`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := resolveEntry(cmd, args)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(entry)
		}
		printEntry(entry)
		return nil
	},
}

func resolveEntry(cmd *cobra.Command, args []string) (model.HistoryEntry, error) {
	ctx := cmd.Context()
	if err := app.checkView(auth.PermHistoryView); err != nil {
		return model.HistoryEntry{}, err
	}
	if len(args) == 1 {
		return app.store.Get(ctx, args[0])
	}
	iface, err := requireInterface()
	if err != nil {
		return model.HistoryEntry{}, err
	}
	if showAt == "" {
		return history.Latest(ctx, app.store, iface)
	}
	at, err := time.Parse(time.RFC3339, showAt)
	if err != nil {
		return model.HistoryEntry{}, fmt.Errorf("invalid --at time %q: %w", showAt, err)
	}
	return history.At(ctx, app.store, iface, at)
}

func printEntry(e model.HistoryEntry) {
	fmt.Printf("Entry:     %s\n", cli.Bold(e.ID))
	fmt.Printf("Interface: %s\n", e.Interface)
	fmt.Printf("Timestamp: %s\n", e.Timestamp.Format(time.RFC3339))
	fmt.Printf("User:      %s\n", cli.OrDash(e.User))
	fmt.Printf("Txn:       %s\n", cli.OrDash(e.TxnID))
	fmt.Printf("Parent:    %s\n", cli.OrDash(e.Parent))
	fmt.Printf("Applied:   %s\n", cli.YesNo(e.Applied))
	if e.IsRollback() {
		fmt.Printf("Rollback:  %s\n", e.RollbackOf)
	}
	fmt.Printf("Template:  %s\n", e.Artifact.TemplateVersion)
	fmt.Printf("Hash:      %s\n", e.Artifact.Hash)
	for _, r := range e.Verdict.Reasons {
		fmt.Printf("Reason:    %s\n", r)
	}
	fmt.Println(cli.Dim("---"))
	fmt.Println(e.Artifact.Text)
	fmt.Println(cli.Dim("---"))
}

var diffCmd = &cobra.Command{
	Use:   "diff <from-id> <to-id>",
	Short: "Diff the configuration of two history entries",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.checkView(auth.PermHistoryView); err != nil {
			return err
		}
		a, err := app.store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		b, err := app.store.Get(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		d, err := history.Diff(a, b)
		if err != nil {
			return err
		}
		if d == "" {
			fmt.Println("No differences")
			return nil
		}
		fmt.Print(d)
		return nil
	},
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback [entry-id]",
	Short: "Re-apply the configuration of a history entry (preview by default)",
	Long: `Roll an interface back to a recorded configuration. The stored
configuration is replayed verbatim and the rollback is itself recorded.

With -d/-i, the entry must belong to that interface.

Examples:
  portctl rollback 3f9a1c2b7d4e
  portctl -d leaf-01 -i Ethernet1/1 rollback 3f9a1c2b7d4e -x
  portctl -d leaf-01 -i Ethernet1/1 rollback --previous -x`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if rollbackPrevious == (len(args) == 1) {
			return fmt.Errorf("give either an entry id or --previous")
		}

		var selected *model.InterfaceRef
		if deviceName != "" || interfaceName != "" || rollbackPrevious {
			iface, err := requireInterface()
			if err != nil {
				return err
			}
			selected = &iface
		}

		// Unresolvable targets still go through the manager on -x so the
		// rejection is audited.
		target, err := rollbackTarget(cmd, args, selected)
		if err == nil {
			err = app.checkExecute(auth.PermPortRollback, target.Interface)
			if err != nil {
				return err
			}
		}
		if !executeMode {
			if err != nil {
				return err
			}
			fmt.Printf("Would roll %s back to %s:\n\n", target.Interface, cli.Bold(target.ID))
			fmt.Println(target.Artifact.Text)
			printDryRunNotice()
			return nil
		}

		var res *model.ChangeResult
		if rollbackPrevious {
			res, err = app.rollback.Previous(ctx, *selected)
		} else {
			res, err = app.rollback.Rollback(ctx, rollback.Request{ID: args[0], Interface: selected})
		}
		if jsonOutput {
			if perr := printJSON(res); perr != nil {
				return perr
			}
			return err
		}
		printChangeResult(res)
		return err
	},
}

// rollbackTarget resolves the entry a rollback would replay.
func rollbackTarget(cmd *cobra.Command, args []string, selected *model.InterfaceRef) (model.HistoryEntry, error) {
	ctx := cmd.Context()
	if !rollbackPrevious {
		target, err := app.store.Get(ctx, args[0])
		if err != nil {
			return target, err
		}
		if selected != nil && *selected != target.Interface {
			return target, util.NewMismatchError(target.ID, selected.String(), target.Interface.String())
		}
		return target, nil
	}
	return app.rollback.PreviousTarget(ctx, *selected)
}

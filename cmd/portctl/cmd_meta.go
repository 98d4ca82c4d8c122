package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/portctl/pkg/audit"
	"github.com/newtron-network/portctl/pkg/auth"
	"github.com/newtron-network/portctl/pkg/cli"
	"github.com/newtron-network/portctl/pkg/health"
	"github.com/newtron-network/portctl/pkg/model"
	"github.com/newtron-network/portctl/pkg/settings"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List inventory devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		devices := app.inventory.Devices()
		if jsonOutput {
			return printJSON(devices)
		}
		t := cli.NewTable("NAME", "ADDRESS", "PLATFORM", "ROLE", "SITE")
		for _, d := range devices {
			t.Row(d.Ref.Name, d.Ref.Address, cli.OrDash(d.Ref.Platform), cli.OrDash(d.Role), cli.OrDash(d.Site))
		}
		t.Flush()
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health [device...]",
	Short: "Check that devices are reachable and healthy",
	Long: `Open a session to each device and run health checks. Without
arguments, every inventory device is checked.

Examples:
  portctl health
  portctl health leaf-01 leaf-02`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var devs []model.DeviceRef
		if len(args) == 0 {
			for _, d := range app.inventory.Devices() {
				devs = append(devs, d.Ref)
			}
		}
		for _, name := range args {
			ref, err := app.inventory.Device(name)
			if err != nil {
				return err
			}
			devs = append(devs, ref)
		}

		checker := health.NewChecker(app.opener).WithTimeout(2 * app.settings.GetProbeTimeout())
		reports := checker.RunAll(cmd.Context(), devs, app.settings.GetParallelism())
		if jsonOutput {
			return printJSON(reports)
		}

		t := cli.NewTable("DEVICE", "CHECK", "STATUS", "MESSAGE")
		var critical int
		for _, r := range reports {
			if r.Overall == health.StatusCritical {
				critical++
			}
			for _, res := range r.Results {
				t.Row(r.Device, res.Check, healthStatus(res.Status), res.Message)
			}
		}
		t.Flush()
		if critical > 0 {
			return fmt.Errorf("%d of %d devices critical", critical, len(reports))
		}
		return nil
	},
}

func healthStatus(s health.Status) string {
	switch s {
	case health.StatusOK:
		return cli.Green(string(s))
	case health.StatusCritical:
		return cli.Red(string(s))
	default:
		return cli.Yellow(string(s))
	}
}

// ============================================================================
// Audit
// ============================================================================

var (
	auditUser      string
	auditOperation string
	auditTxn       string
	auditLast      string
	auditLimit     int
	auditFailures  bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "View the audit log",
	Long: `View audited change transactions, most recent last.

Examples:
  portctl audit -d leaf-01
  portctl audit --last 24h --failures
  portctl audit --txn 01J9Z3Q4YB7M2K8T6X0D5RFN1C`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if app.audit == nil {
			return fmt.Errorf("audit log unavailable")
		}
		if err := app.checkView(auth.PermAuditView); err != nil {
			return err
		}
		filter := audit.Filter{
			Device:      deviceName,
			Interface:   interfaceName,
			User:        auditUser,
			Operation:   auditOperation,
			TxnID:       auditTxn,
			Limit:       auditLimit,
			FailureOnly: auditFailures,
		}
		if auditLast != "" {
			d, err := time.ParseDuration(auditLast)
			if err != nil {
				return fmt.Errorf("invalid duration: %s", auditLast)
			}
			filter.StartTime = time.Now().Add(-d)
		}

		events, err := app.audit.Query(filter)
		if err != nil {
			return fmt.Errorf("querying audit log: %w", err)
		}
		if jsonOutput {
			return printJSON(events)
		}
		if len(events) == 0 {
			fmt.Println("No audit events found")
			return nil
		}

		t := cli.NewTable("TIMESTAMP", "USER", "OPERATION", "INTERFACE", "STATE", "STATUS", "DETAIL")
		for _, e := range events {
			status := cli.Green("ok")
			switch {
			case e.DryRun:
				status = cli.Yellow("dry-run")
			case !e.Success:
				status = cli.Red("failed")
			case e.Severity() == audit.SeverityWarning:
				status = cli.Yellow("forced")
			}
			detail := e.Error
			if detail == "" {
				detail = e.HistoryEntryID
			}
			t.Row(e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.User, e.Operation,
				strings.TrimSpace(e.Device+" "+e.Interface), cli.OrDash(e.State), status,
				cli.OrDash(cli.Truncate(detail, 60)))
		}
		t.Flush()
		return nil
	},
}

func init() {
	auditCmd.Flags().StringVar(&auditUser, "user", "", "Filter by user")
	auditCmd.Flags().StringVar(&auditOperation, "operation", "", "Filter by operation (configure, rollback, preview)")
	auditCmd.Flags().StringVar(&auditTxn, "txn", "", "Filter by transaction id")
	auditCmd.Flags().StringVar(&auditLast, "last", "", "Show events from last duration (e.g., 24h)")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 100, "Maximum events to show")
	auditCmd.Flags().BoolVar(&auditFailures, "failures", false, "Show only failures")

	settingsCmd.AddCommand(settingsShowCmd, settingsGetCmd, settingsSetCmd, settingsClearCmd, settingsPathCmd)
}

// ============================================================================
// Settings
// ============================================================================

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage persistent settings",
	Long: `Manage persistent settings stored in ~/.portctl/settings.json.

Examples:
  portctl settings show
  portctl settings set inventory /etc/portctl/hosts.yaml
  portctl settings set history_backend redis
  portctl settings clear`,
}

func currentSettingsPath() string {
	if settingsPath != "" {
		return settingsPath
	}
	return settings.DefaultSettingsPath()
}

func saveSettings() error {
	if err := userSettings.SaveTo(currentSettingsPath()); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Settings file: %s\n\n", currentSettingsPath())
		t := cli.NewTable("SETTING", "VALUE")
		for _, key := range settings.Keys() {
			value, err := userSettings.Get(key)
			if err != nil {
				return err
			}
			if value == "" {
				value = cli.Dim("(not set)")
			}
			t.Row(key, value)
		}
		t.Flush()
		return nil
	},
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <setting>",
	Short: "Get a setting value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := userSettings.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <setting> <value>",
	Short: "Set a setting value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := userSettings.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := saveSettings(); err != nil {
			return err
		}
		fmt.Printf("%s set to: %s\n", args[0], args[1])
		return nil
	},
}

var settingsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Reset all settings to defaults",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		userSettings.Clear()
		if err := saveSettings(); err != nil {
			return err
		}
		fmt.Println("Settings cleared")
		return nil
	},
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file path",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(currentSettingsPath())
	},
}

// Portctl - Switch Port Change Pipeline
//
// A CLI for changing switchport configuration on managed switches with:
//   - Pre-checks against live device state before any change
//   - Rendering of device-native configuration from operator intent
//   - Append-only change history, recorded before anything is pushed
//   - Verification after apply and verbatim rollback to any history entry
//   - Dry-run by default (preview changes, require -x to execute)
//
// Context flags select the interface; commands act on it:
//
//	portctl -d <device> -i <interface> <verb> [args] [-x]
//
// Examples:
//
//	portctl -d leaf-01 -i Ethernet1/1 precheck --mode access --vlan 100
//	portctl -d leaf-01 -i Ethernet1/1 configure --mode access --vlan 100 -x
//	portctl -d leaf-01 -i Ethernet1/1 history
//	portctl rollback 3f9a1c2b7d4e -x
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/newtron-network/portctl/pkg/cli"
	"github.com/newtron-network/portctl/pkg/model"
	"github.com/newtron-network/portctl/pkg/settings"
	"github.com/newtron-network/portctl/pkg/util"
	"github.com/newtron-network/portctl/pkg/version"
)

var (
	// Global context flags
	deviceName    string // -d, --device
	interfaceName string // -i, --interface

	// Global option flags
	settingsPath  string
	inventoryPath string
	historyDir    string
	verbose       bool
	logJSON       bool
	executeMode   bool
	jsonOutput    bool

	// Global state
	userSettings *settings.Settings
	app          *App
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if app != nil {
		// Closed here rather than in a post-run hook so failed commands
		// still flush metrics and release the store.
		if cerr := app.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, cli.Red("error: ")+err.Error())
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "portctl",
	Short:             "Switch port change pipeline",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `Portctl pre-checks, renders, records, applies and verifies switchport
changes, and rolls interfaces back to any recorded configuration.

Write commands preview changes by default; use -x to execute.

  portctl -d <device> -i <interface> <verb> [args] [-x]`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if settingsPath != "" {
			userSettings, err = settings.LoadFrom(settingsPath)
		} else {
			userSettings, err = settings.Load()
		}
		if err != nil {
			util.Warnf("Could not load settings: %v", err)
			userSettings = &settings.Settings{}
		}

		// Quiet by default, verbose on -v.
		logCfg := util.LogConfig{
			Level:      "warn",
			JSON:       logJSON,
			File:       userSettings.LogFile,
			MaxSizeMB:  10,
			MaxBackups: 5,
		}
		if verbose {
			logCfg.Level = "debug"
		}
		if err := util.ConfigureLogging(logCfg); err != nil {
			util.Warnf("Could not configure logging: %v", err)
		}

		if skipsApp(cmd) {
			return nil
		}
		if inventoryPath != "" {
			userSettings.Inventory = inventoryPath
		}
		if historyDir != "" {
			userSettings.HistoryDir = historyDir
		}
		app, err = NewApp(userSettings)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&deviceName, "device", "d", "", "Device name (object selector)")
	rootCmd.PersistentFlags().StringVarP(&interfaceName, "interface", "i", "", "Interface name (object selector)")

	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "Settings file (default ~/.portctl/settings.json)")
	rootCmd.PersistentFlags().StringVarP(&inventoryPath, "inventory", "I", "", "Inventory hosts file")
	rootCmd.PersistentFlags().StringVar(&historyDir, "history-dir", "", "File history store directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit logs as JSON")

	for _, cmd := range []*cobra.Command{configureCmd, rollbackCmd} {
		addWriteFlags(cmd)
	}
	for _, cmd := range []*cobra.Command{
		precheckCmd, configureCmd, rollbackCmd, historyCmd, showCmd, devicesCmd, healthCmd, auditCmd,
	} {
		addOutputFlags(cmd)
	}

	rootCmd.AddGroup(
		&cobra.Group{ID: "change", Title: "Change Operations:"},
		&cobra.Group{ID: "history", Title: "History:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)

	for _, cmd := range []*cobra.Command{precheckCmd, configureCmd, rollbackCmd} {
		cmd.GroupID = "change"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{historyCmd, showCmd, diffCmd} {
		cmd.GroupID = "history"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{devicesCmd, healthCmd, auditCmd, settingsCmd, versionCmd} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if version.Version == "dev" {
			fmt.Printf("portctl dev build (use 'make build' for version info)\n")
			return
		}
		fmt.Printf("portctl %s\n", version.Info())
	},
}

// skipsApp reports whether cmd runs without inventory or history.
func skipsApp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "settings", "version", "help", "completion":
			return true
		}
	}
	return false
}

// addWriteFlags registers -x/--execute as a local flag.
func addWriteFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&executeMode, "execute", "x", false, "Execute changes (default is dry-run)")
}

// addOutputFlags registers --json as a local flag.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "JSON output")
}

// requireInterface returns the interface selected by -d and -i.
func requireInterface() (model.InterfaceRef, error) {
	if deviceName == "" {
		return model.InterfaceRef{}, fmt.Errorf("device required: use -d <device> flag")
	}
	if interfaceName == "" {
		return model.InterfaceRef{}, fmt.Errorf("interface required: use -i <interface> flag")
	}
	return model.InterfaceRef{Device: deviceName, Name: interfaceName}, nil
}

func printDryRunNotice() {
	if !executeMode {
		fmt.Println("\n" + cli.Yellow("DRY-RUN: No changes applied. Use -x to execute."))
	}
}

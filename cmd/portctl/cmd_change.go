package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/newtron-network/portctl/pkg/auth"
	"github.com/newtron-network/portctl/pkg/cli"
	"github.com/newtron-network/portctl/pkg/model"
)

// Change request flags shared by precheck and configure.
var (
	changeMode        string
	changeVLAN        int
	changeVLANs       string
	changeVNI         int
	changeVRF         string
	changeDescription string
	changeForce       bool
	changeFile        string
)

func addChangeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&changeMode, "mode", "", "Switchport mode: access or trunk")
	cmd.Flags().IntVar(&changeVLAN, "vlan", 0, "Access VLAN")
	cmd.Flags().StringVar(&changeVLANs, "vlans", "", "Trunk allowed VLANs (e.g. 10-20,30)")
	cmd.Flags().IntVar(&changeVNI, "vni", 0, "VXLAN network identifier")
	cmd.Flags().StringVar(&changeVRF, "vrf", "", "VRF member")
	cmd.Flags().StringVar(&changeDescription, "description", "", "Interface description")
	cmd.Flags().BoolVar(&changeForce, "force", false, "Proceed even if the port carries traffic")
}

func init() {
	addChangeFlags(precheckCmd)
	addChangeFlags(configureCmd)
	configureCmd.Flags().StringVarP(&changeFile, "file", "f", "", "YAML file with a list of change requests")
}

// buildRequest assembles a change request from the context and change flags.
func buildRequest() (model.ChangeRequest, error) {
	iface, err := requireInterface()
	if err != nil {
		return model.ChangeRequest{}, err
	}
	return model.ChangeRequest{
		Device:      iface.Device,
		Interface:   iface.Name,
		Mode:        model.Mode(strings.ToLower(changeMode)),
		VLAN:        changeVLAN,
		VLANs:       changeVLANs,
		VNI:         changeVNI,
		VRF:         changeVRF,
		Description: changeDescription,
		Force:       changeForce,
	}, nil
}

// loadRequests reads a batch file:
//
//	- device: leaf-01
//	  interface: Ethernet1/1
//	  mode: access
//	  vlan: 100
func loadRequests(path string) ([]model.ChangeRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var reqs []model.ChangeRequest
	if err := yaml.Unmarshal(data, &reqs); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%s: no change requests", path)
	}
	return reqs, nil
}

var precheckCmd = &cobra.Command{
	Use:   "precheck",
	Short: "Check whether an interface is safe to reconfigure",
	Long: `Probe the interface and report whether the requested change is safe.

Nothing is rendered, recorded or applied.

Examples:
  portctl -d leaf-01 -i Ethernet1/1 precheck --mode access --vlan 100`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := buildRequest()
		if err != nil {
			return err
		}
		if err := req.Validate(); err != nil {
			return err
		}
		verdict := app.checker.Evaluate(cmd.Context(), req)
		app.metrics.Verdict(verdict.Safe)
		result := model.NewPreCheckResult(verdict)

		if jsonOutput {
			return printJSON(result)
		}
		printPreCheck(req.Target(), result)
		return nil
	},
}

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Configure an interface (preview by default)",
	Long: `Pre-check, render, record, apply and verify a switchport change.

Without -x the change is pre-checked and rendered only.

Examples:
  portctl -d leaf-01 -i Ethernet1/1 configure --mode access --vlan 100
  portctl -d leaf-01 -i Ethernet1/2 configure --mode trunk --vlans 10-20,30 -x
  portctl configure -f changes.yaml -x`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if changeFile != "" {
			return configureBatch(cmd)
		}
		req, err := buildRequest()
		if err != nil {
			return err
		}

		if err := checkChange(req); err != nil {
			return err
		}

		var res *model.ChangeResult
		if executeMode {
			res, err = app.orchestrator.Execute(cmd.Context(), req)
		} else {
			res, err = app.orchestrator.Preview(cmd.Context(), req)
		}
		if jsonOutput {
			if perr := printJSON(res); perr != nil {
				return perr
			}
			return err
		}
		printChangeResult(res)
		if err == nil {
			printDryRunNotice()
		}
		return err
	},
}

func configureBatch(cmd *cobra.Command) error {
	reqs, err := loadRequests(changeFile)
	if err != nil {
		return err
	}

	for _, req := range reqs {
		if err := checkChange(req); err != nil {
			return err
		}
	}

	var results []*model.ChangeResult
	if executeMode {
		results, err = app.orchestrator.ExecuteAll(cmd.Context(), reqs, app.settings.GetParallelism())
	} else {
		var errs []string
		for _, req := range reqs {
			res, perr := app.orchestrator.Preview(cmd.Context(), req)
			results = append(results, res)
			if perr != nil {
				errs = append(errs, perr.Error())
			}
		}
		if len(errs) > 0 {
			err = fmt.Errorf("%d of %d previews failed", len(errs), len(reqs))
		}
	}

	if jsonOutput {
		if perr := printJSON(results); perr != nil {
			return perr
		}
		return err
	}

	t := cli.NewTable("DEVICE", "INTERFACE", "STATE", "ENTRY", "MESSAGE")
	for i, res := range results {
		t.Row(reqs[i].Device, reqs[i].Interface, cli.State(res.State),
			cli.OrDash(res.HistoryEntryID), cli.Truncate(res.Message, 60))
	}
	t.Flush()
	printDryRunNotice()
	return err
}

func checkChange(req model.ChangeRequest) error {
	if err := app.checkExecute(auth.PermPortConfigure, req.Target()); err != nil {
		return err
	}
	if req.Force {
		return app.checkExecute(auth.PermPortForce, req.Target())
	}
	return nil
}

func printPreCheck(iface model.InterfaceRef, r model.PreCheckResult) {
	fmt.Printf("Pre-check: %s\n\n", cli.Bold(iface.String()))
	fmt.Printf("  %s %s\n", cli.DotPad("port_exists", 24), cli.YesNo(r.PortExists))
	fmt.Printf("  %s %s\n", cli.DotPad("admin_status", 24), cli.OrDash(r.AdminStatus))
	fmt.Printf("  %s %s\n", cli.DotPad("oper_status", 24), cli.OrDash(r.OperStatus))
	fmt.Printf("  %s %d\n", cli.DotPad("mac_addresses", 24), len(r.MACAddresses))
	fmt.Printf("  %s %s\n", cli.DotPad("is_safe_to_configure", 24), cli.YesNo(r.IsSafeToConfigure))

	if len(r.CurrentConfig) > 0 {
		fmt.Println()
		t := cli.NewTable("SETTING", "VALUE").WithPrefix("  ")
		keys := make([]string, 0, len(r.CurrentConfig))
		for k := range r.CurrentConfig {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			t.Row(k, r.CurrentConfig[k])
		}
		t.Flush()
	}

	if len(r.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for _, rec := range r.Recommendations {
			fmt.Printf("  - %s\n", rec)
		}
	}
}

func printChangeResult(res *model.ChangeResult) {
	if res == nil {
		return
	}
	if res.Verdict != nil {
		for _, reason := range res.Verdict.Reasons {
			fmt.Printf("%s %s\n", cli.Yellow("!"), reason)
		}
	}
	if res.AppliedConfig != "" {
		fmt.Println(cli.Dim("---"))
		fmt.Println(res.AppliedConfig)
		fmt.Println(cli.Dim("---"))
	}
	fmt.Printf("State:   %s\n", cli.State(res.State))
	if res.HistoryEntryID != "" {
		fmt.Printf("Entry:   %s\n", res.HistoryEntryID)
	}
	fmt.Printf("Txn:     %s\n", res.TxnID)
	if res.Success {
		fmt.Printf("Result:  %s\n", cli.Green(res.Message))
	} else {
		fmt.Printf("Result:  %s\n", cli.Red(res.Message))
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

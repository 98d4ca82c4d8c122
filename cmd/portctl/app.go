package main

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/newtron-network/portctl/pkg/audit"
	"github.com/newtron-network/portctl/pkg/auth"
	"github.com/newtron-network/portctl/pkg/device"
	"github.com/newtron-network/portctl/pkg/history"
	"github.com/newtron-network/portctl/pkg/inventory"
	"github.com/newtron-network/portctl/pkg/metrics"
	"github.com/newtron-network/portctl/pkg/model"
	"github.com/newtron-network/portctl/pkg/orchestrator"
	"github.com/newtron-network/portctl/pkg/precheck"
	"github.com/newtron-network/portctl/pkg/probe"
	"github.com/newtron-network/portctl/pkg/rollback"
	"github.com/newtron-network/portctl/pkg/settings"
	"github.com/newtron-network/portctl/pkg/util"
)

// App holds the pipeline components for one CLI invocation.
type App struct {
	settings     *settings.Settings
	inventory    *inventory.Inventory
	store        history.Store
	audit        *audit.FileLogger
	metrics      *metrics.Metrics
	opener       device.Opener
	prober       *probe.Probe
	checker      *precheck.Engine
	orchestrator *orchestrator.Orchestrator
	rollback     *rollback.Manager
	perms        *auth.Checker
}

// NewApp wires inventory, history, audit and the orchestrator from s.
func NewApp(s *settings.Settings) (*App, error) {
	inv, err := inventory.Load(s.GetInventory())
	if err != nil {
		return nil, err
	}
	inv.PasswordPrompt = promptPassword

	store, err := openStore(s)
	if err != nil {
		return nil, err
	}

	a := &App{
		settings:  s,
		inventory: inv,
		store:     store,
		metrics:   metrics.New(),
	}

	a.audit, err = audit.NewFileLogger(s.GetAuditLog(), audit.RotationConfig{
		MaxSizeMB:  10,
		MaxBackups: 10,
	})
	if err != nil {
		util.Warnf("Could not initialize audit logging: %v", err)
	}

	opener := device.NewSSHOpener(inv, s.KnownHostsFile)
	a.opener = opener
	a.prober = probe.New(inv, opener).WithTimeout(s.GetProbeTimeout())
	a.checker = precheck.New(a.prober)

	user := s.GetUser()
	a.perms = auth.NewChecker(inv.Policy(), user)
	opts := []orchestrator.Option{
		orchestrator.WithMetrics(a.metrics),
		orchestrator.WithUser(user),
		orchestrator.WithApplyTimeout(s.GetApplyTimeout()),
		orchestrator.WithChecker(a.checker),
	}
	var auditLog audit.Logger
	if a.audit != nil {
		auditLog = a.audit
		opts = append(opts, orchestrator.WithAudit(a.audit))
	}
	a.orchestrator = orchestrator.New(inv, opener, a.prober, store, opts...)
	a.rollback = rollback.NewManager(store, a.orchestrator, auditLog, user)
	return a, nil
}

// checkExecute verifies the operator may run perm against iface. Previews
// need no permission.
func (a *App) checkExecute(perm auth.Permission, iface model.InterfaceRef) error {
	if !executeMode {
		return nil
	}
	return a.perms.Check(perm, auth.NewContext().WithDevice(iface.Device).WithInterface(iface.Name))
}

// checkView verifies the operator may read history or audit records.
func (a *App) checkView(perm auth.Permission) error {
	ctx := auth.NewContext().WithDevice(deviceName).WithInterface(interfaceName)
	return a.perms.Check(perm, ctx)
}

func openStore(s *settings.Settings) (history.Store, error) {
	switch s.GetHistoryBackend() {
	case settings.BackendFile:
		return history.NewFileStore(s.GetHistoryDir())
	case settings.BackendRedis:
		return history.NewRedisStore(history.RedisOptions{
			Addr:      s.GetRedisAddr(),
			Password:  os.Getenv("PORTCTL_REDIS_PASSWORD"),
			DB:        s.RedisDB,
			KeyPrefix: s.RedisPrefix,
		})
	default:
		return nil, fmt.Errorf("unknown history backend %q (valid: %s, %s)",
			s.HistoryBackend, settings.BackendFile, settings.BackendRedis)
	}
}

// Close flushes metrics and releases the store and audit log.
func (a *App) Close() error {
	if path := a.settings.MetricsFile; path != "" {
		if err := a.metrics.WriteTextfile(path); err != nil {
			util.Warnf("Could not write metrics: %v", err)
		}
	}
	if a.audit != nil {
		a.audit.Close()
	}
	return a.store.Close()
}

func promptPassword(device, username string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no password configured and stdin is not a terminal")
	}
	fmt.Fprintf(os.Stderr, "Password for %s@%s: ", username, device)
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(pass), nil
}

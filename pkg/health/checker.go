// Package health checks that managed switches are reachable and able to
// take changes: a session opens, the CLI answers, and ports are not
// broadly down.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/itchyny/gojq"
	"golang.org/x/sync/errgroup"

	"github.com/newtron-network/portctl/pkg/device"
	"github.com/newtron-network/portctl/pkg/model"
)

// Status represents the health status of a component
type Status string

const (
	StatusOK       Status = "ok"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
	StatusUnknown  Status = "unknown"
)

// DefaultTimeout bounds all checks against one device.
const DefaultTimeout = 10 * time.Second

// Result represents the result of a health check
type Result struct {
	Check     string        `json:"check"`
	Status    Status        `json:"status"`
	Message   string        `json:"message"`
	Details   interface{}   `json:"details,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// Report contains all health check results for a device
type Report struct {
	Device    string        `json:"device"`
	Timestamp time.Time     `json:"timestamp"`
	Overall   Status        `json:"overall"`
	Results   []Result      `json:"results"`
	Duration  time.Duration `json:"duration"`
}

// add appends r and folds it into Overall (worst wins).
func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
	switch {
	case res.Status == StatusCritical:
		r.Overall = StatusCritical
	case res.Status == StatusWarning && r.Overall != StatusCritical:
		r.Overall = StatusWarning
	case res.Status == StatusUnknown && r.Overall == StatusOK:
		r.Overall = StatusUnknown
	}
}

// Check defines the interface for health checks
type Check interface {
	Name() string
	Run(ctx context.Context, sess device.Session) Result
}

// Checker runs health checks over one session per device.
type Checker struct {
	opener  device.Opener
	timeout time.Duration
	checks  []Check
}

// NewChecker creates a new health checker with default checks
func NewChecker(opener device.Opener) *Checker {
	return &Checker{
		opener:  opener,
		timeout: DefaultTimeout,
		checks: []Check{
			&VersionCheck{},
			&InterfaceCheck{},
		},
	}
}

// WithTimeout overrides the per-device timeout.
func (c *Checker) WithTimeout(d time.Duration) *Checker {
	if d > 0 {
		c.timeout = d
	}
	return c
}

// Run executes all health checks against dev. A device that cannot be
// reached yields a critical "session" result and no further checks.
func (c *Checker) Run(ctx context.Context, dev model.DeviceRef) *Report {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	report := &Report{
		Device:    dev.Name,
		Timestamp: start,
		Results:   make([]Result, 0, len(c.checks)+1),
		Overall:   StatusOK,
	}

	err := device.WithSession(ctx, c.opener, dev, func(sess device.Session) error {
		report.add(Result{
			Check:     "session",
			Status:    StatusOK,
			Message:   "Session established",
			Duration:  time.Since(start),
			Timestamp: start,
		})
		for _, check := range c.checks {
			report.add(check.Run(ctx, sess))
		}
		return nil
	})
	if err != nil {
		report.add(Result{
			Check:     "session",
			Status:    StatusCritical,
			Message:   err.Error(),
			Duration:  time.Since(start),
			Timestamp: start,
		})
	}

	report.Duration = time.Since(start)
	return report
}

// RunAll checks every device with at most parallelism in flight. Reports
// are returned in input order.
func (c *Checker) RunAll(ctx context.Context, devs []model.DeviceRef, parallelism int) []*Report {
	reports := make([]*Report, len(devs))
	var g errgroup.Group
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, dev := range devs {
		g.Go(func() error {
			reports[i] = c.Run(ctx, dev)
			return nil
		})
	}
	g.Wait()
	return reports
}

var (
	versionQuery   = mustCompile(`.sys_ver_str // .kickstart_ver_str // empty`)
	interfaceQuery = mustCompile(`[.TABLE_interface.ROW_interface | if type == "array" then .[] else . end | select(type == "object") | {name: .interface, admin: (.admin_state // ""), oper: (.state // "")}]`)
)

func mustCompile(src string) *gojq.Code {
	query, err := gojq.Parse(src)
	if err != nil {
		panic(fmt.Sprintf("health: parsing query %q: %v", src, err))
	}
	code, err := gojq.Compile(query)
	if err != nil {
		panic(fmt.Sprintf("health: compiling query %q: %v", src, err))
	}
	return code
}

func queryJSON(code *gojq.Code, out string) (any, error) {
	var input any
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &input); err != nil {
		return nil, err
	}
	v, ok := code.Run(input).Next()
	if !ok {
		return nil, nil
	}
	if err, ok := v.(error); ok {
		return nil, err
	}
	return v, nil
}

// VersionCheck verifies the CLI answers show commands
type VersionCheck struct{}

// Name returns the check name
func (c *VersionCheck) Name() string {
	return "version"
}

// Run executes the version check
func (c *VersionCheck) Run(ctx context.Context, sess device.Session) Result {
	start := time.Now()
	result := Result{
		Check:     c.Name(),
		Timestamp: start,
	}

	out, err := sess.Query(ctx, "show version | json")
	result.Duration = time.Since(start)
	if err != nil {
		result.Status = StatusCritical
		result.Message = fmt.Sprintf("show version failed: %v", err)
		return result
	}

	v, err := queryJSON(versionQuery, out)
	ver, _ := v.(string)
	if err != nil || ver == "" {
		result.Status = StatusWarning
		result.Message = "Could not determine software version"
		return result
	}

	result.Status = StatusOK
	result.Message = "NX-OS " + ver
	result.Details = map[string]string{"version": ver}
	return result
}

// InterfaceCheck counts ports that are administratively up but
// operationally down.
type InterfaceCheck struct{}

// Name returns the check name
func (c *InterfaceCheck) Name() string {
	return "interfaces"
}

// Run executes the interface health check
func (c *InterfaceCheck) Run(ctx context.Context, sess device.Session) Result {
	start := time.Now()
	result := Result{
		Check:     c.Name(),
		Timestamp: start,
	}

	out, err := sess.Query(ctx, "show interface brief | json")
	if err == nil {
		var v any
		if v, err = queryJSON(interfaceQuery, out); err == nil {
			result.Details, result.Status, result.Message = summarizeInterfaces(v)
		}
	}
	result.Duration = time.Since(start)
	if err != nil {
		result.Status = StatusUnknown
		result.Message = fmt.Sprintf("interface summary unavailable: %v", err)
	}
	return result
}

func summarizeInterfaces(v any) (map[string]int, Status, string) {
	rows, _ := v.([]any)
	var total, down int
	for _, r := range rows {
		row, ok := r.(map[string]any)
		if !ok {
			continue
		}
		total++
		if row["admin"] == model.StatusUp && row["oper"] == model.StatusDown {
			down++
		}
	}

	details := map[string]int{"total": total, "down": down}
	switch {
	case down == 0:
		return details, StatusOK, fmt.Sprintf("All %d interfaces operational", total)
	case down < total/2:
		return details, StatusWarning, fmt.Sprintf("%d of %d interfaces down", down, total)
	default:
		return details, StatusCritical, fmt.Sprintf("%d of %d interfaces down", down, total)
	}
}

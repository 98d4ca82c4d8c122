// Package precheck evaluates a change request against the live state of the
// target interface and produces a safety verdict.
//
// Rules run in a fixed order:
//
//  1. the interface must exist (short-circuits)
//  2. an operationally up port with learned MACs is unsafe unless forced
//  3. a request matching current mode and VLANs is a safe no-op
//  4. otherwise the change is safe
//
// Probe failures never escape as errors; they become unsafe verdicts with
// a structured reason.
package precheck

import (
	"context"
	"errors"
	"fmt"

	"github.com/newtron-network/portctl/pkg/model"
	"github.com/newtron-network/portctl/pkg/probe"
	"github.com/newtron-network/portctl/pkg/util"
)

// Verdict reasons.
const (
	ReasonInterfaceNotFound = "interface not found"
	ReasonUnreachable       = "device unreachable"
	ReasonActiveTraffic     = "active traffic observed"
	ReasonForced            = "active traffic observed; proceeding because force is set"
	ReasonIdempotent        = "idempotent: no change required"
	ReasonPassed            = "pre-checks passed"
	ReasonCancelled         = "pre-check cancelled"
)

// Engine runs the pre-check rules.
type Engine struct {
	probe probe.Prober
}

// New creates an engine backed by p.
func New(p probe.Prober) *Engine {
	return &Engine{probe: p}
}

// Evaluate probes the target interface once and applies the rules.
func (e *Engine) Evaluate(ctx context.Context, req model.ChangeRequest) model.PreCheckVerdict {
	target := req.Target()
	log := util.WithInterface(target.Device, target.Name)

	snap, err := e.probe.Probe(ctx, target)
	v := model.PreCheckVerdict{Observed: snap}

	// Rule 1
	if err != nil || !snap.Exists {
		v.Reasons, v.Cause = probeFailure(err)
		log.Infof("pre-check unsafe: %s", v.Reason())
		return v
	}

	v.Recommendations = recommendations(snap, req)

	// Rule 2
	if snap.HasActiveTraffic() {
		if !req.Force {
			v.Reasons = []string{ReasonActiveTraffic}
			v.Cause = util.NewPreconditionError("configure", req.Target().String(), "no active traffic",
				fmt.Sprintf("%d MAC address(es) on an up port", len(snap.MACAddresses))).Because(util.ErrActiveTraffic)
			log.Infof("pre-check unsafe: %s", ReasonActiveTraffic)
			return v
		}
		v.Forced = true
		v.Reasons = append(v.Reasons, ReasonForced)
		log.Warnf("pre-check: %s", ReasonForced)
	}

	v.Safe = true

	// Rule 3
	if snap.Matches(req) {
		v.NoOp = true
		v.Reasons = append(v.Reasons, ReasonIdempotent)
		log.Debugf("pre-check safe: %s", ReasonIdempotent)
		return v
	}

	// Rule 4
	v.Reasons = append(v.Reasons, ReasonPassed)
	log.Debugf("pre-check safe: %s", ReasonPassed)
	return v
}

func probeFailure(err error) ([]string, error) {
	switch {
	case err == nil, errors.Is(err, util.ErrInterfaceNotFound):
		if err == nil {
			err = util.ErrInterfaceNotFound
		}
		return []string{ReasonInterfaceNotFound}, err
	case errors.Is(err, util.ErrUnreachableDevice):
		return []string{ReasonUnreachable}, err
	case errors.Is(err, context.Canceled):
		return []string{ReasonCancelled}, fmt.Errorf("%w: %v", util.ErrCancelled, err)
	default:
		return []string{"pre-check failed: " + err.Error()}, err
	}
}

// recommendations derives advisory notes from the observed state. They
// never affect safety.
func recommendations(snap model.DeviceSnapshot, req model.ChangeRequest) []string {
	var recs []string

	switch {
	case snap.AdminStatus == model.StatusUp && snap.OperStatus != model.StatusUp:
		recs = append(recs,
			"port is administratively up but operationally down",
			"consider checking physical connectivity")
	case snap.AdminStatus != model.StatusUp:
		recs = append(recs, "port is administratively down; the change will bring it up")
	}

	if len(snap.MACAddresses) == 0 {
		recs = append(recs, "no MAC addresses learned - safe to reconfigure")
	} else if snap.OperStatus == model.StatusUp {
		recs = append(recs, fmt.Sprintf("%d MAC address(es) learned - expect traffic disruption", len(snap.MACAddresses)))
	}

	if snap.Mode != "" && snap.Mode != req.Mode {
		recs = append(recs, fmt.Sprintf("switchport mode changes from %s to %s", snap.Mode, req.Mode))
	}

	return recs
}

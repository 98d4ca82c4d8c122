// Package orchestrator runs change transactions: pre-check, render, record,
// apply, verify. A transaction is recorded in history before anything is
// pushed to a device, and transactions on the same interface never overlap.
package orchestrator

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/newtron-network/portctl/pkg/audit"
	"github.com/newtron-network/portctl/pkg/device"
	"github.com/newtron-network/portctl/pkg/history"
	"github.com/newtron-network/portctl/pkg/metrics"
	"github.com/newtron-network/portctl/pkg/model"
	"github.com/newtron-network/portctl/pkg/precheck"
	"github.com/newtron-network/portctl/pkg/probe"
	"github.com/newtron-network/portctl/pkg/render"
	"github.com/newtron-network/portctl/pkg/util"
)

// DefaultApplyTimeout bounds a push plus its verification probe.
const DefaultApplyTimeout = 30 * time.Second

// Operations, used for audit and metrics labels.
const (
	OpConfigure = audit.OpConfigure
	OpRollback  = audit.OpRollback
	OpPreview   = audit.OpPreview
)

// Result messages.
const (
	MsgVerified = "configuration applied and verified"
	MsgNoOp     = "idempotent: no change required"
	MsgPreview  = "preview only: nothing recorded or applied"
)

// DeviceResolver maps a device name to its reference.
type DeviceResolver interface {
	Device(name string) (model.DeviceRef, error)
}

// Checker produces pre-check verdicts.
type Checker interface {
	Evaluate(ctx context.Context, req model.ChangeRequest) model.PreCheckVerdict
}

// Renderer turns requests into artifacts.
type Renderer interface {
	Render(req model.ChangeRequest) (model.ConfigArtifact, error)
}

// Orchestrator coordinates change transactions. It keeps no state between
// transactions beyond the per-interface lock table.
type Orchestrator struct {
	devices  DeviceResolver
	opener   device.Opener
	probe    probe.Prober
	checker  Checker
	renderer Renderer
	store    history.Store
	locks    lockTable

	audit        audit.Logger
	metrics      *metrics.Metrics
	user         string
	applyTimeout time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithAudit records every transaction outcome in l.
func WithAudit(l audit.Logger) Option {
	return func(o *Orchestrator) { o.audit = l }
}

// WithMetrics records transaction metrics in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithUser sets the operator name stored on history entries and audit events.
func WithUser(user string) Option {
	return func(o *Orchestrator) { o.user = user }
}

// WithApplyTimeout overrides DefaultApplyTimeout.
func WithApplyTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.applyTimeout = d
		}
	}
}

// WithChecker replaces the default pre-check engine.
func WithChecker(c Checker) Option {
	return func(o *Orchestrator) { o.checker = c }
}

// WithRenderer replaces the default renderer.
func WithRenderer(r Renderer) Option {
	return func(o *Orchestrator) { o.renderer = r }
}

// New creates an orchestrator. The pre-check engine and renderer default to
// precheck.New(p) and render.New().
func New(devices DeviceResolver, opener device.Opener, p probe.Prober, store history.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		devices:      devices,
		opener:       opener,
		probe:        p,
		checker:      precheck.New(p),
		renderer:     render.New(),
		store:        store,
		applyTimeout: DefaultApplyTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Execute runs one change transaction. The returned result is never nil;
// on failure it carries the reason and err is a *util.TransactionError
// wrapping the pipeline sentinel.
func (o *Orchestrator) Execute(ctx context.Context, req model.ChangeRequest) (*model.ChangeResult, error) {
	txn := newTransaction(newTxnID(), OpConfigure, req.Target())
	msg, err := o.execute(ctx, txn, req)
	return o.finish(txn, msg, err)
}

func (o *Orchestrator) execute(ctx context.Context, txn *transaction, req model.ChangeRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", txn.fail(err.Error(), err)
	}
	dev, err := o.devices.Device(req.Device)
	if err != nil {
		return "", txn.fail(err.Error(), err)
	}

	release, err := o.locks.acquire(ctx, txn.iface.Key())
	if err != nil {
		return "", txn.fail(util.ErrCancelled.Error(), fmt.Errorf("%w: waiting for interface lock: %v", util.ErrCancelled, err))
	}
	defer release()

	if err := cancelled(ctx); err != nil {
		return "", txn.fail(util.ErrCancelled.Error(), err)
	}

	// Requested -> PreChecked
	verdict := o.checker.Evaluate(ctx, req)
	txn.verdict = &verdict
	o.metrics.Verdict(verdict.Safe)
	txn.moveTo(StatePreChecked)
	if !verdict.Safe {
		return "", txn.fail(verdict.Reason(), verdictError(verdict))
	}
	if err := cancelled(ctx); err != nil {
		return "", txn.fail(util.ErrCancelled.Error(), err)
	}

	// PreChecked -> Rendered
	artifact, err := o.renderer.Render(req)
	if err != nil {
		return "", txn.fail(err.Error(), err)
	}
	txn.artifact = artifact
	txn.moveTo(StateRendered)
	if err := cancelled(ctx); err != nil {
		return "", txn.fail(util.ErrCancelled.Error(), err)
	}

	// Rendered -> Recorded. Past this point the caller can no longer cancel.
	kind := "change"
	if verdict.NoOp {
		kind = "noop"
	}
	if err := o.record(ctx, txn, history.Record{
		Device:    dev,
		Interface: txn.iface,
		Artifact:  artifact,
		Verdict:   verdict,
		Applied:   !verdict.NoOp,
		NoOp:      verdict.NoOp,
		TxnID:     txn.id,
		User:      o.user,
	}, kind); err != nil {
		return "", err
	}

	if verdict.NoOp {
		txn.moveTo(StateVerified)
		return MsgNoOp, nil
	}

	if err := o.apply(ctx, txn, dev, artifact); err != nil {
		return "", err
	}
	msg := MsgVerified
	if verdict.Forced {
		msg += " (forced over active traffic)"
	}
	return msg, nil
}

// Replay re-applies a stored artifact verbatim. It skips pre-check and
// rendering, entering the transaction at Recorded with a new history
// entry that references target.
func (o *Orchestrator) Replay(ctx context.Context, target model.HistoryEntry) (*model.ChangeResult, error) {
	txn := newTransaction(newTxnID(), OpRollback, target.Interface)
	msg, err := o.replay(ctx, txn, target)
	return o.finish(txn, msg, err)
}

func (o *Orchestrator) replay(ctx context.Context, txn *transaction, target model.HistoryEntry) (string, error) {
	if target.ID == "" || target.Artifact.Text == "" {
		err := util.NewValidationError("history entry has no artifact to replay")
		return "", txn.fail(err.Error(), err)
	}
	txn.artifact = target.Artifact

	dev, err := o.devices.Device(target.Interface.Device)
	if err != nil {
		return "", txn.fail(err.Error(), err)
	}

	release, err := o.locks.acquire(ctx, txn.iface.Key())
	if err != nil {
		return "", txn.fail(util.ErrCancelled.Error(), fmt.Errorf("%w: waiting for interface lock: %v", util.ErrCancelled, err))
	}
	defer release()

	if err := cancelled(ctx); err != nil {
		return "", txn.fail(util.ErrCancelled.Error(), err)
	}

	verdict := model.PreCheckVerdict{
		Safe:    true,
		Reasons: []string{"rollback to " + target.ID + ": pre-check bypassed"},
	}
	txn.verdict = &verdict

	if err := o.record(ctx, txn, history.Record{
		Device:     dev,
		Interface:  txn.iface,
		Artifact:   target.Artifact,
		Verdict:    verdict,
		Applied:    true,
		RollbackOf: target.ID,
		TxnID:      txn.id,
		User:       o.user,
	}, "rollback"); err != nil {
		return "", err
	}

	if err := o.apply(ctx, txn, dev, target.Artifact); err != nil {
		return "", err
	}
	return "rolled back to " + target.ID, nil
}

// record appends the entry. It runs on a context detached from the
// caller's cancellation so an append is never abandoned half way.
func (o *Orchestrator) record(ctx context.Context, txn *transaction, rec history.Record, kind string) error {
	entry, err := o.store.Append(context.WithoutCancel(ctx), rec)
	if err != nil {
		if !errors.Is(err, util.ErrStorageUnavailable) {
			err = fmt.Errorf("%w: %v", util.ErrStorageUnavailable, err)
		}
		return txn.fail(util.ErrStorageUnavailable.Error(), err)
	}
	txn.entry = &entry
	o.metrics.HistoryAppend(kind)
	txn.moveTo(StateRecorded)
	txn.log.Infof("recorded history entry %s", entry.ID)
	return nil
}

// apply pushes the artifact and re-probes the interface. Cancellation of
// ctx is ignored from here on; only the apply timeout bounds the work.
func (o *Orchestrator) apply(ctx context.Context, txn *transaction, dev model.DeviceRef, artifact model.ConfigArtifact) error {
	txn.moveTo(StateApplying)

	applyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.applyTimeout)
	defer cancel()

	err := device.WithSession(applyCtx, o.opener, dev, func(s device.Session) error {
		return s.Push(applyCtx, artifact.Text)
	})
	if err != nil {
		return txn.fail(util.ErrApplyIncomplete.Error(), fmt.Errorf("%w: %v", util.ErrApplyIncomplete, err))
	}

	snap, err := o.probe.Probe(applyCtx, txn.iface)
	if err != nil {
		return txn.fail(util.ErrVerificationMismatch.Error(),
			fmt.Errorf("%w: verification probe failed: %v", util.ErrVerificationMismatch, err))
	}
	if !snap.Matches(artifact.Request) {
		return txn.fail(util.ErrVerificationMismatch.Error(),
			fmt.Errorf("%w: want %s %s, observed %s %q", util.ErrVerificationMismatch,
				artifact.Request.Mode, artifact.Request.VLANAssignment(), modeOrNone(snap.Mode), snap.VLANs))
	}

	txn.moveTo(StateVerified)
	return nil
}

// Preview runs pre-check and render without recording or applying. The
// result carries the verdict and the artifact that Execute would push.
func (o *Orchestrator) Preview(ctx context.Context, req model.ChangeRequest) (*model.ChangeResult, error) {
	txn := newTransaction(newTxnID(), OpPreview, req.Target())

	if err := req.Validate(); err != nil {
		return o.finish(txn, "", txn.fail(err.Error(), err))
	}

	verdict := o.checker.Evaluate(ctx, req)
	txn.verdict = &verdict
	txn.moveTo(StatePreChecked)
	if !verdict.Safe {
		return o.finish(txn, "", txn.fail(verdict.Reason(), verdictError(verdict)))
	}

	artifact, err := o.renderer.Render(req)
	if err != nil {
		return o.finish(txn, "", txn.fail(err.Error(), err))
	}
	txn.artifact = artifact
	txn.moveTo(StateRendered)

	msg := MsgPreview
	if verdict.NoOp {
		msg = MsgNoOp
	}
	return o.finish(txn, msg, nil)
}

// finish builds the result and reports the outcome to logs, audit and
// metrics.
func (o *Orchestrator) finish(txn *transaction, msg string, err error) (*model.ChangeResult, error) {
	res := txn.result(msg, err)
	elapsed := time.Since(txn.started)

	outcome := metrics.OutcomeVerified
	switch {
	case err != nil && txn.entry == nil:
		outcome = metrics.OutcomeRejected
	case err != nil:
		outcome = metrics.OutcomeFailed
	case res.NoOp:
		outcome = metrics.OutcomeNoOp
	}
	if txn.op != OpPreview {
		o.metrics.Transaction(txn.op, outcome, elapsed)
	}

	if err == nil {
		txn.log.WithField("state", txn.state).Infof("%s: %s", txn.op, msg)
	}

	if o.audit != nil {
		event := audit.NewEvent(o.user, txn.iface.Device, txn.op).
			WithInterface(txn.iface.Name).
			WithTxn(txn.id, string(txn.state)).
			WithExecuteMode(txn.op != OpPreview).
			WithDuration(elapsed)
		if txn.verdict != nil {
			event.WithReasons(txn.verdict.Reasons, txn.verdict.Forced)
		}
		if txn.entry != nil {
			event.WithHistoryEntry(txn.entry.ID, txn.entry.Artifact.Hash)
		}
		if err != nil {
			event.WithError(err)
		} else {
			event.WithSuccess()
		}
		if aerr := o.audit.Log(event); aerr != nil {
			txn.log.Warnf("audit log write failed: %v", aerr)
		}
	}

	return res, err
}

func verdictError(v model.PreCheckVerdict) error {
	if v.Cause != nil {
		return v.Cause
	}
	return util.ErrPreconditionFailed
}

func cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", util.ErrCancelled, err)
	}
	return nil
}

func modeOrNone(m model.Mode) string {
	if m == "" {
		return "no switchport mode"
	}
	return string(m)
}

func newTxnID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// Package rollback re-applies a historical artifact through the
// orchestrator. The artifact is replayed verbatim, never re-rendered, and
// the replay is appended to history as a new entry.
package rollback

import (
	"context"
	"fmt"
	"time"

	"github.com/newtron-network/portctl/pkg/audit"
	"github.com/newtron-network/portctl/pkg/history"
	"github.com/newtron-network/portctl/pkg/model"
	"github.com/newtron-network/portctl/pkg/orchestrator"
	"github.com/newtron-network/portctl/pkg/util"
)

// Replayer re-enters the change pipeline with a stored artifact.
type Replayer interface {
	Replay(ctx context.Context, target model.HistoryEntry) (*model.ChangeResult, error)
}

// Request names the entry to roll back to. Interface, when set, is the
// interface the operator intends to roll back; the entry must belong to it.
type Request struct {
	ID        string
	Interface *model.InterfaceRef
}

// Manager resolves rollback targets.
type Manager struct {
	store    history.Store
	replayer Replayer
	audit    audit.Logger
	user     string
}

// NewManager creates a rollback manager. auditLog may be nil.
func NewManager(store history.Store, replayer Replayer, auditLog audit.Logger, user string) *Manager {
	return &Manager{store: store, replayer: replayer, audit: auditLog, user: user}
}

// Rollback resolves req.ID and replays its artifact. A missing entry fails
// with ErrNotFound and an interface mismatch with ErrRollbackMismatch; in
// both cases nothing is appended. The result is never nil.
func (m *Manager) Rollback(ctx context.Context, req Request) (*model.ChangeResult, error) {
	target, err := m.store.Get(ctx, req.ID)
	if err != nil {
		return m.reject(req, err)
	}
	if req.Interface != nil && *req.Interface != target.Interface {
		err := util.NewMismatchError(target.ID, req.Interface.String(), target.Interface.String())
		return m.reject(req, err)
	}

	util.WithInterface(target.Interface.Device, target.Interface.Name).
		Infof("rolling back to %s (%s)", target.ID, target.Timestamp.Format(time.RFC3339))
	return m.replayer.Replay(ctx, target)
}

// Previous rolls an interface back to the artifact before its latest entry,
// skipping no-op entries.
func (m *Manager) Previous(ctx context.Context, iface model.InterfaceRef) (*model.ChangeResult, error) {
	target, err := m.PreviousTarget(ctx, iface)
	if err != nil {
		return m.reject(Request{Interface: &iface}, err)
	}
	return m.Rollback(ctx, Request{ID: target.ID, Interface: &iface})
}

// PreviousTarget returns the newest entry whose artifact differs from the
// current one, or ErrNotFound.
func (m *Manager) PreviousTarget(ctx context.Context, iface model.InterfaceRef) (model.HistoryEntry, error) {
	stream, err := m.store.Stream(ctx, iface)
	if err != nil {
		return model.HistoryEntry{}, err
	}

	var current string
	for i := len(stream) - 1; i >= 0; i-- {
		e := stream[i]
		if e.NoOp {
			continue
		}
		if current == "" {
			current = e.Artifact.Hash
			continue
		}
		if e.Artifact.Hash != current {
			return e, nil
		}
	}
	return model.HistoryEntry{}, fmt.Errorf("%w: no earlier configuration for %s", util.ErrNotFound, iface)
}

func (m *Manager) reject(req Request, err error) (*model.ChangeResult, error) {
	util.Logger.WithField("entry", req.ID).Warnf("rollback rejected: %v", err)

	if m.audit != nil {
		event := audit.NewEvent(m.user, "", audit.OpRollback).WithError(err)
		if req.Interface != nil {
			event.Device = req.Interface.Device
			event.WithInterface(req.Interface.Name)
		}
		if aerr := m.audit.Log(event); aerr != nil {
			util.Warnf("audit log write failed: %v", aerr)
		}
	}

	return &model.ChangeResult{
		Success:   false,
		Timestamp: time.Now().UTC(),
		Message:   util.Reason(err),
		State:     string(orchestrator.StateFailed),
	}, err
}

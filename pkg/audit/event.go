// Package audit records the outcome of every change transaction, including
// rejected attempts that never reach the change history.
package audit

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Operations recorded in the audit log.
const (
	OpPreCheck  = "precheck"
	OpPreview   = "preview"
	OpConfigure = "configure"
	OpRollback  = "rollback"
)

// Event represents one audited transaction outcome.
type Event struct {
	ID             string        `json:"id"`
	Timestamp      time.Time     `json:"timestamp"`
	User           string        `json:"user"`
	Device         string        `json:"device"`
	Interface      string        `json:"interface,omitempty"`
	Operation      string        `json:"operation"`
	TxnID          string        `json:"txn_id,omitempty"`
	State          string        `json:"state,omitempty"`
	HistoryEntryID string        `json:"history_entry_id,omitempty"`
	ArtifactHash   string        `json:"artifact_hash,omitempty"`
	Reasons        []string      `json:"reasons,omitempty"`
	Forced         bool          `json:"forced,omitempty"`
	Success        bool          `json:"success"`
	Error          string        `json:"error,omitempty"`
	ExecuteMode    bool          `json:"execute_mode"` // false for previews
	DryRun         bool          `json:"dry_run"`
	Duration       time.Duration `json:"duration"`
}

// Severity indicates the importance of an audit event
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Severity classifies the event for display.
func (e *Event) Severity() Severity {
	switch {
	case e.Success && e.Forced:
		return SeverityWarning
	case e.Success:
		return SeverityInfo
	case e.HistoryEntryID == "":
		// Rejected before anything was recorded.
		return SeverityWarning
	default:
		return SeverityError
	}
}

// Filter defines criteria for querying audit events
type Filter struct {
	Device      string
	User        string
	Operation   string
	Interface   string
	TxnID       string
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
	Offset      int
}

// NewEvent creates a new audit event
func NewEvent(user, device, operation string) *Event {
	now := time.Now()
	return &Event{
		ID:          ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		Timestamp:   now,
		User:        user,
		Device:      device,
		Operation:   operation,
		ExecuteMode: true,
	}
}

// WithInterface sets the interface name
func (e *Event) WithInterface(iface string) *Event {
	e.Interface = iface
	return e
}

// WithTxn sets the transaction id and its final state
func (e *Event) WithTxn(txnID, state string) *Event {
	e.TxnID = txnID
	e.State = state
	return e
}

// WithHistoryEntry links the event to the history entry it produced
func (e *Event) WithHistoryEntry(id, artifactHash string) *Event {
	e.HistoryEntryID = id
	e.ArtifactHash = artifactHash
	return e
}

// WithReasons records the pre-check reasons
func (e *Event) WithReasons(reasons []string, forced bool) *Event {
	e.Reasons = append([]string(nil), reasons...)
	e.Forced = forced
	return e
}

// WithSuccess marks the event as successful
func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

// WithError marks the event as failed
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the operation duration
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

// WithExecuteMode marks if execute mode was used
func (e *Event) WithExecuteMode(execute bool) *Event {
	e.ExecuteMode = execute
	e.DryRun = !execute
	return e
}

// Match reports whether e satisfies every set field of f.
func (f Filter) Match(e *Event) bool {
	switch {
	case f.Device != "" && e.Device != f.Device,
		f.User != "" && e.User != f.User,
		f.Operation != "" && e.Operation != f.Operation,
		f.Interface != "" && e.Interface != f.Interface,
		f.TxnID != "" && e.TxnID != f.TxnID,
		!f.StartTime.IsZero() && e.Timestamp.Before(f.StartTime),
		!f.EndTime.IsZero() && e.Timestamp.After(f.EndTime),
		f.SuccessOnly && !e.Success,
		f.FailureOnly && e.Success:
		return false
	}
	return true
}

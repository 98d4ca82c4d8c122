package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// ConfigArtifact is a rendered device-native configuration block plus the
// request that produced it. Immutable once created.
type ConfigArtifact struct {
	Text            string        `json:"text"`
	Hash            string        `json:"hash"`
	TemplateVersion string        `json:"template_version"`
	Request         ChangeRequest `json:"request"`
}

// ContentHash returns the hex SHA-256 of artifact text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Lines splits the artifact text into configuration lines.
func (a ConfigArtifact) Lines() []string {
	if a.Text == "" {
		return nil
	}
	return strings.Split(a.Text, "\n")
}

// HistoryEntry is one immutable record in a device/interface's change log.
type HistoryEntry struct {
	ID         string          `json:"id"`
	Seq        uint64          `json:"seq"`      // global creation order
	Position   uint64          `json:"position"` // 1-based position in the interface stream
	Parent     string          `json:"parent,omitempty"`
	Device     DeviceRef       `json:"device"`
	Interface  InterfaceRef    `json:"interface"`
	Artifact   ConfigArtifact  `json:"artifact"`
	Verdict    PreCheckVerdict `json:"verdict"`
	Applied    bool            `json:"applied"`
	NoOp       bool            `json:"no_op,omitempty"`
	RollbackOf string          `json:"rollback_of,omitempty"`
	TxnID      string          `json:"txn_id,omitempty"`
	User       string          `json:"user,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// IsRollback reports whether the entry replays an earlier artifact.
func (e HistoryEntry) IsRollback() bool {
	return e.RollbackOf != ""
}

// Message returns a one-line description of the entry.
func (e HistoryEntry) Message() string {
	switch {
	case e.IsRollback():
		return "Rollback " + e.Interface.String() + " to " + e.RollbackOf
	case e.NoOp:
		return "No-op " + e.Interface.String()
	default:
		return "Configure " + e.Interface.String()
	}
}

// Summary projects the entry onto the history query shape.
func (e HistoryEntry) Summary() HistorySummary {
	return HistorySummary{
		ID:         e.ID,
		Device:     e.Interface.Device,
		Interface:  e.Interface.Name,
		Mode:       e.Artifact.Request.Mode,
		VLANs:      e.Artifact.Request.VLANAssignment(),
		Applied:    e.Applied,
		NoOp:       e.NoOp,
		RollbackOf: e.RollbackOf,
		User:       e.User,
		Timestamp:  e.Timestamp,
		Message:    e.Message(),
	}
}

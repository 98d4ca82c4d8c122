// Package history implements the append-only change log. Every rendered
// artifact is recorded here before it reaches a device, and rollback reads
// its targets back from here.
//
// Entries are never edited or deleted. Each interface has its own ordered
// stream; a process-wide sequence number gives the total creation order
// across streams.
package history

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/newtron-network/portctl/pkg/model"
)

// DefaultLimit caps History results when Query.Limit is unset.
const DefaultLimit = 50

// Record is the input to Append. The store assigns the id, sequence,
// stream position, parent and timestamp.
type Record struct {
	Device     model.DeviceRef
	Interface  model.InterfaceRef
	Artifact   model.ConfigArtifact
	Verdict    model.PreCheckVerdict
	Applied    bool
	NoOp       bool
	RollbackOf string
	TxnID      string
	User       string
}

// Query filters History. Empty fields match everything.
type Query struct {
	Device    string
	Interface string
	Limit     int
}

// Store is the change log contract shared by the file and Redis backends.
type Store interface {
	// Append records a new entry at the end of its interface stream.
	// Fails only with ErrStorageUnavailable.
	Append(ctx context.Context, rec Record) (model.HistoryEntry, error)

	// History returns matching entries, most recent first. Never nil.
	History(ctx context.Context, q Query) ([]model.HistoryEntry, error)

	// Get returns one entry or ErrNotFound.
	Get(ctx context.Context, id string) (model.HistoryEntry, error)

	// Stream returns every entry of one interface, oldest first.
	Stream(ctx context.Context, iface model.InterfaceRef) ([]model.HistoryEntry, error)

	Close() error
}

// entryID derives the content id of an entry. The sequence number makes it
// unique even for identical content appended at the same instant.
func entryID(parent string, rec Record, ts time.Time, seq uint64) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%s\x00%d",
		parent, rec.Interface.Device, rec.Interface.Name, rec.Artifact.Hash,
		ts.Format(time.RFC3339Nano), seq)
	return hex.EncodeToString(h.Sum(nil))[:12]
}

// newEntry assembles the stored form of rec.
func newEntry(rec Record, parent string, seq, position uint64, ts time.Time) model.HistoryEntry {
	dev := rec.Device
	if dev.Name == "" {
		dev.Name = rec.Interface.Device
	}
	return model.HistoryEntry{
		ID:         entryID(parent, rec, ts, seq),
		Seq:        seq,
		Position:   position,
		Parent:     parent,
		Device:     dev,
		Interface:  rec.Interface,
		Artifact:   rec.Artifact,
		Verdict:    rec.Verdict,
		Applied:    rec.Applied,
		NoOp:       rec.NoOp,
		RollbackOf: rec.RollbackOf,
		TxnID:      rec.TxnID,
		User:       rec.User,
		Timestamp:  ts,
	}
}

func validateRecord(rec Record) error {
	if rec.Interface.Device == "" || rec.Interface.Name == "" {
		return fmt.Errorf("history record requires device and interface")
	}
	return nil
}

func limitOf(q Query) int {
	if q.Limit <= 0 {
		return DefaultLimit
	}
	return q.Limit
}

// newestFirst sorts by descending sequence.
func newestFirst(entries []model.HistoryEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Seq > entries[j].Seq })
}

// now returns the current time without a monotonic reading so that stored
// and reloaded entries compare equal.
func now() time.Time {
	return time.Now().UTC().Round(0)
}

// streamLocks serializes appends per interface. Different interfaces
// never contend.
type streamLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (s *streamLocks) get(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks == nil {
		s.locks = make(map[string]*sync.Mutex)
	}
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

package history

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/newtron-network/portctl/pkg/model"
	"github.com/newtron-network/portctl/pkg/util"
)

// FileStore keeps one JSON-lines file per interface stream under
// <dir>/devices/<device>/<interface>.log. Each append is fsynced before it
// is visible to readers.
//
// Appends from several processes sharing dir are serialized by an advisory
// lock on <dir>/.lock; <dir>/.seq holds the last sequence number handed out.
// Readers see other processes' appends only after their own next append or
// a fresh NewFileStore.
type FileStore struct {
	dir   string
	locks streamLocks

	mu      sync.RWMutex
	entries map[string]model.HistoryEntry
	streams map[string][]string // stream key -> ids, oldest first
	seq     uint64
	closed  bool
}

// Files in the store root.
const (
	lockFileName = ".lock"
	seqFileName  = ".seq"
)

// NewFileStore opens (or creates) a file store rooted at dir and loads the
// existing streams. Malformed lines are skipped with a warning.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "devices"), 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrStorageUnavailable, err)
	}
	s := &FileStore{
		dir:     dir,
		entries: make(map[string]model.HistoryEntry),
		streams: make(map[string][]string),
	}
	if err := s.load(); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrStorageUnavailable, err)
	}
	return s, nil
}

// StreamPath returns the file backing an interface stream.
func (s *FileStore) StreamPath(iface model.InterfaceRef) string {
	return filepath.Join(s.dir, "devices", fileName(iface.Device), fileName(iface.Name)+".log")
}

func fileName(name string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(name)
}

func (s *FileStore) load() error {
	entries, streams, seq, err := scanDir(s.dir)
	if err != nil {
		return err
	}
	s.entries, s.streams, s.seq = entries, streams, seq
	if len(entries) > 0 {
		util.Debugf("history: loaded %d entries from %s", len(entries), s.dir)
	}
	return nil
}

func scanDir(dir string) (map[string]model.HistoryEntry, map[string][]string, uint64, error) {
	root := filepath.Join(dir, "devices")
	var loaded []model.HistoryEntry

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".log" {
			return nil
		}
		entries, err := readStream(path)
		if err != nil {
			return err
		}
		loaded = append(loaded, entries...)
		return nil
	})
	if err != nil {
		return nil, nil, 0, err
	}

	// Rebuild streams in creation order.
	entries := make(map[string]model.HistoryEntry, len(loaded))
	streams := make(map[string][]string)
	var seq uint64
	newestFirst(loaded)
	for i := len(loaded) - 1; i >= 0; i-- {
		e := loaded[i]
		entries[e.ID] = e
		key := e.Interface.Key()
		streams[key] = append(streams[key], e.ID)
		if e.Seq > seq {
			seq = e.Seq
		}
	}
	return entries, streams, seq, nil
}

// catchUp reloads the store when another process has appended since the
// last load. The caller holds the directory lock.
func (s *FileStore) catchUp() error {
	onDisk, err := s.readSeq()
	if err != nil {
		return err
	}
	s.mu.RLock()
	current := s.seq
	s.mu.RUnlock()
	if onDisk <= current {
		return nil
	}

	entries, streams, seq, err := scanDir(s.dir)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.entries, s.streams = entries, streams
	// Reserved numbers whose entry never reached disk stay burned.
	s.seq = max(seq, onDisk)
	s.mu.Unlock()
	util.Debugf("history: reloaded %s at seq %d", s.dir, s.seq)
	return nil
}

func (s *FileStore) readSeq() (uint64, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, seqFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	seq, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		util.Warnf("history: ignoring unreadable %s in %s", seqFileName, s.dir)
		return 0, nil
	}
	return seq, nil
}

func (s *FileStore) writeSeq(seq uint64) error {
	return os.WriteFile(filepath.Join(s.dir, seqFileName), []byte(strconv.FormatUint(seq, 10)+"\n"), 0644)
}

func readStream(path string) ([]model.HistoryEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []model.HistoryEntry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(strings.TrimSpace(sc.Text())) == 0 {
			continue
		}
		var e model.HistoryEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil || e.ID == "" {
			util.Warnf("history: skipping malformed line %d in %s", line, path)
			continue
		}
		entries = append(entries, e)
	}
	return entries, sc.Err()
}

// Append writes rec to the end of its stream.
func (s *FileStore) Append(ctx context.Context, rec Record) (model.HistoryEntry, error) {
	if err := validateRecord(rec); err != nil {
		return model.HistoryEntry{}, err
	}
	key := rec.Interface.Key()
	l := s.locks.get(key)
	l.Lock()
	defer l.Unlock()

	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return model.HistoryEntry{}, fmt.Errorf("%w: store closed", util.ErrStorageUnavailable)
	}

	// Other portctl processes may share dir. The lock covers sequence
	// assignment and the write.
	unlock, err := lockFile(filepath.Join(s.dir, lockFileName))
	if err != nil {
		return model.HistoryEntry{}, fmt.Errorf("%w: %v", util.ErrStorageUnavailable, err)
	}
	defer unlock()
	if err := s.catchUp(); err != nil {
		return model.HistoryEntry{}, fmt.Errorf("%w: %v", util.ErrStorageUnavailable, err)
	}

	s.mu.Lock()
	ids := s.streams[key]
	var parent string
	if len(ids) > 0 {
		parent = ids[len(ids)-1]
	}
	s.seq++
	seq := s.seq
	position := uint64(len(ids)) + 1
	s.mu.Unlock()

	if err := s.writeSeq(seq); err != nil {
		return model.HistoryEntry{}, fmt.Errorf("%w: %v", util.ErrStorageUnavailable, err)
	}
	entry := newEntry(rec, parent, seq, position, now())
	if err := s.write(rec.Interface, entry); err != nil {
		return model.HistoryEntry{}, fmt.Errorf("%w: %v", util.ErrStorageUnavailable, err)
	}

	s.mu.Lock()
	s.entries[entry.ID] = entry
	s.streams[key] = append(s.streams[key], entry.ID)
	s.mu.Unlock()

	util.WithInterface(rec.Interface.Device, rec.Interface.Name).
		Debugf("history: appended %s (seq %d, position %d)", entry.ID, seq, position)
	return entry, nil
}

func (s *FileStore) write(iface model.InterfaceRef, entry model.HistoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	path := s.StreamPath(iface)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	line := append(data, '\n')
	if torn, err := endsMidLine(f); err != nil {
		f.Close()
		return err
	} else if torn {
		// Terminate a partial line left by an interrupted write so the new
		// entry starts on its own line.
		line = append([]byte{'\n'}, line...)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func endsMidLine(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil || info.Size() == 0 {
		return false, err
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, err
	}
	return last[0] != '\n', nil
}

// History returns entries matching q, most recent first.
func (s *FileStore) History(ctx context.Context, q Query) ([]model.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []model.HistoryEntry{}
	for _, e := range s.entries {
		if q.Device != "" && e.Interface.Device != q.Device {
			continue
		}
		if q.Interface != "" && e.Interface.Name != q.Interface {
			continue
		}
		result = append(result, e)
	}
	newestFirst(result)
	if limit := limitOf(q); len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Get returns the entry with the given id.
func (s *FileStore) Get(ctx context.Context, id string) (model.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return model.HistoryEntry{}, fmt.Errorf("%w: history entry %q", util.ErrNotFound, id)
	}
	return e, nil
}

// Stream returns every entry of one interface, oldest first.
func (s *FileStore) Stream(ctx context.Context, iface model.InterfaceRef) ([]model.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.streams[iface.Key()]
	result := make([]model.HistoryEntry, 0, len(ids))
	for _, id := range ids {
		result = append(result, s.entries[id])
	}
	return result, nil
}

// Close makes further appends fail. Reads keep working.
func (s *FileStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

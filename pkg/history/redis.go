package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/newtron-network/portctl/pkg/model"
	"github.com/newtron-network/portctl/pkg/util"
)

// DefaultKeyPrefix namespaces every key the Redis store writes.
const DefaultKeyPrefix = "portctl"

// RedisOptions configures a Redis-backed store.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisStore keeps the change log in Redis:
//
//	<prefix>:seq                      INCR cursor (global order)
//	<prefix>:entry:<id>               entry JSON, written once with SETNX
//	<prefix>:timeline                 ZSET id by seq
//	<prefix>:device:<device>          ZSET id by seq
//	<prefix>:stream:<device>|<iface>  ZSET id by seq
//
// Appends to one interface are serialized within this process.
type RedisStore struct {
	client *redis.Client
	prefix string
	locks  streamLocks
}

// NewRedisStore connects and pings. A failed ping is ErrStorageUnavailable.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return newRedisStore(client, opts.KeyPrefix)
}

func newRedisStore(client *redis.Client, prefix string) (*RedisStore, error) {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, unavailable(err)
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: redis: %v", util.ErrStorageUnavailable, err)
}

func (s *RedisStore) key(parts ...string) string {
	k := s.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

func (s *RedisStore) streamKey(iface model.InterfaceRef) string {
	return s.key("stream", iface.Key())
}

// Append writes rec atomically: the entry body and all three indexes go in
// one MULTI/EXEC.
func (s *RedisStore) Append(ctx context.Context, rec Record) (model.HistoryEntry, error) {
	if err := validateRecord(rec); err != nil {
		return model.HistoryEntry{}, err
	}
	l := s.locks.get(rec.Interface.Key())
	l.Lock()
	defer l.Unlock()

	streamKey := s.streamKey(rec.Interface)
	last, err := s.client.ZRevRange(ctx, streamKey, 0, 0).Result()
	if err != nil {
		return model.HistoryEntry{}, unavailable(err)
	}
	count, err := s.client.ZCard(ctx, streamKey).Result()
	if err != nil {
		return model.HistoryEntry{}, unavailable(err)
	}
	seq, err := s.client.Incr(ctx, s.key("seq")).Result()
	if err != nil {
		return model.HistoryEntry{}, unavailable(err)
	}

	var parent string
	if len(last) > 0 {
		parent = last[0]
	}
	entry := newEntry(rec, parent, uint64(seq), uint64(count)+1, now())
	data, err := json.Marshal(entry)
	if err != nil {
		return model.HistoryEntry{}, err
	}

	member := &redis.Z{Score: float64(seq), Member: entry.ID}
	pipe := s.client.TxPipeline()
	created := pipe.SetNX(ctx, s.key("entry", entry.ID), data, 0)
	pipe.ZAdd(ctx, s.key("timeline"), member)
	pipe.ZAdd(ctx, s.key("device", rec.Interface.Device), member)
	pipe.ZAdd(ctx, streamKey, member)
	if _, err := pipe.Exec(ctx); err != nil {
		return model.HistoryEntry{}, unavailable(err)
	}
	if !created.Val() {
		return model.HistoryEntry{}, fmt.Errorf("history entry %s already exists", entry.ID)
	}

	util.WithInterface(rec.Interface.Device, rec.Interface.Name).
		Debugf("history: appended %s to redis (seq %d)", entry.ID, seq)
	return entry, nil
}

// History returns entries matching q, most recent first.
func (s *RedisStore) History(ctx context.Context, q Query) ([]model.HistoryEntry, error) {
	var index string
	switch {
	case q.Device != "" && q.Interface != "":
		index = s.streamKey(model.InterfaceRef{Device: q.Device, Name: q.Interface})
	case q.Device != "":
		index = s.key("device", q.Device)
	default:
		index = s.key("timeline")
	}

	if q.Device == "" && q.Interface != "" {
		// No index by bare interface name; filter the timeline.
		all, err := s.fetch(ctx, index, 0, -1, true)
		if err != nil {
			return nil, err
		}
		result := []model.HistoryEntry{}
		for _, e := range all {
			if e.Interface.Name == q.Interface {
				result = append(result, e)
				if len(result) == limitOf(q) {
					break
				}
			}
		}
		return result, nil
	}
	return s.fetch(ctx, index, 0, int64(limitOf(q))-1, true)
}

// Get returns the entry with the given id.
func (s *RedisStore) Get(ctx context.Context, id string) (model.HistoryEntry, error) {
	data, err := s.client.Get(ctx, s.key("entry", id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.HistoryEntry{}, fmt.Errorf("%w: history entry %q", util.ErrNotFound, id)
	}
	if err != nil {
		return model.HistoryEntry{}, unavailable(err)
	}
	var e model.HistoryEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return model.HistoryEntry{}, fmt.Errorf("decoding history entry %s: %w", id, err)
	}
	return e, nil
}

// Stream returns every entry of one interface, oldest first.
func (s *RedisStore) Stream(ctx context.Context, iface model.InterfaceRef) ([]model.HistoryEntry, error) {
	return s.fetch(ctx, s.streamKey(iface), 0, -1, false)
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) fetch(ctx context.Context, index string, start, stop int64, reverse bool) ([]model.HistoryEntry, error) {
	var ids []string
	var err error
	if reverse {
		ids, err = s.client.ZRevRange(ctx, index, start, stop).Result()
	} else {
		ids, err = s.client.ZRange(ctx, index, start, stop).Result()
	}
	if err != nil {
		return nil, unavailable(err)
	}
	result := make([]model.HistoryEntry, 0, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key("entry", id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			util.Warnf("history: index %s references missing entry %s", index, ids[i])
			continue
		}
		var e model.HistoryEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			util.Warnf("history: skipping malformed entry %s: %v", ids[i], err)
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

//go:build integration

package history

import (
	"context"
	"errors"
	"testing"

	"github.com/newtron-network/portctl/internal/testutil"
	"github.com/newtron-network/portctl/pkg/util"
)

const testRedisDB = 11

func newRedisTestStore(t *testing.T) *RedisStore {
	t.Helper()
	testutil.SkipIfNoRedis(t)
	testutil.FlushDB(t, testRedisDB)

	s, err := NewRedisStore(RedisOptions{Addr: testutil.RedisAddr(), DB: testRedisDB, KeyPrefix: "portctl-test"})
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRedisStore_AppendAndQuery(t *testing.T) {
	ctx := context.Background()
	s := newRedisTestStore(t)

	first := mustAppend(t, s, record(eth1, 100))
	mustAppend(t, s, record(spn1, 10))
	second := mustAppend(t, s, record(eth1, 200))

	if second.Parent != first.ID || second.Position != 2 || second.Seq <= first.Seq {
		t.Errorf("second = %+v", second)
	}

	got, err := s.History(ctx, Query{Device: "leaf-01"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != second.ID || got[1].ID != first.ID {
		t.Errorf("History(leaf-01) = %+v", got)
	}

	all, _ := s.History(ctx, Query{Limit: 2})
	if len(all) != 2 || all[0].ID != second.ID {
		t.Errorf("History(limit 2) = %+v", all)
	}

	byName, _ := s.History(ctx, Query{Interface: "Ethernet1/1"})
	if len(byName) != 3 {
		t.Errorf("History(interface) len = %d, want 3", len(byName))
	}

	stream, _ := s.Stream(ctx, eth1)
	if len(stream) != 2 || stream[0].ID != first.ID {
		t.Errorf("Stream() = %+v", stream)
	}

	e, err := s.Get(ctx, first.ID)
	if err != nil || e.Artifact.Text != first.Artifact.Text {
		t.Errorf("Get() = %+v, %v", e, err)
	}
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("Get(missing) error = %v", err)
	}
}

func TestRedisStore_Empty(t *testing.T) {
	s := newRedisTestStore(t)
	got, err := s.History(context.Background(), Query{Device: "leaf-01"})
	if err != nil || got == nil || len(got) != 0 {
		t.Errorf("History() = %v, %v; want empty non-nil", got, err)
	}
}

func TestRedisStore_Unavailable(t *testing.T) {
	_, err := NewRedisStore(RedisOptions{Addr: "127.0.0.1:1"})
	if !errors.Is(err, util.ErrStorageUnavailable) {
		t.Errorf("NewRedisStore() error = %v, want ErrStorageUnavailable", err)
	}
}

//go:build unix

package history

import (
	"context"
	"sync"
	"testing"
)

func TestFileStore_SharedDirConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	const stores, perStore = 3, 15
	var wg sync.WaitGroup
	for i := 0; i < stores; i++ {
		s, err := NewFileStore(dir)
		if err != nil {
			t.Fatal(err)
		}
		for j := 0; j < perStore; j++ {
			wg.Add(1)
			go func(vlan int) {
				defer wg.Done()
				if _, err := s.Append(ctx, record(eth1, vlan)); err != nil {
					t.Errorf("Append() error = %v", err)
				}
			}(i*perStore + j + 1)
		}
	}
	wg.Wait()

	fresh, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	stream, _ := fresh.Stream(ctx, eth1)
	if len(stream) != stores*perStore {
		t.Fatalf("stream len = %d, want %d", len(stream), stores*perStore)
	}
	for i, e := range stream {
		if e.Seq != uint64(i+1) || e.Position != uint64(i+1) {
			t.Errorf("entry %d: seq=%d position=%d", i, e.Seq, e.Position)
		}
		if i > 0 && e.Parent != stream[i-1].ID {
			t.Errorf("entry %d parent = %s, want %s", i, e.Parent, stream[i-1].ID)
		}
	}
}

package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLockTable_Exclusive(t *testing.T) {
	var lt lockTable
	ctx := context.Background()

	release, err := lt.acquire(ctx, "leaf-01|Ethernet1/1")
	if err != nil {
		t.Fatal(err)
	}

	acquired := make(chan struct{})
	go func() {
		r, err := lt.acquire(ctx, "leaf-01|Ethernet1/1")
		if err != nil {
			t.Errorf("second acquire: %v", err)
			return
		}
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held lock")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the released lock")
	}
}

func TestLockTable_IndependentKeys(t *testing.T) {
	var lt lockTable
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	r1, err := lt.acquire(ctx, "leaf-01|Ethernet1/1")
	if err != nil {
		t.Fatal(err)
	}
	defer r1()

	r2, err := lt.acquire(ctx, "leaf-01|Ethernet1/2")
	if err != nil {
		t.Fatalf("different interface blocked: %v", err)
	}
	r2()
}

func TestLockTable_ContextCancel(t *testing.T) {
	var lt lockTable

	release, _ := lt.acquire(context.Background(), "k")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := lt.acquire(ctx, "k"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("acquire error = %v, want DeadlineExceeded", err)
	}
	if lt.size() != 1 {
		t.Errorf("size = %d, want 1 while held", lt.size())
	}

	release()
	release() // second call is a no-op
	if lt.size() != 0 {
		t.Errorf("size = %d, want 0 after release", lt.size())
	}

	r, err := lt.acquire(context.Background(), "k")
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	r()
}

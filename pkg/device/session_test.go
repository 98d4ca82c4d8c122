package device

import (
	"context"
	"errors"
	"testing"

	"github.com/newtron-network/portctl/pkg/model"
	"github.com/newtron-network/portctl/pkg/util"
)

type stubSession struct {
	closed int
}

func (s *stubSession) Query(context.Context, string) (string, error) { return "", nil }
func (s *stubSession) Push(context.Context, string) error          { return nil }
func (s *stubSession) Close() error {
	s.closed++
	return nil
}

func TestWithSession_ClosesOnAllPaths(t *testing.T) {
	dev := model.DeviceRef{Name: "leaf-01", Address: "192.0.2.11"}

	t.Run("success", func(t *testing.T) {
		sess := &stubSession{}
		opener := OpenerFunc(func(context.Context, model.DeviceRef) (Session, error) { return sess, nil })

		if err := WithSession(context.Background(), opener, dev, func(Session) error { return nil }); err != nil {
			t.Fatalf("WithSession: %v", err)
		}
		if sess.closed != 1 {
			t.Errorf("closed %d times, want 1", sess.closed)
		}
	})

	t.Run("callback error", func(t *testing.T) {
		sess := &stubSession{}
		opener := OpenerFunc(func(context.Context, model.DeviceRef) (Session, error) { return sess, nil })
		boom := errors.New("boom")

		err := WithSession(context.Background(), opener, dev, func(Session) error { return boom })
		if !errors.Is(err, boom) {
			t.Errorf("err = %v, want boom", err)
		}
		if sess.closed != 1 {
			t.Errorf("closed %d times, want 1", sess.closed)
		}
	})

	t.Run("open failure", func(t *testing.T) {
		opener := OpenerFunc(func(context.Context, model.DeviceRef) (Session, error) {
			return nil, errors.New("connection refused")
		})
		called := false
		err := WithSession(context.Background(), opener, dev, func(Session) error {
			called = true
			return nil
		})
		if !errors.Is(err, util.ErrUnreachableDevice) {
			t.Errorf("err = %v, want ErrUnreachableDevice", err)
		}
		if called {
			t.Error("callback should not run when open fails")
		}
	})
}

func TestRejected(t *testing.T) {
	tests := []struct {
		out  string
		want bool
	}{
		{"% Invalid command at '^' marker.", true},
		{"ERROR: Ethernet1/99: interface does not exist", true},
		{"\nInvalid interface format at '^' marker.\n", true},
		{`{"TABLE_interface": {}}`, false},
		{"", false},
	}
	for _, tt := range tests {
		if got := rejected(tt.out); got != tt.want {
			t.Errorf("rejected(%q) = %v, want %v", tt.out, got, tt.want)
		}
	}
}

func TestFirstLine(t *testing.T) {
	if got := firstLine("\n  first\nsecond"); got != "first" {
		t.Errorf("firstLine = %q", got)
	}
}

// Package device defines the device-session collaborator used by the change
// pipeline and an SSH implementation of it.
//
// The core only issues semantic queries and pushes; transport, authentication
// and framing stay behind the Session interface so tests can substitute a
// fake switch.
package device

import (
	"context"
	"errors"
	"fmt"

	"github.com/newtron-network/portctl/pkg/model"
	"github.com/newtron-network/portctl/pkg/util"
)

// ErrCommandRejected is returned when the device answers a command with an
// error banner rather than output.
var ErrCommandRejected = errors.New("command rejected by device")

// Session is a scoped command channel to one device.
type Session interface {
	// Query runs a show command and returns its raw output.
	Query(ctx context.Context, command string) (string, error)
	// Push applies a configuration block.
	Push(ctx context.Context, config string) error
	// Close releases the session. Safe to call more than once.
	Close() error
}

// Opener establishes sessions.
type Opener interface {
	Open(ctx context.Context, dev model.DeviceRef) (Session, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, dev model.DeviceRef) (Session, error)

// Open calls f(ctx, dev).
func (f OpenerFunc) Open(ctx context.Context, dev model.DeviceRef) (Session, error) {
	return f(ctx, dev)
}

// WithSession opens a session, runs fn, and closes the session on every exit
// path. Open failures are reported as ErrUnreachableDevice.
func WithSession(ctx context.Context, opener Opener, dev model.DeviceRef, fn func(Session) error) error {
	sess, err := opener.Open(ctx, dev)
	if err != nil {
		return fmt.Errorf("%w: opening session to %s: %v", util.ErrUnreachableDevice, dev.Name, err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			util.WithDevice(dev.Name).Debugf("closing session: %v", cerr)
		}
	}()
	return fn(sess)
}

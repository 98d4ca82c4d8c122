package orchestrator

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/newtron-network/portctl/pkg/model"
	"github.com/newtron-network/portctl/pkg/util"
)

// State is a change transaction state.
type State string

const (
	StateRequested  State = "Requested"
	StatePreChecked State = "PreChecked"
	StateRendered   State = "Rendered"
	StateRecorded   State = "Recorded"
	StateApplying   State = "Applying"
	StateVerified   State = "Verified"
	StateFailed     State = "Failed"
)

// transitions lists the legal successor states. Rollback replays enter at
// Recorded directly from Requested.
var transitions = map[State][]State{
	StateRequested:  {StatePreChecked, StateRecorded, StateFailed},
	StatePreChecked: {StateRendered, StateFailed},
	StateRendered:   {StateRecorded, StateFailed},
	StateRecorded:   {StateApplying, StateVerified, StateFailed},
	StateApplying:   {StateVerified, StateFailed},
}

func (s State) canMoveTo(next State) bool {
	for _, n := range transitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateVerified || s == StateFailed
}

// transaction is the in-flight record of one change. It lives only for the
// duration of a single Execute or Replay call.
type transaction struct {
	id      string
	op      string
	iface   model.InterfaceRef
	state   State
	path    []State
	started time.Time
	log     *logrus.Entry

	verdict  *model.PreCheckVerdict
	artifact model.ConfigArtifact
	entry    *model.HistoryEntry
}

func newTransaction(id, op string, iface model.InterfaceRef) *transaction {
	t := &transaction{
		id:      id,
		op:      op,
		iface:   iface,
		state:   StateRequested,
		path:    []State{StateRequested},
		started: time.Now(),
		log:     util.WithTxn(id, iface.Device, iface.Name).WithField("operation", op),
	}
	t.log.Debugf("transaction %s: %s", op, StateRequested)
	return t
}

func (t *transaction) moveTo(next State) {
	if !t.state.canMoveTo(next) {
		t.log.Errorf("illegal transition %s -> %s", t.state, next)
	}
	t.log.WithField("state", next).Debugf("%s -> %s", t.state, next)
	t.state = next
	t.path = append(t.path, next)
}

// fail moves the transaction to Failed and returns the error describing
// where and why.
func (t *transaction) fail(reason string, err error) error {
	from := t.state
	t.moveTo(StateFailed)
	t.log.WithField("state", StateFailed).Warnf("transaction failed in %s: %s", from, reason)
	return util.NewTransactionError(t.id, string(from), reason, err)
}

func (t *transaction) result(message string, err error) *model.ChangeResult {
	r := &model.ChangeResult{
		TxnID:         t.id,
		State:         string(t.state),
		Timestamp:     time.Now().UTC(),
		AppliedConfig: t.artifact.Text,
		Verdict:       t.verdict,
	}
	if t.entry != nil {
		r.HistoryEntryID = t.entry.ID
		r.Timestamp = t.entry.Timestamp
		r.Applied = t.entry.Applied
		r.NoOp = t.entry.NoOp
	}
	if err != nil {
		r.Message = util.Reason(err)
		return r
	}
	r.Success = true
	r.Message = message
	return r
}

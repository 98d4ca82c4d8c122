package history

import (
	"context"
	"fmt"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/newtron-network/portctl/pkg/model"
	"github.com/newtron-network/portctl/pkg/util"
)

// At returns the last entry of an interface stream created at or before t.
func At(ctx context.Context, store Store, iface model.InterfaceRef, t time.Time) (model.HistoryEntry, error) {
	stream, err := store.Stream(ctx, iface)
	if err != nil {
		return model.HistoryEntry{}, err
	}
	for i := len(stream) - 1; i >= 0; i-- {
		if !stream[i].Timestamp.After(t) {
			return stream[i], nil
		}
	}
	return model.HistoryEntry{}, fmt.Errorf("%w: no history for %s at %s", util.ErrNotFound, iface, t.Format(time.RFC3339))
}

// Latest returns the most recent entry of an interface stream.
func Latest(ctx context.Context, store Store, iface model.InterfaceRef) (model.HistoryEntry, error) {
	entries, err := store.History(ctx, Query{Device: iface.Device, Interface: iface.Name, Limit: 1})
	if err != nil {
		return model.HistoryEntry{}, err
	}
	if len(entries) == 0 {
		return model.HistoryEntry{}, fmt.Errorf("%w: no history for %s", util.ErrNotFound, iface)
	}
	return entries[0], nil
}

// Diff renders a unified diff from a's artifact text to b's. Identical
// artifacts yield "".
func Diff(a, b model.HistoryEntry) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(a.Artifact.Text),
		B:        difflib.SplitLines(b.Artifact.Text),
		FromFile: a.ID + " (" + a.Interface.String() + ")",
		ToFile:   b.ID + " (" + b.Interface.String() + ")",
		FromDate: a.Timestamp.Format(time.RFC3339),
		ToDate:   b.Timestamp.Format(time.RFC3339),
		Context:  3,
	})
}

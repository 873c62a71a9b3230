// Package sync moves an anonymous device's review history into a learner's
// remote history. It only ever runs when asked to; signing in alone does not
// migrate anything.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/conorfennell/lingoreview/internal/domain"
	"github.com/conorfennell/lingoreview/internal/storage"
)

// Result counts what a promotion did.
type Result struct {
	Copied  int `json:"copied"`
	Skipped int `json:"skipped"`
}

// Promote copies every device state into the learner scope when the learner
// has no state for that item, or when the device state was reviewed later.
// Device data is left untouched.
func Promote(ctx context.Context, log *slog.Logger, from, to storage.Store, device, learner domain.Scope) (Result, error) {
	if device.Kind != domain.ScopeDevice {
		return Result{}, domain.Invalid("device", "expected a device scope, got "+device.String())
	}
	if learner.Kind != domain.ScopeLearner {
		return Result{}, domain.Invalid("learner", "expected a learner scope, got "+learner.String())
	}

	log.Info("Starting promotion of device history", "device", device.ID, "learner", learner.ID)
	local, err := from.Snapshot(ctx, device)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load device history: %w", err)
	}
	remote, err := to.Snapshot(ctx, learner)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load learner history: %w", err)
	}

	ids := make([]string, 0, len(local))
	for id := range local {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var res Result
	for _, id := range ids {
		state := local[id]
		if existing, ok := remote[id]; ok && !state.ReviewedAfter(existing) {
			res.Skipped++
			continue
		}
		if err := to.Put(ctx, learner, id, state); err != nil {
			return res, fmt.Errorf("failed to copy item %s: %w", id, err)
		}
		res.Copied++
	}

	log.Info("promotion complete",
		"device", device.ID,
		"learner", learner.ID,
		"copied", res.Copied,
		"skipped", res.Skipped,
	)
	return res, nil
}

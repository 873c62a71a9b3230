package sync

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/conorfennell/lingoreview/internal/domain"
	"github.com/conorfennell/lingoreview/internal/storage"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func at(t time.Time) *time.Time { return &t }

func TestPromote(t *testing.T) {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	local, err := storage.OpenLocal(ctx, storage.NewMemoryBucket(nil), "device-a")
	if err != nil {
		t.Fatalf("OpenLocal: %v", err)
	}
	remote, err := storage.OpenSQL(ctx, storage.DriverSQLite, filepath.Join(t.TempDir(), "progress.db"))
	if err != nil {
		t.Fatalf("OpenSQL: %v", err)
	}
	defer remote.Close()

	device := local.Scope()
	learner := domain.LearnerScope("learner-1")

	puts := []struct {
		store storage.Store
		scope domain.Scope
		item  string
		state domain.ReviewState
	}{
		{local, device, "only-local", domain.ReviewState{ReviewCount: 1, DueAt: t0, LastReviewedAt: at(t0)}},
		{local, device, "newer-local", domain.ReviewState{ReviewCount: 3, StreakCount: 3, DueAt: t0, LastReviewedAt: at(t0.Add(time.Hour))}},
		{remote, learner, "newer-local", domain.ReviewState{ReviewCount: 1, DueAt: t0, LastReviewedAt: at(t0)}},
		{local, device, "newer-remote", domain.ReviewState{ReviewCount: 1, DueAt: t0, LastReviewedAt: at(t0)}},
		{remote, learner, "newer-remote", domain.ReviewState{ReviewCount: 7, StreakCount: 4, DueAt: t0, LastReviewedAt: at(t0.Add(time.Hour))}},
	}
	for _, p := range puts {
		if err := p.store.Put(ctx, p.scope, p.item, p.state); err != nil {
			t.Fatalf("Put %s: %v", p.item, err)
		}
	}

	res, err := Promote(ctx, log, local, remote, device, learner)
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if res.Copied != 2 || res.Skipped != 1 {
		t.Errorf("result = %+v, want 2 copied 1 skipped", res)
	}

	snap, err := remote.Snapshot(ctx, learner)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap["only-local"].ReviewCount != 1 {
		t.Errorf("only-local = %+v", snap["only-local"])
	}
	if snap["newer-local"].StreakCount != 3 {
		t.Errorf("newer-local = %+v, want the device state", snap["newer-local"])
	}
	if snap["newer-remote"].StreakCount != 4 {
		t.Errorf("newer-remote = %+v, want the learner state kept", snap["newer-remote"])
	}

	if deviceSnap, _ := local.Snapshot(ctx, device); len(deviceSnap) != 3 {
		t.Errorf("device history changed: %v", deviceSnap)
	}

	t.Run("is idempotent", func(t *testing.T) {
		res, err := Promote(ctx, log, local, remote, device, learner)
		if err != nil {
			t.Fatalf("Promote: %v", err)
		}
		if res.Copied != 0 || res.Skipped != 3 {
			t.Errorf("second run = %+v, want everything skipped", res)
		}
	})

	t.Run("rejects swapped scopes", func(t *testing.T) {
		if _, err := Promote(ctx, log, local, remote, learner, device); !domain.IsValidationError(err) {
			t.Errorf("error = %v, want ValidationError", err)
		}
	})
}

package storage

import (
	"context"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/conorfennell/lingoreview/internal/domain"
)

// Store persists review states for a scope. Both the device-local and the
// remote backend implement it and must behave identically.
type Store interface {
	// Get returns the state of one item; ok is false if it was never rated.
	Get(ctx context.Context, scope domain.Scope, itemID string) (state domain.ReviewState, ok bool, err error)
	// Put writes the state of one item. The last write wins.
	Put(ctx context.Context, scope domain.Scope, itemID string, state domain.ReviewState) error
	// Snapshot returns every state recorded for the scope, keyed by item id.
	Snapshot(ctx context.Context, scope domain.Scope) (map[string]domain.ReviewState, error)
	// ListDue returns non-mastered items due at or before asOf, soonest first.
	ListDue(ctx context.Context, scope domain.Scope, asOf time.Time) ([]string, error)
	// ListFresh returns the candidates that have no state, in candidate order.
	ListFresh(ctx context.Context, scope domain.Scope, candidates []string) ([]string, error)
}

// DueItems picks the due items out of a snapshot, ordered by due time then id.
func DueItems(states map[string]domain.ReviewState, asOf time.Time) []string {
	due := lo.Filter(lo.Keys(states), func(id string, _ int) bool {
		return states[id].IsDue(asOf)
	})
	sort.Slice(due, func(i, j int) bool {
		a, b := states[due[i]].DueAt, states[due[j]].DueAt
		if a.Equal(b) {
			return due[i] < due[j]
		}
		return a.Before(b)
	})
	return due
}

// FreshItems returns the candidates absent from a snapshot, deduplicated and
// in their original order.
func FreshItems(states map[string]domain.ReviewState, candidates []string) []string {
	return lo.Filter(lo.Uniq(candidates), func(id string, _ int) bool {
		_, seen := states[id]
		return !seen
	})
}

// MasteredSet returns the ids of mastered items in a snapshot.
func MasteredSet(states map[string]domain.ReviewState) map[string]bool {
	set := make(map[string]bool)
	for id, s := range states {
		if s.Mastered {
			set[id] = true
		}
	}
	return set
}

// Router sends device scopes to one backend and learner scopes to another.
type Router struct {
	Device  Store
	Learner Store
}

var _ Store = Router{}

func (r Router) route(scope domain.Scope) (Store, error) {
	if err := scope.Validate(); err != nil {
		return nil, domain.Invalid("scope", err.Error())
	}
	var s Store
	switch scope.Kind {
	case domain.ScopeDevice:
		s = r.Device
	case domain.ScopeLearner:
		s = r.Learner
	}
	if s == nil {
		return nil, domain.Invalid("scope", "no store configured for "+string(scope.Kind))
	}
	return s, nil
}

func (r Router) Get(ctx context.Context, scope domain.Scope, itemID string) (domain.ReviewState, bool, error) {
	s, err := r.route(scope)
	if err != nil {
		return domain.ReviewState{}, false, err
	}
	return s.Get(ctx, scope, itemID)
}

func (r Router) Put(ctx context.Context, scope domain.Scope, itemID string, state domain.ReviewState) error {
	s, err := r.route(scope)
	if err != nil {
		return err
	}
	return s.Put(ctx, scope, itemID, state)
}

func (r Router) Snapshot(ctx context.Context, scope domain.Scope) (map[string]domain.ReviewState, error) {
	s, err := r.route(scope)
	if err != nil {
		return nil, err
	}
	return s.Snapshot(ctx, scope)
}

func (r Router) ListDue(ctx context.Context, scope domain.Scope, asOf time.Time) ([]string, error) {
	s, err := r.route(scope)
	if err != nil {
		return nil, err
	}
	return s.ListDue(ctx, scope, asOf)
}

func (r Router) ListFresh(ctx context.Context, scope domain.Scope, candidates []string) ([]string, error) {
	s, err := r.route(scope)
	if err != nil {
		return nil, err
	}
	return s.ListFresh(ctx, scope, candidates)
}

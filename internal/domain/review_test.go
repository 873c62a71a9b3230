package domain

import (
	"errors"
	"testing"
	"time"
)

func TestScopeValidate(t *testing.T) {
	tests := []struct {
		name  string
		scope Scope
		want  error
	}{
		{"learner", LearnerScope("u1"), nil},
		{"minted device", NewDeviceScope(), nil},
		{"empty id", LearnerScope(""), ErrEmptyScopeID},
		{"unknown kind", Scope{Kind: "guest", ID: "x"}, ErrUnknownScopeKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.scope.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, but got %v", tt.want, err)
			}
		})
	}

	if a, b := NewDeviceScope(), NewDeviceScope(); a.ID == b.ID {
		t.Errorf("Expected distinct device ids, but got %s twice", a.ID)
	}
}

func TestIsDue(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		state ReviewState
		want  bool
	}{
		{"past", ReviewState{DueAt: now.Add(-time.Minute)}, true},
		{"exactly now", ReviewState{DueAt: now}, true},
		{"future", ReviewState{DueAt: now.Add(time.Minute)}, false},
		{"mastered", ReviewState{DueAt: now.Add(-time.Hour), Mastered: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsDue(now); got != tt.want {
				t.Errorf("Expected %v, but got %v", tt.want, got)
			}
		})
	}
}

func TestReviewedAfter(t *testing.T) {
	early := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)
	never := ReviewState{}
	a := ReviewState{LastReviewedAt: &early}
	b := ReviewState{LastReviewedAt: &late}

	if !b.ReviewedAfter(a) || a.ReviewedAfter(b) || a.ReviewedAfter(a) {
		t.Error("ordering by last review is wrong")
	}
	if !a.ReviewedAfter(never) || never.ReviewedAfter(a) || never.ReviewedAfter(never) {
		t.Error("never reviewed states must sort first")
	}
}

package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ScopeKind tells which backend owns a scope's review history.
type ScopeKind string

const (
	// ScopeDevice is an anonymous learner whose history lives on one device.
	ScopeDevice ScopeKind = "device"
	// ScopeLearner is an authenticated learner whose history lives remotely.
	ScopeLearner ScopeKind = "learner"
)

var (
	ErrEmptyScopeID     = errors.New("scope id is empty")
	ErrUnknownScopeKind = errors.New("unknown scope kind")
)

// Scope is the identity boundary that review states are keyed under.
type Scope struct {
	Kind ScopeKind `json:"kind" validate:"required,oneof=device learner"`
	ID   string    `json:"id" validate:"required"`
}

// NewDeviceScope mints a fresh anonymous device identity.
func NewDeviceScope() Scope {
	return Scope{Kind: ScopeDevice, ID: uuid.NewString()}
}

// LearnerScope returns the scope of an authenticated learner.
func LearnerScope(learnerID string) Scope {
	return Scope{Kind: ScopeLearner, ID: learnerID}
}

// Validate checks that the scope is addressable.
func (s Scope) Validate() error {
	if s.Kind != ScopeDevice && s.Kind != ScopeLearner {
		return ErrUnknownScopeKind
	}
	if s.ID == "" {
		return ErrEmptyScopeID
	}
	return nil
}

func (s Scope) String() string {
	return string(s.Kind) + ":" + s.ID
}

// ReviewState is the scheduling state of one item for one scope.
// Absence of a ReviewState means the item has never been studied.
type ReviewState struct {
	StreakCount    int        `json:"streak_count"`
	ReviewCount    int        `json:"review_count"`
	Mastered       bool       `json:"mastered"`
	DueAt          time.Time  `json:"due_at"`
	LastReviewedAt *time.Time `json:"last_reviewed_at"`
}

// IsDue reports whether the state is eligible for an ordinary review queue
// at the given instant.
func (s ReviewState) IsDue(asOf time.Time) bool {
	return !s.Mastered && !s.DueAt.After(asOf)
}

// ReviewedAfter reports whether s was reviewed strictly later than other.
// A state that was never reviewed is never later.
func (s ReviewState) ReviewedAfter(other ReviewState) bool {
	if s.LastReviewedAt == nil {
		return false
	}
	if other.LastReviewedAt == nil {
		return true
	}
	return s.LastReviewedAt.After(*other.LastReviewedAt)
}

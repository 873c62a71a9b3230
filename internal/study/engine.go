// Package study ties the rating policy, the progress stores, the aggregator
// and the deck composer together behind one Engine.
package study

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/lingoreview/internal/curriculum"
	"github.com/conorfennell/lingoreview/internal/deck"
	"github.com/conorfennell/lingoreview/internal/domain"
	"github.com/conorfennell/lingoreview/internal/schedule"
	"github.com/conorfennell/lingoreview/internal/stats"
	"github.com/conorfennell/lingoreview/internal/storage"
)

// DefaultTimeout bounds each store call when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// Engine schedules reviews for any scope the store can serve.
type Engine struct {
	store      storage.Store
	curriculum *curriculum.Curriculum
	validate   *validator.Validate
	log        *slog.Logger
	timeout    time.Duration
	deckOpts   deck.Options
	now        func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for fail-open warnings.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithTimeout bounds every store call.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithDeckOptions sets the default deck bounds.
func WithDeckOptions(o deck.Options) Option {
	return func(e *Engine) { e.deckOpts = o }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New returns an Engine over store and cur.
func New(store storage.Store, cur *curriculum.Curriculum, opts ...Option) *Engine {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	e := &Engine{
		store:      store,
		curriculum: cur,
		validate:   v,
		log:        slog.Default(),
		timeout:    DefaultTimeout,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RatingEvent is one self-graded recall, as issued by a study session.
type RatingEvent struct {
	Scope      domain.Scope `json:"scope"`
	ItemID     string       `json:"item_id" validate:"required"`
	Rating     string       `json:"rating" validate:"required,oneof=weak improving strong master_now"`
	ReviewedAt time.Time    `json:"reviewed_at"`
}

// Rate applies a rating event and writes the new state back. Nothing is
// written unless the event is valid; a failed write is returned as is.
func (e *Engine) Rate(ctx context.Context, ev RatingEvent) (domain.ReviewState, error) {
	if err := e.check(ev); err != nil {
		return domain.ReviewState{}, err
	}
	if _, ok := e.curriculum.Item(ev.ItemID); !ok {
		return domain.ReviewState{}, domain.Invalid("item_id", "unknown item "+ev.ItemID)
	}
	rating, err := schedule.ParseRating(ev.Rating)
	if err != nil {
		return domain.ReviewState{}, domain.Invalid("rating", err.Error())
	}
	now := ev.ReviewedAt
	if now.IsZero() {
		now = e.now()
	}
	now = now.UTC()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	current, ok, err := e.store.Get(ctx, ev.Scope, ev.ItemID)
	if err != nil {
		return domain.ReviewState{}, err
	}
	var prev *domain.ReviewState
	if ok {
		prev = &current
	}

	next, err := schedule.Apply(prev, rating, now)
	if err != nil {
		return domain.ReviewState{}, domain.Invalid("rating", err.Error())
	}
	if err := e.store.Put(ctx, ev.Scope, ev.ItemID, next); err != nil {
		return domain.ReviewState{}, err
	}

	e.log.Debug("rated item",
		"scope", ev.Scope.String(),
		"item", ev.ItemID,
		"rating", rating.String(),
		"streak", next.StreakCount,
		"due_at", next.DueAt,
	)
	return next, nil
}

// DeckRequest narrows and bounds a study deck. Zero bounds fall back to the
// engine defaults.
type DeckRequest struct {
	LessonID   string
	Type       domain.ItemType
	FreshLimit int
	MaxSize    int
}

// Deck builds the next study queue. If the store is unavailable every
// candidate is treated as fresh and the deck is marked Degraded.
func (e *Engine) Deck(ctx context.Context, scope domain.Scope, req DeckRequest) (deck.Deck, error) {
	if err := e.checkScope(scope); err != nil {
		return deck.Deck{}, err
	}
	if req.Type != "" && !req.Type.Valid() {
		return deck.Deck{}, domain.Invalid("type", "unknown item type "+string(req.Type))
	}
	if req.LessonID != "" {
		if _, ok := e.curriculum.Lesson(req.LessonID); !ok {
			return deck.Deck{}, domain.Invalid("lesson", "unknown lesson "+req.LessonID)
		}
	}

	opts := e.deckOpts
	if req.FreshLimit > 0 {
		opts.FreshLimit = req.FreshLimit
	}
	if req.MaxSize > 0 {
		opts.MaxSize = req.MaxSize
	}

	candidates := e.curriculum.Candidates(curriculum.Filter{LessonID: req.LessonID, Type: req.Type})
	due, fresh, err := e.classify(ctx, scope, candidates)
	if storage.IsAdapterError(err) {
		e.log.Warn("progress store unavailable, treating every item as fresh",
			"scope", scope.String(), "op", "deck", "error", err)
		d := deck.Compose(nil, candidates, opts)
		d.Degraded = true
		return d, nil
	}
	if err != nil {
		return deck.Deck{}, err
	}
	return deck.Compose(due, fresh, opts), nil
}

func (e *Engine) classify(ctx context.Context, scope domain.Scope, candidates []string) (due, fresh []string, err error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	allDue, err := e.store.ListDue(ctx, scope, e.now().UTC())
	if err != nil {
		return nil, nil, err
	}
	wanted := make(map[string]bool, len(candidates))
	for _, id := range candidates {
		wanted[id] = true
	}
	for _, id := range allDue {
		if wanted[id] {
			due = append(due, id)
		}
	}

	fresh, err = e.store.ListFresh(ctx, scope, candidates)
	if err != nil {
		return nil, nil, err
	}
	return due, fresh, nil
}

// Report is the progress snapshot shown to a learner.
type Report struct {
	Lessons      map[string]stats.LessonStat `json:"lessons"`
	Courses      []stats.CourseStat          `json:"courses"`
	NextLessonID string                      `json:"next_lesson_id,omitempty"`
	Mastered     int                         `json:"mastered"`
	Due          int                         `json:"due"`
	Degraded     bool                        `json:"degraded,omitempty"`
}

// Progress aggregates the scope's mastery into lesson and course stats. A
// store outage yields an all-zero report marked Degraded.
func (e *Engine) Progress(ctx context.Context, scope domain.Scope) (Report, error) {
	states, degraded, err := e.snapshot(ctx, scope, "progress")
	if err != nil {
		return Report{}, err
	}

	mastered := storage.MasteredSet(states)
	lessonStats := stats.BuildLessonStats(e.curriculum.Lessons, e.curriculum.Items, mastered)
	return Report{
		Lessons:      lessonStats,
		Courses:      stats.BuildCourseStats(e.curriculum.Lessons, lessonStats),
		NextLessonID: stats.DefaultLessonAfterLargestCompleted(e.curriculum.Lessons, lessonStats),
		Mastered:     len(mastered),
		Due:          len(storage.DueItems(states, e.now().UTC())),
		Degraded:     degraded,
	}, nil
}

// LessonReport is the stat of a single lesson.
type LessonReport struct {
	stats.LessonStat
	Missing  bool `json:"missing,omitempty"`
	Degraded bool `json:"degraded,omitempty"`
}

// Lesson returns the stat of one lesson. An unknown lesson is reported as a
// zero stat with Missing set.
func (e *Engine) Lesson(ctx context.Context, scope domain.Scope, lessonID string) (LessonReport, error) {
	states, degraded, err := e.snapshot(ctx, scope, "lesson")
	if err != nil {
		return LessonReport{}, err
	}

	lessonStats := stats.BuildLessonStats(e.curriculum.Lessons, e.curriculum.Items, storage.MasteredSet(states))
	stat, err := stats.Lesson(lessonStats, lessonID)
	var nf *stats.NotFoundError
	if errors.As(err, &nf) {
		e.log.Debug("lesson not in curriculum", "lesson", lessonID)
		return LessonReport{LessonStat: stat, Missing: true, Degraded: degraded}, nil
	}
	return LessonReport{LessonStat: stat, Degraded: degraded}, nil
}

func (e *Engine) snapshot(ctx context.Context, scope domain.Scope, op string) (map[string]domain.ReviewState, bool, error) {
	if err := e.checkScope(scope); err != nil {
		return nil, false, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	states, err := e.store.Snapshot(ctx, scope)
	if storage.IsAdapterError(err) {
		e.log.Warn("progress store unavailable, treating learner as having no progress",
			"scope", scope.String(), "op", op, "error", err)
		return map[string]domain.ReviewState{}, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return states, false, nil
}

func (e *Engine) checkScope(scope domain.Scope) error {
	if err := scope.Validate(); err != nil {
		return domain.Invalid("scope", err.Error())
	}
	return nil
}

// check runs struct validation and reports the first failing field.
func (e *Engine) check(v any) error {
	err := e.validate.Struct(v)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		return domain.Invalid(field, "failed "+fe.Tag()+" check")
	}
	return err
}

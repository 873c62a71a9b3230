package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Registers the pgx driver
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // Registers the sqlite driver

	"github.com/conorfennell/lingoreview/internal/domain"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// SQLStore is the remote backend: one review_states row per learner and item.
type SQLStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLStore)(nil)

// OpenSQL connects to the database and ensures the schema is up to date.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = sqliteSchema
	case DriverPostgres:
		schema = postgresSchema
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

type stateRow struct {
	LearnerID      string       `db:"learner_id"`
	ItemID         string       `db:"item_id"`
	StreakCount    int          `db:"streak_count"`
	ReviewCount    int          `db:"review_count"`
	Mastered       bool         `db:"mastered"`
	DueAt          time.Time    `db:"due_at"`
	LastReviewedAt sql.NullTime `db:"last_reviewed_at"`
}

func (r stateRow) state() domain.ReviewState {
	s := domain.ReviewState{
		StreakCount: r.StreakCount,
		ReviewCount: r.ReviewCount,
		Mastered:    r.Mastered,
		DueAt:       r.DueAt.UTC(),
	}
	if r.LastReviewedAt.Valid {
		t := r.LastReviewedAt.Time.UTC()
		s.LastReviewedAt = &t
	}
	return s
}

func (s *SQLStore) Get(ctx context.Context, scope domain.Scope, itemID string) (domain.ReviewState, bool, error) {
	if err := scopeErr(scope, domain.ScopeLearner); err != nil {
		return domain.ReviewState{}, false, err
	}

	var row stateRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`
		SELECT learner_id, item_id, streak_count, review_count, mastered, due_at, last_reviewed_at
		FROM review_states WHERE learner_id = ? AND item_id = ?
	`), scope.ID, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ReviewState{}, false, nil
	}
	if err != nil {
		return domain.ReviewState{}, false, adapterErr("get", scope, fmt.Errorf("failed to find state for item %s: %w", itemID, err))
	}
	return row.state(), true, nil
}

// Put upserts the row keyed on (learner_id, item_id). No concurrency token is
// checked, so the write that lands last wins.
func (s *SQLStore) Put(ctx context.Context, scope domain.Scope, itemID string, state domain.ReviewState) error {
	if err := scopeErr(scope, domain.ScopeLearner); err != nil {
		return err
	}
	if itemID == "" {
		return domain.Invalid("item_id", "must not be empty")
	}

	var lastReviewed sql.NullTime
	if state.LastReviewedAt != nil {
		lastReviewed = sql.NullTime{Time: state.LastReviewedAt.UTC(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO review_states (learner_id, item_id, streak_count, review_count, mastered, due_at, last_reviewed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (learner_id, item_id) DO UPDATE SET
			streak_count = excluded.streak_count,
			review_count = excluded.review_count,
			mastered = excluded.mastered,
			due_at = excluded.due_at,
			last_reviewed_at = excluded.last_reviewed_at
	`),
		scope.ID,
		itemID,
		state.StreakCount,
		state.ReviewCount,
		state.Mastered,
		state.DueAt.UTC(),
		lastReviewed,
	)
	if err != nil {
		return adapterErr("put", scope, fmt.Errorf("failed to upsert state for item %s: %w", itemID, err))
	}
	return nil
}

// Snapshot loads every row of the learner in one query.
func (s *SQLStore) Snapshot(ctx context.Context, scope domain.Scope) (map[string]domain.ReviewState, error) {
	if err := scopeErr(scope, domain.ScopeLearner); err != nil {
		return nil, err
	}

	var rows []stateRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT learner_id, item_id, streak_count, review_count, mastered, due_at, last_reviewed_at
		FROM review_states WHERE learner_id = ?
	`), scope.ID)
	if err != nil {
		return nil, adapterErr("snapshot", scope, fmt.Errorf("failed to load states: %w", err))
	}

	states := make(map[string]domain.ReviewState, len(rows))
	for _, row := range rows {
		states[row.ItemID] = row.state()
	}
	return states, nil
}

func (s *SQLStore) ListDue(ctx context.Context, scope domain.Scope, asOf time.Time) ([]string, error) {
	states, err := s.Snapshot(ctx, scope)
	if err != nil {
		return nil, err
	}
	return DueItems(states, asOf), nil
}

func (s *SQLStore) ListFresh(ctx context.Context, scope domain.Scope, candidates []string) ([]string, error) {
	states, err := s.Snapshot(ctx, scope)
	if err != nil {
		return nil, err
	}
	return FreshItems(states, candidates), nil
}

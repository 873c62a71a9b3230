package storage

// The review_states table holds one row per (learner, item). There is no
// version column: concurrent writers for the same key resolve by last write.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS review_states (
    learner_id TEXT NOT NULL,
    item_id TEXT NOT NULL,
    streak_count INTEGER NOT NULL DEFAULT 0,
    review_count INTEGER NOT NULL DEFAULT 0,
    mastered BOOLEAN NOT NULL DEFAULT FALSE,
    due_at DATETIME NOT NULL,
    last_reviewed_at DATETIME,

    PRIMARY KEY (learner_id, item_id)
);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS review_states (
    learner_id TEXT NOT NULL,
    item_id TEXT NOT NULL,
    streak_count INTEGER NOT NULL DEFAULT 0,
    review_count INTEGER NOT NULL DEFAULT 0,
    mastered BOOLEAN NOT NULL DEFAULT FALSE,
    due_at TIMESTAMPTZ NOT NULL,
    last_reviewed_at TIMESTAMPTZ,

    PRIMARY KEY (learner_id, item_id)
);
`

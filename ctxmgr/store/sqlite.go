package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"convoctx/ctxmgr"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFs embed.FS

// SQLiteStore persists checkpoints to a SQLite database via modernc.org/sqlite,
// with schema managed by golang-migrate against the embedded migrations. It
// never reaches for a package-global logger; every log line goes through the
// zerolog.Logger passed to NewSQLiteStore.
type SQLiteStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSQLiteStore opens dbPath (created if absent) and applies any pending
// migrations.
func NewSQLiteStore(dbPath string, log zerolog.Logger) (*SQLiteStore, error) {
	log.Info().Str("path", dbPath).Msg("opening conversation checkpoint database")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s := &SQLiteStore{db: db, log: log}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate checkpoint database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	src, err := iofs.New(migrationsFs, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migrations iofs instance: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveCheckpoint(ctx context.Context, cp Checkpoint) error {
	editLog := cp.EditLog
	if editLog == nil {
		editLog = ctxmgr.NewEditLog()
	}
	editLogJSON, err := editLog.Serialize()
	if err != nil {
		s.log.Error().Err(err).Str("conversation_id", cp.ConversationID).Msg("failed to serialize edit log")
		return fmt.Errorf("failed to serialize edit log: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO conversation_checkpoints (
			conversation_id, deleted_start, deleted_end, edit_log, updated_at
		) VALUES (?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		cp.ConversationID, cp.Deleted.Start, cp.Deleted.End, string(editLogJSON), cp.UpdatedAt.UTC(),
	)
	if err != nil {
		s.log.Error().Err(err).Str("conversation_id", cp.ConversationID).Msg("failed to save checkpoint")
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadCheckpoint(ctx context.Context, conversationID string) (Checkpoint, bool, error) {
	query := `
		SELECT deleted_start, deleted_end, edit_log, updated_at
		FROM conversation_checkpoints WHERE conversation_id = ?
	`
	row := s.db.QueryRowContext(ctx, query, conversationID)

	var deletedStart, deletedEnd int
	var editLogJSON string
	var updatedAt sql.NullTime
	err := row.Scan(&deletedStart, &deletedEnd, &editLogJSON, &updatedAt)
	if err == sql.ErrNoRows {
		return Checkpoint{}, false, nil
	}
	if err != nil {
		s.log.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to load checkpoint")
		return Checkpoint{}, false, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	editLog, err := ctxmgr.Deserialize([]byte(editLogJSON))
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("failed to deserialize edit log: %w", err)
	}

	return Checkpoint{
		ConversationID: conversationID,
		Deleted:        ctxmgr.Range{Start: deletedStart, End: deletedEnd},
		EditLog:        editLog,
		UpdatedAt:      updatedAt.Time,
	}, true, nil
}

var _ Store = (*SQLiteStore)(nil)

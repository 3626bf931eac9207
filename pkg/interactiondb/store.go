package interactiondb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type Config struct {
	DSN     string        `envconfig:"DSN" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
}

// Interaction is one stored conversation turn. USER and ASSISTANT rows for
// the same exchange share an actor and session id.
type Interaction struct {
	bun.BaseModel `bun:"table:support_interactions"`

	ID        int64     `bun:"id,pk,autoincrement"`
	ActorID   string    `bun:"actor_id,notnull"`
	SessionID string    `bun:"session_id,notnull"`
	Role      string    `bun:"role,notnull"`
	Text      string    `bun:"text,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// Store is a durable audit log of completed exchanges, separate from the
// semantic memory service.
type Store struct {
	db      *bun.DB
	timeout time.Duration
}

// NewDB opens a Postgres connection from the DSN.
func NewDB(cfg Config) (*bun.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("interactiondb: dsn is required")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

func NewStore(db *bun.DB, cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Store{db: db, timeout: timeout}
}

// EnsureSchema creates the interactions table when absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.NewCreateTable().
		Model((*Interaction)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("interactiondb: create table: %w", err)
	}
	return nil
}

// AppendPair writes the USER and ASSISTANT rows of one completed exchange
// in a single statement.
func (s *Store) AppendPair(ctx context.Context, actorID, sessionID, userText, assistantText string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows := []Interaction{
		{ActorID: actorID, SessionID: sessionID, Role: "USER", Text: userText},
		{ActorID: actorID, SessionID: sessionID, Role: "ASSISTANT", Text: assistantText},
	}
	if _, err := s.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("interactiondb: insert pair: %w", err)
	}
	return nil
}

package database

import (
	"context"
	"database/sql"
	"fmt"

	"classquiz-service/config"

	_ "github.com/lib/pq"  // driver: postgres
	_ "modernc.org/sqlite" // driver: sqlite
)

type Client struct {
	db     *sql.DB
	config *config.DBConfig
}

// Open connects to the configured database. Postgres is used when deployed
// alongside the rest of the stack; SQLite keeps local classroom setups to a
// single binary and file.
func Open(cfg *config.DBConfig) (*Client, error) {
	var (
		db  *sql.DB
		err error
	)

	switch cfg.Driver {
	case "sqlite":
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", cfg.SQLitePath)
		db, err = sql.Open("sqlite", dsn)
	case "postgres":
		connStr := fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
		)
		db, err = sql.Open("postgres", connStr)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Client{db: db, config: cfg}, nil
}

func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *Client) GetDB() *sql.DB {
	return c.db
}

// InitSchema creates the quiz tables. The DDL is kept to the subset both
// drivers accept.
func (c *Client) InitSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS quizzes (
			id TEXT PRIMARY KEY,
			question TEXT NOT NULL,
			misconceptions TEXT NOT NULL DEFAULT '[]',
			correct_answers TEXT NOT NULL DEFAULT '[]',
			started BOOLEAN NOT NULL DEFAULT FALSE,
			ended BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE TABLE IF NOT EXISTS responses (
			quiz_id TEXT NOT NULL,
			username TEXT NOT NULL,
			response TEXT NOT NULL,
			PRIMARY KEY (quiz_id, username)
		);
	`

	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create quiz tables: %w", err)
	}

	return nil
}

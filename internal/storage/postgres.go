package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/contentbridge/cms-migration-service/internal/config"
)

// PostgresStorage implements Store on a PostgreSQL database via lib/pq.
type PostgresStorage struct {
	db *sql.DB
}

// NewPostgresStorage connects to the database, ensures the schema exists and
// seeds the built-in admin user and fallback category.
func NewPostgresStorage(cfg config.StorageConfig) (*PostgresStorage, error) {
	if cfg.PostgresURI == "" {
		return nil, fmt.Errorf("postgresql storage requires POSTGRES_URI")
	}

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}

	s := &PostgresStorage{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	if err := s.seed(); err != nil {
		return nil, fmt.Errorf("failed to seed built-in records: %w", err)
	}

	return s, nil
}

func (s *PostgresStorage) ensureSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			login TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL DEFAULT '',
			password TEXT NOT NULL DEFAULT '',
			require_reset BOOLEAN NOT NULL DEFAULT FALSE,
			role TEXT NOT NULL DEFAULT '',
			registered_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id SERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			alias TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			extension TEXT NOT NULL DEFAULT '',
			parent_id INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS articles (
			id SERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			alias TEXT NOT NULL UNIQUE,
			intro_text TEXT NOT NULL DEFAULT '',
			full_text TEXT NOT NULL DEFAULT '',
			state INTEGER NOT NULL DEFAULT 0,
			created_by INTEGER NOT NULL DEFAULT 0,
			cat_id INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_title ON articles (title)`,
		`CREATE TABLE IF NOT EXISTS fields (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS field_values (
			id SERIAL PRIMARY KEY,
			field_id INTEGER NOT NULL REFERENCES fields (id),
			article_id INTEGER NOT NULL REFERENCES articles (id),
			value TEXT NOT NULL DEFAULT ''
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStorage) seed() error {
	_, err := s.db.Exec(
		`INSERT INTO users (login, name, role, registered_at)
		 VALUES ($1, 'Super User', 'administrator', $2)
		 ON CONFLICT (login) DO NOTHING`,
		DefaultAdminLogin, time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`INSERT INTO categories (title, alias, extension)
		 VALUES ('Uncategorised', $1, $2)
		 ON CONFLICT (alias) DO NOTHING`,
		DefaultCategorySlug, CategoryExtension,
	)
	return err
}

// Begin opens a run transaction.
func (s *PostgresStorage) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &postgresTx{tx: tx}, nil
}

// Close closes the connection pool.
func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

type postgresTx struct {
	tx *sql.Tx
}

func (t *postgresTx) queryID(ctx context.Context, query string, arg any) (uint, bool, error) {
	var id uint
	err := t.tx.QueryRowContext(ctx, query, arg).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (t *postgresTx) FindUserByLogin(ctx context.Context, login string) (uint, bool, error) {
	return t.queryID(ctx, `SELECT id FROM users WHERE login = $1`, login)
}

func (t *postgresTx) FindUserByName(ctx context.Context, name string) (uint, bool, error) {
	return t.queryID(ctx, `SELECT id FROM users WHERE name = $1`, name)
}

func (t *postgresTx) SaveUser(ctx context.Context, user *User) (uint, error) {
	var id uint
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO users (login, email, name, password, require_reset, role, registered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		user.Login, user.Email, user.Name, user.Password, user.RequireReset, user.Role, user.RegisteredAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save user %q: %w", user.Login, err)
	}
	user.ID = id
	return id, nil
}

func (t *postgresTx) FindCategoryBySlug(ctx context.Context, slug string) (uint, bool, error) {
	return t.queryID(ctx, `SELECT id FROM categories WHERE alias = $1`, slug)
}

func (t *postgresTx) FindCategoryByName(ctx context.Context, name string) (uint, bool, error) {
	return t.queryID(ctx, `SELECT id FROM categories WHERE title = $1`, name)
}

func (t *postgresTx) SaveCategory(ctx context.Context, category *Category) (uint, error) {
	if category.Extension == "" {
		category.Extension = CategoryExtension
	}
	var id uint
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO categories (title, alias, description, extension, parent_id)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		category.Title, category.Alias, category.Description, category.Extension, category.ParentID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save category %q: %w", category.Title, err)
	}
	category.ID = id
	return id, nil
}

func (t *postgresTx) exists(ctx context.Context, query string, arg any) (bool, error) {
	var found bool
	if err := t.tx.QueryRowContext(ctx, query, arg).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}

func (t *postgresTx) ArticleTitleExists(ctx context.Context, title string) (bool, error) {
	return t.exists(ctx, `SELECT EXISTS (SELECT 1 FROM articles WHERE title = $1)`, title)
}

func (t *postgresTx) AliasExists(ctx context.Context, alias string) (bool, error) {
	return t.exists(ctx, `SELECT EXISTS (SELECT 1 FROM articles WHERE alias = $1)`, alias)
}

func (t *postgresTx) SaveArticle(ctx context.Context, article *Article) (uint, error) {
	var id uint
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO articles (title, alias, intro_text, full_text, state, created_by, cat_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		article.Title, article.Alias, article.IntroText, article.FullText,
		article.State, article.CreatedBy, article.CatID, article.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save article %q: %w", article.Title, err)
	}
	article.ID = id
	return id, nil
}

func (t *postgresTx) FindFieldByName(ctx context.Context, name string) (uint, bool, error) {
	return t.queryID(ctx, `SELECT id FROM fields WHERE name = $1`, name)
}

func (t *postgresTx) SaveField(ctx context.Context, field *Field) (uint, error) {
	var id uint
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO fields (name, title, type) VALUES ($1, $2, $3) RETURNING id`,
		field.Name, field.Title, field.Type,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save field %q: %w", field.Name, err)
	}
	field.ID = id
	return id, nil
}

func (t *postgresTx) SaveFieldValue(ctx context.Context, value *FieldValue) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO field_values (field_id, article_id, value) VALUES ($1, $2, $3)`,
		value.FieldID, value.ArticleID, value.Value,
	)
	if err != nil {
		return fmt.Errorf("failed to save field value for article %d: %w", value.ArticleID, err)
	}
	return nil
}

func (t *postgresTx) Commit() error {
	return t.tx.Commit()
}

func (t *postgresTx) Rollback() error {
	return t.tx.Rollback()
}

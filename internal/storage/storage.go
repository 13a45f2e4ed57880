package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/contentbridge/cms-migration-service/internal/config"
)

// Built-in records seeded into every target store. The processor falls back
// to them when an article's author or category cannot be resolved.
const (
	DefaultAdminLogin   = "admin"
	DefaultCategorySlug = "uncategorized"

	// RoleRegistered is the lowest-privilege role assigned to imported users.
	RoleRegistered = "registered"

	// CategoryExtension is the namespace content categories live in.
	CategoryExtension = "com_content"
)

// User is a target-store user account.
type User struct {
	ID           uint   `gorm:"primarykey"`
	Login        string `gorm:"uniqueIndex;not null"`
	Email        string
	Name         string
	Password     string
	RequireReset bool
	Role         string
	RegisteredAt time.Time
}

// Category is a target-store content category.
type Category struct {
	ID          uint   `gorm:"primarykey"`
	Title       string `gorm:"not null"`
	Alias       string `gorm:"uniqueIndex;not null"`
	Description string
	Extension   string `gorm:"index"`
	ParentID    uint
}

// Article is a target-store content item.
type Article struct {
	ID        uint   `gorm:"primarykey"`
	Title     string `gorm:"index;not null"`
	Alias     string `gorm:"uniqueIndex;not null"`
	IntroText string
	FullText  string
	State     int // 0 draft, 1 published
	CreatedBy uint
	CatID     uint
	CreatedAt time.Time
}

// Field is a custom-field definition, created on first encounter of a field
// name during an import.
type Field struct {
	ID    uint   `gorm:"primarykey"`
	Name  string `gorm:"uniqueIndex;not null"`
	Title string
	Type  string
}

// FieldValue is one custom-field value attached to one article.
type FieldValue struct {
	ID        uint `gorm:"primarykey"`
	FieldID   uint `gorm:"index;not null"`
	ArticleID uint `gorm:"index;not null"`
	Value     string
}

// Store opens run transactions against the target system.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	Close() error
}

// Tx is one run's view of the target store. All lookups and saves happen
// inside the transaction; the whole run commits or rolls back as a unit.
type Tx interface {
	FindUserByLogin(ctx context.Context, login string) (uint, bool, error)
	FindUserByName(ctx context.Context, name string) (uint, bool, error)
	SaveUser(ctx context.Context, user *User) (uint, error)

	FindCategoryBySlug(ctx context.Context, slug string) (uint, bool, error)
	FindCategoryByName(ctx context.Context, name string) (uint, bool, error)
	SaveCategory(ctx context.Context, category *Category) (uint, error)

	ArticleTitleExists(ctx context.Context, title string) (bool, error)
	AliasExists(ctx context.Context, alias string) (bool, error)
	SaveArticle(ctx context.Context, article *Article) (uint, error)

	FindFieldByName(ctx context.Context, name string) (uint, bool, error)
	SaveField(ctx context.Context, field *Field) (uint, error)
	SaveFieldValue(ctx context.Context, value *FieldValue) error

	Commit() error
	Rollback() error
}

// NewStorage creates a target store instance based on configuration
func NewStorage(cfg config.StorageConfig) (Store, error) {
	switch cfg.Type {
	case "sqlite":
		return NewSQLiteStorage(cfg)
	case "postgresql":
		return NewPostgresStorage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/contentbridge/cms-migration-service/internal/config"
)

// SQLiteStorage implements Store on an embedded SQLite database via GORM.
type SQLiteStorage struct {
	db *gorm.DB
}

// NewSQLiteStorage opens (or creates) the database file, migrates the schema
// and seeds the built-in admin user and fallback category.
func NewSQLiteStorage(cfg config.StorageConfig) (*SQLiteStorage, error) {
	db, err := gorm.Open(sqlite.Open(cfg.SQLitePath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.AutoMigrate(&User{}, &Category{}, &Article{}, &Field{}, &FieldValue{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	if err := s.seed(); err != nil {
		return nil, fmt.Errorf("failed to seed built-in records: %w", err)
	}

	return s, nil
}

func (s *SQLiteStorage) seed() error {
	var admin User
	err := s.db.Where("login = ?", DefaultAdminLogin).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		admin = User{
			Login:        DefaultAdminLogin,
			Name:         "Super User",
			Role:         "administrator",
			RegisteredAt: time.Now().UTC(),
		}
		err = s.db.Create(&admin).Error
	}
	if err != nil {
		return err
	}

	var cat Category
	err = s.db.Where("alias = ?", DefaultCategorySlug).First(&cat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cat = Category{
			Title:     "Uncategorised",
			Alias:     DefaultCategorySlug,
			Extension: CategoryExtension,
		}
		err = s.db.Create(&cat).Error
	}
	return err
}

// Begin opens a run transaction.
func (s *SQLiteStorage) Begin(ctx context.Context) (Tx, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	return &sqliteTx{tx: tx}, nil
}

// Close closes the underlying database handle.
func (s *SQLiteStorage) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

type sqliteTx struct {
	tx *gorm.DB
}

func (t *sqliteTx) findID(model any, query string, arg any) (uint, bool, error) {
	err := t.tx.Where(query, arg).First(model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	switch m := model.(type) {
	case *User:
		return m.ID, true, nil
	case *Category:
		return m.ID, true, nil
	case *Field:
		return m.ID, true, nil
	}
	return 0, false, fmt.Errorf("unexpected model type %T", model)
}

func (t *sqliteTx) FindUserByLogin(ctx context.Context, login string) (uint, bool, error) {
	return t.findID(&User{}, "login = ?", login)
}

func (t *sqliteTx) FindUserByName(ctx context.Context, name string) (uint, bool, error) {
	return t.findID(&User{}, "name = ?", name)
}

func (t *sqliteTx) SaveUser(ctx context.Context, user *User) (uint, error) {
	if err := t.tx.Create(user).Error; err != nil {
		return 0, fmt.Errorf("failed to save user %q: %w", user.Login, err)
	}
	return user.ID, nil
}

func (t *sqliteTx) FindCategoryBySlug(ctx context.Context, slug string) (uint, bool, error) {
	return t.findID(&Category{}, "alias = ?", slug)
}

func (t *sqliteTx) FindCategoryByName(ctx context.Context, name string) (uint, bool, error) {
	return t.findID(&Category{}, "title = ?", name)
}

func (t *sqliteTx) SaveCategory(ctx context.Context, category *Category) (uint, error) {
	if category.Extension == "" {
		category.Extension = CategoryExtension
	}
	if err := t.tx.Create(category).Error; err != nil {
		return 0, fmt.Errorf("failed to save category %q: %w", category.Title, err)
	}
	return category.ID, nil
}

func (t *sqliteTx) ArticleTitleExists(ctx context.Context, title string) (bool, error) {
	var count int64
	if err := t.tx.Model(&Article{}).Where("title = ?", title).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (t *sqliteTx) AliasExists(ctx context.Context, alias string) (bool, error) {
	var count int64
	if err := t.tx.Model(&Article{}).Where("alias = ?", alias).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (t *sqliteTx) SaveArticle(ctx context.Context, article *Article) (uint, error) {
	if err := t.tx.Create(article).Error; err != nil {
		return 0, fmt.Errorf("failed to save article %q: %w", article.Title, err)
	}
	return article.ID, nil
}

func (t *sqliteTx) FindFieldByName(ctx context.Context, name string) (uint, bool, error) {
	return t.findID(&Field{}, "name = ?", name)
}

func (t *sqliteTx) SaveField(ctx context.Context, field *Field) (uint, error) {
	if err := t.tx.Create(field).Error; err != nil {
		return 0, fmt.Errorf("failed to save field %q: %w", field.Name, err)
	}
	return field.ID, nil
}

func (t *sqliteTx) SaveFieldValue(ctx context.Context, value *FieldValue) error {
	if err := t.tx.Create(value).Error; err != nil {
		return fmt.Errorf("failed to save field value for article %d: %w", value.ArticleID, err)
	}
	return nil
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit().Error
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback().Error
}

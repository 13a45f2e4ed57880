package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/contentbridge/cms-migration-service/internal/models"
	"github.com/contentbridge/cms-migration-service/internal/storage"
)

// fakeStore and fakeTx form an in-memory target store for processor tests.
// The fake mirrors real transaction semantics closely enough to exercise
// identity resolution, alias collisions and the commit/rollback decision.
type fakeStore struct {
	tx       *fakeTx
	beginErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{tx: newFakeTx()}
}

func (s *fakeStore) Begin(ctx context.Context) (storage.Tx, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	return s.tx, nil
}

func (s *fakeStore) Close() error { return nil }

type fakeTx struct {
	nextID uint

	users      []*storage.User
	categories []*storage.Category
	articles   []*storage.Article
	fields     []*storage.Field
	values     []*storage.FieldValue

	committed  bool
	rolledBack bool

	// failArticleTitle forces SaveArticle to fail for one title, to
	// exercise per-item error isolation and the all-or-nothing commit.
	failArticleTitle string
	// failFieldName forces custom-field creation to fail for one name.
	failFieldName string
}

func newFakeTx() *fakeTx {
	tx := &fakeTx{nextID: 0}
	// Built-ins every real store seeds.
	tx.users = append(tx.users, &storage.User{ID: tx.id(), Login: storage.DefaultAdminLogin, Name: "Super User"})
	tx.categories = append(tx.categories, &storage.Category{ID: tx.id(), Title: "Uncategorised", Alias: storage.DefaultCategorySlug})
	return tx
}

func (t *fakeTx) id() uint {
	t.nextID++
	return t.nextID
}

func (t *fakeTx) adminID() uint { return t.users[0].ID }

func (t *fakeTx) uncategorizedID() uint { return t.categories[0].ID }

func (t *fakeTx) findArticleByTitle(title string) *storage.Article {
	for _, a := range t.articles {
		if a.Title == title {
			return a
		}
	}
	return nil
}

func (t *fakeTx) FindUserByLogin(ctx context.Context, login string) (uint, bool, error) {
	for _, u := range t.users {
		if u.Login == login {
			return u.ID, true, nil
		}
	}
	return 0, false, nil
}

func (t *fakeTx) FindUserByName(ctx context.Context, name string) (uint, bool, error) {
	for _, u := range t.users {
		if u.Name == name {
			return u.ID, true, nil
		}
	}
	return 0, false, nil
}

func (t *fakeTx) SaveUser(ctx context.Context, user *storage.User) (uint, error) {
	user.ID = t.id()
	t.users = append(t.users, user)
	return user.ID, nil
}

func (t *fakeTx) FindCategoryBySlug(ctx context.Context, slug string) (uint, bool, error) {
	for _, c := range t.categories {
		if c.Alias == slug {
			return c.ID, true, nil
		}
	}
	return 0, false, nil
}

func (t *fakeTx) FindCategoryByName(ctx context.Context, name string) (uint, bool, error) {
	for _, c := range t.categories {
		if c.Title == name {
			return c.ID, true, nil
		}
	}
	return 0, false, nil
}

func (t *fakeTx) SaveCategory(ctx context.Context, category *storage.Category) (uint, error) {
	category.ID = t.id()
	t.categories = append(t.categories, category)
	return category.ID, nil
}

func (t *fakeTx) ArticleTitleExists(ctx context.Context, title string) (bool, error) {
	return t.findArticleByTitle(title) != nil, nil
}

func (t *fakeTx) AliasExists(ctx context.Context, alias string) (bool, error) {
	for _, a := range t.articles {
		if a.Alias == alias {
			return true, nil
		}
	}
	return false, nil
}

func (t *fakeTx) SaveArticle(ctx context.Context, article *storage.Article) (uint, error) {
	if t.failArticleTitle != "" && article.Title == t.failArticleTitle {
		return 0, fmt.Errorf("save rejected by target store")
	}
	article.ID = t.id()
	if article.CreatedAt.IsZero() {
		article.CreatedAt = time.Now().UTC()
	}
	t.articles = append(t.articles, article)
	return article.ID, nil
}

func (t *fakeTx) FindFieldByName(ctx context.Context, name string) (uint, bool, error) {
	for _, f := range t.fields {
		if f.Name == name {
			return f.ID, true, nil
		}
	}
	return 0, false, nil
}

func (t *fakeTx) SaveField(ctx context.Context, field *storage.Field) (uint, error) {
	if t.failFieldName != "" && field.Name == t.failFieldName {
		return 0, fmt.Errorf("field rejected by target store")
	}
	field.ID = t.id()
	t.fields = append(t.fields, field)
	return field.ID, nil
}

func (t *fakeTx) SaveFieldValue(ctx context.Context, value *storage.FieldValue) error {
	t.values = append(t.values, value)
	return nil
}

func (t *fakeTx) Commit() error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback() error {
	t.rolledBack = true
	return nil
}

// captureSink records progress snapshots for assertions.
type captureSink struct {
	snapshots []statusEntry
}

type statusEntry struct {
	percent int
	status  string
}

func (c *captureSink) Write(s models.ProgressSnapshot) error {
	c.snapshots = append(c.snapshots, statusEntry{percent: s.Percent, status: s.Status})
	return nil
}

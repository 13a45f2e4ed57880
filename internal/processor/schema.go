package processor

import (
	"fmt"

	"github.com/contentbridge/cms-migration-service/internal/models"
	"github.com/contentbridge/cms-migration-service/internal/storage"
)

// processSchemaOrg projects a schema.org-shape document. Unlike the legacy
// path there is no upfront user or taxonomy list, so authors and categories
// are resolved get-or-create against the live store, keyed by display name
// and category name.
func (r *run) processSchemaOrg(doc *models.IntermediateDocument, opts Options) {
	total := len(doc.ItemListElement)
	for i, el := range doc.ItemListElement {
		r.importArticleItem(el.Item, opts)
		r.report((i+1)*100/max(total, 1), fmt.Sprintf("Importing articles (%d/%d)", i+1, total))
	}
}

func (r *run) importArticleItem(item models.ArticleItem, opts Options) {
	exists, err := r.tx.ArticleTitleExists(r.ctx, item.Headline)
	if err != nil {
		r.summary.AddError("article %q: lookup failed: %v", item.Headline, err)
		return
	}
	if exists {
		r.summary.Counts.Skipped++
		return
	}

	authorID, err := r.resolveAuthor(item, opts)
	if err != nil {
		r.summary.AddError("article %q: author: %v", item.Headline, err)
		return
	}

	catID, err := r.resolveSection(item.ArticleSection)
	if err != nil {
		r.summary.AddError("article %q: category: %v", item.Headline, err)
		return
	}

	body := r.rewriteMedia(item.ArticleBody, item.Headline)
	intro, full := prepareBody(body)

	alias, err := r.uniqueAlias(slugify(item.Headline))
	if err != nil {
		r.summary.AddError("article %q: alias generation failed: %v", item.Headline, err)
		return
	}

	state := 0
	if item.CreativeWorkStatus == "published" || item.CreativeWorkStatus == "publish" {
		state = 1
	}

	articleID, err := r.tx.SaveArticle(r.ctx, &storage.Article{
		Title:     item.Headline,
		Alias:     alias,
		IntroText: intro,
		FullText:  full,
		State:     state,
		CreatedBy: authorID,
		CatID:     catID,
		CreatedAt: parseDate(item.DatePublished),
	})
	if err != nil {
		r.summary.AddError("article %q: %v", item.Headline, err)
		return
	}
	r.summary.Counts.Articles++

	for _, prop := range item.AdditionalProperty {
		r.attachField(articleID, item.Headline, prop.Name, prop.Value)
	}
}

// resolveAuthor maps an embedded author reference to a target user id. With
// ImportAsSuperUser set, every article is attributed to the operator
// identity instead.
func (r *run) resolveAuthor(item models.ArticleItem, opts Options) (uint, error) {
	if opts.ImportAsSuperUser || item.Author.Name == "" {
		return r.adminID, nil
	}

	id, found, err := r.tx.FindUserByName(r.ctx, item.Author.Name)
	if err != nil {
		return 0, err
	}
	if found {
		return id, nil
	}

	id, err = r.tx.SaveUser(r.ctx, &storage.User{
		Login:        slugify(item.Author.Name),
		Email:        item.Author.Email,
		Name:         item.Author.Name,
		Password:     randomPassword(),
		RequireReset: true,
		Role:         storage.RoleRegistered,
	})
	if err != nil {
		return 0, err
	}
	r.summary.Counts.Users++
	return id, nil
}

// resolveSection maps a category name to a target category id, creating the
// category with a name-derived alias when it does not exist yet.
func (r *run) resolveSection(name string) (uint, error) {
	if name == "" {
		return r.defaultCategoryID, nil
	}

	id, found, err := r.tx.FindCategoryByName(r.ctx, name)
	if err != nil {
		return 0, err
	}
	if found {
		return id, nil
	}

	id, err = r.tx.SaveCategory(r.ctx, &storage.Category{
		Title: name,
		Alias: slugify(name),
	})
	if err != nil {
		return 0, err
	}
	r.summary.Counts.Taxonomies++
	return id, nil
}

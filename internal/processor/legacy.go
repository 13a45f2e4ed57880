package processor

import (
	"fmt"

	"github.com/contentbridge/cms-migration-service/internal/models"
	"github.com/contentbridge/cms-migration-service/internal/storage"
)

// Taxonomy families projected into content categories; everything else in
// the taxonomies block is silently ignored.
var importedTaxonomies = []string{"category", "post_tag"}

// Post types projected into articles.
var importedPostTypes = []string{"post", "page"}

// processLegacy projects a legacy-shape document: users first, then
// taxonomy terms, then posts, so the identity maps are complete before any
// article references them.
func (r *run) processLegacy(doc *models.IntermediateDocument) {
	r.report(0, "Importing users")
	r.importUsers(doc.Users)

	r.report(0, "Importing categories")
	r.importTerms(doc.Taxonomies)

	r.importPosts(doc.PostTypes)
}

// importUsers resolves or creates one target user per record. A login that
// already exists is reused: the external id is still mapped, but the user is
// not counted as imported.
func (r *run) importUsers(users []models.UserRecord) {
	for _, u := range users {
		existingID, found, err := r.tx.FindUserByLogin(r.ctx, u.UserLogin)
		if err != nil {
			r.summary.AddError("user %q: lookup failed: %v", u.UserLogin, err)
			continue
		}
		if found {
			r.userMap[u.ID] = existingID
			continue
		}

		id, err := r.tx.SaveUser(r.ctx, &storage.User{
			Login:        u.UserLogin,
			Email:        u.UserEmail,
			Name:         u.DisplayName,
			Password:     randomPassword(),
			RequireReset: true,
			Role:         storage.RoleRegistered,
			RegisteredAt: parseDate(u.UserRegistered),
		})
		if err != nil {
			r.summary.AddError("user %q: %v", u.UserLogin, err)
			continue
		}
		r.userMap[u.ID] = id
		r.summary.Counts.Users++
	}
}

// importTerms resolves or creates categories for the category and post_tag
// families, keyed by slug.
func (r *run) importTerms(taxonomies map[string][]models.TermRecord) {
	for _, family := range importedTaxonomies {
		for _, term := range taxonomies[family] {
			existingID, found, err := r.tx.FindCategoryBySlug(r.ctx, term.Slug)
			if err != nil {
				r.summary.AddError("category %q: lookup failed: %v", term.Slug, err)
				continue
			}
			if found {
				r.categoryMap[term.TermID] = existingID
				continue
			}

			id, err := r.tx.SaveCategory(r.ctx, &storage.Category{
				Title:       term.Name,
				Alias:       term.Slug,
				Description: term.Description,
			})
			if err != nil {
				r.summary.AddError("category %q: %v", term.Slug, err)
				continue
			}
			r.categoryMap[term.TermID] = id
			r.summary.Counts.Taxonomies++
		}
	}
}

// importPosts creates one article per post/page record. Duplicate titles are
// skipped, not updated.
func (r *run) importPosts(postTypes map[string][]models.PostRecord) {
	var posts []models.PostRecord
	for _, typeName := range importedPostTypes {
		posts = append(posts, postTypes[typeName]...)
	}

	total := len(posts)
	for i, post := range posts {
		r.importPost(post)
		r.report((i+1)*100/max(total, 1), fmt.Sprintf("Importing articles (%d/%d)", i+1, total))
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (r *run) importPost(post models.PostRecord) {
	exists, err := r.tx.ArticleTitleExists(r.ctx, post.PostTitle)
	if err != nil {
		r.summary.AddError("article %q: lookup failed: %v", post.PostTitle, err)
		return
	}
	if exists {
		r.summary.Counts.Skipped++
		return
	}

	authorID := r.adminID
	if id, ok := r.userMap[post.PostAuthor]; ok {
		authorID = id
	}

	catID := r.defaultCategoryID
	for _, termID := range post.Terms["category"] {
		if id, ok := r.categoryMap[termID]; ok {
			catID = id
			break
		}
	}

	content := r.rewriteMedia(post.PostContent, post.PostTitle)

	base := post.PostName
	if base == "" {
		base = post.PostTitle
	}
	alias, err := r.uniqueAlias(slugify(base))
	if err != nil {
		r.summary.AddError("article %q: alias generation failed: %v", post.PostTitle, err)
		return
	}

	state := 0
	if post.PostStatus == "publish" || post.PostStatus == "published" {
		state = 1
	}

	articleID, err := r.tx.SaveArticle(r.ctx, &storage.Article{
		Title:     post.PostTitle,
		Alias:     alias,
		IntroText: post.PostExcerpt,
		FullText:  content,
		State:     state,
		CreatedBy: authorID,
		CatID:     catID,
		CreatedAt: parseDate(post.PostDate),
	})
	if err != nil {
		r.summary.AddError("article %q: %v", post.PostTitle, err)
		return
	}
	r.summary.Counts.Articles++

	for name, value := range post.CustomFields {
		r.attachField(articleID, post.PostTitle, name, value)
	}
}

// attachField materializes a custom-field definition on first encounter and
// stores one value row. Failures are advisory: the article stays imported.
func (r *run) attachField(articleID uint, itemTitle, name, value string) {
	fieldID, found, err := r.tx.FindFieldByName(r.ctx, name)
	if err != nil {
		r.summary.AddWarning("%s: custom field %q lookup failed: %v", itemTitle, name, err)
		return
	}
	if !found {
		fieldID, err = r.tx.SaveField(r.ctx, &storage.Field{Name: name, Title: name, Type: "text"})
		if err != nil {
			r.summary.AddWarning("%s: custom field %q skipped: %v", itemTitle, name, err)
			return
		}
	}

	err = r.tx.SaveFieldValue(r.ctx, &storage.FieldValue{
		FieldID:   fieldID,
		ArticleID: articleID,
		Value:     value,
	})
	if err != nil {
		r.summary.AddWarning("%s: custom field %q value skipped: %v", itemTitle, name, err)
	}
}

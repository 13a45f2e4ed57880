package adapters

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/contentbridge/cms-migration-service/internal/models"
)

// localhostUploadPattern matches development-host upload URLs left in post
// bodies by the source site. Capture group 1 is the path relative to the
// uploads root.
var localhostUploadPattern = regexp.MustCompile(
	`https?://(?:localhost|127\.0\.0\.1)(?::\d+)?[^"'\s<>]*?/wp-content/uploads/([^"'\s<>]+)`)

// WordPressAdapter parses WXR (WordPress eXtended RSS) exports into the
// schema.org shape of the intermediate document.
type WordPressAdapter struct{}

// NewWordPressAdapter creates the WXR adapter.
func NewWordPressAdapter() *WordPressAdapter {
	return &WordPressAdapter{}
}

// Name returns the adapter identity.
func (a *WordPressAdapter) Name() string { return "wordpress" }

type wxrAuthor struct {
	email   string
	display string
}

// Convert parses the WXR file when sourceTag is "wordpress"; any other tag
// is a no-op. Malformed XML or a missing <channel> element is a parse error,
// not a silent skip, so the caller can tell "wrong tag" from "bad file".
func (a *WordPressAdapter) Convert(sourceTag, filePath string) (*models.IntermediateDocument, error) {
	if sourceTag != "wordpress" {
		return nil, nil
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromFile(filePath); err != nil {
		return nil, fmt.Errorf("malformed XML: %w", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("malformed XML: no root element")
	}
	channel := root.SelectElement("channel")
	if channel == nil {
		return nil, fmt.Errorf("not a WXR export: missing <channel> element")
	}

	authors := scanAuthors(channel)
	items := channel.SelectElements("item")

	// Attachments first: post bodies reference them through localhost URLs
	// regardless of where they sit in the file.
	attachments := make(map[string]string)
	var mediaItems []models.MediaItem
	for _, item := range items {
		if elementText(item, "wp:post_type") != "attachment" {
			continue
		}
		liveURL := elementText(item, "wp:attachment_url")
		if liveURL == "" {
			continue
		}
		mediaItems = append(mediaItems, models.MediaItem{
			URL:   liveURL,
			Title: elementText(item, "title"),
		})
		if rel := uploadRelativePath(liveURL); rel != "" {
			attachments[rel] = liveURL
		}
	}

	list := make([]models.ListItem, 0, len(items))
	tagSet := make(map[string]struct{})
	for _, item := range items {
		postType := elementText(item, "wp:post_type")
		if postType != "post" && postType != "page" {
			continue
		}
		if elementText(item, "wp:status") != "publish" {
			continue
		}

		article := models.ArticleItem{
			Headline:           elementText(item, "title"),
			ArticleBody:        rewriteLocalhostURLs(elementText(item, "content:encoded"), attachments),
			Description:        elementText(item, "excerpt:encoded"),
			DatePublished:      convertPubDate(item),
			CreativeWorkStatus: "published",
		}
		if id, err := strconv.ParseInt(elementText(item, "wp:post_id"), 10, 64); err == nil {
			article.Identifier = id
		}

		for _, cat := range item.SelectElements("category") {
			switch cat.SelectAttrValue("domain", "") {
			case "category":
				if article.ArticleSection == "" {
					article.ArticleSection = strings.TrimSpace(cat.Text())
				}
			case "post_tag":
				tag := strings.TrimSpace(cat.Text())
				article.Keywords = append(article.Keywords, tag)
				tagSet[tag] = struct{}{}
			}
		}

		login := elementText(item, "dc:creator")
		if author, ok := authors[login]; ok {
			article.Author = models.AuthorRef{Name: author.display, Email: author.email}
		} else if login != "" {
			article.Author = models.AuthorRef{Name: login}
		}

		article.AdditionalProperty = collectPostmeta(item)

		list = append(list, models.ListItem{Item: article})
	}

	allTags := make([]string, 0, len(tagSet))
	for tag := range tagSet {
		allTags = append(allTags, tag)
	}

	return &models.IntermediateDocument{
		ItemListElement: list,
		AllTags:         allTags,
		MediaItems:      mediaItems,
	}, nil
}

// scanAuthors builds the login -> author table from the channel header so
// item creators can be resolved to an email and display name.
func scanAuthors(channel *etree.Element) map[string]wxrAuthor {
	authors := make(map[string]wxrAuthor)
	for _, el := range channel.SelectElements("wp:author") {
		login := elementText(el, "wp:author_login")
		if login == "" {
			continue
		}
		display := elementText(el, "wp:author_display_name")
		if display == "" {
			display = login
		}
		authors[login] = wxrAuthor{
			email:   elementText(el, "wp:author_email"),
			display: display,
		}
	}
	return authors
}

// collectPostmeta gathers custom fields, skipping keys with the underscore
// prefix the source CMS uses for internal meta.
func collectPostmeta(item *etree.Element) []models.PropertyValue {
	var fields []models.PropertyValue
	for _, meta := range item.SelectElements("wp:postmeta") {
		key := elementText(meta, "wp:meta_key")
		if key == "" || strings.HasPrefix(key, "_") {
			continue
		}
		fields = append(fields, models.PropertyValue{
			Name:  key,
			Value: elementText(meta, "wp:meta_value"),
		})
	}
	return fields
}

// convertPubDate turns the RSS pubDate into ISO-8601, falling back to the
// wp:post_date local timestamp when pubDate is absent or unparseable.
func convertPubDate(item *etree.Element) string {
	if raw := elementText(item, "pubDate"); raw != "" {
		if t, err := time.Parse(time.RFC1123Z, raw); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	if raw := elementText(item, "wp:post_date"); raw != "" {
		if t, err := time.Parse("2006-01-02 15:04:05", raw); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return ""
}

// rewriteLocalhostURLs replaces development-host upload URLs in a post body
// with the live attachment URL for the same upload path, when known.
func rewriteLocalhostURLs(body string, attachments map[string]string) string {
	if len(attachments) == 0 {
		return body
	}
	return localhostUploadPattern.ReplaceAllStringFunc(body, func(match string) string {
		rel := localhostUploadPattern.FindStringSubmatch(match)[1]
		if live, ok := attachments[rel]; ok {
			return live
		}
		return match
	})
}

// uploadRelativePath extracts the path after the uploads root, or "" when
// the URL does not point into it.
func uploadRelativePath(rawURL string) string {
	const marker = "/wp-content/uploads/"
	idx := strings.Index(rawURL, marker)
	if idx < 0 {
		return ""
	}
	return rawURL[idx+len(marker):]
}

func elementText(parent *etree.Element, path string) string {
	if el := parent.SelectElement(path); el != nil {
		return strings.TrimSpace(el.Text())
	}
	return ""
}

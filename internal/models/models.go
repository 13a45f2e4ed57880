package models

import (
	"fmt"
	"time"
)

// IntermediateDocument is the source-agnostic document produced by a source
// adapter and consumed by the processor. Exactly one of the two top-level
// shapes is populated: the legacy shape (Users + PostTypes) or the schema.org
// shape (ItemListElement). Dispatch is structural, so a document must never
// satisfy both predicates.
type IntermediateDocument struct {
	// Legacy shape.
	Users           []UserRecord            `json:"users,omitempty"`
	PostTypes       map[string][]PostRecord `json:"post_types,omitempty"`
	Taxonomies      map[string][]TermRecord `json:"taxonomies,omitempty"`
	NavigationMenus map[string]any          `json:"navigation_menus,omitempty"`

	// Schema.org shape.
	ItemListElement []ListItem  `json:"itemListElement,omitempty"`
	AllTags         []string    `json:"allTags,omitempty"`
	MediaItems      []MediaItem `json:"mediaItems,omitempty"`
}

// IsLegacy reports whether the document carries the legacy shape.
func (d *IntermediateDocument) IsLegacy() bool {
	return d.Users != nil && d.PostTypes != nil
}

// IsSchemaOrg reports whether the document carries the schema.org shape.
func (d *IntermediateDocument) IsSchemaOrg() bool {
	return d.ItemListElement != nil
}

// UserRecord is a source-CMS user as exported in the legacy shape.
type UserRecord struct {
	ID             int64  `json:"ID"`
	UserLogin      string `json:"user_login"`
	UserEmail      string `json:"user_email"`
	DisplayName    string `json:"display_name"`
	UserRegistered string `json:"user_registered"`
}

// TermRecord is a taxonomy term (category or tag) in the legacy shape.
type TermRecord struct {
	TermID      int64  `json:"term_id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Parent      int64  `json:"parent,omitempty"`
}

// PostRecord is a post or page in the legacy shape. Terms maps a taxonomy
// name to the external term ids attached to the post.
type PostRecord struct {
	ID            int64              `json:"ID"`
	PostTitle     string             `json:"post_title"`
	PostName      string             `json:"post_name"`
	PostContent   string             `json:"post_content"`
	PostExcerpt   string             `json:"post_excerpt"`
	PostDate      string             `json:"post_date"`
	PostStatus    string             `json:"post_status"`
	PostAuthor    int64              `json:"post_author"`
	Terms         map[string][]int64 `json:"terms,omitempty"`
	CustomFields  map[string]string  `json:"custom_fields,omitempty"`
	FeaturedImage string             `json:"featured_image,omitempty"`
}

// ListItem wraps one article in the schema.org shape.
type ListItem struct {
	Item ArticleItem `json:"item"`
}

// ArticleItem is one article in the schema.org shape.
type ArticleItem struct {
	Identifier         int64           `json:"identifier"`
	Headline           string          `json:"headline"`
	ArticleBody        string          `json:"articleBody"`
	Description        string          `json:"description,omitempty"`
	DatePublished      string          `json:"datePublished,omitempty"`
	CreativeWorkStatus string          `json:"creativeWorkStatus,omitempty"`
	ArticleSection     string          `json:"articleSection,omitempty"`
	Author             AuthorRef       `json:"author,omitempty"`
	Keywords           []string        `json:"keywords,omitempty"`
	Image              string          `json:"image,omitempty"`
	AdditionalProperty []PropertyValue `json:"additionalProperty,omitempty"`
}

// AuthorRef is the embedded author reference used by the schema.org shape.
type AuthorRef struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// PropertyValue is a schema.org key/value pair carrying one custom field.
type PropertyValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MediaItem is an attachment collected by an adapter into the media side list.
type MediaItem struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// Connection types accepted by the media resolver.
const (
	ConnectionFTP  = "ftp"
	ConnectionSFTP = "sftp"
	ConnectionZIP  = "zip"
	ConnectionS3   = "s3"
)

// Media storage modes.
const (
	StorageModeRoot   = "root"
	StorageModeCustom = "custom"
)

// ConnectionConfig describes how the media resolver reaches the source
// server's uploads. It is a tagged union over the connection type; only the
// fields relevant to the selected type need to be set.
type ConnectionConfig struct {
	Type     string `json:"connection_type"`
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Passive  bool   `json:"passive,omitempty"`

	// ZIP: path of the uploaded archive on local disk.
	ArchivePath string `json:"archive_path,omitempty"`

	// S3.
	Bucket string `json:"bucket,omitempty"`
	Prefix string `json:"prefix,omitempty"`
	Region string `json:"region,omitempty"`

	MediaStorageMode string `json:"media_storage_mode,omitempty"`
	MediaCustomDir   string `json:"media_custom_dir,omitempty"`
}

// Validate checks required fields for the selected connection type. It runs
// before any network activity.
func (c *ConnectionConfig) Validate() error {
	switch c.Type {
	case ConnectionFTP, ConnectionSFTP:
		if c.Host == "" {
			return fmt.Errorf("%s connection requires a host", c.Type)
		}
		if c.Username == "" {
			return fmt.Errorf("%s connection requires a username", c.Type)
		}
	case ConnectionZIP:
		if c.ArchivePath == "" {
			return fmt.Errorf("zip connection requires an uploaded archive")
		}
	case ConnectionS3:
		if c.Bucket == "" {
			return fmt.Errorf("s3 connection requires a bucket")
		}
	default:
		return fmt.Errorf("unsupported connection type: %q", c.Type)
	}
	if c.MediaStorageMode == StorageModeCustom && c.MediaCustomDir == "" {
		return fmt.Errorf("custom media storage mode requires media_custom_dir")
	}
	return nil
}

// Counts summarizes how many entities a run touched. When a run rolls back,
// the counts still reflect the work performed during the run, not what
// persisted.
type Counts struct {
	Users      int `json:"users"`
	Articles   int `json:"articles"`
	Taxonomies int `json:"taxonomies"`
	Media      int `json:"media"`
	Skipped    int `json:"skipped"`
}

// ResultSummary is returned to the caller once per run. Success is true only
// when Errors is empty; the run commits exactly in that case.
type ResultSummary struct {
	Success  bool     `json:"success"`
	Counts   Counts   `json:"counts"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings,omitempty"`
}

// AddError records an item-level failure. Any recorded error forces a
// rollback at commit time.
func (r *ResultSummary) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// AddWarning records an advisory message. Warnings do not affect Success.
func (r *ResultSummary) AddWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ProgressSnapshot is the single-slot status record read by a polling client
// while an import runs. Last write wins; no history is kept.
type ProgressSnapshot struct {
	Percent   int       `json:"percent"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

package processor

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var nonAlnumPattern = regexp.MustCompile(`[^a-z0-9]+`)

// slugify derives a URL alias from a title or name.
func slugify(s string) string {
	s = strings.ToLower(s)
	s = nonAlnumPattern.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "item"
	}
	return s
}

// aliasAttempts caps the sequential suffix search before falling back to a
// globally unique suffix.
const aliasAttempts = 100

// uniqueAlias returns base unchanged when free, otherwise the first free
// base-N for N in 1..100, otherwise base with a random unique suffix.
func (r *run) uniqueAlias(base string) (string, error) {
	exists, err := r.tx.AliasExists(r.ctx, base)
	if err != nil {
		return "", err
	}
	if !exists {
		return base, nil
	}

	for i := 1; i <= aliasAttempts; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		exists, err := r.tx.AliasExists(r.ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}

	return fmt.Sprintf("%s-%s", base, uuid.NewString()[:8]), nil
}

// randomPassword generates the throwaway password set on created users; the
// forced-reset flag makes them choose a real one on first login.
func randomPassword() string {
	return uuid.NewString()
}

// parseDate accepts the timestamp formats the two document shapes carry.
// Unparseable or empty input falls back to the current time.
func parseDate(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}

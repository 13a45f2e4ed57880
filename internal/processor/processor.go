// Package processor is the migration engine: it projects an intermediate
// document into target-store records, resolving identities through run-scoped
// maps and isolating per-item failures.
package processor

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/contentbridge/cms-migration-service/internal/config"
	"github.com/contentbridge/cms-migration-service/internal/media"
	"github.com/contentbridge/cms-migration-service/internal/models"
	"github.com/contentbridge/cms-migration-service/internal/storage"
)

// Rewriter rewrites embedded media URLs in one content block.
// media.Resolver is the production implementation.
type Rewriter interface {
	RewriteContent(content string) (rewritten string, count int, warnings []string)
	Close() error
}

// ProgressSink receives progress snapshots during a run.
type ProgressSink interface {
	Write(snapshot models.ProgressSnapshot) error
}

// Options carries per-run parameters.
type Options struct {
	SourceURL string
	// Connection enables media migration when set. It must be validated by
	// the caller-facing layer; Process validates again before any network
	// activity.
	Connection *models.ConnectionConfig
	// ImportAsSuperUser overrides every article's author with the operator
	// identity. Intended for trusted single-operator bulk imports.
	ImportAsSuperUser bool
}

// Processor runs migrations against a target store.
type Processor struct {
	store    storage.Store
	progress ProgressSink
	mediaCfg config.MediaConfig

	// newRewriter is swapped out by tests.
	newRewriter func(*models.ConnectionConfig) Rewriter
}

// New creates a processor.
func New(store storage.Store, sink ProgressSink, mediaCfg config.MediaConfig) *Processor {
	return &Processor{
		store:    store,
		progress: sink,
		mediaCfg: mediaCfg,
		newRewriter: func(cfg *models.ConnectionConfig) Rewriter {
			return media.NewResolver(cfg, mediaCfg)
		},
	}
}

// Process runs one migration. The whole run executes inside a single
// target-store transaction: it commits only when zero errors were recorded,
// otherwise everything rolls back — even records that saved cleanly before a
// later item failed. The returned summary's counts therefore reflect the
// work performed during the run, not necessarily what persisted.
//
// An error return means a fatal pre-flight condition (unrecognized document
// shape, invalid connection config, transaction failure); item-level
// failures are reported through the summary instead.
func (p *Processor) Process(ctx context.Context, doc *models.IntermediateDocument, opts Options) (*models.ResultSummary, error) {
	if doc == nil {
		return nil, fmt.Errorf("no document to process")
	}

	legacy := doc.IsLegacy()
	schemaOrg := doc.IsSchemaOrg()
	switch {
	case legacy && schemaOrg:
		return nil, fmt.Errorf("ambiguous document: both legacy and schema.org shapes present")
	case !legacy && !schemaOrg:
		return nil, fmt.Errorf("unrecognized document format")
	}

	if opts.Connection != nil {
		if err := opts.Connection.Validate(); err != nil {
			return nil, fmt.Errorf("invalid connection config: %w", err)
		}
	}

	tx, err := p.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open run transaction: %w", err)
	}

	summary := &models.ResultSummary{Errors: []string{}}

	var rewriter Rewriter
	if opts.Connection != nil {
		rewriter = p.newRewriter(opts.Connection)
		defer rewriter.Close()
	}

	r := &run{
		ctx:         ctx,
		tx:          tx,
		summary:     summary,
		rewriter:    rewriter,
		progress:    p.progress,
		userMap:     make(map[int64]uint),
		categoryMap: make(map[int64]uint),
	}

	func() {
		// The outermost boundary for run-fatal conditions: an unexpected
		// panic becomes a single generic error and forces the rollback
		// below, instead of escaping to the caller.
		defer func() {
			if rec := recover(); rec != nil {
				summary.AddError("unexpected failure during import: %v", rec)
			}
		}()

		if err := r.resolveBuiltins(); err != nil {
			summary.AddError("target store missing built-in records: %v", err)
			return
		}

		if legacy {
			r.processLegacy(doc)
		} else {
			r.processSchemaOrg(doc, opts)
		}
	}()

	if len(summary.Errors) == 0 {
		if err := tx.Commit(); err != nil {
			summary.AddError("failed to commit run: %v", err)
		}
	}
	if len(summary.Errors) == 0 {
		summary.Success = true
		r.report(100, "Import completed")
	} else {
		if err := tx.Rollback(); err != nil {
			log.Printf("rollback error: %v", err)
		}
		r.report(100, "Import failed")
	}

	return summary, nil
}

// run holds the state of one processing invocation: the transaction, the
// identity maps and the built-in fallback ids. Identity maps are run-scoped
// and never persisted.
type run struct {
	ctx      context.Context
	tx       storage.Tx
	summary  *models.ResultSummary
	rewriter Rewriter
	progress ProgressSink

	userMap     map[int64]uint
	categoryMap map[int64]uint

	adminID           uint
	defaultCategoryID uint
}

// resolveBuiltins looks up the seeded fallback identities once per run.
func (r *run) resolveBuiltins() error {
	id, ok, err := r.tx.FindUserByLogin(r.ctx, storage.DefaultAdminLogin)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("built-in user %q not found", storage.DefaultAdminLogin)
	}
	r.adminID = id

	id, ok, err = r.tx.FindCategoryBySlug(r.ctx, storage.DefaultCategorySlug)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("built-in category %q not found", storage.DefaultCategorySlug)
	}
	r.defaultCategoryID = id
	return nil
}

// report publishes a progress snapshot; failures are logged, never fatal.
func (r *run) report(percent int, status string) {
	if r.progress == nil {
		return
	}
	err := r.progress.Write(models.ProgressSnapshot{
		Percent:   percent,
		Status:    status,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		log.Printf("failed to write progress snapshot: %v", err)
	}
}

// rewriteMedia runs one content block through the media resolver, recording
// rewrite counts and advisory warnings on the summary.
func (r *run) rewriteMedia(content, itemTitle string) string {
	if r.rewriter == nil {
		return content
	}
	out, count, warnings := r.rewriter.RewriteContent(content)
	r.summary.Counts.Media += count
	for _, w := range warnings {
		r.summary.AddWarning("%s: %s", itemTitle, w)
	}
	return out
}

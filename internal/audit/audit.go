// Package audit persists converted intermediate documents for debugging.
// Artifacts are write-only: nothing in the import path reads them back.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/contentbridge/cms-migration-service/internal/config"
	"github.com/contentbridge/cms-migration-service/internal/models"
)

// Writer writes one timestamped JSON artifact per conversion. When a
// MongoDB URI is configured the artifact is mirrored into the
// migration_audit collection as well.
type Writer struct {
	dir    string
	client *mongo.Client
	coll   *mongo.Collection
}

// NewWriter prepares the audit directory and, when configured, the MongoDB
// mirror.
func NewWriter(ctx context.Context, cfg config.AuditConfig) (*Writer, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	w := &Writer{dir: cfg.Dir}

	if cfg.MongoDBURI != "" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoDBURI))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		w.client = client
		w.coll = client.Database(cfg.Database).Collection("migration_audit")
	}

	return w, nil
}

// Write persists one artifact as import_<source>_<timestamp>.json and
// returns its path.
func (w *Writer) Write(ctx context.Context, sourceTag string, doc *models.IntermediateDocument) (string, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal audit artifact: %w", err)
	}

	name := fmt.Sprintf("import_%s_%d.json", sourceTag, time.Now().UTC().Unix())
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write audit artifact: %w", err)
	}

	if w.coll != nil {
		_, err := w.coll.InsertOne(ctx, bson.M{
			"source":     sourceTag,
			"created_at": time.Now().UTC(),
			"document":   string(data),
		})
		if err != nil {
			return path, fmt.Errorf("artifact written to %s, but MongoDB mirror failed: %w", path, err)
		}
	}

	return path, nil
}

// Close disconnects the MongoDB mirror, if any.
func (w *Writer) Close(ctx context.Context) error {
	if w.client == nil {
		return nil
	}
	return w.client.Disconnect(ctx)
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/contentbridge/cms-migration-service/internal/adapters"
	"github.com/contentbridge/cms-migration-service/internal/audit"
	"github.com/contentbridge/cms-migration-service/internal/config"
	"github.com/contentbridge/cms-migration-service/internal/media"
	"github.com/contentbridge/cms-migration-service/internal/models"
	"github.com/contentbridge/cms-migration-service/internal/processor"
	"github.com/contentbridge/cms-migration-service/internal/progress"
)

// Server handles HTTP requests
type Server struct {
	config    config.ServerConfig
	mediaCfg  config.MediaConfig
	registry  *adapters.Registry
	processor *processor.Processor
	progress  *progress.FileStore
	audit     *audit.Writer
	server    *http.Server
}

// NewServer creates a new HTTP server
func NewServer(cfg config.ServerConfig, mediaCfg config.MediaConfig, registry *adapters.Registry, proc *processor.Processor, progressStore *progress.FileStore, auditWriter *audit.Writer) *Server {
	s := &Server{
		config:    cfg,
		mediaCfg:  mediaCfg,
		registry:  registry,
		processor: proc,
		progress:  progressStore,
		audit:     auditWriter,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/import", s.handleImport)
	mux.HandleFunc("/progress", s.handleProgress)
	mux.HandleFunc("/connection/test", s.handleTestConnection)

	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// No write timeout: an import request stays open for the whole run
		// and reports progress through the polling endpoint instead.
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleImport accepts a source export upload and runs the migration. The
// request stays open until the run finishes; progress is observable through
// GET /progress while it runs.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadSize)
	if err := r.ParseMultipartForm(s.config.MaxUploadSize); err != nil {
		http.Error(w, fmt.Sprintf("Invalid upload: %v", err), http.StatusBadRequest)
		return
	}

	sourceTag := r.FormValue("source")
	if sourceTag == "" {
		http.Error(w, "Missing source format tag", http.StatusBadRequest)
		return
	}

	uploadPath, err := s.saveUpload(r, "file")
	if err != nil {
		http.Error(w, fmt.Sprintf("Upload failed: %v", err), http.StatusBadRequest)
		return
	}
	defer os.Remove(uploadPath)

	connCfg, cleanup, err := s.connectionFromForm(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if cleanup != nil {
		defer cleanup()
	}

	doc, err := s.registry.Convert(sourceTag, uploadPath)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, adapters.ErrNoAdapter) {
			status = http.StatusUnsupportedMediaType
		}
		http.Error(w, fmt.Sprintf("Conversion failed: %v", err), status)
		return
	}

	if path, err := s.audit.Write(r.Context(), sourceTag, doc); err != nil {
		log.Printf("audit artifact error: %v", err)
	} else {
		log.Printf("audit artifact written to %s", path)
	}

	summary, err := s.processor.Process(r.Context(), doc, processor.Options{
		SourceURL:         r.FormValue("source_url"),
		Connection:        connCfg,
		ImportAsSuperUser: parseBool(r.FormValue("import_as_super_user")),
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("Import rejected: %v", err), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// saveUpload copies one uploaded form file to a temp path.
func (s *Server) saveUpload(r *http.Request, field string) (string, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return "", fmt.Errorf("missing %s upload: %w", field, err)
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "import-*")
	if err != nil {
		return "", fmt.Errorf("failed to stage upload: %w", err)
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, file); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to stage upload: %w", err)
	}
	return tmp.Name(), nil
}

// connectionFromForm builds and validates the media connection config when
// the form requests media migration. Validation happens here, before any
// adapter or network activity.
func (s *Server) connectionFromForm(r *http.Request) (*models.ConnectionConfig, func(), error) {
	connType := r.FormValue("connection_type")
	if connType == "" {
		return nil, nil, nil
	}

	port, _ := strconv.Atoi(r.FormValue("port"))
	cfg := &models.ConnectionConfig{
		Type:             connType,
		Host:             r.FormValue("host"),
		Port:             port,
		Username:         r.FormValue("username"),
		Password:         r.FormValue("password"),
		Passive:          parseBool(r.FormValue("passive")),
		Bucket:           r.FormValue("bucket"),
		Prefix:           r.FormValue("prefix"),
		Region:           r.FormValue("region"),
		MediaStorageMode: r.FormValue("media_storage_mode"),
		MediaCustomDir:   r.FormValue("media_custom_dir"),
	}

	var cleanup func()
	if connType == models.ConnectionZIP {
		archivePath, err := s.saveUpload(r, "archive")
		if err != nil {
			return nil, nil, fmt.Errorf("zip connection requires an archive upload: %v", err)
		}
		cfg.ArchivePath = archivePath
		cleanup = func() { os.Remove(archivePath) }
	}

	if err := cfg.Validate(); err != nil {
		if cleanup != nil {
			cleanup()
		}
		return nil, nil, fmt.Errorf("invalid connection config: %v", err)
	}
	return cfg, cleanup, nil
}

// handleProgress echoes the last progress snapshot for polling clients.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot, err := s.progress.Read()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to read progress: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}

// handleTestConnection validates media connection credentials without
// starting an import.
func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var cfg models.ConnectionConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	success, message := media.TestConnection(&cfg, s.mediaCfg.Timeout)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": success,
		"message": message,
	})
}

func parseBool(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}

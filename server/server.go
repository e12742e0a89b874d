// Package server exposes the overlay engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/wudi/pdfsnap/fetch"
	"github.com/wudi/pdfsnap/ledger"
	"github.com/wudi/pdfsnap/observability"
	"github.com/wudi/pdfsnap/overlay"
	"github.com/wudi/pdfsnap/pool"
	"github.com/wudi/pdfsnap/store"
)

type Generator interface {
	Generate(ctx context.Context, req overlay.Request) (*overlay.Result, error)
}

type TemplateSource interface {
	Template(ctx context.Context, url string) ([]byte, error)
}

type Config struct {
	Engine    Generator
	Templates TemplateSource
	// Workers bounds concurrent generations; requests beyond it queue.
	Workers int
	// Store keeps output for requests with storeOutput; nil disables it.
	Store store.Store
	// Ledger records verification codes; nil disables /verify.
	Ledger ledger.Ledger
	// JWTSecret enables HS256 bearer authentication on the API routes.
	JWTSecret    []byte
	MaxBodyBytes int64
	Logger       observability.Logger
}

type Server struct {
	cfg  Config
	pool *pool.Pool[*overlay.Result]
	mux  *http.ServeMux
}

func New(cfg Config) (*Server, error) {
	if cfg.Engine == nil || cfg.Templates == nil {
		return nil, errors.New("server: engine and template source are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger{}
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 4 << 20
	}
	s := &Server{cfg: cfg, pool: pool.New[*overlay.Result](cfg.Workers), mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthcheck", s.handleHealth)
	s.mux.Handle("POST /api/v0/pdf/generate-pdf", s.authenticate(http.HandlerFunc(s.handleGenerate)))
	s.mux.Handle("GET /api/v0/pdf/files/{key}", s.authenticate(http.HandlerFunc(s.handleFile)))
	s.mux.Handle("GET /api/v0/pdf/verify/{code}", http.HandlerFunc(s.handleVerify))
}

// Handler serves HTTP/1.1 and cleartext HTTP/2.
func (s *Server) Handler() http.Handler {
	return h2c.NewHandler(s.logRequests(s.mux), &http2.Server{})
}

// Close waits for running generations to finish.
func (s *Server) Close() { s.pool.Close() }

type generateRequest struct {
	TemplateURL         string            `json:"templateUrl"`
	Variables           overlay.Variables `json:"variables"`
	IncludeHashInHeader bool              `json:"includeHashInHeader"`
	StoreOutput         bool              `json:"storeOutput"`
}

type generateResponse struct {
	Key              string `json:"key"`
	TemplateName     string `json:"templateName"`
	TemplateHash     string `json:"templateHash"`
	FormSchemaHash   string `json:"formSchemaHash"`
	VerificationCode string `json:"verificationCode"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("OK"))
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: %w", overlay.ErrInvalidVariable, err))
		return
	}
	if req.TemplateURL == "" {
		s.writeError(w, fmt.Errorf("%w: templateUrl is required", overlay.ErrInvalidVariable))
		return
	}

	ctx := r.Context()
	res, err := s.pool.Submit(ctx, func(ctx context.Context) (*overlay.Result, error) {
		tmpl, err := s.cfg.Templates.Template(ctx, req.TemplateURL)
		if err != nil {
			return nil, err
		}
		return s.cfg.Engine.Generate(ctx, overlay.Request{
			Template:  tmpl,
			Variables: req.Variables,
			Footer:    req.IncludeHashInHeader,
		})
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	name := fetch.Name(req.TemplateURL, "document.pdf")
	entry := ledger.Entry{
		Code:         res.VerificationCode,
		TemplateURL:  req.TemplateURL,
		TemplateHash: res.TemplateHash,
		SchemaHash:   res.SchemaHash,
		GeneratedAt:  time.Unix(res.Timestamp, 0).UTC(),
		Pages:        res.Pages,
	}
	if req.StoreOutput {
		if s.cfg.Store == nil {
			s.writeError(w, errStorageDisabled)
			return
		}
		if entry.FileKey, err = s.cfg.Store.Put(ctx, name, res.PDF); err != nil {
			s.writeError(w, fmt.Errorf("store output: %w", err))
			return
		}
	}
	if s.cfg.Ledger != nil {
		if err := s.cfg.Ledger.Record(ctx, entry); err != nil {
			s.cfg.Logger.Warn("recording verification code", observability.String("code", entry.Code), observability.Error("error", err))
		}
	}

	h := w.Header()
	h.Set("X-Template-Hash", res.TemplateHash)
	h.Set("X-Form-Schema-Hash", res.SchemaHash)
	h.Set("X-Generated-Timestamp", strconv.FormatInt(res.Timestamp, 10))
	if req.StoreOutput {
		writeJSON(w, http.StatusOK, generateResponse{
			Key:              entry.FileKey,
			TemplateName:     name,
			TemplateHash:     res.TemplateHash,
			FormSchemaHash:   res.SchemaHash,
			VerificationCode: res.VerificationCode,
		})
		return
	}
	s.writePDF(w, name, res.PDF)
}

var errStorageDisabled = errors.New("output storage is disabled")

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		s.writeError(w, errStorageDisabled)
		return
	}
	key := r.PathValue("key")
	data, err := s.cfg.Store.Get(r.Context(), key)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writePDF(w, key, data)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Ledger == nil {
		s.writeError(w, ledger.ErrNotFound)
		return
	}
	entry, err := s.cfg.Ledger.Lookup(r.Context(), r.PathValue("code"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) writePDF(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.cfg.Logger.Warn("writing PDF to response", observability.Error("error", err))
	}
}

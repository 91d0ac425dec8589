package httpapi

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"

	"github.com/goliatone/go-formstate/pkg/orchestrator"
	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/uischema"
)

const defaultMaxBodyBytes = 4 << 20

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the structured logger used for request logs.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSourceAccess lets request bodies name a schema by source (file path,
// URL) resolved through the orchestrator's loader. Disabled by default, so
// only inline schemas are accepted.
func WithSourceAccess(enabled bool) Option {
	return func(s *Server) {
		s.allowSources = enabled
	}
}

// WithMaxBodyBytes caps request body size.
func WithMaxBodyBytes(limit int64) Option {
	return func(s *Server) {
		if limit > 0 {
			s.maxBodyBytes = limit
		}
	}
}

// Server serves the resolution endpoints.
type Server struct {
	orch         *orchestrator.Orchestrator
	logger       *slog.Logger
	allowSources bool
	maxBodyBytes int64
}

// New constructs a Server around orch.
func New(orch *orchestrator.Orchestrator, options ...Option) *Server {
	s := &Server{orch: orch, maxBodyBytes: defaultMaxBodyBytes}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Handler returns the routed handler:
//
//	GET  /healthz
//	POST /v1/resolve   full result: schema, formData, idSchema, fields
//	POST /v1/defaults  formData with defaults applied
//	POST /v1/ids       idSchema only
//	POST /v1/forms     forms the document offers
//	POST /v1/check     metaschema check of the form schema
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/resolve", s.handle(func(ctx context.Context, req orchestrator.Request) (any, error) {
			return s.resolve(ctx, req)
		}))
		r.Post("/defaults", s.handle(func(ctx context.Context, req orchestrator.Request) (any, error) {
			result, err := s.resolve(ctx, req)
			if err != nil {
				return nil, err
			}
			return map[string]any{"formData": result.State.FormData, "outcome": result.State.Outcome}, nil
		}))
		r.Post("/ids", s.handle(func(ctx context.Context, req orchestrator.Request) (any, error) {
			result, err := s.resolve(ctx, req)
			if err != nil {
				return nil, err
			}
			return result.State.IDSchema, nil
		}))
		r.Post("/forms", s.handle(func(ctx context.Context, req orchestrator.Request) (any, error) {
			refs, err := s.orch.Forms(ctx, req)
			if err != nil {
				return nil, unprocessable(err)
			}
			return map[string]any{"forms": refs}, nil
		}))
		r.Post("/check", s.handle(func(ctx context.Context, req orchestrator.Request) (any, error) {
			result, err := s.orch.Check(ctx, req)
			if err != nil {
				return nil, unprocessable(err)
			}
			return result, nil
		}))
	})
	return r
}

func (s *Server) resolve(ctx context.Context, req orchestrator.Request) (orchestrator.Result, error) {
	result, err := s.orch.Resolve(ctx, req)
	if err != nil {
		return orchestrator.Result{}, unprocessable(err)
	}
	return result, nil
}

// requestBody is the JSON envelope every POST endpoint accepts.
type requestBody struct {
	Schema      json.RawMessage   `json:"schema,omitempty"`
	Source      string            `json:"source,omitempty"`
	Format      string            `json:"format,omitempty"`
	FormID      string            `json:"formId,omitempty"`
	ContentType string            `json:"contentType,omitempty"`
	UISchema    uischema.UISchema `json:"uiSchema,omitempty"`
	FormData    any               `json:"formData,omitempty"`
}

type endpoint func(ctx context.Context, req orchestrator.Request) (any, error)

func (s *Server) handle(fn endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.orch == nil {
			writeError(w, r, s.logger, errors.New("httpapi: orchestrator is nil"))
			return
		}
		var body requestBody
		if err := decodeJSON(w, r, s.maxBodyBytes, &body); err != nil {
			writeError(w, r, s.logger, err)
			return
		}
		req, err := s.request(body)
		if err != nil {
			writeError(w, r, s.logger, err)
			return
		}
		out, err := fn(r.Context(), req)
		if err != nil {
			writeError(w, r, s.logger, err)
			return
		}
		writeJSON(w, s.logger, http.StatusOK, out)
	}
}

func (s *Server) request(body requestBody) (orchestrator.Request, error) {
	req := orchestrator.Request{
		Format:      strings.TrimSpace(body.Format),
		FormID:      strings.TrimSpace(body.FormID),
		ContentType: strings.TrimSpace(body.ContentType),
		UISchema:    body.UISchema,
		FormData:    body.FormData,
	}
	source := strings.TrimSpace(body.Source)
	switch {
	case len(body.Schema) > 0 && string(body.Schema) != "null":
		raw := bytes.TrimSpace(body.Schema)
		if raw[0] == '"' {
			// A string member carries a YAML or JSON document verbatim.
			var text string
			if err := json.Unmarshal(raw, &text); err != nil {
				return req, badRequest(CodeInvalidBody, "schema: %v", err)
			}
			raw = []byte(text)
		}
		doc, err := schema.NewDocument(schema.SourceInline("request"), raw)
		if err != nil {
			return req, badRequest(CodeInvalidBody, "schema: %v", err)
		}
		req.Document = &doc
	case source != "":
		if !s.allowSources {
			return req, badRequest(CodeSourceDisabled, "schema sources are disabled, send the schema inline")
		}
		if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
			if _, err := url.ParseRequestURI(source); err != nil {
				return req, badRequest(CodeInvalidBody, "source: %v", err)
			}
		}
		req.Source = schema.ParseSource(source)
	default:
		return req, badRequest(CodeMissingSchema, "schema or source is required")
	}
	return req, nil
}

package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/couchcryptid/crudgen-api/internal/model"
	"github.com/couchcryptid/crudgen-api/internal/observability"
	"github.com/couchcryptid/crudgen-api/internal/schema"
)

// ─── Executable ─────────────────────────────────────────────

// Executable pairs an assembled schema with the runtime serving it.
type Executable struct {
	Schema  graphql.Schema
	Build   *schema.Build
	Runtime *Runtime
}

// NewExecutable assembles build into an executable schema backed by data.
func NewExecutable(build *schema.Build, data model.DataAccess, opts Options) (*Executable, error) {
	rt := NewRuntime(build, data, opts)
	s, err := build.Assemble(rt)
	if err != nil {
		return nil, fmt.Errorf("assemble schema: %w", err)
	}
	return &Executable{Schema: s, Build: build, Runtime: rt}, nil
}

// Execute runs one GraphQL request.
func (e *Executable) Execute(ctx context.Context, query, operationName string, variables map[string]any) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:         e.Schema,
		RequestString:  query,
		VariableValues: variables,
		OperationName:  operationName,
		Context:        ctx,
	})
}

// ─── HTTP handler ───────────────────────────────────────────

// HandlerOptions configures query protection.
type HandlerOptions struct {
	MaxDepth       int
	MaxComplexity  int
	MaxNestedItems int
	Logger         *slog.Logger
	Metrics        *observability.Metrics
}

// Handler serves GraphQL over HTTP against the current executable. The executable is
// swapped atomically on schema reload; in-flight requests finish on the one they
// started with.
type Handler struct {
	current atomic.Pointer[Executable]
	depth   DepthLimit
	opts    HandlerOptions
	logger  *slog.Logger
}

// NewHandler creates a Handler serving exe.
func NewHandler(exe *Executable, opts HandlerOptions) *Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxNestedItems <= 0 {
		opts.MaxNestedItems = DefaultMaxNestedItems
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxQueryDepth
	}
	if opts.MaxComplexity <= 0 {
		opts.MaxComplexity = DefaultMaxComplexity
	}
	h := &Handler{depth: DepthLimit{MaxDepth: opts.MaxDepth}, opts: opts, logger: opts.Logger}
	h.Swap(exe)
	return h
}

// Current returns the executable serving new requests.
func (h *Handler) Current() *Executable { return h.current.Load() }

// Swap installs exe and returns the previous executable.
func (h *Handler) Swap(exe *Executable) *Executable {
	prev := h.current.Swap(exe)
	if m := h.opts.Metrics; m != nil && exe != nil {
		b := exe.Build
		m.SchemaEntities.Set(float64(len(b.Entities)))
		m.SchemaTypes.Set(float64(b.Registry.Len()))
		m.SchemaCutEdges.Set(float64(b.Cuts.Len()))
		m.SchemaProblems.Set(float64(len(b.Problems)))
	}
	return prev
}

type request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(w, r)
	if err != nil {
		h.reject(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	exe := h.Current()

	// Syntax errors are reported by execution in the usual GraphQL shape.
	if doc, err := parser.ParseQuery(&ast.Source{Input: req.Query}); err == nil {
		if err := h.depth.Check(doc); err != nil {
			h.reject(w, http.StatusUnprocessableEntity, "depth", err)
			return
		}
		limit := ComplexityLimit{
			MaxComplexity:   h.opts.MaxComplexity,
			DefaultPageSize: exe.Build.DefaultPageSize(),
			MaxNestedItems:  h.opts.MaxNestedItems,
		}
		if err := limit.Check(&exe.Schema, doc, req.OperationName, req.Variables); err != nil {
			h.reject(w, http.StatusUnprocessableEntity, "complexity", err)
			return
		}
	}

	start := time.Now()
	result := exe.Execute(r.Context(), req.Query, req.OperationName, req.Variables)
	if result.HasErrors() {
		h.logger.Debug("graphql request returned errors",
			"operation", req.OperationName,
			"errors", len(result.Errors),
			"duration", time.Since(start),
		)
	}
	sharedobs.WriteJSON(w, http.StatusOK, result)
}

// Create implements kafka.RecordWriter.
func (h *Handler) Create(ctx context.Context, entity string, input map[string]any) (model.Record, error) {
	return h.Current().Runtime.Create(ctx, entity, input)
}

// Update implements kafka.RecordWriter.
func (h *Handler) Update(ctx context.Context, entity string, input map[string]any) (model.Record, error) {
	return h.Current().Runtime.Update(ctx, entity, input)
}

// Delete implements kafka.RecordWriter.
func (h *Handler) Delete(ctx context.Context, entity, id string) (bool, error) {
	return h.Current().Runtime.Delete(ctx, entity, id)
}

func (h *Handler) reject(w http.ResponseWriter, status int, reason string, err error) {
	if m := h.opts.Metrics; m != nil {
		m.RequestsRejected.WithLabelValues(reason).Inc()
	}
	h.logger.Info("graphql request rejected", "reason", reason, "error", err)
	sharedobs.WriteJSON(w, status, &graphql.Result{Errors: []gqlerrors.FormattedError{gqlerrors.NewFormattedError(err.Error())}})
}

const maxBodyBytes = 1 << 20

func decodeRequest(w http.ResponseWriter, r *http.Request) (request, error) {
	var req request
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if v := q.Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &req.Variables); err != nil {
				return req, fmt.Errorf("decode variables: %w", err)
			}
		}
	case http.MethodPost:
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			return req, fmt.Errorf("decode request body: %w", err)
		}
	default:
		return req, fmt.Errorf("method %s not allowed", r.Method)
	}
	if req.Query == "" {
		return req, errors.New("query is required")
	}
	return req, nil
}

package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/ontograph/internal/logger"
	"github.com/ppiankov/ontograph/internal/query"
)

// Querier is the query surface the HTTP adapter serves
type Querier interface {
	Terms(ctx context.Context, req query.TermsRequest) (query.TermsResult, error)
	BFS(ctx context.Context, req query.BFSRequest) (query.BFSResult, error)
	Impact(ctx context.Context, req query.ImpactRequest) (query.ImpactResult, error)
	Path(ctx context.Context, req query.PathRequest) (query.PathResult, error)
	Subgraph(ctx context.Context, req query.SubgraphRequest) (query.SubgraphResult, error)
	Ego(ctx context.Context, req query.EgoRequest) (query.SubgraphResult, error)
	ByPredicate(ctx context.Context, req query.PredicateRequest) (query.SubgraphResult, error)
}

// Handlers binds query requests to the Querier
type Handlers struct {
	q   Querier
	log *logger.Logger
}

// NewHandlers creates handlers over q
func NewHandlers(q Querier, log *logger.Logger) *Handlers {
	if log == nil {
		log = logger.Nop()
	}
	return &Handlers{q: q, log: log.With("component", "http")}
}

// Health reports liveness
func (h *Handlers) Health(c *gin.Context) {
	respondOK(c, gin.H{"status": "ok"})
}

// Terms handles GET /api/terms
func (h *Handlers) Terms(c *gin.Context) {
	var req query.TermsRequest
	if !h.bind(c, &req) {
		return
	}
	h.reply(c, "terms", func(ctx context.Context) (any, error) { return h.q.Terms(ctx, req) })
}

// BFS handles GET /api/bfs
func (h *Handlers) BFS(c *gin.Context) {
	var req query.BFSRequest
	if !h.bind(c, &req) {
		return
	}
	h.reply(c, "bfs", func(ctx context.Context) (any, error) { return h.q.BFS(ctx, req) })
}

// Impact handles GET /api/impact
func (h *Handlers) Impact(c *gin.Context) {
	var req query.ImpactRequest
	if !h.bind(c, &req) {
		return
	}
	h.reply(c, "impact", func(ctx context.Context) (any, error) { return h.q.Impact(ctx, req) })
}

// Path handles GET /api/path
func (h *Handlers) Path(c *gin.Context) {
	var req query.PathRequest
	if !h.bind(c, &req) {
		return
	}
	h.reply(c, "path", func(ctx context.Context) (any, error) { return h.q.Path(ctx, req) })
}

// Subgraph handles GET /api/subgraph
func (h *Handlers) Subgraph(c *gin.Context) {
	var req query.SubgraphRequest
	if !h.bind(c, &req) {
		return
	}
	h.reply(c, "subgraph", func(ctx context.Context) (any, error) { return h.q.Subgraph(ctx, req) })
}

// Ego handles GET /api/ego
func (h *Handlers) Ego(c *gin.Context) {
	var req query.EgoRequest
	if !h.bind(c, &req) {
		return
	}
	h.reply(c, "ego", func(ctx context.Context) (any, error) { return h.q.Ego(ctx, req) })
}

// ByPredicate handles GET /api/predicates/:predicate
func (h *Handlers) ByPredicate(c *gin.Context) {
	var req query.PredicateRequest
	if err := c.ShouldBindUri(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if !h.bind(c, &req) {
		return
	}
	h.reply(c, "predicate", func(ctx context.Context) (any, error) { return h.q.ByPredicate(ctx, req) })
}

func (h *Handlers) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return false
	}
	return true
}

// reply runs fn and maps its error to 500; not-found results are 200 with found=false
func (h *Handlers) reply(c *gin.Context, op string, fn func(context.Context) (any, error)) {
	out, err := fn(c.Request.Context())
	if err != nil {
		h.log.Error("request failed", "op", op, "path", c.Request.URL.Path, "error", err)
		respondError(c, http.StatusInternalServerError, "query_failed", err)
		return
	}
	respondOK(c, out)
}

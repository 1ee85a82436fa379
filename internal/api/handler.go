// Package api provides the HTTP handlers for the lakefence REST API.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"lakefence/internal/contextstore"
	"lakefence/internal/domain"
	"lakefence/internal/engine"
	"lakefence/internal/middleware"
	"lakefence/internal/service"
)

// Handler serves the /v1 API.
type Handler struct {
	queries  *service.QueryService
	analyst  *service.AnalystService // nil when no generator is configured
	authz    *service.AuthorizationService
	engine   *engine.SecureEngine
	contexts contextstore.Lister // nil for backends without listing
}

func NewHandler(queries *service.QueryService, analyst *service.AnalystService, authz *service.AuthorizationService, eng *engine.SecureEngine, contexts contextstore.Lister) *Handler {
	return &Handler{
		queries:  queries,
		analyst:  analyst,
		authz:    authz,
		engine:   eng,
		contexts: contexts,
	}
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := httpStatusFromDomainError(err)
	writeJSON(w, code, errorResponse{Code: code, Message: err.Error()})
}

type queryRequest struct {
	TenantID string `json:"tenant_id"`
	SQL      string `json:"sql"`
}

// ExecuteQuery handles POST /v1/query.
func (h *Handler) ExecuteQuery(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrAccessDenied("no authenticated principal"))
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrValidation("invalid request body: %v", err))
		return
	}
	if req.TenantID == "" {
		writeError(w, domain.ErrValidation("tenant_id is required"))
		return
	}
	if req.SQL == "" {
		writeError(w, domain.ErrValidation("sql is required"))
		return
	}

	result, err := h.queries.Execute(r.Context(), principal, domain.TenantID(req.TenantID), req.SQL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type askRequest struct {
	TenantID string `json:"tenant_id"`
	Prompt   string `json:"prompt"`
}

// Ask handles POST /v1/ask.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	if h.analyst == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{
			Code:    http.StatusNotImplemented,
			Message: "no query generator configured",
		})
		return
	}

	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrAccessDenied("no authenticated principal"))
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrValidation("invalid request body: %v", err))
		return
	}
	if req.TenantID == "" {
		writeError(w, domain.ErrValidation("tenant_id is required"))
		return
	}

	answer, err := h.analyst.Ask(r.Context(), principal, domain.TenantID(req.TenantID), req.Prompt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

// Schema handles GET /v1/schema.
func (h *Handler) Schema(w http.ResponseWriter, r *http.Request) {
	schema, err := h.engine.ViewSchema(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

type contextEntry struct {
	SessionKey string `json:"session_key"`
	TenantID   string `json:"tenant_id"`
	CreatedAt  string `json:"created_at"`
}

// ListContexts handles GET /v1/contexts. Outside an in-flight query the list
// should be empty; anything here is either live or leaked.
func (h *Handler) ListContexts(w http.ResponseWriter, r *http.Request) {
	if h.contexts == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{
			Code:    http.StatusNotImplemented,
			Message: "context backend does not support listing",
		})
		return
	}

	records, err := h.contexts.Active(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]contextEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, contextEntry{
			SessionKey: string(rec.SessionKey),
			TenantID:   string(rec.TenantID),
			CreatedAt:  rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"contexts": out, "count": len(out)})
}

// ListGrants handles GET /v1/grants: the caller's own tenant grants.
func (h *Handler) ListGrants(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrAccessDenied("no authenticated principal"))
		return
	}

	grants, err := h.authz.Grants(r.Context(), principal.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	tenants := make([]string, 0, len(grants))
	for _, g := range grants {
		tenants = append(tenants, string(g.TenantID))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tenants": tenants})
}

// ListAudit handles GET /v1/audit.
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, domain.ErrValidation("limit must be an integer between 1 and 1000"))
			return
		}
		limit = n
	}

	entries, err := h.queries.Audit(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	type auditEntry struct {
		Principal  string  `json:"principal"`
		TenantID   string  `json:"tenant_id"`
		SQL        string  `json:"sql"`
		Status     string  `json:"status"`
		Error      *string `json:"error,omitempty"`
		DurationMs *int64  `json:"duration_ms,omitempty"`
		CreatedAt  string  `json:"created_at"`
	}
	out := make([]auditEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditEntry{
			Principal:  e.Principal,
			TenantID:   string(e.TenantID),
			SQL:        e.SQLText,
			Status:     e.Status,
			Error:      e.ErrorMessage,
			DurationMs: e.DurationMs,
			CreatedAt:  e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": out})
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

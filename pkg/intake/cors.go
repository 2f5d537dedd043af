package intake

import "net/http"

const (
	corsMethods = "GET, POST, OPTIONS"
	corsHeaders = "Content-Type, Authorization"
	corsMaxAge  = "86400"
)

// applyCORSHeaders attaches the allow headers for an approved origin to an
// actual (non-preflight) response.
func applyCORSHeaders(w http.ResponseWriter, origin string) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Methods", corsMethods)
	h.Set("Access-Control-Allow-Headers", corsHeaders)
	h.Set("Vary", "Origin")
}

// handlePreflight answers an OPTIONS request: 204 with allow headers for an
// approved origin, 403 with no body otherwise.
func (h *Handler) handlePreflight(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if !h.checker.Allowed(r.Context(), origin) {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	applyCORSHeaders(w, origin)
	w.Header().Set("Access-Control-Max-Age", corsMaxAge)
	w.WriteHeader(http.StatusNoContent)
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/creatorflow/creatorflow/httpx"
	"github.com/creatorflow/creatorflow/internal/policy"
	"github.com/go-chi/chi/v5"
)

// pathID parses the {id} route parameter.
func pathID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// pagination reads page/limit query parameters with defaults and a cap.
func pagination(r *http.Request) (limit, offset int) {
	limit = 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	return limit, offset
}

// ownedOr404 re-checks a loaded record against the caller. The queries are
// already scoped by user_id; foreign records answer 404, never 403, so ids
// cannot be probed across tenants.
func ownedOr404(w http.ResponseWriter, userID uint, resource any) bool {
	if !policy.Owns(userID, resource) {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return false
	}
	return true
}

// queryInt reads a positive integer query parameter, 0 when absent or bad.
func queryInt(r *http.Request, name string) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

package web

import "net/http"

// RequireAuth gates a route on a live authenticated session; anonymous
// requests are redirected to the auth page.
func (h *Handler) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.IsAuthenticated(r) {
			http.Redirect(w, r, "/auth", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

// RedirectIfAuth sends already-authenticated users away from the auth
// forms, to the landing area.
func (h *Handler) RedirectIfAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.IsAuthenticated(r) {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

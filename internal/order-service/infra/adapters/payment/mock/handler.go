package mock

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler serves the hosted checkout pages the mock hands out. Visiting
// /checkout/{id} pays the session and redirects to its success URL;
// /checkout/{id}/cancel redirects to the cancel URL unpaid.
func (p *Provider) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/checkout/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		req, ok := p.Session(id)
		if !ok {
			http.NotFound(w, r)
			return
		}
		if err := p.MarkPaid(id); err != nil {
			slog.WarnContext(r.Context(), "mock payment: checkout failed", "session_id", id, "error", err)
			http.Redirect(w, r, req.CancelURL, http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, req.SuccessURL, http.StatusSeeOther)
	})
	r.Get("/checkout/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
		req, ok := p.Session(chi.URLParam(r, "id"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, req.CancelURL, http.StatusSeeOther)
	})
	return r
}

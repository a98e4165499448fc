package web

import (
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hpungsan/advdiff/internal/errors"
	"github.com/hpungsan/advdiff/internal/ops"
	"github.com/hpungsan/advdiff/internal/report"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	env      ops.Env
	renderer *Renderer
}

// HandleReport handles GET /report: compare a variant against the original
// split and render the diff report.
func (h *Handlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	variant, err := ops.ValidateVariant(q.Get("dataset"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	samples, err := parseIntParam(r, "samples", ops.DefaultMaxSamples)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	snippetLen, err := parseIntParam(r, "snippet_len", 0)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	result, err := ops.Compare(r.Context(), h.env, ops.CompareInput{
		Variant:       variant,
		MaxSamples:    samples,
		SnippetLen:    snippetLen,
		Refresh:       parseBoolParam(r, "refresh"),
		RestrictPaths: true,
	}, ops.Discard)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	body, err := report.HTMLBody(result)
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInternal(err))
		return
	}

	h.renderer.renderPage(w, r, "report", ReportPageData{
		PageData: PageData{
			Title:   "Adversarial SQuAD diff: " + result.Dataset,
			Version: h.renderer.version,
			Nav:     "report",
		},
		Variants:     ops.Variants,
		Dataset:      result.Dataset,
		Samples:      samples,
		Result:       result,
		RenderedHTML: body,
	})
}

// HandleCache handles GET /cache: list cached collections.
func (h *Handlers) HandleCache(w http.ResponseWriter, r *http.Request) {
	result, err := ops.CacheList(r.Context(), h.env)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "cache", CachePageData{
		PageData: PageData{
			Title:   "Cache",
			Version: h.renderer.version,
			Nav:     "cache",
		},
		Items:   result.Items,
		Message: r.URL.Query().Get("purged"),
	})
}

// HandleCachePurge handles POST /cache/purge: delete cached collections.
func (h *Handlers) HandleCachePurge(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	if r.FormValue("confirm") != "true" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("confirm parameter must be \"true\""))
		return
	}

	var input ops.CachePurgeInput
	if dataset := r.FormValue("dataset"); dataset != "" {
		input.Dataset = &dataset
	}
	if days := r.FormValue("older_than_days"); days != "" {
		d, err := strconv.Atoi(days)
		if err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("older_than_days must be an integer"))
			return
		}
		input.OlderThanDays = &d
	}

	result, err := ops.CachePurge(r.Context(), h.env, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	// HTMX request: return HTML fragment
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<div class="purge-result">` + template.HTMLEscapeString(result.Message) + `</div>`))
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	// Default: redirect back to the listing with the outcome
	http.Redirect(w, r, "/cache?purged="+url.QueryEscape(result.Message), http.StatusSeeOther)
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// parseIntParam parses a non-negative integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, errors.NewInvalidRequest(name + " must be a non-negative integer")
	}
	return v, nil
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}

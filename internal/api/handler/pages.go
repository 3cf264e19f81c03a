package handler

import (
	"net/http"
	"strings"
)

type pageData struct {
	AllowedExtensions string
	MaxUploadMB       int64
}

func (h *Handler) page() pageData {
	return pageData{
		AllowedExtensions: strings.ToUpper(strings.Join(h.cfg.AllowedExtensions, ", ")),
		MaxUploadMB:       h.cfg.MaxContentLength >> 20,
	}
}

func (h *Handler) render(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, name, h.page()); err != nil {
		h.logger.Error().Err(err).Str("template", name).Msg("failed to render page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// Index serves the single box form.
// @Summary Single box form
// @Tags pages
// @Produce html
// @Success 200 {string} string "HTML page"
// @Router / [get]
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, "index.html")
}

// Batch serves the CSV upload form.
// @Summary Batch upload form
// @Tags pages
// @Produce html
// @Success 200 {string} string "HTML page"
// @Router /batch [get]
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	h.render(w, "batch.html")
}

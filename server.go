package main

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"bsrating/beatmap"
	"bsrating/model"
)

const maxUploadBytes = 64 << 20

type rateResponse struct {
	Song    string   `json:"song"`
	Ratings []Rating `json:"ratings"`
	Warning string   `json:"warning,omitempty"`
}

type ratingServer struct {
	model *model.Model
}

// Router serves the rating model over HTTP.
func Router(m *model.Model) http.Handler {
	s := &ratingServer{model: m}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "variant": s.model.Config.Variant.String()})
	})
	r.Post("/rate", s.rate)
	return r
}

// rate accepts a zipped song folder and rates its Standard difficulties.
func (s *ratingServer) rate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	maps, err := beatmap.DecodeFS(zr)
	var warning string
	if err != nil {
		if len(maps) == 0 {
			writeError(w, decodeStatus(err), err)
			return
		}
		warning = err.Error()
	}

	ratings, err := rateBeatmaps(r.Context(), s.model, maps)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	resp := rateResponse{Ratings: ratings, Warning: warning}
	for _, b := range maps {
		resp.Song = b.Song.SongName
		break
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeStatus(err error) int {
	var notFound *beatmap.MapNotFoundError
	var parse *beatmap.ParseError
	var version *beatmap.UnsupportedVersionError
	var syntax *json.SyntaxError
	var typ *json.UnmarshalTypeError
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &parse), errors.As(err, &version), errors.As(err, &syntax), errors.As(err, &typ):
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadRequest
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

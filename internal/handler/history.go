package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mlorentedev/promptdeck/internal/metrics"
	"github.com/mlorentedev/promptdeck/internal/store"
)

var errInvalidLimit = errors.New("limit must be a positive integer")

type historyPage struct {
	Items []store.Record
}

// parseLimit reads ?limit=N, falling back to def when absent.
func parseLimit(r *http.Request, def int) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, errInvalidLimit
	}
	return n, nil
}

// History renders up to limit records. Order is whatever the store returns
// and is not guaranteed to be chronological.
func History(records store.Store, defaultLimit int, l *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := parseLimit(r, defaultLimit)
		if err != nil {
			renderError(w, http.StatusBadRequest, err.Error())
			return
		}
		items, err := records.Scan(r.Context(), limit)
		if err != nil {
			metrics.StoreErrors.WithLabelValues("scan").Inc()
			l.Warn("store scan failed", zap.Int("limit", limit), zap.Error(err))
			renderError(w, http.StatusBadGateway, "loading history failed")
			return
		}
		render(w, http.StatusOK, "history.html", historyPage{Items: items})
	}
}

// Records is the JSON counterpart of History.
func Records(records store.Store, defaultLimit int, l *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := parseLimit(r, defaultLimit)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		items, err := records.Scan(r.Context(), limit)
		if err != nil {
			metrics.StoreErrors.WithLabelValues("scan").Inc()
			l.Warn("store scan failed", zap.Int("limit", limit), zap.Error(err))
			writeError(w, http.StatusBadGateway, "store scan failed")
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// Record returns the record stored under the {key} URL parameter.
func Record(records store.Store, l *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		rec, ok, err := records.Get(r.Context(), key)
		if err != nil {
			metrics.StoreErrors.WithLabelValues("get").Inc()
			l.Warn("store get failed", zap.String("timestamp", key), zap.Error(err))
			writeError(w, http.StatusBadGateway, "store get failed")
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

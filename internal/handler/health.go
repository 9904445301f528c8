package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/mlorentedev/promptdeck/internal/adapter"
	"github.com/mlorentedev/promptdeck/internal/store"
)

type storeStatus struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

type healthResponse struct {
	Status string      `json:"status"`
	Store  storeStatus `json:"store"`
	Models int         `json:"models"`
}

// Health reports whether the record store answers a ping. Bedrock is not
// probed.
func Health(records store.Store, reg *adapter.Registry) http.HandlerFunc {
	models := len(reg.Models())
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Store: storeStatus{Available: true}, Models: models}
		if err := records.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Store = storeStatus{Available: false, Reason: err.Error()}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

package handler

import (
	"net/http"

	"github.com/mlorentedev/promptdeck/internal/adapter"
)

func Models(reg *adapter.Registry) http.HandlerFunc {
	models := reg.Models()
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models)
	}
}

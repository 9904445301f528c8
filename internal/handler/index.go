package handler

import (
	"net/http"

	"github.com/mlorentedev/promptdeck/internal/adapter"
)

const (
	defaultTemperature = "0.5"
	defaultTopP        = "0.9"
)

type indexPage struct {
	Models      []adapter.ModelInfo
	ModelID     string
	Temperature string
	TopP        string
	InputText   string
	OutputText  string
	HasOutput   bool
}

func Index(reg *adapter.Registry) http.HandlerFunc {
	models := reg.Models()
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, http.StatusOK, "index.html", indexPage{
			Models:      models,
			Temperature: defaultTemperature,
			TopP:        defaultTopP,
		})
	}
}

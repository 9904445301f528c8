package handler

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mlorentedev/promptdeck/internal/adapter"
	"github.com/mlorentedev/promptdeck/internal/metrics"
	"github.com/mlorentedev/promptdeck/internal/middleware"
	"github.com/mlorentedev/promptdeck/internal/store"
)

// Invoke handles POST /invoke_model: it calls the selected model, stores the
// invocation and renders the generated text. There is no request timeout here;
// a stalled backend call holds the request until the client goes away.
func Invoke(models *adapter.Factory, records store.Store, now func() time.Time, l *zap.Logger) http.HandlerFunc {
	catalog := models.Registry.Models()
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				renderError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			renderError(w, http.StatusBadRequest, "invalid form body")
			return
		}

		input := r.PostForm.Get("input_text")
		modelID := r.PostForm.Get("modelId")
		if input == "" {
			renderError(w, http.StatusBadRequest, "input_text is required")
			return
		}
		temperature, err := parseSampling(r.PostForm.Get("temperature"))
		if err != nil {
			renderError(w, http.StatusBadRequest, "temperature must be a number")
			return
		}
		topP, err := parseSampling(r.PostForm.Get("top_p"))
		if err != nil {
			renderError(w, http.StatusBadRequest, "top_p must be a number")
			return
		}

		model, err := models.New(modelID)
		if err != nil {
			renderError(w, http.StatusBadRequest, fmt.Sprintf("unknown model: %s", modelID))
			return
		}

		log := l.With(zap.String("request_id", middleware.RequestIDFromContext(r.Context())), zap.String("model_id", modelID))
		metrics.InputChars.Observe(float64(len(input)))

		start := time.Now()
		output, err := model.Invoke(r.Context(), input, temperature, topP)
		metrics.InvokeDuration.WithLabelValues(modelID).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.InvokeErrors.WithLabelValues(modelID).Inc()
			log.Debug("invoke failed", zap.Error(err))
			renderError(w, http.StatusBadGateway, "model invocation failed")
			return
		}

		rec := store.NewRecord(now(), input, output, modelID, temperature, topP)
		if err := records.Put(r.Context(), rec); err != nil {
			metrics.StoreErrors.WithLabelValues("put").Inc()
			log.Debug("store put failed", zap.String("timestamp", rec.Timestamp), zap.Error(err))
			renderError(w, http.StatusBadGateway, "saving the invocation failed")
			return
		}
		metrics.RecordsWritten.Inc()

		render(w, http.StatusOK, "index.html", indexPage{
			Models:      catalog,
			ModelID:     modelID,
			Temperature: rec.Temperature,
			TopP:        rec.TopP,
			InputText:   input,
			OutputText:  output,
			HasOutput:   true,
		})
	}
}

var errNotFinite = errors.New("not a finite number")

// parseSampling accepts any finite float; range checks are left to the model.
func parseSampling(v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotFinite
	}
	return f, nil
}

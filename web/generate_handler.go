package web

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"imagerelay/imagegen"
	"imagerelay/logging"
)

// GenerateHandler serves POST /generate-image: it applies the abuse guard,
// hands the request to the dispatcher and maps the outcome onto the HTTP
// error contract. Every response body uses the shared status envelope.
type GenerateHandler struct {
	dispatcher *imagegen.Dispatcher
	guard      AbuseGuard
	logger     *logging.Logger
}

// NewGenerateHandler creates a GenerateHandler. The guard may be nil, in
// which case no rate limiting is applied.
func NewGenerateHandler(dispatcher *imagegen.Dispatcher, guard AbuseGuard, logger *logging.Logger) *GenerateHandler {
	return &GenerateHandler{
		dispatcher: dispatcher,
		guard:      guard,
		logger:     logger.Named("generate"),
	}
}

// ServeHTTP handles one generation request.
func (h *GenerateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, imagegen.GenerationResult{
			Status:  imagegen.StatusError,
			Message: "Method not allowed",
		})
		return
	}

	addr := clientAddr(r)
	if h.guard != nil {
		allowed, retryAfter := h.guard.Allow(addr)
		if !allowed {
			h.logger.Warn("Rate limit exceeded",
				zap.String("client_addr", addr),
				zap.Duration("retry_after", retryAfter))
			w.Header().Set("Retry-After", retryAfterSeconds(retryAfter))
			writeJSON(w, http.StatusTooManyRequests, imagegen.GenerationResult{
				Status:  imagegen.StatusError,
				Message: "Too many requests, please try again later",
			})
			return
		}
	}

	var req imagegen.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, imagegen.ValidationResult())
		return
	}

	result, err := h.dispatcher.Dispatch(r.Context(), req)
	if err != nil {
		if errors.Is(err, imagegen.ErrPromptRequired) {
			writeJSON(w, http.StatusBadRequest, result)
			return
		}
		// Dispatch only ever returns validation errors; anything else
		// is a programming error worth logging before responding.
		h.logger.Error("Unexpected dispatch error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, imagegen.ErrorResult(err.Error()))
		return
	}

	if result.Status == imagegen.StatusError {
		writeJSON(w, http.StatusInternalServerError, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// retryAfterSeconds formats a duration as whole seconds for the
// Retry-After header, rounding up so clients never retry early.
func retryAfterSeconds(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

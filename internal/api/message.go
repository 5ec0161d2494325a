package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/DMarby/postcard-poodle/internal/caption"
	"github.com/DMarby/postcard-poodle/internal/filter"
	"github.com/DMarby/postcard-poodle/internal/handler"
)

const maxJSONBodySize = 1 << 16

// GenerateMessageRequest is the body of a caption generation request
type GenerateMessageRequest struct {
	FilterType string `json:"filterType"`
}

// MessageResponse carries a generated caption
type MessageResponse struct {
	Message string `json:"message"`
}

func (a *API) generateMessageHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	var req GenerateMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	// Unknown filters get the generic prompt
	kind, err := filter.ParseKind(req.FilterType)
	if err != nil {
		kind = filter.None
	}

	message, genErr := a.Captions.Generate(r.Context(), kind)
	if genErr != nil {
		return a.captionError(r, genErr)
	}

	return handler.WriteJSON(w, http.StatusOK, MessageResponse{Message: message})
}

// captionError maps a caption provider failure to a response
func (a *API) captionError(r *http.Request, err error) *handler.Error {
	var providerErr *caption.ProviderError

	switch {
	case errors.Is(err, caption.ErrMissingCredential):
		a.logError(r, "caption provider is not configured", err)
		return &handler.Error{Message: "OpenAI API key is not configured", Code: http.StatusInternalServerError}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &handler.Error{Message: "Failed to generate message", Code: http.StatusServiceUnavailable}
	case errors.As(err, &providerErr):
		a.logError(r, "error generating message", err)
		return &handler.Error{Message: providerErr.Error(), Code: http.StatusInternalServerError}
	default:
		a.logError(r, "error generating message", err)
		return &handler.Error{Message: "Failed to generate message", Code: http.StatusInternalServerError}
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) *handler.Error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodySize))
	if err := decoder.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return handler.BadRequest("request body is empty")
		}

		return handler.BadRequest("invalid request body")
	}

	return nil
}

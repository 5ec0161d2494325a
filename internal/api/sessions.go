package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/DMarby/postcard-poodle/internal/filter"
	"github.com/DMarby/postcard-poodle/internal/handler"
	"github.com/DMarby/postcard-poodle/internal/postcard"
	"github.com/DMarby/postcard-poodle/internal/session"
	"github.com/gorilla/mux"
)

// SessionResponse describes the state of a session
type SessionResponse struct {
	ID         string `json:"id,omitempty"`
	HasImage   bool   `json:"hasImage"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	FilterType string `json:"filterType"`
	Message    string `json:"message"`
	Generating bool   `json:"generating"`
}

// FilterRequest is the body of a filter change
type FilterRequest struct {
	FilterType string `json:"filterType"`
}

// MessageRequest is the body of a caption edit
type MessageRequest struct {
	Message *string `json:"message"`
}

func newSessionResponse(id string, state session.State) SessionResponse {
	res := SessionResponse{
		ID:         id,
		HasImage:   state.HasImage(),
		FilterType: state.Filter.String(),
		Message:    state.Caption,
		Generating: state.Generating,
	}

	if state.HasImage() {
		res.Width = state.Source.Width
		res.Height = state.Source.Height
	}

	return res
}

func (a *API) session(r *http.Request) (string, *session.Session, *handler.Error) {
	id := mux.Vars(r)["id"]

	s, err := a.Sessions.Get(id)
	if err != nil {
		return "", nil, handler.NotFound("session not found")
	}

	return id, s, nil
}

func (a *API) createSessionHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	id, s, err := a.Sessions.Create()
	if err != nil {
		if errors.Is(err, session.ErrStoreFull) {
			return &handler.Error{Message: "too many sessions, try again later", Code: http.StatusServiceUnavailable}
		}

		a.logError(r, "error creating session", err)
		return handler.InternalServerError()
	}

	return handler.WriteJSON(w, http.StatusCreated, newSessionResponse(id, s.Snapshot()))
}

func (a *API) getSessionHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	id, s, herr := a.session(r)
	if herr != nil {
		return herr
	}

	return handler.WriteJSON(w, http.StatusOK, newSessionResponse(id, s.Snapshot()))
}

func (a *API) deleteSessionHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	if err := a.Sessions.Delete(mux.Vars(r)["id"]); err != nil {
		return handler.NotFound("session not found")
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (a *API) selectImageHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	id, s, herr := a.session(r)
	if herr != nil {
		return herr
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.maxUploadSize()))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return &handler.Error{Message: "image is too large", Code: http.StatusRequestEntityTooLarge}
		}

		return handler.BadRequest("invalid image")
	}

	// Files that are not usable images leave the session unchanged
	if !s.SelectImage(r.Header.Get("Content-Type"), data) {
		a.Log.Debugw("ignoring upload", handler.LogFields(r, "content-type", r.Header.Get("Content-Type"))...)
	}

	return handler.WriteJSON(w, http.StatusOK, newSessionResponse(id, s.Snapshot()))
}

func (a *API) chooseFilterHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	id, s, herr := a.session(r)
	if herr != nil {
		return herr
	}

	var req FilterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	kind, err := filter.ParseKind(req.FilterType)
	if err != nil {
		return handler.BadRequest(err.Error())
	}

	s.ChooseFilter(kind)
	return handler.WriteJSON(w, http.StatusOK, newSessionResponse(id, s.Snapshot()))
}

func (a *API) editMessageHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	id, s, herr := a.session(r)
	if herr != nil {
		return herr
	}

	var req MessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	if req.Message == nil {
		return handler.BadRequest("message is required")
	}

	s.EditCaption(*req.Message)
	return handler.WriteJSON(w, http.StatusOK, newSessionResponse(id, s.Snapshot()))
}

func (a *API) sessionGenerateMessageHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	_, s, herr := a.session(r)
	if herr != nil {
		return herr
	}

	message, err := s.GenerateCaption(r.Context(), a.Captions)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrGenerationInFlight):
			return handler.Conflict(err.Error())
		case errors.Is(err, session.ErrSuperseded):
			return handler.Conflict(err.Error())
		default:
			return a.captionError(r, err)
		}
	}

	return handler.WriteJSON(w, http.StatusOK, MessageResponse{Message: message})
}

func (a *API) sessionPreviewHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	_, s, herr := a.session(r)
	if herr != nil {
		return herr
	}

	data, err := s.Preview(r.Context(), a.Renderer)
	if err != nil {
		a.logError(r, "error rendering preview", err)
		return handler.InternalServerError()
	}

	writePNG(w, data, "")
	return nil
}

func (a *API) sessionPostcardHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	_, s, herr := a.session(r)
	if herr != nil {
		return herr
	}

	data, err := s.Export(r.Context(), a.Renderer)
	if err != nil {
		a.logError(r, "error rendering postcard", err)
		return handler.InternalServerError()
	}

	writePNG(w, data, postcard.Filename)
	return nil
}

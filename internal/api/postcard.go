package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/DMarby/postcard-poodle/internal/caption"
	"github.com/DMarby/postcard-poodle/internal/filter"
	"github.com/DMarby/postcard-poodle/internal/handler"
	"github.com/DMarby/postcard-poodle/internal/postcard"
	"github.com/DMarby/postcard-poodle/internal/render"
)

// upload is a parsed one-shot render request
type upload struct {
	source  *filter.ImageBuffer
	kind    filter.Kind
	message string
}

// parseUpload reads a multipart form with an image, filterType and message.
// A missing or unusable image leaves source nil.
func (a *API) parseUpload(w http.ResponseWriter, r *http.Request) (*upload, *handler.Error) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadSize())
	if err := r.ParseMultipartForm(a.maxUploadSize()); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, &handler.Error{Message: "image is too large", Code: http.StatusRequestEntityTooLarge}
		}

		return nil, handler.BadRequest("invalid multipart form")
	}

	u := &upload{
		kind:    filter.None,
		message: caption.Fallback,
	}

	if name := r.FormValue("filterType"); name != "" {
		kind, err := filter.ParseKind(name)
		if err != nil {
			return nil, handler.BadRequest(err.Error())
		}
		u.kind = kind
	}

	if values, ok := r.MultipartForm.Value["message"]; ok && len(values) > 0 {
		u.message = caption.Clamp(values[0])
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return u, nil
		}

		return nil, handler.BadRequest("invalid image")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, handler.BadRequest("invalid image")
	}

	source, err := render.Decode(header.Header.Get("Content-Type"), data)
	if err != nil {
		// Files that are not usable images are ignored
		a.Log.Debugw("ignoring upload", handler.LogFields(r, "error", err)...)
		return u, nil
	}

	u.source = source
	return u, nil
}

func (a *API) postcardHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	u, herr := a.parseUpload(w, r)
	if herr != nil {
		return herr
	}

	data, err := a.Renderer.Process(r.Context(), render.NewPostcard(u.source, u.kind, u.message))
	if err != nil {
		a.logError(r, "error rendering postcard", err)
		return handler.InternalServerError()
	}

	writePNG(w, data, postcard.Filename)
	return nil
}

func (a *API) previewHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	u, herr := a.parseUpload(w, r)
	if herr != nil {
		return herr
	}

	data, err := a.Renderer.Process(r.Context(), render.NewPreview(u.source, u.kind))
	if err != nil {
		a.logError(r, "error rendering preview", err)
		return handler.InternalServerError()
	}

	writePNG(w, data, "")
	return nil
}

// writePNG writes a rendered image, or 204 No Content when nothing was rendered.
// A filename makes the response a download.
func writePNG(w http.ResponseWriter, data []byte, filename string) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	if data == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	if filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}

	w.Write(data)
}

package handler

import (
	"encoding/json"
	"net/http"
)

// Error is the message and http status code to return
type Error struct {
	Message string
	Code    int
}

// InternalServerError is a convenience function for returning an internal server error
func InternalServerError() *Error {
	return &Error{
		Message: "Something went wrong",
		Code:    http.StatusInternalServerError,
	}
}

// BadRequest is a convenience function for returning a bad request error
func BadRequest(message string) *Error {
	return &Error{
		Message: message,
		Code:    http.StatusBadRequest,
	}
}

// NotFound is a convenience function for returning a not found error
func NotFound(message string) *Error {
	return &Error{
		Message: message,
		Code:    http.StatusNotFound,
	}
}

// Conflict is a convenience function for returning a conflict error
func Conflict(message string) *Error {
	return &Error{
		Message: message,
		Code:    http.StatusConflict,
	}
}

// Handler wraps a http handler and deals with responding to errors
type Handler func(w http.ResponseWriter, r *http.Request) *Error

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h(w, r); err != nil {
		WriteError(w, err)
	}
}

// WriteError writes an error as a json body of the form {"error": message}
func WriteError(w http.ResponseWriter, err *Error) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)

	var data = struct {
		Error string `json:"error"`
	}{err.Message}

	json.NewEncoder(w).Encode(data)
}

// WriteJSON writes a json response with the given status code
func WriteJSON(w http.ResponseWriter, code int, data interface{}) *Error {
	body, err := json.Marshal(data)
	if err != nil {
		return InternalServerError()
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(append(body, '\n'))

	return nil
}

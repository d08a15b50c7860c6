// Package httperr carries the service-wide error taxonomy and writes
// taxonomy errors as content-negotiated HTTP responses. JSON clients get a
// structured {status, message} body; browser clients get a plain HTML page
// with the same status code.
package httperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind int

const (
	KindBadRequest Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindTeapot
	KindInternal
)

// Error is a taxonomy failure. Message may be empty, in which case the
// kind's default message is written.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	_, status, msg := describe(e.Kind)
	return status + ": " + msg
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func BadRequest(msg string) *Error   { return New(KindBadRequest, msg) }
func Unauthorized(msg string) *Error { return New(KindUnauthorized, msg) }
func Forbidden(msg string) *Error    { return New(KindForbidden, msg) }
func NotFound(msg string) *Error     { return New(KindNotFound, msg) }
func Conflict(msg string) *Error     { return New(KindConflict, msg) }
func Internal(msg string) *Error     { return New(KindInternal, msg) }
func Teapot() *Error                 { return New(KindTeapot, "") }

func describe(k Kind) (code int, status, message string) {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest, "Bad Request", "Failed to parse requested payload."
	case KindUnauthorized:
		return http.StatusUnauthorized, "Unauthorized", "You must be logged in to use this resource."
	case KindForbidden:
		return http.StatusForbidden, "Forbidden", "You are not permitted to use this resource."
	case KindNotFound:
		return http.StatusNotFound, "Not Found", "Not Found"
	case KindConflict:
		return http.StatusConflict, "Conflict", "Unable to process request due to a conflict."
	case KindTeapot:
		return http.StatusTeapot, "I'm a Teapot", "The resulting entity may be short and stout."
	default:
		return http.StatusInternalServerError, "Internal Server Error", "An unexpected error has occurred. Try again later."
	}
}

type body struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Write maps err onto the taxonomy and writes the response. Any error that
// is not an *Error is treated as internal; its detail is never leaked to
// the client.
func Write(w http.ResponseWriter, r *http.Request, err error) {
	var te *Error
	if !errors.As(err, &te) {
		te = Internal("")
	}
	code, status, defaultMsg := describe(te.Kind)
	msg := te.Message
	if msg == "" || te.Kind == KindInternal {
		msg = defaultMsg
	}

	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(code)
		fmt.Fprintf(w, "<!doctype html><title>%s</title><h1>%d %s</h1><p>%s</p>\n", status, code, status, msg)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body{Status: status, Message: msg})
}

// wantsHTML reports whether the client prefers an HTML error page. JSON is
// the default for API clients and anything without an Accept header.
func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "application/json") {
		return false
	}
	return strings.Contains(accept, "text/html")
}

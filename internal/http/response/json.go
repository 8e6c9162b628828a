package response

import (
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/Xunop/bookshelf/internal/config"
	"github.com/Xunop/bookshelf/internal/http/request"
	"github.com/Xunop/bookshelf/internal/log"
)

const contentTypeHeader = `application/json`

// ErrorBody is the envelope of every error answer. Error carries diagnostic
// detail in development and is an empty object otherwise.
type ErrorBody struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Error   any    `json:"error"`
}

// OK creates a new JSON response with a 200 status code.
func OK(w http.ResponseWriter, r *http.Request, body any) {
	builder := New(w, r)
	builder.WithHeader("Content-Type", contentTypeHeader)
	builder.WithBody(toJSON(body))
	builder.Write()
}

// Created sends a created response to the client.
func Created(w http.ResponseWriter, r *http.Request, body any) {
	builder := New(w, r)
	builder.WithStatus(http.StatusCreated)
	if body != nil {
		builder.WithHeader("Content-Type", contentTypeHeader)
		builder.WithBody(toJSON(body))
	}
	builder.Write()
}

// NoContent sends a no content response to the client.
func NoContent(w http.ResponseWriter, r *http.Request) {
	builder := New(w, r)
	builder.WithStatus(http.StatusNoContent)
	builder.Write()
}

// Error sends the error envelope. detail is only exposed in development.
func Error(w http.ResponseWriter, r *http.Request, status int, message string, detail any) {
	fields := []zap.Field{
		zap.String("client_ip", request.ClientIP(r)),
		zap.String("request.method", r.Method),
		zap.String("request.uri", r.RequestURI),
		zap.String("request.user_agent", r.UserAgent()),
		zap.Int("response.status_code", status),
		zap.String("message", message),
	}
	if status >= http.StatusInternalServerError {
		log.Error(http.StatusText(status), append(fields, zap.Any("error", detail))...)
	} else {
		log.Warn(http.StatusText(status), fields...)
	}

	body := ErrorBody{Status: status, Message: message, Error: struct{}{}}
	if detail != nil && config.Opts != nil && config.Opts.IsDevelopment() {
		body.Error = detail
	}

	builder := New(w, r)
	builder.WithStatus(status)
	builder.WithHeader("Content-Type", contentTypeHeader)
	builder.WithBody(toJSON(body))
	builder.Write()
}

// ServerError sends an internal error to the client.
func ServerError(w http.ResponseWriter, r *http.Request, err error) {
	var detail any
	if err != nil {
		detail = err.Error()
	}
	Error(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), detail)
}

// BadRequest sends a bad request error to the client.
func BadRequest(w http.ResponseWriter, r *http.Request, message string, detail any) {
	Error(w, r, http.StatusBadRequest, message, detail)
}

// Unauthorized sends a not authorized error to the client.
func Unauthorized(w http.ResponseWriter, r *http.Request) {
	Error(w, r, http.StatusUnauthorized, "Unauthorized", nil)
}

// NotFound sends a page not found error to the client.
func NotFound(w http.ResponseWriter, r *http.Request) {
	Error(w, r, http.StatusNotFound, "Not found", nil)
}

// MethodNotAllowed sends a method not allowed error to the client.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	Error(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
}

func toJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error("Unable to marshal JSON response", zap.Any("error", err))
		return []byte("")
	}

	return b
}

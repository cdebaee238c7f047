package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/imagevault/internal/common"
)

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// newErrorBody builds the error envelope for err. Details of server-side
// failures stay in the logs.
func newErrorBody(err error) (int, errorBody) {
	status := StatusFor(err)
	code := common.Code(err)
	msg := err.Error()

	var ce *common.Error
	if errors.As(err, &ce) && ce.Message != "" && status < 500 {
		msg = ce.Message
	}
	if status >= 500 {
		switch code {
		case "DEPENDENCY_ERROR":
			msg = "a backing store is unavailable, retry later"
		default:
			msg = "internal error"
		}
	}
	return status, errorBody{Error: errorDetail{Code: code, Message: msg}}
}

// WriteError writes {"error":{"code","message"}} with the given status.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, errorBody{Error: errorDetail{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

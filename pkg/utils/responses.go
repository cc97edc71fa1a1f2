package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"cleaning-booking/pkg/apperror"
)

type Response struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

// ResponseJSON writes JSON response with custom status code
func ResponseJSON(w http.ResponseWriter, code int, status bool, message string, data, errors any) {
	writeResponse(w, code, Response{
		Status:  status,
		Message: message,
		Data:    data,
		Errors:  errors,
	})
}

func writeResponse(w http.ResponseWriter, code int, response Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(response)
}

// ------------- Success responses -------------

// returns 200 OK
func ResponseSuccess(w http.ResponseWriter, message string, data any) {
	ResponseJSON(w, http.StatusOK, true, message, data, nil)
}

// returns 201 Created
func ResponseCreated(w http.ResponseWriter, message string, data any) {
	ResponseJSON(w, http.StatusCreated, true, message, data, nil)
}

// ------------- Error responses -------------

// returns 400 Bad Request
func ResponseBadRequest(w http.ResponseWriter, message string, errors any) {
	ResponseJSON(w, http.StatusBadRequest, false, message, nil, errors)
}

// returns 401 Unauthorized
func ResponseUnauthorized(w http.ResponseWriter, message string) {
	ResponseJSON(w, http.StatusUnauthorized, false, message, nil, nil)
}

// returns 403 Forbidden
func ResponseForbidden(w http.ResponseWriter, message string) {
	ResponseJSON(w, http.StatusForbidden, false, message, nil, nil)
}

// returns 404 Not Found
func ResponseNotFound(w http.ResponseWriter, message string) {
	ResponseJSON(w, http.StatusNotFound, false, message, nil, nil)
}

// returns 429 Too Many Requests
func ResponseTooManyRequests(w http.ResponseWriter, message string) {
	ResponseJSON(w, http.StatusTooManyRequests, false, message, nil, nil)
}

// returns 500 Internal Server Error
func ResponseInternalError(w http.ResponseWriter, message string) {
	ResponseJSON(w, http.StatusInternalServerError, false, message, nil, nil)
}

// StatusForKind maps an error kind to its HTTP status.
func StatusForKind(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindAuthentication:
		return http.StatusUnauthorized
	case apperror.KindAuthorization:
		return http.StatusForbidden
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindConflict:
		return http.StatusConflict
	case apperror.KindInvalidState:
		return http.StatusUnprocessableEntity
	case apperror.KindProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ResponseAppError writes err using its kind. Internal errors only expose
// their detail when debug is on.
func ResponseAppError(w http.ResponseWriter, err error, debug bool) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		message := "Internal server error"
		if debug {
			message = err.Error()
		}
		writeResponse(w, http.StatusInternalServerError, Response{
			Message: message,
			Code:    string(apperror.KindInternal),
		})
		return
	}

	code := appErr.Code
	if code == "" {
		code = string(appErr.Kind)
	}

	message := appErr.Message
	if appErr.Kind == apperror.KindProvider && debug && appErr.Err != nil {
		message = appErr.Error()
	}

	response := Response{
		Message: message,
		Code:    code,
	}
	if len(appErr.Fields) > 0 {
		response.Errors = appErr.Fields
	}
	writeResponse(w, StatusForKind(appErr.Kind), response)
}

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/mkch/paybot/pkg/errors"
	"github.com/mkch/paybot/pkg/logger"
)

type successEnvelope struct {
	Data any `json:"data"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

var statusByCode = map[pkgerrors.Code]int{
	pkgerrors.CodeValidation:   http.StatusBadRequest,
	pkgerrors.CodeUnauthorized: http.StatusUnauthorized,
	pkgerrors.CodeNotFound:     http.StatusNotFound,
	pkgerrors.CodeConflict:     http.StatusConflict,
	pkgerrors.CodeTransport:    http.StatusServiceUnavailable,
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, successEnvelope{Data: data})
}

func writeError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	status, ok := statusByCode[typed.Code()]
	if !ok {
		status = http.StatusInternalServerError
	}
	if logg != nil {
		logg.Error(logg.WithField(ctx, "error_code", string(typed.Code())), "request.error", err)
	}
	writeJSON(w, status, errorEnvelope{Error: apiError{
		Code:    string(typed.Code()),
		Message: pkgerrors.MetadataFor(typed.Code()).PublicMessage,
	}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

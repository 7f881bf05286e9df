package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"shopfront/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// validate is the shared request validator. Struct rules live on the model
// request types.
var validate = validator.New(validator.WithRequiredStructEnabled())

// statusFor maps domain error codes to HTTP status codes.
func statusFor(code string) int {
	switch code {
	case model.ErrCodeInvalidRequest,
		model.ErrCodeInvalidQuantity,
		model.ErrCodeInvalidPromoCode,
		model.ErrCodeInvalidPromoLength,
		model.ErrCodeSignatureInvalid:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeProductNotFound,
		model.ErrCodeOrderNotFound,
		model.ErrCodeAddressNotFound,
		model.ErrCodeReconciliationMiss:
		return http.StatusNotFound
	case model.ErrCodePaymentGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// The status line is already gone; nothing useful left to do.
		return
	}
}

// writeError translates an error into the standard error envelope. Domain
// errors keep their code and message; anything else collapses to a generic
// 500 so internals never leak to clients.
func writeError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		status := statusFor(domainErr.Code)
		if status >= http.StatusInternalServerError {
			logger.Error().Err(err).Str("code", domainErr.Code).Msg("handler error")
		} else {
			logger.Warn().Str("code", domainErr.Code).Int("status", status).Msg("request rejected")
		}
		writeJSON(w, status, model.ErrorResponse{
			Success: false,
			Message: domainErr.Message,
			Code:    domainErr.Code,
		})
		return
	}

	logger.Error().Err(err).Msg("handler error")
	writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{
		Success: false,
		Message: "internal server error",
		Code:    model.ErrCodeInternalError,
	})
}

// decodeAndValidate decodes the request body into dst and runs the struct
// validation rules.
func decodeAndValidate(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return model.ErrInvalidRequest
	}
	if err := validate.Struct(dst); err != nil {
		return model.ErrInvalidRequest
	}
	return nil
}

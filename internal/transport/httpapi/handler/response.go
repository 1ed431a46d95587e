package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kislikjeka/zapfeed/internal/module/allowance"
	"github.com/kislikjeka/zapfeed/internal/module/feed"
	"github.com/kislikjeka/zapfeed/internal/module/transfer"
	"github.com/kislikjeka/zapfeed/internal/platform/credential"
	"github.com/kislikjeka/zapfeed/internal/platform/user"
	"github.com/kislikjeka/zapfeed/internal/platform/wallet"
	apperrors "github.com/kislikjeka/zapfeed/internal/shared/errors"
	"github.com/kislikjeka/zapfeed/internal/shared/validation"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error          string                  `json:"error"`
	Code           string                  `json:"code"`
	Fields         []validation.FieldError `json:"fields,omitempty"`
	PaymentRequest string                  `json:"payment_request,omitempty"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError sends an error response with an explicit code
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// respondDomainError maps a service error to a status and AppError code
func respondDomainError(w http.ResponseWriter, err error) {
	appErr := toAppError(err)
	resp := ErrorResponse{Error: appErr.Message, Code: appErr.Code}

	if appErr.Code == apperrors.ErrCodeValidation {
		resp.Fields = validation.FieldErrors(err)
	}
	var te *transfer.TransferError
	if errors.As(err, &te) {
		resp.PaymentRequest = te.PaymentRequest
	}

	respondJSON(w, statusFor(appErr.Code), resp)
}

func toAppError(err error) *apperrors.AppError {
	if appErr := apperrors.GetAppError(err); appErr != nil {
		return appErr
	}

	switch {
	case errors.Is(err, transfer.ErrInvalidRequest),
		errors.Is(err, wallet.ErrUnknownRole),
		errors.Is(err, user.ErrInvalidID):
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	case errors.Is(err, user.ErrUserNotFound):
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, "user not found")
	case errors.Is(err, wallet.ErrWalletNotFound),
		errors.Is(err, transfer.ErrNoAllowanceWallet),
		errors.Is(err, transfer.ErrNoPrivateWallet),
		errors.Is(err, allowance.ErrHostWalletNotFound):
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, err.Error())
	case errors.Is(err, transfer.ErrInsufficientBalance):
		return apperrors.Wrap(err, apperrors.ErrCodeInsufficientBalance, err.Error())
	case errors.Is(err, feed.ErrSuperseded):
		return apperrors.Wrap(err, apperrors.ErrCodeSuperseded, err.Error())
	case transfer.IsTransferError(err):
		return apperrors.Wrap(err, apperrors.ErrCodeTransferFailed, err.Error())
	case credential.IsAuthError(err):
		return apperrors.Wrap(err, apperrors.ErrCodeUpstreamAuth, "LNbits authentication failed")
	case apperrors.IsFetchError(err):
		return apperrors.Wrap(err, apperrors.ErrCodeUpstreamFetch, err.Error())
	}
	return apperrors.Internal("internal server error", err)
}

func statusFor(code string) int {
	switch code {
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrCodeInsufficientBalance:
		return http.StatusUnprocessableEntity
	case apperrors.ErrCodeSuperseded:
		return http.StatusConflict
	case apperrors.ErrCodeUpstreamAuth, apperrors.ErrCodeUpstreamFetch, apperrors.ErrCodeTransferFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NotFound answers unknown routes in the API's error format
func NotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, apperrors.ErrCodeNotFound, "route not found")
}

// MethodNotAllowed answers known routes called with the wrong method
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusMethodNotAllowed, apperrors.ErrCodeValidation, "method not allowed")
}

package httpx

import (
	"errors"
	"net/http"

	apperrors "github.com/target/extranet-gate/internal/errors"
)

// WriteAppError maps an application error onto an HTTP status and a JSON
// body. Credential and session failures share one generic 401 so the
// response never reveals which part of a login was wrong; federation
// details stay in the logs.
func WriteAppError(w http.ResponseWriter, err error) {
	switch code := apperrors.GetCode(err); code {
	case apperrors.ErrCodeValidation:
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: string(code), Err: err})
	case apperrors.ErrCodeNotFound:
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: string(code), Err: err})
	case apperrors.ErrCodeConflict:
		WriteError(w, ErrorParams{Code: http.StatusConflict, ErrCode: string(code), Err: err})
	case apperrors.ErrCodeInvalidCredentials,
		apperrors.ErrCodeSessionNotFound,
		apperrors.ErrCodeSessionExpired:
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_failed",
			Err:     errors.New("authentication failed"),
		})
	case apperrors.ErrCodeTooManyAttempts:
		WriteError(w, ErrorParams{Code: http.StatusTooManyRequests, ErrCode: string(code), Err: err})
	case apperrors.ErrCodePolicyDenied:
		WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: string(code), Err: err})
	case apperrors.ErrCodeSecondFactorRequired:
		WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: string(code), Err: err})
	case apperrors.ErrCodeFederation:
		// The wrapped provider detail is for logs only.
		WriteError(w, ErrorParams{
			Code:    http.StatusBadGateway,
			ErrCode: string(code),
			Err:     errors.New("federated login failed"),
		})
	default:
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "internal",
			Err:     errors.New("internal server error"),
		})
	}
}

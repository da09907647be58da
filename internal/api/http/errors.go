package httpapi

import (
	"context"
	"errors"
	"net/http"

	appAuth "github.com/facility-hub/facility-hub/internal/application/auth"
	"github.com/facility-hub/facility-hub/internal/domain/errs"
)

// stateCodes are guard rejections caused by the request's current state
// rather than by who is asking.
var stateCodes = map[string]bool{
	errs.CodeInvalidState:       true,
	errs.CodePriorityAlreadySet: true,
	errs.CodePriorityMissing:    true,
	errs.CodeServicerPresent:    true,
	errs.CodeServicerMissing:    true,
	errs.CodeAlreadyScheduled:   true,
	errs.CodeNotOverdue:         true,
	errs.CodeDuplicateServicer:  true,
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, appAuth.ErrInvalidCredentials), errors.Is(err, appAuth.ErrUnauthenticated):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT"
	}
	code := errs.CodeOf(err)
	switch errs.KindOf(err) {
	case errs.KindValidationFailed:
		return http.StatusBadRequest, code
	case errs.KindNotFound:
		return http.StatusNotFound, code
	case errs.KindGuardRejected:
		if stateCodes[code] {
			return http.StatusConflict, code
		}
		return http.StatusForbidden, code
	case errs.KindTransactionConflict, errs.KindStorageUnavailable:
		return http.StatusServiceUnavailable, code
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// respondServiceError writes err using the engine's error taxonomy.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	switch {
	case status == http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", "1")
		s.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("transient failure")
	case status >= http.StatusInternalServerError:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		msg = "internal error"
	}
	respondError(w, status, code, msg)
}

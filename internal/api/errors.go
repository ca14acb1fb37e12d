package api

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/sirupsen/logrus"
	"github.com/supabase/integrations/internal/api/apierrors"
	"github.com/supabase/integrations/internal/api/shared"
	"github.com/supabase/integrations/internal/observability"
	"github.com/supabase/integrations/internal/utilities"
)

// Recoverer is a middleware that recovers from panics, logs the panic (and a
// backtrace), and returns a HTTP 500 (Internal Server Error) status if
// possible. Recoverer prints a request ID if one is provided.
func recoverer(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				observability.GetLogEntry(r).WithFields(logrus.Fields{
					"stack": string(debug.Stack()),
					"panic": fmt.Sprintf("%+v", rvr),
				}).Error("unhandled request panic")

				se := &apierrors.HTTPError{
					HTTPStatus: http.StatusInternalServerError,
					Message:    http.StatusText(http.StatusInternalServerError),
				}
				HandleResponseError(se, w, r)
			}
		}()
		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(fn)
}

// ErrorCause is an error interface that contains the method Cause() for returning root cause errors
type ErrorCause interface {
	Cause() error
}

func HandleResponseError(err error, w http.ResponseWriter, r *http.Request) {
	log := observability.GetLogEntry(r)
	errorID := utilities.GetRequestID(r.Context())

	switch e := err.(type) {
	case *apierrors.HTTPError:
		switch {
		case e.HTTPStatus >= http.StatusInternalServerError:
			e.ErrorID = errorID
			// this will get us the stack trace too
			log.WithError(e.Cause()).Error(e.Error())
		case e.HTTPStatus == http.StatusTooManyRequests:
			log.WithError(e.Cause()).Warn(e.Error())
		default:
			log.WithError(e.Cause()).Info(e.Error())
		}

		if e.ErrorCode == "" {
			if e.HTTPStatus == http.StatusInternalServerError {
				e.ErrorCode = apierrors.ErrorCodeUnexpectedFailure
			} else {
				e.ErrorCode = apierrors.ErrorCodeUnknown
			}
		}

		w.Header().Set("x-sb-error-code", e.ErrorCode)

		if jsonErr := shared.SendJSON(w, e.HTTPStatus, e); jsonErr != nil && jsonErr != context.DeadlineExceeded {
			log.WithError(jsonErr).Warn("Failed to send JSON on ResponseWriter")
		}

	case ErrorCause:
		HandleResponseError(e.Cause(), w, r)

	default:
		log.WithError(e).Errorf("Unhandled server error: %s", e.Error())

		httpError := apierrors.HTTPError{
			HTTPStatus: http.StatusInternalServerError,
			ErrorCode:  apierrors.ErrorCodeUnexpectedFailure,
			Message:    "Unexpected failure, please check server logs for more information",
			ErrorID:    errorID,
		}

		w.Header().Set("x-sb-error-code", httpError.ErrorCode)

		if jsonErr := shared.SendJSON(w, http.StatusInternalServerError, httpError); jsonErr != nil && jsonErr != context.DeadlineExceeded {
			log.WithError(jsonErr).Warn("Failed to send JSON on ResponseWriter")
		}
	}
}

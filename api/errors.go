package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/thisisjab/docquery/fault"
	"go.uber.org/multierr"
)

// returnOnError writes err as a response and reports whether it did.
func (s *server) returnOnError(w http.ResponseWriter, r *http.Request, err error) bool {
	if err == nil {
		return false
	}

	s.handleError(w, r, err)
	return true
}

func (s *server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		s.logger.Debug("request canceled", "method", r.Method, "path", r.RequestURI, "remote-addr", r.RemoteAddr)
		return
	}

	var f fault.Fault
	if !errors.As(err, &f) {
		s.internalServerError(w, r, err)
		return
	}

	switch f.Code() {
	case fault.BadInputCode:
		if md, ok := f.Metadata().(fault.FieldErrorsMetadata); ok {
			s.writeError(w, r, http.StatusUnprocessableEntity, apiResponse{
				Success: false,
				Message: f.Message(),
				Metadata: map[string]any{
					"fields": md,
				},
			})
			return
		}

		res := apiResponse{Success: false, Message: f.Message()}

		// Strict parsing reports every syntax issue at once.
		if errs := multierr.Errors(err); len(errs) > 1 {
			issues := make([]any, 0, len(errs))
			for _, e := range errs {
				var issue fault.Fault
				if errors.As(e, &issue) && issue.Metadata() != nil {
					issues = append(issues, map[string]any{"message": issue.Message(), "context": issue.Metadata()})
				} else {
					issues = append(issues, map[string]any{"message": e.Error()})
				}
			}
			res.Metadata = map[string]any{"issues": issues}
		} else if f.Metadata() != nil {
			res.Metadata = map[string]any{"context": f.Metadata()}
		}

		s.writeError(w, r, http.StatusBadRequest, res)

	case fault.NotFoundCode:
		m := f.Message()
		if m == "" {
			m = "Requested resource not found."
		}

		res := apiResponse{Success: false, Message: m}

		if f.Metadata() != nil {
			res.Metadata = map[string]any{"context": f.Metadata()}
		}

		s.writeError(w, r, http.StatusNotFound, res)

	default:
		s.internalServerError(w, r, f)
	}
}

func (s *server) logError(r *http.Request, err error) {
	s.logger.Error("internal server error", "method", r.Method, "path", r.RequestURI, "remote-addr", r.RemoteAddr, "error", err)
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, status int, response apiResponse) {
	s.writeJson(w, status, response, nil) //nolint:errcheck
}

func (s *server) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	s.logError(r, err)
	s.writeError(w, r, http.StatusInternalServerError, apiResponse{Success: false, Message: "Internal server error"})
}

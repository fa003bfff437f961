package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrEthical07/authcore"
)

// ContentTypeProblem is the media type of problem documents.
const ContentTypeProblem = "application/problem+json"

// Problem is an RFC 9457 problem document.
type Problem struct {
	Type     string       `json:"type,omitempty"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError is one invalid input field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Error implements error so a Problem can travel through error returns.
func (p *Problem) Error() string {
	if p.Detail != "" {
		return p.Title + ": " + p.Detail
	}
	return p.Title
}

// ProblemFromError maps an engine error to the problem shown to clients.
func ProblemFromError(err error) *Problem {
	var p *Problem
	if errors.As(err, &p) {
		return p
	}

	var verr *authcore.ValidationError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &verr):
		return &Problem{
			Title:  "Invalid input",
			Status: http.StatusBadRequest,
			Detail: verr.Error(),
			Errors: []FieldError{{Field: verr.Field, Reason: verr.Reason}},
		}
	// refresh failures stay 401 whatever they are joined with
	case errors.Is(err, authcore.ErrInvalidRefreshToken),
		errors.Is(err, authcore.ErrSessionNotFound):
		return &Problem{
			Title:  "Unauthorized",
			Status: http.StatusUnauthorized,
		}
	case errors.Is(err, authcore.ErrSessionOriginMismatch),
		errors.Is(err, authcore.ErrUnknownTargetType):
		return &Problem{
			Title:  "Invalid input",
			Status: http.StatusBadRequest,
			Detail: err.Error(),
		}
	case errors.Is(err, authcore.ErrInvalidCredentials):
		return &Problem{
			Title:  "Unauthorized",
			Status: http.StatusUnauthorized,
			Detail: "Invalid email or password.",
		}
	case errors.Is(err, authcore.ErrTokenNotFound),
		errors.Is(err, authcore.ErrTokenExpired),
		errors.Is(err, authcore.ErrTokenAlreadyConsumed):
		return &Problem{
			Title:  "Not Found",
			Status: http.StatusNotFound,
			Detail: "The token is invalid or has expired.",
		}
	case errors.Is(err, authcore.ErrAccountNotFound),
		errors.Is(err, authcore.ErrFeatureDisabled):
		return &Problem{
			Title:  "Not Found",
			Status: http.StatusNotFound,
		}
	case errors.Is(err, authcore.ErrRateLimited):
		return &Problem{
			Title:  "Too Many Requests",
			Status: http.StatusTooManyRequests,
		}
	case errors.Is(err, context.DeadlineExceeded):
		return &Problem{
			Title:  "Service Unavailable",
			Status: http.StatusServiceUnavailable,
		}
	default:
		return &Problem{
			Title:  "Internal Server Error",
			Status: http.StatusInternalServerError,
		}
	}
}

// WriteProblem maps err and writes it with the request path as instance.
func WriteProblem(w http.ResponseWriter, r *http.Request, err error) {
	p := ProblemFromError(err)
	if p == nil {
		return
	}
	out := *p
	if out.Instance == "" && r != nil {
		out.Instance = r.URL.Path
	}

	w.Header().Set("Content-Type", ContentTypeProblem)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(out.Status)
	_ = json.NewEncoder(w).Encode(out)
}

package google

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/example/room-booker/internal/application"
)

// HTTPStatus maps a Google client error to the status reported to callers:
// 400, 401, 403, 404, 429, 500 or 503. A nil error maps to 200.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var upstream *application.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Status()
	}
	if errors.Is(err, application.ErrNotFound) {
		return http.StatusNotFound
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusForbidden && isRateLimit(apiErr) {
			return http.StatusTooManyRequests
		}
		return mapCode(apiErr.Code)
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.Response != nil {
			return mapCode(retrieveErr.Response.StatusCode)
		}
		return http.StatusBadRequest
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return http.StatusServiceUnavailable
	}
	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return http.StatusServiceUnavailable
	}

	return http.StatusInternalServerError
}

func mapCode(code int) int {
	switch code {
	case http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusNotFound,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusServiceUnavailable:
		return code
	case http.StatusGone:
		return http.StatusNotFound
	case http.StatusBadGateway, http.StatusGatewayTimeout:
		return http.StatusServiceUnavailable
	}
	switch {
	case code >= 400 && code < 500:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// isRateLimit reports the 403 variants Calendar uses for quota exhaustion.
func isRateLimit(err *googleapi.Error) bool {
	for _, item := range err.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded":
			return true
		}
	}
	return false
}

func wrap(operation string, err error) error {
	if err == nil {
		return nil
	}
	var upstream *application.UpstreamError
	if errors.As(err, &upstream) {
		return err
	}
	if errors.Is(err, application.ErrNotFound) {
		return err
	}
	return &application.UpstreamError{
		StatusCode: HTTPStatus(err),
		Operation:  operation,
		Err:        err,
	}
}

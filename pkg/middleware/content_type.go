package middleware

import (
	"net/http"
	"strings"

	apperrors "voucherdesk/pkg/errors"
	httputil "voucherdesk/pkg/http"
	"voucherdesk/pkg/logger"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// ContentTypeValidation rejects bodies of write requests whose media type is
// not in allowed. An empty body with no Content-Type passes.
func ContentTypeValidation(log *logger.Logger, allowed ...string) func(http.Handler) http.Handler {
	if len(allowed) == 0 {
		allowed = []string{ContentTypeJSON}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requiresContentType(r.Method) {
				contentType := extractContentType(r.Header.Get("Content-Type"))

				if !(contentType == "" && r.ContentLength == 0) && !contains(allowed, contentType) {
					rejectInvalidContentType(w, log, r, contentType, allowed)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func requiresContentType(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

func extractContentType(header string) string {
	if header == "" {
		return ""
	}

	parts := strings.Split(header, ";")
	return strings.ToLower(strings.TrimSpace(parts[0]))
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func rejectInvalidContentType(w http.ResponseWriter, log *logger.Logger, r *http.Request, contentType string, allowed []string) {
	log.Warn("Invalid Content-Type header",
		"request_id", RequestIDFromContext(r.Context()),
		"content_type", contentType,
		"path", r.URL.Path,
		"method", r.Method,
	)

	err := apperrors.New(apperrors.CodeInvalidInput,
		"Content-Type must be one of: "+strings.Join(allowed, ", "),
		http.StatusUnsupportedMediaType)
	_ = httputil.WriteError(w, err)
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"ioclens/core"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

var (
	connectionStringPattern = regexp.MustCompile(`(?:mysql|postgres|postgresql|sqlite|redis)://[^\s"']+`)
	filePathPattern         = regexp.MustCompile(`(?:^|\s)(?:[A-Za-z]:\\|/)(?:[^\\/:*?"<>|\s]+[\\/])*[^\\/:*?"<>|\s]+`)
	privateIPPatterns       = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:10|127)(?:\.\d{1,3}){3}(?::\d{1,5})?\b`),
		regexp.MustCompile(`\b172\.(?:1[6-9]|2[0-9]|3[01])(?:\.\d{1,3}){2}(?::\d{1,5})?\b`),
		regexp.MustCompile(`\b192\.168(?:\.\d{1,3}){2}(?::\d{1,5})?\b`),
	}
	credentialPattern = regexp.MustCompile(`(?i)(password|secret|token|key|credential|auth)[:=]\s*["']?[^"'\s]+["']?`)
	bearerPattern     = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9\-._~+/]+=*`)
	controlCharacters = regexp.MustCompile(`[\x00-\x1F\x7F]`)
)

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Message string `json:"message" example:"indicators.0.riskLevel is invalid"`
	Kind    string `json:"kind" example:"validation"`
	Path    string `json:"path,omitempty" example:"indicators.0.riskLevel"`
}

// sanitizeErrorMessage removes sensitive information from error messages before sending to clients
func sanitizeErrorMessage(message string) string {
	message = connectionStringPattern.ReplaceAllString(message, "[DATABASE_CONNECTION]")
	message = filePathPattern.ReplaceAllStringFunc(message, func(match string) string {
		if strings.HasPrefix(match, " ") || strings.HasPrefix(match, "\t") || strings.HasPrefix(match, "\n") {
			return match[:1] + "[FILE_PATH]"
		}
		return "[FILE_PATH]"
	})
	for _, pattern := range privateIPPatterns {
		message = pattern.ReplaceAllString(message, "[PRIVATE_IP]")
	}
	message = bearerPattern.ReplaceAllString(message, "Bearer [REDACTED]")
	message = credentialPattern.ReplaceAllString(message, "$1=[REDACTED]")

	if len(message) > core.MaxErrorMessageLength {
		message = message[:core.MaxErrorMessageLength-3] + "..."
	}
	return message
}

// sanitizeLogMessage strips control characters and credentials from values headed for the log
func sanitizeLogMessage(message string) string {
	message = strings.ReplaceAll(message, "\n", "\\n")
	message = strings.ReplaceAll(message, "\r", "\\r")
	message = strings.ReplaceAll(message, "\t", "\\t")
	message = controlCharacters.ReplaceAllString(message, "")
	message = bearerPattern.ReplaceAllString(message, "Bearer [REDACTED]")
	message = credentialPattern.ReplaceAllString(message, "$1=[REDACTED]")
	return connectionStringPattern.ReplaceAllString(message, "[DB_CONNECTION]")
}

// kindForStatus names the error category of a plain HTTP failure
func kindForStatus(status int) core.Kind {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return core.KindValidation
	case http.StatusUnauthorized:
		return core.KindUnauthorized
	case http.StatusForbidden:
		return core.KindForbidden
	case http.StatusNotFound:
		return core.KindNotFound
	case http.StatusBadGateway:
		return core.KindUpstream
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		return core.KindInternal
	}
}

// writeError writes an error response to the client and logs it with proper sanitization
func writeError(w http.ResponseWriter, statusCode int, message string, err error, logger *zap.SugaredLogger) {
	if logger != nil {
		if err != nil {
			logger.Errorw(message, "error", err.Error(), "status_code", statusCode)
		} else {
			logger.Errorw(message, "status_code", statusCode)
		}
	}

	respondJSON(w, ErrorResponse{
		Message: sanitizeErrorMessage(message),
		Kind:    string(kindForStatus(statusCode)),
	}, statusCode)
}

// statusForError maps the core error taxonomy onto HTTP status codes
func statusForError(err error) int {
	var coreErr *core.Error
	if !errors.As(err, &coreErr) {
		return http.StatusInternalServerError
	}

	switch coreErr.Kind {
	case core.KindValidation:
		if coreErr.Upstream {
			return http.StatusBadGateway
		}
		return http.StatusBadRequest
	case core.KindUpstream:
		return http.StatusBadGateway
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindForbidden:
		return http.StatusForbidden
	case core.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError replies with the status and sanitized message for an error
// returned by a service. The full error is logged with the request ID.
func (a *API) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	resp := ErrorResponse{
		Message: "Internal server error",
		Kind:    string(core.KindOf(err)),
	}

	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		resp.Path = coreErr.Path
		resp.Message = coreErr.Msg
		// upstream failures carry the upstream's own message
		if coreErr.Kind == core.KindUpstream && coreErr.Err != nil {
			resp.Message = fmt.Sprintf("%s: %v", coreErr.Msg, coreErr.Err)
		}
		if resp.Message == "" {
			resp.Message = http.StatusText(status)
		}
	}
	resp.Message = sanitizeErrorMessage(resp.Message)

	logger := LogWithRequestID(r.Context(), a.logger)
	if start, ok := GetTraceStart(r.Context()); ok {
		logger = logger.With("elapsed_ms", time.Since(start).Milliseconds())
	}
	if status >= http.StatusInternalServerError {
		logger.Errorw("Request failed", "error", err.Error(), "status_code", status, "path", r.URL.Path)
	} else {
		logger.Warnw("Request rejected", "error", err.Error(), "status_code", status, "path", r.URL.Path)
	}

	respondJSON(w, resp, status)
}

// respondJSON writes data as a JSON response
func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSONBodyWithLimit decodes a JSON request body with a size limit.
// Decoding failures come back as validation errors.
func (a *API) decodeJSONBodyWithLimit(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	const op = "api.decodeJSONBody"

	maxBytes := a.config.API.JSONBodyLimit
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	decoder := json.NewDecoder(r.Body)

	err := decoder.Decode(dst)
	if err == nil {
		return nil
	}

	var syntaxError *json.SyntaxError
	var unmarshalTypeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError

	switch {
	case errors.As(err, &syntaxError):
		return core.NewValidationError(op, fmt.Sprintf("Invalid JSON syntax at byte offset %d", syntaxError.Offset), core.RootPath)
	case errors.As(err, &unmarshalTypeError):
		return core.NewValidationError(op,
			fmt.Sprintf("Invalid type for field '%s': expected %s, got %s", unmarshalTypeError.Field, unmarshalTypeError.Type, unmarshalTypeError.Value),
			unmarshalTypeError.Field)
	case errors.As(err, &maxBytesError):
		return core.NewValidationError(op, "Request body too large", core.RootPath)
	default:
		return core.NewValidationError(op, "Invalid JSON body", core.RootPath)
	}
}

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateRequest runs struct validation and converts failures into a validation
// error whose path is the first failing field.
func (a *API) validateRequest(op string, req interface{}) error {
	err := a.validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return core.NewValidationError(op, "invalid request", core.RootPath)
	}

	details := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		details = append(details, fmt.Sprintf("%s: failed %s validation", fieldPath(fe), fe.Tag()))
	}
	first := fieldPath(fieldErrors[0])
	return core.NewValidationError(op, first+" is invalid", first, details...)
}

// fieldPath turns "GenerateSearchesRequest.indicators[0].riskLevel" into "indicators.0.riskLevel"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	ns = strings.ReplaceAll(ns, "[", ".")
	return strings.ReplaceAll(ns, "]", "")
}

// parseIDParam reads a positive integer id from the route
func parseIDParam(r *http.Request, op string) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, core.NewValidationError(op, "id must be a positive integer", "id")
	}
	return id, nil
}

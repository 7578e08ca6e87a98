// Package errors provides structured error types for Flowline.
// It implements error classification, wrapping, and recovery detection.
package errors

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Kind represents the category of an error.
type Kind uint8

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown Kind = iota
	// KindPrecondition indicates a failed precondition check. The operator
	// must fix the branch or version state before the run can be retried.
	KindPrecondition
	// KindAlreadyExists indicates a tag or branch collision. Recoverable
	// through the recovery commands, never auto-resolved by overwriting.
	KindAlreadyExists
	// KindConflict indicates a merge or cherry-pick conflict.
	KindConflict
	// KindPublish indicates a failure reported by the publish gateway.
	KindPublish
	// KindDescriptor indicates a missing or malformed version descriptor.
	KindDescriptor
	// KindGit indicates a git operation error.
	KindGit
	// KindConfig indicates a configuration error.
	KindConfig
	// KindValidation indicates a validation error.
	KindValidation
	// KindNotFound indicates a resource was not found.
	KindNotFound
	// KindTimeout indicates a timeout. For publish operations this means
	// the outcome is unknown, not that the publish failed.
	KindTimeout
	// KindLock indicates the run lock is held by another process.
	KindLock
	// KindInternal indicates an internal error.
	KindInternal
)

// String returns a human-readable string for the error kind.
func (k Kind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindAlreadyExists:
		return "already_exists"
	case KindConflict:
		return "conflict"
	case KindPublish:
		return "publish"
	case KindDescriptor:
		return "descriptor"
	case KindGit:
		return "git"
	case KindConfig:
		return "configuration"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindTimeout:
		return "timeout"
	case KindLock:
		return "lock"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the standard error type for Flowline.
type Error struct {
	// Kind is the category of the error.
	Kind Kind
	// Op is the operation being performed when the error occurred.
	Op string
	// Message is a human-readable error message.
	Message string
	// Err is the underlying error.
	Err error
	// Recoverable indicates if the error can be recovered from via the
	// manual recovery commands without repeating completed side effects.
	Recoverable bool
	// Details contains additional context about the error.
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches this error.
// For *Error types, it checks if both the Kind and Op match.
// For sentinel errors (errors without Op), only Kind is compared.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	// If target has no Op, match by Kind only (sentinel error pattern)
	if t.Op == "" {
		return e.Kind == t.Kind
	}
	return e.Kind == t.Kind && e.Op == t.Op
}

// WithDetails adds details to the error and returns the modified error.
func (e *Error) WithDetails(details map[string]any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail adds a single detail to the error and returns the modified error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// ConflictingPaths returns the list of conflicting paths recorded on a
// conflict error, or nil if none were recorded.
func (e *Error) ConflictingPaths() []string {
	if e.Details == nil {
		return nil
	}
	if paths, ok := e.Details["paths"].([]string); ok {
		return paths
	}
	return nil
}

// New creates a new Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
	}
}

// Newf creates a new Error with the given kind and formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, kind Kind, op string, message string) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, kind Kind, op string, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// GetKind returns the Kind of an error.
// If the error is not an *Error, it returns KindUnknown.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRecoverable returns true if the error is recoverable.
func IsRecoverable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Recoverable
	}
	return false
}

// IsKind checks if an error is of a specific kind.
func IsKind(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// Common error constructors for frequently used error types.

// Precondition creates a precondition error.
func Precondition(op, message string) *Error {
	return &Error{
		Kind:    KindPrecondition,
		Op:      op,
		Message: message,
	}
}

// PreconditionWrap wraps an error as a precondition error.
func PreconditionWrap(err error, op, message string) *Error {
	return Wrap(err, KindPrecondition, op, message)
}

// AlreadyExists creates an already-exists error. It is marked recoverable
// because an operator can resume past the colliding step.
func AlreadyExists(op, message string) *Error {
	return &Error{
		Kind:        KindAlreadyExists,
		Op:          op,
		Message:     message,
		Recoverable: true,
	}
}

// Conflict creates a conflict error carrying the conflicting paths.
func Conflict(op, message string, paths []string) *Error {
	e := &Error{
		Kind:    KindConflict,
		Op:      op,
		Message: message,
	}
	if len(paths) > 0 {
		e = e.WithDetail("paths", paths)
	}
	return e
}

// Publish creates a publish error.
func Publish(op, message string) *Error {
	return &Error{
		Kind:    KindPublish,
		Op:      op,
		Message: message,
	}
}

// PublishWrap wraps an error as a publish error.
func PublishWrap(err error, op, message string) *Error {
	return Wrap(err, KindPublish, op, message)
}

// Descriptor creates a descriptor error.
func Descriptor(op, message string) *Error {
	return &Error{
		Kind:    KindDescriptor,
		Op:      op,
		Message: message,
	}
}

// DescriptorWrap wraps an error as a descriptor error.
func DescriptorWrap(err error, op, message string) *Error {
	return Wrap(err, KindDescriptor, op, message)
}

// Git creates a git operation error.
func Git(op, message string) *Error {
	return &Error{
		Kind:    KindGit,
		Op:      op,
		Message: message,
	}
}

// GitWrap wraps an error as a git error.
func GitWrap(err error, op, message string) *Error {
	return Wrap(err, KindGit, op, message)
}

// Config creates a configuration error.
func Config(op, message string) *Error {
	return &Error{
		Kind:    KindConfig,
		Op:      op,
		Message: message,
	}
}

// ConfigWrap wraps an error as a configuration error.
func ConfigWrap(err error, op, message string) *Error {
	return Wrap(err, KindConfig, op, message)
}

// Validation creates a validation error.
func Validation(op, message string) *Error {
	return &Error{
		Kind:        KindValidation,
		Op:          op,
		Message:     message,
		Recoverable: true,
	}
}

// ValidationWrap wraps an error as a validation error.
func ValidationWrap(err error, op, message string) *Error {
	e := Wrap(err, KindValidation, op, message)
	e.Recoverable = true
	return e
}

// NotFound creates a not found error.
func NotFound(op, message string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Op:      op,
		Message: message,
	}
}

// NotFoundWrap wraps an error as a not found error.
func NotFoundWrap(err error, op, message string) *Error {
	return Wrap(err, KindNotFound, op, message)
}

// Timeout creates a timeout error.
func Timeout(op, message string) *Error {
	return &Error{
		Kind:        KindTimeout,
		Op:          op,
		Message:     message,
		Recoverable: true,
	}
}

// TimeoutWrap wraps an error as a timeout error.
func TimeoutWrap(err error, op, message string) *Error {
	e := Wrap(err, KindTimeout, op, message)
	e.Recoverable = true
	return e
}

// Lock creates a lock error.
func Lock(op, message string) *Error {
	return &Error{
		Kind:    KindLock,
		Op:      op,
		Message: message,
	}
}

// Internal creates an internal error.
func Internal(op, message string) *Error {
	return &Error{
		Kind:    KindInternal,
		Op:      op,
		Message: message,
	}
}

// InternalWrap wraps an error as an internal error.
func InternalWrap(err error, op, message string) *Error {
	return Wrap(err, KindInternal, op, message)
}

// Sensitive data redaction patterns.
// These match credentials that flow through publish requests and remote
// URLs and must never appear in error messages or run reports.
var sensitivePatterns = []*regexp.Regexp{
	// GitHub tokens: ghp_..., gho_..., ghs_..., ghr_...
	regexp.MustCompile(`\bgh[posh]_[a-zA-Z0-9]{36,}\b`),
	// GitLab personal access tokens
	regexp.MustCompile(`\bglpat-[a-zA-Z0-9_-]{20,}\b`),
	// Repository manager credentials passed as -D properties
	regexp.MustCompile(`-D[a-zA-Z.]*(?:password|token)=\S+`),
	// Generic bearer tokens
	regexp.MustCompile(`\bBearer\s+[a-zA-Z0-9_-]{20,}\b`),
	// Basic auth with password in URL
	regexp.MustCompile(`://[^:/]+:[^@]+@`),
}

// RedactSensitive removes sensitive information from an error message.
func RedactSensitive(s string) string {
	result := s
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, "[REDACTED]")
	}
	return result
}

// RedactError creates a new error with sensitive data redacted from its
// message. If the error is nil, returns nil.
func RedactError(err error) error {
	if err == nil {
		return nil
	}
	redacted := RedactSensitive(err.Error())
	if redacted == err.Error() {
		return err
	}
	return fmt.Errorf("%s", redacted)
}

// WrapSafe wraps an error with sensitive data redacted. Use this for
// errors that may carry publish credentials or authenticated remote URLs.
func WrapSafe(err error, kind Kind, op, message string) *Error {
	if err == nil {
		return &Error{
			Kind:    kind,
			Op:      op,
			Message: message,
		}
	}
	return Wrap(RedactError(err), kind, op, message)
}

// IsSensitive checks if a string contains sensitive patterns.
func IsSensitive(s string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return strings.Contains(s, "api_key") ||
		strings.Contains(s, "secret") ||
		strings.Contains(s, "password") ||
		strings.Contains(s, "token")
}

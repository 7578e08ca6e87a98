package git

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"

	flerrors "github.com/relicta-tech/flowline/internal/errors"
)

// RetryConfig configures retries for remote git operations. Pushes and
// fetches are safe to repeat; nothing else in this package is retried.
type RetryConfig struct {
	Attempts    int
	InitialWait time.Duration
	MaxWait     time.Duration
}

// DefaultRetryConfig returns the default remote retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:    3,
		InitialWait: time.Second,
		MaxWait:     15 * time.Second,
	}
}

// ResilientService decorates a Service with retries on remote operations.
type ResilientService struct {
	Service
	retrier retry.Retry[struct{}]
}

// NewResilientService wraps svc with remote retry behavior.
func NewResilientService(svc Service, cfg RetryConfig) *ResilientService {
	if cfg.Attempts <= 0 {
		cfg = DefaultRetryConfig()
	}
	return &ResilientService{
		Service: svc,
		retrier: retry.New[struct{}](retry.Config{
			MaxAttempts:   cfg.Attempts,
			InitialDelay:  cfg.InitialWait,
			MaxDelay:      cfg.MaxWait,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    2.0,
			Jitter:        true,
			IsRetryable:   isRetryableRemoteError,
		}),
	}
}

// Push retries transient remote failures.
func (r *ResilientService) Push(ctx context.Context, opts PushOptions) error {
	_, err := r.retrier.Do(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.Service.Push(ctx, opts)
	})
	return err
}

// PushTag retries transient remote failures.
func (r *ResilientService) PushTag(ctx context.Context, name string, opts PushOptions) error {
	_, err := r.retrier.Do(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.Service.PushTag(ctx, name, opts)
	})
	return err
}

// Fetch retries transient remote failures.
func (r *ResilientService) Fetch(ctx context.Context, opts FetchOptions) error {
	_, err := r.retrier.Do(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.Service.Fetch(ctx, opts)
	})
	return err
}

// isRetryableRemoteError reports whether a remote failure is transient.
func isRetryableRemoteError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// Rejections are deterministic; retrying cannot help.
	if flerrors.IsKind(err, flerrors.KindAlreadyExists) {
		return false
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "authentication") ||
		strings.Contains(errStr, "authorization") ||
		strings.Contains(errStr, "non-fast-forward") ||
		strings.Contains(errStr, "rejected") {
		return false
	}

	if strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "temporary") ||
		strings.Contains(errStr, "unreachable") ||
		strings.Contains(errStr, "reset by peer") {
		return true
	}

	return true
}

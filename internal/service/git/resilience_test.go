package git

import (
	"context"
	"errors"
	"testing"
	"time"

	flerrors "github.com/relicta-tech/flowline/internal/errors"
)

// fakeRemoteService counts remote calls and fails a configured number of
// times before succeeding.
type fakeRemoteService struct {
	Service
	failures int
	calls    int
	err      error
}

func (f *fakeRemoteService) Push(_ context.Context, _ PushOptions) error {
	f.calls++
	if f.calls <= f.failures {
		return f.err
	}
	return nil
}

func (f *fakeRemoteService) PushTag(ctx context.Context, _ string, opts PushOptions) error {
	return f.Push(ctx, opts)
}

func (f *fakeRemoteService) Fetch(_ context.Context, _ FetchOptions) error {
	f.calls++
	if f.calls <= f.failures {
		return f.err
	}
	return nil
}

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:    3,
		InitialWait: time.Millisecond,
		MaxWait:     5 * time.Millisecond,
	}
}

func TestResilientPushRetriesTransientErrors(t *testing.T) {
	fake := &fakeRemoteService{failures: 2, err: errors.New("connection reset by peer")}
	svc := NewResilientService(fake, fastRetryConfig())

	if err := svc.Push(context.Background(), DefaultPushOptions()); err != nil {
		t.Fatalf("expected push to succeed after retries, got %v", err)
	}
	if fake.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", fake.calls)
	}
}

func TestResilientPushGivesUp(t *testing.T) {
	fake := &fakeRemoteService{failures: 10, err: errors.New("connection timeout")}
	svc := NewResilientService(fake, fastRetryConfig())

	if err := svc.Push(context.Background(), DefaultPushOptions()); err == nil {
		t.Fatal("expected push to fail after exhausting retries")
	}
	if fake.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", fake.calls)
	}
}

func TestResilientPushDoesNotRetryRejections(t *testing.T) {
	fake := &fakeRemoteService{
		failures: 10,
		err:      errors.New("remote rejected refs/heads/main (non-fast-forward)"),
	}
	svc := NewResilientService(fake, fastRetryConfig())

	if err := svc.Push(context.Background(), DefaultPushOptions()); err == nil {
		t.Fatal("expected rejected push to fail")
	}
	if fake.calls != 1 {
		t.Fatalf("expected a single attempt for a rejection, got %d", fake.calls)
	}
}

func TestResilientFetchRetries(t *testing.T) {
	fake := &fakeRemoteService{failures: 1, err: errors.New("temporary failure in name resolution")}
	svc := NewResilientService(fake, fastRetryConfig())

	if err := svc.Fetch(context.Background(), DefaultFetchOptions()); err != nil {
		t.Fatalf("expected fetch to succeed after retry, got %v", err)
	}
	if fake.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", fake.calls)
	}
}

func TestIsRetryableRemoteError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"auth failure", errors.New("authentication required"), false},
		{"non fast forward", errors.New("non-fast-forward update"), false},
		{"already exists", flerrors.AlreadyExists("git.PushTag", "tag exists"), false},
		{"connection refused", errors.New("connection refused"), true},
		{"timeout", errors.New("i/o timeout"), true},
		{"unknown", errors.New("remote hung up unexpectedly"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableRemoteError(tt.err); got != tt.retryable {
				t.Errorf("isRetryableRemoteError(%v) = %v, want %v", tt.err, got, tt.retryable)
			}
		})
	}
}

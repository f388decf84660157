package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/qolzam/telar/apps/recaptcha/internal/recaptcha"
)

// VerifyCall is one recorded call to FakeRecaptchaVerifier.
type VerifyCall struct {
	Token    string
	RemoteIP string
}

// FakeRecaptchaVerifier is a test-only implementation of the recaptcha.Verifier interface.
type FakeRecaptchaVerifier struct {
	// ShouldSucceed controls the verification outcome.
	ShouldSucceed bool
	// Hostname is reported on every response.
	Hostname string
	// ErrorCodes are reported on failed responses.
	ErrorCodes []string
	// Err, when set, is returned instead of a response.
	Err error
	// ExpectedToken can be used to assert that a specific token was passed.
	ExpectedToken string
	// Responses overrides the outcome for specific tokens.
	Responses map[string]*recaptcha.Response

	mu    sync.Mutex
	calls []VerifyCall
}

// Verify implements the recaptcha.Verifier interface for tests.
func (f *FakeRecaptchaVerifier) Verify(ctx context.Context, token, remoteIP string) (*recaptcha.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, VerifyCall{Token: token, RemoteIP: remoteIP})
	f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	if resp, ok := f.Responses[token]; ok {
		return resp, nil
	}
	if f.ExpectedToken != "" && f.ExpectedToken != token {
		return nil, fmt.Errorf("received unexpected recaptcha token. Got '%s', want '%s'", token, f.ExpectedToken)
	}
	if f.ShouldSucceed {
		return &recaptcha.Response{Success: true, Hostname: f.Hostname}, nil
	}
	return &recaptcha.Response{Hostname: f.Hostname, ErrorCodes: f.ErrorCodes}, nil
}

// Calls returns the recorded calls.
func (f *FakeRecaptchaVerifier) Calls() []VerifyCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]VerifyCall(nil), f.calls...)
}

// LastCall returns the most recent call, or a zero value when none happened.
func (f *FakeRecaptchaVerifier) LastCall() VerifyCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return VerifyCall{}
	}
	return f.calls[len(f.calls)-1]
}

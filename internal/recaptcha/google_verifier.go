package recaptcha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/qolzam/telar/apps/recaptcha/internal/types"
)

const (
	DefaultAPIHost = "www.google.com"
	DefaultTimeout = 5 * time.Second

	siteVerifyPath = "/recaptcha/api/siteverify"
)

// googleVerifier calls the siteverify endpoint.
type googleVerifier struct {
	secretKey  string
	endpoint   string
	httpClient *http.Client

	expectedHostname string
	expectedAction   string
	scoreThreshold   float64
	challengeTimeout time.Duration

	now func() time.Time
}

// GoogleOption customizes the verifier built by NewGoogleVerifier.
type GoogleOption func(*googleVerifier)

// WithAPIHost selects the siteverify host, e.g. www.recaptcha.net where
// www.google.com is unreachable.
func WithAPIHost(host string) GoogleOption {
	return func(v *googleVerifier) {
		if host != "" {
			v.endpoint = "https://" + host + siteVerifyPath
		}
	}
}

// WithEndpoint overrides the full siteverify URL.
func WithEndpoint(endpoint string) GoogleOption {
	return func(v *googleVerifier) {
		if endpoint != "" {
			v.endpoint = endpoint
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) GoogleOption {
	return func(v *googleVerifier) {
		if c != nil {
			v.httpClient = c
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) GoogleOption {
	return func(v *googleVerifier) {
		if d > 0 {
			v.httpClient.Timeout = d
		}
	}
}

// WithExpectedHostname rejects solutions issued for another hostname.
func WithExpectedHostname(hostname string) GoogleOption {
	return func(v *googleVerifier) { v.expectedHostname = hostname }
}

// WithExpectedAction rejects v3 tokens issued for another action.
func WithExpectedAction(action string) GoogleOption {
	return func(v *googleVerifier) { v.expectedAction = action }
}

// WithScoreThreshold rejects v3 tokens scoring below threshold. Zero disables the check.
func WithScoreThreshold(threshold float64) GoogleOption {
	return func(v *googleVerifier) { v.scoreThreshold = threshold }
}

// WithChallengeTimeout rejects solutions older than d. Zero disables the check.
func WithChallengeTimeout(d time.Duration) GoogleOption {
	return func(v *googleVerifier) { v.challengeTimeout = d }
}

// NewGoogleVerifier creates a new production-ready verifier.
func NewGoogleVerifier(secretKey string, opts ...GoogleOption) (Verifier, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("recaptcha secret key cannot be empty")
	}
	v := &googleVerifier{
		secretKey:  secretKey,
		endpoint:   "https://" + DefaultAPIHost + siteVerifyPath,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

type googleResponse struct {
	Success        bool     `json:"success"`
	ChallengeTS    string   `json:"challenge_ts"`
	Hostname       string   `json:"hostname"`
	APKPackageName string   `json:"apk_package_name"`
	Score          float64  `json:"score"`
	Action         string   `json:"action"`
	ErrorCodes     []string `json:"error-codes"`
}

func (v *googleVerifier) Verify(ctx context.Context, token, remoteIP string) (*Response, error) {
	if token == "" {
		return &Response{ErrorCodes: []string{ErrCodeMissingInputResponse}}, nil
	}

	formData := url.Values{
		"secret":   {v.secretKey},
		"response": {token},
	}
	if remoteIP != "" {
		formData.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(formData.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create recaptcha request: %w", err)
	}
	req.Header.Set(types.HeaderContentType, "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", ErrBadResponse, resp.StatusCode)
	}

	var googleResp googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&googleResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	result := &Response{
		Success:        googleResp.Success,
		Hostname:       googleResp.Hostname,
		APKPackageName: googleResp.APKPackageName,
		Score:          googleResp.Score,
		Action:         googleResp.Action,
		ErrorCodes:     googleResp.ErrorCodes,
	}
	if googleResp.ChallengeTS != "" {
		if ts, err := time.Parse(time.RFC3339, googleResp.ChallengeTS); err == nil {
			result.ChallengeTS = ts
		}
	}

	if result.Success {
		v.applyLocalChecks(result)
	}
	return result, nil
}

// applyLocalChecks turns a successful response into a failure when one of
// the configured expectations does not hold.
func (v *googleVerifier) applyLocalChecks(r *Response) {
	var failures []string

	if v.expectedHostname != "" && !strings.EqualFold(v.expectedHostname, r.Hostname) {
		failures = append(failures, ErrCodeHostnameMismatch)
	}
	if v.expectedAction != "" && v.expectedAction != r.Action {
		failures = append(failures, ErrCodeActionMismatch)
	}
	if v.scoreThreshold > 0 && r.Score < v.scoreThreshold {
		failures = append(failures, ErrCodeScoreThresholdNotMet)
	}
	if v.challengeTimeout > 0 {
		if r.ChallengeTS.IsZero() || v.now().Sub(r.ChallengeTS) > v.challengeTimeout {
			failures = append(failures, ErrCodeChallengeTimeout)
		}
	}

	if len(failures) > 0 {
		r.Success = false
		r.ErrorCodes = append(r.ErrorCodes, failures...)
	}
}

package idp

// Package idp wraps the external identity provider's administrative and
// authentication API. Every outbound call carries the configured timeout.
// Idempotent reads retry on transport failures and 5xx responses; mutating
// calls retry only when the provider explicitly reports throttling.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	domainauth "github.com/edbridge/portal-api/internal/domain/auth"
	"github.com/edbridge/portal-api/internal/observability/metrics"
	"github.com/edbridge/portal-api/internal/observability/statsd"
	"github.com/edbridge/portal-api/internal/ports"
	"github.com/golang-jwt/jwt/v5"
)

// Config holds configuration for the IdP client.
type Config struct {
	// AdminBaseURL hosts user management operations.
	AdminBaseURL string
	// AuthBaseURL hosts authentication operations. Defaults to AdminBaseURL.
	AuthBaseURL string
	// Timeout bounds each outbound call. Default 5s.
	Timeout time.Duration
	// HTTPClient is optional and defaults to http.DefaultClient.
	HTTPClient *http.Client
	// Logger is optional.
	Logger *slog.Logger
	// Metrics is optional.
	Metrics statsd.Sink
}

// Client implements ports.IdentityProvider over the IdP's JSON HTTP API.
type Client struct {
	adminBase  string
	authBase   string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	metrics    statsd.Sink
}

var _ ports.IdentityProvider = (*Client)(nil)

// NewClient creates an IdP client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.AdminBaseURL == "" {
		return nil, errors.New("idp: admin base URL is required")
	}
	authBase := cfg.AuthBaseURL
	if authBase == "" {
		authBase = cfg.AdminBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		adminBase:  strings.TrimSuffix(cfg.AdminBaseURL, "/"),
		authBase:   strings.TrimSuffix(authBase, "/"),
		timeout:    timeout,
		httpClient: client,
		logger:     logger,
		metrics:    cfg.Metrics,
	}, nil
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	Subject string   `json:"subject"`
	Email   string   `json:"email"`
	Groups  []string `json:"groups"`
}

// CreateUser ensures the user exists at the IdP. UsernameExists is not a
// failure: the existing record is looked up and returned so callers can
// continue to set the password and group membership ("ensure user exists in
// desired state" semantics).
func (c *Client) CreateUser(ctx context.Context, in ports.CreateUserInput) (ports.ProvisionedUser, error) {
	var out userResponse
	err := c.mutate(ctx, "create_user", c.adminBase+"/users", createUserRequest{Email: in.Email, Password: in.Password}, &out)
	if err != nil {
		if !domainauth.IsProviderError(err, domainauth.ProviderErrUsernameExists) {
			return ports.ProvisionedUser{}, err
		}
		existing, lookupErr := c.getUserByEmail(ctx, in.Email)
		if lookupErr != nil {
			return ports.ProvisionedUser{}, fmt.Errorf("lookup existing user: %w", lookupErr)
		}
		out = existing
	}
	return ports.ProvisionedUser{Subject: out.Subject, Email: out.Email, Group: in.Group}, nil
}

type setPasswordRequest struct {
	Password  string `json:"password"`
	Permanent bool   `json:"permanent"`
}

// SetPermanentPassword marks the credential permanent so the account is
// immediately usable without a forced password change.
func (c *Client) SetPermanentPassword(ctx context.Context, subject, password string) error {
	url := c.adminBase + "/users/" + subject + "/password"
	return c.mutate(ctx, "set_password", url, setPasswordRequest{Password: password, Permanent: true}, nil)
}

type addToGroupRequest struct {
	Group string `json:"group"`
}

// AddToGroup attaches the subject to an IdP group.
func (c *Client) AddToGroup(ctx context.Context, subject, group string) error {
	url := c.adminBase + "/users/" + subject + "/groups"
	return c.mutate(ctx, "add_to_group", url, addToGroupRequest{Group: group}, nil)
}

// GetUser fetches the IdP user record by subject. As an idempotent read it
// retries transport failures and 5xx responses with bounded backoff.
func (c *Client) GetUser(ctx context.Context, subject string) (ports.ProvisionedUser, error) {
	var out userResponse
	err := withRetry(ctx, c.readPolicy("get_user"), func() error {
		return c.do(ctx, http.MethodGet, c.adminBase+"/users/"+subject, nil, &out)
	})
	if err != nil {
		return ports.ProvisionedUser{}, err
	}
	group := ""
	if len(out.Groups) > 0 {
		group = out.Groups[0]
	}
	return ports.ProvisionedUser{Subject: out.Subject, Email: out.Email, Group: group}, nil
}

func (c *Client) getUserByEmail(ctx context.Context, email string) (userResponse, error) {
	var out userResponse
	err := withRetry(ctx, c.readPolicy("get_user_by_email"), func() error {
		return c.do(ctx, http.MethodGet, c.adminBase+"/users?email="+email, nil, &out)
	})
	return out, err
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	IDToken      string `json:"id_token"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (t tokenResponse) toTokenSet() domainauth.TokenSet {
	return domainauth.TokenSet{
		IDToken:      t.IDToken,
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(t.ExpiresIn) * time.Second),
	}
}

// Login authenticates with email and password. When RequiredGroup is set,
// authentication alone is insufficient: the returned id token must assert
// membership in that group, otherwise the call fails with NotAuthorized even
// though the password was correct. This keeps a student credential from being
// accepted on a corporate-only login surface.
func (c *Client) Login(ctx context.Context, in ports.LoginInput) (domainauth.TokenSet, error) {
	var out tokenResponse
	err := c.mutate(ctx, "login", c.authBase+"/login", loginRequest{Email: in.Email, Password: in.Password}, &out)
	if err != nil {
		return domainauth.TokenSet{}, err
	}

	if in.RequiredGroup != "" {
		groups, err := tokenGroups(out.IDToken)
		if err != nil {
			return domainauth.TokenSet{}, fmt.Errorf("inspect id token groups: %w", err)
		}
		if !containsGroup(groups, in.RequiredGroup) {
			return domainauth.TokenSet{}, &domainauth.ProviderError{
				Name:    domainauth.ProviderErrNotAuthorized,
				Message: "account is not a member of the required group",
			}
		}
	}
	return out.toTokenSet(), nil
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a refresh token for fresh id and access tokens. The
// provider does not rotate refresh tokens, so the returned set carries none.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (domainauth.TokenSet, error) {
	var out tokenResponse
	if err := c.mutate(ctx, "refresh", c.authBase+"/refresh", refreshRequest{RefreshToken: refreshToken}, &out); err != nil {
		return domainauth.TokenSet{}, err
	}
	out.RefreshToken = ""
	return out.toTokenSet(), nil
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword starts the password recovery flow.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.mutate(ctx, "forgot_password", c.authBase+"/forgot-password", forgotPasswordRequest{Email: email}, nil)
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// ResetPassword completes password recovery with the emailed code.
func (c *Client) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	return c.mutate(ctx, "reset_password", c.authBase+"/reset-password", resetPasswordRequest{
		Email:       email,
		Code:        code,
		NewPassword: newPassword,
	}, nil)
}

type logoutRequest struct {
	AccessToken string `json:"access_token"`
}

// Logout performs a global sign-out, revoking all outstanding tokens for the
// user behind the access token.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	return c.mutate(ctx, "logout", c.authBase+"/logout", logoutRequest{AccessToken: accessToken}, nil)
}

// mutate POSTs body to url. Retries happen only when the provider reports a
// throttled request; other failures must not be replayed blindly to avoid
// duplicate side effects. The call itself runs on a context detached from the
// caller's cancellation: once a mutation is issued it is allowed to complete,
// otherwise the provider and local state disagree about whether the change
// happened. The per-call timeout still bounds each attempt.
func (c *Client) mutate(ctx context.Context, operation, url string, body, out any) error {
	callCtx := context.WithoutCancel(ctx)
	return withRetry(ctx, c.mutatePolicy(operation), func() error {
		return c.do(callCtx, http.MethodPost, url, body, out)
	})
}

// readPolicy and mutatePolicy attach retry accounting to the shared policies.
func (c *Client) readPolicy(operation string) retryPolicy {
	return defaultRetryPolicy.withRetryHook(func(err error) {
		metrics.EmitProviderRetry(c.metrics, operation, err)
	})
}

func (c *Client) mutatePolicy(operation string) retryPolicy {
	return throttleOnlyRetryPolicy.withRetryHook(func(err error) {
		metrics.EmitProviderRetry(c.metrics, operation, err)
	})
}

// errorResponse is the provider's error envelope.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, url string, body, out any) error {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(callCtx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &transportError{cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &transportError{cause: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return providerErrorFrom(resp.StatusCode, data)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// providerErrorFrom maps a non-2xx response to a ProviderError. 5xx responses
// without a recognizable envelope become transport errors so idempotent reads
// can retry them.
func providerErrorFrom(status int, body []byte) error {
	var envelope errorResponse
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error == "" {
		if status >= http.StatusInternalServerError {
			return &transportError{cause: fmt.Errorf("provider returned status %d", status)}
		}
		return &domainauth.ProviderError{
			Name:    "UnknownError",
			Message: fmt.Sprintf("provider returned status %d", status),
		}
	}
	return &domainauth.ProviderError{
		Name:      envelope.Error,
		Message:   envelope.Message,
		Retryable: envelope.Error == domainauth.ProviderErrTooManyRequests,
	}
}

// tokenGroups reads the group claims from an id token without verifying the
// signature. The token was just received from the provider over TLS; full
// verification belongs to the request pipeline, not the login adapter.
func tokenGroups(rawIDToken string) ([]string, error) {
	var claims groupClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(rawIDToken, &claims); err != nil {
		return nil, err
	}
	return claims.Groups, nil
}

type groupClaims struct {
	jwt.RegisteredClaims
	Groups []string `json:"cognito:groups"`
}

func containsGroup(groups []string, want string) bool {
	for _, g := range groups {
		if g == want {
			return true
		}
	}
	return false
}

// Package restclient implements the webHDFS-style REST call layer: a fixed
// operation table, parameter validation, retried and circuit-broken HTTP
// dispatch, and status-code-to-StoreError mapping.
package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/adlsfs/adlsfs/internal/circuit"
	"github.com/adlsfs/adlsfs/pkg/errors"
	"github.com/adlsfs/adlsfs/pkg/health"
	"github.com/adlsfs/adlsfs/pkg/path"
	"github.com/adlsfs/adlsfs/pkg/retry"
	"github.com/adlsfs/adlsfs/pkg/types"
)

// healthComponent is the pkg/health.Tracker component name every Client
// registers itself under.
const healthComponent = "restclient"

const userAgent = "adlsfs-client/1.0"

// Config configures a Client.
type Config struct {
	BaseURL        string
	APIVersion     string
	MaxIdlePerHost int
	RequestTimeout time.Duration
	Retry          retry.Config
	BreakerEnabled bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:        baseURL,
		APIVersion:     "2018-09-01",
		MaxIdlePerHost: 1024,
		RequestTimeout: 60 * time.Second,
		Retry:          retry.DefaultConfig(),
		BreakerEnabled: true,
	}
}

// CallResult is the outcome of a successful Call.
type CallResult struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client dispatches webHDFS-style operations against one store endpoint.
type Client struct {
	cfg     Config
	token   types.TokenProvider
	pool    *pool
	retryer *retry.Retryer
	breaker *circuit.CircuitBreaker
	metrics types.MetricsCollector
	health  *health.Tracker
}

// New constructs a Client. token supplies request signing and is never
// implemented by this package. metrics is optional; a nil value disables
// instrumentation. Every Client registers itself with a fresh health.Tracker
// under the "restclient" component, recording a success or error on every
// completed Call; callers that want to observe it can share a Tracker
// across components by calling SetHealthTracker.
func New(cfg Config, token types.TokenProvider, metrics types.MetricsCollector) *Client {
	c := &Client{
		cfg:     cfg,
		token:   token,
		pool:    newPool(cfg.MaxIdlePerHost, cfg.RequestTimeout),
		retryer: retry.New(cfg.Retry),
		metrics: metrics,
		health:  health.NewTracker(health.DefaultConfig()),
	}
	c.health.RegisterComponent(healthComponent)
	if cfg.BreakerEnabled {
		c.breaker = circuit.NewCircuitBreaker("restclient", circuit.Config{
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts circuit.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
		})
	}
	return c
}

// SetHealthTracker registers the "restclient" component on t and makes t the
// Client's health.Tracker, letting callers aggregate restclient health
// alongside other components under one shared Tracker.
func (c *Client) SetHealthTracker(t *health.Tracker) {
	t.RegisterComponent(healthComponent)
	c.health = t
}

// HealthState returns the Client's current health.HealthState.
func (c *Client) HealthState() health.HealthState {
	return c.health.GetState(healthComponent)
}

// Call dispatches one operation against path p, validating params against
// the fixed operation table before any network activity.
func (c *Client) Call(ctx context.Context, op Op, p string, params Params) (*CallResult, error) {
	spec, err := validateParams(op, params)
	if err != nil {
		return nil, err
	}

	callID := uuid.New().String()
	attempt := 0
	var result *CallResult

	err = c.retryer.DoWithContext(ctx, func(ctx context.Context) error {
		attempt++
		res, callErr := c.doAttempt(ctx, spec, op, p, params, callID, attempt)
		if callErr != nil {
			return callErr
		}
		result = res
		return nil
	})
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordError(string(op), err)
		}
		c.health.RecordError(healthComponent, err)
		return nil, err
	}
	c.health.RecordSuccess(healthComponent)
	return result, nil
}

func (c *Client) doAttempt(ctx context.Context, spec opSpec, op Op, p string, params Params, callID string, attempt int) (*CallResult, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	headers, err := c.token.SignedHeaders(reqCtx)
	if err != nil {
		return nil, errors.NewError(errors.ErrCodeAuthenticationFailed, "failed to obtain signed headers").
			WithComponent("restclient").WithOperation(string(op)).WithCause(err)
	}

	reqURL, err := c.buildURL(op, p, params.Query)
	if err != nil {
		return nil, errors.NewError(errors.ErrCodeValidationFailed, "failed to build request URL").
			WithComponent("restclient").WithOperation(string(op)).WithCause(err)
	}

	var body io.Reader
	if params.Stream != nil {
		body = params.Stream
	} else if params.Data != nil {
		body = bytes.NewReader(params.Data)
	}

	req, err := http.NewRequestWithContext(reqCtx, string(spec.method), reqURL, body)
	if err != nil {
		return nil, errors.NewError(errors.ErrCodeInternalError, "failed to construct HTTP request").
			WithComponent("restclient").WithCause(err)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("x-ms-client-request-id", fmt.Sprintf("%s.%d", callID, attempt))

	client := c.pool.clientFor(headers["Authorization"])

	var result *CallResult
	exec := func() error {
		resp, doErr := client.Do(req)
		if doErr != nil {
			return errors.NewError(errors.ErrCodeConnectionFailed, "request transport failure").
				WithComponent("restclient").WithOperation(string(op)).WithCause(doErr)
		}
		defer resp.Body.Close()

		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return errors.NewError(errors.ErrCodeNetworkError, "failed to read response body").
				WithComponent("restclient").WithOperation(string(op)).WithCause(readErr)
		}

		mapErr := mapStatus(op, resp.StatusCode, respBody)
		if mapErr != nil {
			if resp.StatusCode == http.StatusUnauthorized {
				_ = c.token.Refresh(reqCtx)
			}
			return mapErr
		}

		result = &CallResult{StatusCode: resp.StatusCode, Header: resp.Header, Body: respBody}
		return nil
	}

	var execErr error
	if c.breaker != nil {
		execErr = c.breaker.Execute(exec)
	} else {
		execErr = exec()
	}

	if c.metrics != nil {
		size := int64(0)
		if result != nil {
			size = int64(len(result.Body))
		}
		c.metrics.RecordOperation(string(op), time.Since(start), size, execErr == nil)
	}

	if execErr != nil {
		return nil, execErr
	}
	return result, nil
}

func (c *Client) buildURL(op Op, p string, query map[string]string) (string, error) {
	clean := path.Clean(p)

	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", err
	}
	u.Path = singleJoiningSlash(u.Path, clean)

	q := u.Query()
	q.Set("OP", string(op))
	if c.cfg.APIVersion != "" {
		q.Set("api-version", c.cfg.APIVersion)
	}
	for k, v := range query {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func singleJoiningSlash(a, b string) string {
	if a == "" {
		return "/" + b
	}
	aslash := a[len(a)-1] == '/'
	bslash := len(b) > 0 && b[0] == '/'
	switch {
	case aslash && bslash:
		return a + b[1:]
	case !aslash && !bslash:
		return a + "/" + b
	default:
		return a + b
	}
}

// remoteException mirrors the error envelope the store wraps around non-2xx
// responses: {"RemoteException": {"exception": "...", "message": "..."}}.
type remoteException struct {
	RemoteException struct {
		Exception  string `json:"exception"`
		Message    string `json:"message"`
		JavaClass  string `json:"javaClassName"`
	} `json:"RemoteException"`
}

func mapStatus(op Op, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	var re remoteException
	_ = json.Unmarshal(body, &re)

	if re.RemoteException.Exception == "BadOffsetException" {
		return errors.NewError(errors.ErrCodeBadOffset, "append offset already applied by the store").
			WithComponent("restclient").WithOperation(string(op)).
			WithDetail("http_status", status)
	}

	base := errors.NewError(errors.ErrCodeOperationFailed, remoteMessage(re, status)).
		WithComponent("restclient").WithOperation(string(op)).
		WithDetail("http_status", status)

	switch status {
	case http.StatusForbidden:
		base.Code = errors.ErrCodePermissionDenied
		base.Category = errors.GetCategory(base.Code)
	case http.StatusNotFound:
		base.Code = errors.ErrCodeFileNotFound
		base.Category = errors.GetCategory(base.Code)
	}

	base.Retryable = isRetryableStatus(status)
	return base
}

func remoteMessage(re remoteException, status int) string {
	if re.RemoteException.Message != "" {
		return re.RemoteException.Message
	}
	return "store returned HTTP " + strconv.Itoa(status)
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	case http.StatusNotImplemented, http.StatusHTTPVersionNotSupported:
		return false
	}
	return status >= 500
}

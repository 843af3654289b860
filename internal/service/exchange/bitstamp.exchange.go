package exchange

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/krobus00/bitstamp-client/internal/config"
	"github.com/krobus00/bitstamp-client/internal/entity"
	"github.com/krobus00/bitstamp-client/internal/util"
	"github.com/sirupsen/logrus"
)

const (
	bitstampDefaultBaseURL = "https://www.bitstamp.net/api"
	bitstampDefaultTimeout = 15 * time.Second
)

var _ entity.Exchange = (*BitstampExchange)(nil)

type BitstampExchange struct {
	apiKey     string
	apiSecret  string
	customerID string
	baseURL    string
	httpClient *http.Client
	nonce      *nonceGenerator
}

type BitstampOption func(e *BitstampExchange)

func WithHTTPClient(client *http.Client) BitstampOption {
	return func(e *BitstampExchange) {
		if client != nil {
			e.httpClient = client
		}
	}
}

// WithClock replaces the wall clock used for nonces.
func WithClock(clock func() time.Time) BitstampOption {
	return func(e *BitstampExchange) {
		e.nonce = newNonceGenerator(clock)
	}
}

func NewBitstampExchange(exchangeConfig config.ExchangeConfig, opts ...BitstampOption) (*BitstampExchange, error) {
	baseURL := strings.TrimSpace(exchangeConfig.BaseURL)
	if baseURL == "" {
		baseURL = bitstampDefaultBaseURL
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid bitstamp base url: %w", err)
	}
	if parsed.Scheme != "https" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %s", ErrInsecureBaseURL, baseURL)
	}

	timeout := exchangeConfig.Timeout
	if timeout <= 0 {
		timeout = bitstampDefaultTimeout
	}

	newExchange := &BitstampExchange{
		apiKey:     strings.TrimSpace(exchangeConfig.APIKey),
		apiSecret:  strings.TrimSpace(exchangeConfig.APISecret),
		customerID: strings.TrimSpace(exchangeConfig.CustomerID),
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		nonce:      newNonceGenerator(time.Now),
	}

	for _, opt := range opts {
		opt(newExchange)
	}

	return newExchange, nil
}

func InitBitstampExchange(exchangeConfig config.ExchangeConfig) *BitstampExchange {
	newExchange, err := NewBitstampExchange(exchangeConfig)
	util.ContinueOrFatal(err)

	return newExchange
}

// PublicRequest issues an unauthenticated GET and decodes the body into out.
func (e *BitstampExchange) PublicRequest(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+path, nil)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/json")

	return e.do(req, path, out)
}

// PrivateRequest signs params with a fresh nonce and POSTs them form-encoded.
func (e *BitstampExchange) PrivateRequest(ctx context.Context, path string, params url.Values, out any) error {
	if err := e.ValidateCredentials(); err != nil {
		return err
	}

	nonce := e.nonce.Next()
	signature, err := e.Sign(nonce)
	if err != nil {
		return err
	}

	body := encodePrivateParams(params, e.apiKey, signature, nonce)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, strings.NewReader(body))
	if err != nil {
		return err
	}

	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	return e.do(req, path, out)
}

func (e *BitstampExchange) do(req *http.Request, path string, out any) error {
	started := time.Now()

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bitstamp %s %s failed: %w", req.Method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("bitstamp %s read body failed: %w", path, err)
	}

	logrus.WithFields(logrus.Fields{
		"method":      req.Method,
		"path":        path,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(started).Milliseconds(),
	}).Debug("bitstamp request completed")

	return handleBitstampResponse(path, resp.StatusCode, body, out)
}

func handleBitstampResponse(path string, statusCode int, body []byte, out any) error {
	apiErr := parseBitstampError(body)

	if statusCode != http.StatusOK {
		return &HTTPError{
			StatusCode: statusCode,
			Path:       path,
			Body:       body,
			APIError:   apiErr,
		}
	}

	if apiErr != nil {
		return apiErr
	}

	if out == nil {
		var discard any
		out = &discard
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &DecodeError{Path: path, Body: body, Err: err}
	}

	return nil
}

package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// nonceGenerator hands out UTC epoch milliseconds. Values never repeat for the
// same generator: a call landing in an already used millisecond gets last+1.
type nonceGenerator struct {
	clock func() time.Time
	last  atomic.Int64
}

func newNonceGenerator(clock func() time.Time) *nonceGenerator {
	if clock == nil {
		clock = time.Now
	}

	return &nonceGenerator{clock: clock}
}

func (n *nonceGenerator) Next() int64 {
	for {
		now := n.clock().UTC().UnixMilli()
		last := n.last.Load()
		if now <= last {
			now = last + 1
		}

		if n.last.CompareAndSwap(last, now) {
			return now
		}
	}
}

// ValidateCredentials reports ErrMissingCredentials when the client cannot sign
// private requests.
func (e *BitstampExchange) ValidateCredentials() error {
	missing := make([]string, 0, 3)
	if e.apiKey == "" {
		missing = append(missing, "api_key")
	}
	if e.apiSecret == "" {
		missing = append(missing, "api_secret")
	}
	if e.customerID == "" {
		missing = append(missing, "customer_id")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}

	return nil
}

// Sign returns the uppercase hex HMAC-SHA256 of nonce+customerID+apiKey keyed
// by the API secret.
func (e *BitstampExchange) Sign(nonce int64) (string, error) {
	if e.apiSecret == "" {
		return "", fmt.Errorf("%w: api_secret", ErrMissingCredentials)
	}

	message := strconv.FormatInt(nonce, 10) + e.customerID + e.apiKey
	return strings.ToUpper(hmacSHA256Hex(e.apiSecret, message)), nil
}

// encodePrivateParams merges the auth fields into a copy of params.
func encodePrivateParams(params url.Values, apiKey string, signature string, nonce int64) string {
	merged := make(url.Values, len(params)+3)
	for key, values := range params {
		merged[key] = append([]string(nil), values...)
	}

	merged.Set("key", apiKey)
	merged.Set("signature", signature)
	merged.Set("nonce", strconv.FormatInt(nonce, 10))

	return merged.Encode()
}

func hmacSHA256Hex(secret, payload string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(payload))
	return fmt.Sprintf("%x", h.Sum(nil))
}

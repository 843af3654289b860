package exchange

import (
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/krobus00/bitstamp-client/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNonceGenerator_Next(t *testing.T) {
	t.Run("uses utc epoch milliseconds", func(t *testing.T) {
		now := time.Date(2020, 1, 1, 0, 0, 0, 123_456_789, time.FixedZone("WIB", 7*3600))
		generator := newNonceGenerator(func() time.Time { return now })

		assert.Equal(t, now.UnixMilli(), generator.Next())
	})

	t.Run("never decreases when the clock stalls or goes back", func(t *testing.T) {
		ticks := []int64{1000, 1000, 999, 1005, 1001}
		idx := 0
		generator := newNonceGenerator(func() time.Time {
			tick := ticks[idx]
			idx++
			return time.UnixMilli(tick)
		})

		got := make([]int64, 0, len(ticks))
		for range ticks {
			got = append(got, generator.Next())
		}

		assert.Equal(t, []int64{1000, 1001, 1002, 1005, 1006}, got)
	})

	t.Run("concurrent callers get unique values", func(t *testing.T) {
		generator := newNonceGenerator(func() time.Time { return time.UnixMilli(1_700_000_000_000) })

		const workers = 16
		const perWorker = 200

		var mu sync.Mutex
		seen := make(map[int64]struct{}, workers*perWorker)

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < perWorker; j++ {
					nonce := generator.Next()
					mu.Lock()
					seen[nonce] = struct{}{}
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Len(t, seen, workers*perWorker)
	})
}

func TestBitstampExchange_Sign(t *testing.T) {
	newSigner := func(t *testing.T, key, secret, customerID string) *BitstampExchange {
		t.Helper()
		e, err := NewBitstampExchange(config.ExchangeConfig{APIKey: key, APISecret: secret, CustomerID: customerID})
		require.NoError(t, err)
		return e
	}

	t.Run("matches the reference digest", func(t *testing.T) {
		signer := newSigner(t, "test-key", "test-secret", "cust-42")

		signature, err := signer.Sign(1577836800123)
		require.NoError(t, err)
		assert.Equal(t, "F77896BDB3189D24CFB7B7D2462D7EA217409DBB3142671343D36E725044C6B6", signature)
	})

	t.Run("is deterministic", func(t *testing.T) {
		signer := newSigner(t, "test-key", "test-secret", "cust-42")

		first, err := signer.Sign(42)
		require.NoError(t, err)
		second, err := signer.Sign(42)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("changes with every input", func(t *testing.T) {
		base, err := newSigner(t, "test-key", "test-secret", "cust-42").Sign(42)
		require.NoError(t, err)

		otherNonce, err := newSigner(t, "test-key", "test-secret", "cust-42").Sign(43)
		require.NoError(t, err)
		otherKey, err := newSigner(t, "other-key", "test-secret", "cust-42").Sign(42)
		require.NoError(t, err)
		otherSecret, err := newSigner(t, "test-key", "other-secret", "cust-42").Sign(42)
		require.NoError(t, err)
		otherCustomer, err := newSigner(t, "test-key", "test-secret", "cust-43").Sign(42)
		require.NoError(t, err)

		for _, signature := range []string{otherNonce, otherKey, otherSecret, otherCustomer} {
			assert.NotEqual(t, base, signature)
		}
	})

	t.Run("requires the secret", func(t *testing.T) {
		_, err := newSigner(t, "test-key", "", "cust-42").Sign(42)
		assert.ErrorIs(t, err, ErrMissingCredentials)
	})
}

func TestBitstampExchange_ValidateCredentials(t *testing.T) {
	e, err := NewBitstampExchange(config.ExchangeConfig{APIKey: "key"})
	require.NoError(t, err)

	err = e.ValidateCredentials()
	require.ErrorIs(t, err, ErrMissingCredentials)
	assert.Contains(t, err.Error(), "api_secret")
	assert.Contains(t, err.Error(), "customer_id")
	assert.NotContains(t, err.Error(), "api_key")

	e, err = NewBitstampExchange(config.ExchangeConfig{APIKey: "key", APISecret: "secret", CustomerID: "1"})
	require.NoError(t, err)
	assert.NoError(t, e.ValidateCredentials())
}

func TestEncodePrivateParams(t *testing.T) {
	params := url.Values{}
	params.Set("amount", "0.5")
	params.Set("sort", "desc")
	params.Add("note", "a b&c=d")

	encoded := encodePrivateParams(params, "test-key", "SIG", 1234)

	decoded, err := url.ParseQuery(encoded)
	require.NoError(t, err)

	assert.Equal(t, url.Values{
		"amount":    {"0.5"},
		"sort":      {"desc"},
		"note":      {"a b&c=d"},
		"key":       {"test-key"},
		"signature": {"SIG"},
		"nonce":     {"1234"},
	}, decoded)

	_, touched := params["key"]
	assert.False(t, touched, "caller params must not be modified")
}

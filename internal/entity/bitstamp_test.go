package entity

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicker_UnmarshalJSON(t *testing.T) {
	t.Run("empty fields decode to zero", func(t *testing.T) {
		var ticker Ticker
		require.NoError(t, json.Unmarshal([]byte(`{"high":"","last":"1","bid":null,"timestamp":""}`), &ticker))

		assert.True(t, ticker.High.IsZero())
		assert.True(t, ticker.Bid.IsZero())
		assert.True(t, ticker.Ask.IsZero())
		assert.True(t, ticker.Last.Equal(decimal.NewFromInt(1)))
		assert.Zero(t, ticker.Timestamp.Int64())
	})

	t.Run("strings and numbers", func(t *testing.T) {
		var ticker Ticker
		require.NoError(t, json.Unmarshal([]byte(`{"high":"100.5","last":99.2,"timestamp":1577836800,"volume":"1234.56789"}`), &ticker))

		assert.Equal(t, "100.5", ticker.High.String())
		assert.Equal(t, "99.2", ticker.Last.String())
		assert.Equal(t, "1234.56789", ticker.Volume.String())
		assert.Equal(t, int64(1577836800), ticker.Time().Unix())
	})

	t.Run("garbage still fails", func(t *testing.T) {
		var ticker Ticker
		err := json.Unmarshal([]byte(`{"high":"abc"}`), &ticker)
		assert.ErrorContains(t, err, `invalid decimal "abc"`)
	})
}

package http

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/krobus00/bitstamp-client/internal/config"
	"github.com/krobus00/bitstamp-client/internal/entity"
	"github.com/krobus00/bitstamp-client/internal/service/exchange"
	"github.com/sirupsen/logrus"
)

var (
	errAPIKeyMissing  = errors.New("api key is required")
	errAPIKeyInvalid  = errors.New("invalid api key")
	errAPIKeyInactive = errors.New("api key is inactive")
	errAPIKeyExpired  = errors.New("api key is expired")
)

type ErrorResponse struct {
	Error  string              `json:"error"`
	Code   string              `json:"code,omitempty"`
	Fields map[string][]string `json:"fields,omitempty"`
}

type Handler struct {
	exchange entity.MarketDataExchange
	apiKeys  []config.APIKeyConfig
	now      func() time.Time
}

func NewMarketDataHTTPHandler(exchange entity.MarketDataExchange, apiKeys []config.APIKeyConfig) *Handler {
	return &Handler{
		exchange: exchange,
		apiKeys:  apiKeys,
		now:      time.Now,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /market-data/v1/ticker/{pair}", h.withAPIKey(h.Ticker))
	mux.HandleFunc("GET /market-data/v1/order-book/{pair}", h.withAPIKey(h.OrderBook))
	mux.HandleFunc("GET /market-data/v1/transactions/{pair}", h.withAPIKey(h.Transactions))
}

func (h *Handler) Ticker(w http.ResponseWriter, r *http.Request) {
	ticker, err := h.exchange.Ticker(r.Context(), r.PathValue("pair"))
	if err != nil {
		writeExchangeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ticker)
}

func (h *Handler) OrderBook(w http.ResponseWriter, r *http.Request) {
	orderBook, err := h.exchange.OrderBook(r.Context(), r.PathValue("pair"))
	if err != nil {
		writeExchangeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, orderBook)
}

func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	interval := entity.TransactionInterval(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("time"))))

	transactions, err := h.exchange.Transactions(r.Context(), r.PathValue("pair"), interval)
	if err != nil {
		writeExchangeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, transactions)
}

func (h *Handler) withAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.validateAPIKey(r.Header.Get("X-API-Key")); err != nil {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
			return
		}

		next(w, r)
	}
}

func writeExchangeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *exchange.ValidationError
		apiErr        *exchange.APIError
		httpErr       *exchange.HTTPError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: validationErr.Error()})
	case errors.As(err, &apiErr):
		writeJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:  apiErr.Reason,
			Code:   apiErr.Code,
			Fields: apiErr.Fields,
		})
	case errors.As(err, &httpErr):
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "upstream returned " + http.StatusText(httpErr.StatusCode)})
	default:
		logrus.WithField("path", r.URL.Path).WithError(err).Error("market data request failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func (h *Handler) validateAPIKey(rawAPIKey string) error {
	apiKey := strings.TrimSpace(rawAPIKey)
	if apiKey == "" {
		return errAPIKeyMissing
	}

	if len(h.apiKeys) == 0 {
		return errAPIKeyInvalid
	}

	now := h.now().UTC()
	for _, candidate := range h.apiKeys {
		storedKey := strings.TrimSpace(candidate.Key)
		if storedKey == "" {
			continue
		}

		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(storedKey)) != 1 {
			continue
		}

		if !candidate.Active {
			return errAPIKeyInactive
		}

		expiredAt, hasExpiry, err := parseExpiry(candidate.ExpiredAt)
		if err != nil {
			return errAPIKeyInvalid
		}
		if !hasExpiry {
			return nil
		}

		if !now.Before(expiredAt) {
			return errAPIKeyExpired
		}

		return nil
	}

	return errAPIKeyInvalid
}

func parseExpiry(value any) (time.Time, bool, error) {
	if value == nil {
		return time.Time{}, false, nil
	}

	switch v := value.(type) {
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false, nil
		}
		return v.UTC(), true, nil
	case string:
		raw := strings.TrimSpace(v)
		if raw == "" {
			return time.Time{}, false, nil
		}

		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			return parsed.UTC(), true, nil
		}

		// a bare date expires at the end of that day
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return time.Time{}, false, err
		}

		return parsed.UTC().Add(24 * time.Hour), true, nil
	default:
		return time.Time{}, false, errors.New("unsupported expiry type")
	}
}

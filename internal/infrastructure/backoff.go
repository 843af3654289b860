package infrastructure

import (
	"math"
	"math/rand"
	"strings"
	"time"
)

const (
	defaultBackoffFactor = 2.0
	defaultMinJitter     = 100 * time.Millisecond
	defaultMaxJitter     = 1 * time.Second
)

type backoffPolicy struct {
	factor    float64
	minJitter time.Duration
	maxJitter time.Duration
	rng       *rand.Rand
}

func newBackoffPolicy(factor float64, minJitter, maxJitter time.Duration) backoffPolicy {
	if factor < 1 {
		factor = defaultBackoffFactor
	}
	if minJitter <= 0 {
		minJitter = defaultMinJitter
	}
	if maxJitter <= 0 {
		maxJitter = defaultMaxJitter
	}
	if maxJitter < minJitter {
		maxJitter = minJitter
	}

	return backoffPolicy{
		factor:    factor,
		minJitter: minJitter,
		maxJitter: maxJitter,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// delay grows exponentially from minJitter, adds random jitter and is capped at
// maxJitter.
func (p backoffPolicy) delay(attempt int) time.Duration {
	backoff := float64(p.minJitter) * math.Pow(p.factor, float64(attempt))
	if backoff > float64(p.maxJitter) {
		backoff = float64(p.maxJitter)
	}

	base := time.Duration(backoff)
	if p.maxJitter <= p.minJitter {
		return base
	}

	jitterWindow := p.maxJitter - p.minJitter
	jitter := time.Duration(p.rng.Int63n(int64(jitterWindow) + 1))
	result := base + jitter
	if result > p.maxJitter {
		return p.maxJitter
	}

	return result
}

// maskDSN hides the credentials part of a connection string.
func maskDSN(dsn string) string {
	idx := strings.LastIndex(dsn, "@")
	if idx == -1 {
		return dsn
	}

	prefix := dsn[:idx]
	credsIdx := strings.LastIndex(prefix, "://")
	if credsIdx == -1 {
		return "***" + dsn[idx:]
	}

	return prefix[:credsIdx+3] + "***" + dsn[idx:]
}

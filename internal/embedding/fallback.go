package embedding

import (
	"time"

	"go.uber.org/zap"
)

// LoadResult is the outcome of a background provider load.
type LoadResult struct {
	Provider Provider
	Err      error
}

// LoadWithFallback attempts to load an alternate provider via load, waiting at
// most wait before giving up. On timeout or load error the primary provider is
// returned instead; the decision is logged, never fatal. A provider that loads
// after the deadline is closed to avoid leaking its session.
func LoadWithFallback(load func() (Provider, error), primary Provider, wait time.Duration, logger *zap.Logger) Provider {
	done := make(chan LoadResult, 1)
	go func() {
		p, err := load()
		done <- LoadResult{Provider: p, Err: err}
	}()

	select {
	case res := <-done:
		if res.Err != nil {
			if logger != nil {
				logger.Warn("alternate provider failed to load, using primary", zap.Error(res.Err))
			}
			return primary
		}
		if logger != nil {
			logger.Info("alternate provider loaded", zap.Int("dimensions", res.Provider.Dimensions()))
		}
		return res.Provider
	case <-time.After(wait):
		if logger != nil {
			logger.Warn("alternate provider load timed out, using primary", zap.Duration("wait", wait))
		}
		go func() {
			if res := <-done; res.Err == nil && res.Provider != nil {
				_ = res.Provider.Close()
			}
		}()
		return primary
	}
}

package inference

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/next-gen-ui/ngui-mcp/internal/audit"
)

// Middleware decorates a Port with a cross-cutting concern.
type Middleware func(Port) Port

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner Port, mws ...Middleware) Port {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			out = mws[i](out)
		}
	}
	return out
}

// -------- Retry --------

// Retry re-invokes the port on failure with exponential backoff
// (baseDelay, 2*baseDelay, 4*baseDelay, ...). It stops early on
// PermanentError and on context cancellation.
func Retry(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return func(next Port) Port {
		return PortFunc(func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			var lastErr error
			for i := 0; i < maxAttempts; i++ {
				out, err := next.CallModel(ctx, systemPrompt, userPrompt)
				if err == nil {
					return out, nil
				}
				lastErr = err
				if IsPermanent(err) || ctx.Err() != nil || i == maxAttempts-1 {
					break
				}

				timer := time.NewTimer(baseDelay * time.Duration(1<<i))
				select {
				case <-ctx.Done():
					timer.Stop()
					return "", ctx.Err()
				case <-timer.C:
				}
			}
			return "", lastErr
		})
	}
}

// -------- Rate limiting --------

// RateLimit bounds the call rate with a token bucket shared by every
// caller of the returned port. rps <= 0 disables it.
func RateLimit(rps float64, burst int) Middleware {
	return func(next Port) Port {
		if rps <= 0 {
			return next
		}
		if burst < 1 {
			burst = 1
		}
		limiter := rate.NewLimiter(rate.Limit(rps), burst)
		return PortFunc(func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			if err := limiter.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					return "", ctx.Err()
				}
				// the wait would outlast the deadline
				return "", fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
			}
			return next.CallModel(ctx, systemPrompt, userPrompt)
		})
	}
}

// -------- Timeout --------

// Timeout bounds each attempt. d <= 0 disables it.
func Timeout(d time.Duration) Middleware {
	return func(next Port) Port {
		if d <= 0 {
			return next
		}
		return PortFunc(func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next.CallModel(ctx, systemPrompt, userPrompt)
		})
	}
}

// -------- Logging --------

// WithLogging records duration and payload sizes of every call.
func WithLogging(logger *audit.Logger, provider string) Middleware {
	return func(next Port) Port {
		if logger == nil {
			return next
		}
		return PortFunc(func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			start := time.Now()
			out, err := next.CallModel(ctx, systemPrompt, userPrompt)
			logger.LogLLMCall(provider, time.Since(start), len(systemPrompt)+len(userPrompt), len(out), err)
			return out, err
		})
	}
}

// -------- Capture --------

// Exchange is one recorded call.
type Exchange struct {
	SystemPrompt string
	UserPrompt   string
	Response     string
	Err          error
	Duration     time.Duration
}

// Recorder collects exchanges passing through Capture.
type Recorder struct {
	mu        sync.Mutex
	exchanges []Exchange
}

// Exchanges returns a copy of everything recorded so far.
func (r *Recorder) Exchanges() []Exchange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Exchange(nil), r.exchanges...)
}

// Len returns the number of recorded exchanges.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.exchanges)
}

func (r *Recorder) add(e Exchange) {
	r.mu.Lock()
	r.exchanges = append(r.exchanges, e)
	r.mu.Unlock()
}

// Capture records every exchange into rec.
func Capture(rec *Recorder) Middleware {
	return func(next Port) Port {
		return PortFunc(func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			start := time.Now()
			out, err := next.CallModel(ctx, systemPrompt, userPrompt)
			rec.add(Exchange{
				SystemPrompt: systemPrompt,
				UserPrompt:   userPrompt,
				Response:     out,
				Err:          err,
				Duration:     time.Since(start),
			})
			return out, err
		})
	}
}

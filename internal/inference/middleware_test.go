package inference

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingPort(failures int, err error) (Port, *int32) {
	var calls int32
	return PortFunc(func(ctx context.Context, _, _ string) (string, error) {
		n := atomic.AddInt32(&calls, 1)
		if int(n) <= failures {
			return "", err
		}
		return "ok", nil
	}), &calls
}

func TestWrapOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next Port) Port {
			return PortFunc(func(ctx context.Context, s, u string) (string, error) {
				order = append(order, name)
				return next.CallModel(ctx, s, u)
			})
		}
	}
	inner := PortFunc(func(context.Context, string, string) (string, error) {
		order = append(order, "inner")
		return "", nil
	})

	_, err := Wrap(inner, mark("A"), nil, mark("B")).CallModel(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "inner"}, order)
}

func TestRetry(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		port, calls := countingPort(2, errors.New("503"))
		out, err := Retry(3, time.Millisecond)(port).CallModel(context.Background(), "s", "u")
		require.NoError(t, err)
		assert.Equal(t, "ok", out)
		assert.Equal(t, int32(3), atomic.LoadInt32(calls))
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		port, calls := countingPort(10, errors.New("503"))
		_, err := Retry(3, time.Millisecond)(port).CallModel(context.Background(), "s", "u")
		require.Error(t, err)
		assert.Equal(t, int32(3), atomic.LoadInt32(calls))
	})

	t.Run("stops on permanent error", func(t *testing.T) {
		port, calls := countingPort(10, NewPermanentError(errors.New("400")))
		_, err := Retry(5, time.Millisecond)(port).CallModel(context.Background(), "s", "u")
		require.Error(t, err)
		assert.True(t, IsPermanent(err))
		assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		port := PortFunc(func(context.Context, string, string) (string, error) {
			cancel()
			return "", errors.New("503")
		})
		_, err := Retry(5, time.Hour)(port).CallModel(ctx, "s", "u")
		require.Error(t, err)
	})
}

func TestRateLimit(t *testing.T) {
	port, calls := countingPort(0, nil)
	limited := RateLimit(1000, 1)(port)

	for i := 0; i < 3; i++ {
		_, err := limited.CallModel(context.Background(), "", "")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow := RateLimit(0.001, 1)(port)
	_, _ = slow.CallModel(context.Background(), "", "")
	_, err := slow.CallModel(ctx, "", "")
	assert.Error(t, err)
}

func TestRateLimitWaitPastDeadline(t *testing.T) {
	port, calls := countingPort(0, nil)
	slow := RateLimit(0.001, 1)(port)
	_, err := slow.CallModel(context.Background(), "", "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = slow.CallModel(ctx, "", "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

type staticPort struct{ out string }

func (p *staticPort) CallModel(context.Context, string, string) (string, error) { return p.out, nil }

func TestRateLimitDisabled(t *testing.T) {
	port := &staticPort{out: "x"}
	assert.Same(t, port, RateLimit(0, 0)(port))
	assert.Same(t, port, Timeout(0)(port))
}

func TestTimeout(t *testing.T) {
	blocking := PortFunc(func(ctx context.Context, _, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	_, err := Timeout(10*time.Millisecond)(blocking).CallModel(context.Background(), "", "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCapture(t *testing.T) {
	rec := &Recorder{}
	port := Capture(rec)(PortFunc(func(_ context.Context, s, u string) (string, error) {
		return s + "|" + u, nil
	}))

	out, err := port.CallModel(context.Background(), "sys", "usr")
	require.NoError(t, err)
	assert.Equal(t, "sys|usr", out)

	require.Equal(t, 1, rec.Len())
	ex := rec.Exchanges()[0]
	assert.Equal(t, "sys", ex.SystemPrompt)
	assert.Equal(t, "usr", ex.UserPrompt)
	assert.Equal(t, "sys|usr", ex.Response)
	assert.NoError(t, ex.Err)
}

func TestWithLoggingNilLogger(t *testing.T) {
	port := &staticPort{out: "x"}
	assert.Same(t, port, WithLogging(nil, "x")(port))
}

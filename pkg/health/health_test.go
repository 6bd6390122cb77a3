package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passing() CheckFunc {
	return func(context.Context) error { return nil }
}

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func serve(h http.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func runN(c *check, n int) {
	for range n {
		c.run(context.Background())
	}
}

func TestLiveEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		fails      int
		wantStatus int
		wantBody   string
	}{
		{name: "fresh check is healthy", fails: 0, wantStatus: http.StatusOK, wantBody: `{"status":"ok"}`},
		{name: "below threshold", fails: 2, wantStatus: http.StatusOK, wantBody: `{"status":"ok"}`},
		{
			name: "at threshold", fails: 3, wantStatus: http.StatusServiceUnavailable,
			wantBody: `{"status":"unhealthy","checks":{"db":"connection refused"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New()
			h.AddLivenessCheck("db", time.Second, failing("connection refused"))
			h.AddReadinessCheck("cache", time.Second, failing("ignored by livez"))
			runN(h.checks[0], tt.fails)
			runN(h.checks[1], 5)

			w := serve(h.LiveEndpoint)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestReadyEndpoint(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, passing())

	w := serve(h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"_readiness":"service is not ready"}}`, w.Body.String())
	assert.False(t, h.IsReady())

	h.SetReady(true)
	w = serve(h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, h.IsReady())

	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestCheck_Recovery(t *testing.T) {
	var err error
	h := New()
	h.Add(Check{
		Name:             "redis",
		Kind:             Readiness,
		Func:             func(context.Context) error { return err },
		FailureThreshold: 1,
		SuccessThreshold: 2,
	})
	h.SetReady(true)
	c := h.checks[0]

	err = errors.New("timeout")
	runN(c, 1)
	assert.False(t, h.IsReady())

	err = nil
	runN(c, 1)
	assert.False(t, h.IsReady(), "one success is below the threshold")
	runN(c, 1)
	assert.True(t, h.IsReady())
}

func TestCheck_Timeout(t *testing.T) {
	h := New()
	h.Add(Check{
		Name:             "slow",
		Kind:             Liveness,
		Timeout:          10 * time.Millisecond,
		FailureThreshold: 1,
		Func: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})

	runN(h.checks[0], 1)

	w := serve(h.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "deadline exceeded")
}

func TestStartStop(t *testing.T) {
	h := New()
	h.Add(Check{Name: "db", Kind: Readiness, Func: failing("down"), FailureThreshold: 1})
	h.SetReady(true)

	h.Start(context.Background(), time.Hour)
	t.Cleanup(h.Stop)

	require.Eventually(t, func() bool { return !h.IsReady() }, time.Second, 5*time.Millisecond)

	h.Stop()
	h.Stop()
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestCheckers(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, GoroutineCountCheck(1_000_000)(ctx))
	assert.Error(t, GoroutineCountCheck(0)(ctx))

	assert.NoError(t, PingCheck("postgres", pinger{})(ctx))
	err := PingCheck("postgres", pinger{err: errors.New("refused")})(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping postgres")
}

package dispatch

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wappahq/wappa/internal/collab"
	"github.com/wappahq/wappa/internal/domain"
	"github.com/wappahq/wappa/internal/tenant"
)

// fakeHandler implements the mandatory message capability; the status and
// error capabilities are added by the embedding types below.
type fakeHandler struct {
	onMessage func(ctx context.Context, ev *domain.MessageEvent, b *collab.Bundle) error
}

func (h *fakeHandler) OnMessage(ctx context.Context, ev *domain.MessageEvent, b *collab.Bundle) error {
	if h.onMessage == nil {
		return nil
	}
	return h.onMessage(ctx, ev, b)
}

type fullHandler struct {
	fakeHandler
	onStatus func(ctx context.Context, ev *domain.StatusEvent, b *collab.Bundle) error
	onError  func(ctx context.Context, ev *domain.ErrorEvent, b *collab.Bundle) error
}

func (h *fullHandler) OnStatus(ctx context.Context, ev *domain.StatusEvent, b *collab.Bundle) error {
	return h.onStatus(ctx, ev, b)
}

func (h *fullHandler) OnError(ctx context.Context, ev *domain.ErrorEvent, b *collab.Bundle) error {
	return h.onError(ctx, ev, b)
}

func messageEvent(user, id string) *domain.MessageEvent {
	return &domain.MessageEvent{TenantID: "T1", From: user, MessageID: id}
}

func userContext(user string) tenant.Context {
	return tenant.Context{TenantID: "T1", UserID: user}
}

func TestDispatch_Completed(t *testing.T) {
	var called atomic.Bool
	d := NewDispatcher(&fakeHandler{
		onMessage: func(ctx context.Context, ev *domain.MessageEvent, b *collab.Bundle) error {
			called.Store(true)
			return nil
		},
	})

	res := d.Dispatch(context.Background(), messageEvent("U1", "wamid.1"), userContext("U1"), nil)

	require.Equal(t, OutcomeCompleted, res.Outcome)
	require.NoError(t, res.Err)
	assert.True(t, called.Load())
}

// A handler that returns immediately must always report completed; its
// result may be ready at the same moment the dispatch context is done,
// and the result has priority.
func TestDispatch_FastHandlerNeverTimesOut(t *testing.T) {
	d := NewDispatcher(&fakeHandler{})

	for i := 0; i < 1000; i++ {
		res := d.Dispatch(context.Background(), messageEvent("U1", "wamid.fast"), userContext("U1"), nil)
		require.Equal(t, OutcomeCompleted, res.Outcome, "iteration %d: %v", i, res.Err)
		require.NoError(t, res.Err)
	}
}

func TestDispatch_FastFailureNeverTimesOut(t *testing.T) {
	boom := errors.New("boom")
	d := NewDispatcher(&fakeHandler{
		onMessage: func(ctx context.Context, ev *domain.MessageEvent, b *collab.Bundle) error {
			return boom
		},
	})

	for i := 0; i < 1000; i++ {
		res := d.Dispatch(context.Background(), messageEvent("U1", "wamid.fail"), userContext("U1"), nil)
		require.Equal(t, OutcomeHandlerFailed, res.Outcome, "iteration %d", i)
		require.ErrorIs(t, res.Err, boom)
	}
}

func TestDispatch_SameConversationSerialized(t *testing.T) {
	var active, maxActive int64
	d := NewDispatcher(&fakeHandler{
		onMessage: func(ctx context.Context, ev *domain.MessageEvent, b *collab.Bundle) error {
			n := atomic.AddInt64(&active, 1)
			for {
				m := atomic.LoadInt64(&maxActive)
				if n <= m || atomic.CompareAndSwapInt64(&maxActive, m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&active, -1)
			return nil
		},
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := d.Dispatch(context.Background(), messageEvent("U1", "wamid.n"), userContext("U1"), nil)
			assert.Equal(t, OutcomeCompleted, res.Outcome)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&maxActive),
		"handlers for the same conversation overlapped")
}

func TestDispatch_DifferentConversationsConcurrent(t *testing.T) {
	// Each handler waits for the other to start; this only terminates if
	// the two conversations run concurrently.
	barrier := make(chan struct{}, 2)
	d := NewDispatcher(&fakeHandler{
		onMessage: func(ctx context.Context, ev *domain.MessageEvent, b *collab.Bundle) error {
			barrier <- struct{}{}
			for len(barrier) < 2 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(time.Millisecond):
				}
			}
			return nil
		},
	}, WithTimeout(2*time.Second))

	var wg sync.WaitGroup
	results := make([]Result, 2)
	for i, user := range []string{"U1", "U2"} {
		wg.Add(1)
		go func(i int, user string) {
			defer wg.Done()
			results[i] = d.Dispatch(context.Background(), messageEvent(user, "wamid.c"), userContext(user), nil)
		}(i, user)
	}
	wg.Wait()

	assert.Equal(t, OutcomeCompleted, results[0].Outcome)
	assert.Equal(t, OutcomeCompleted, results[1].Outcome)
}

func TestDispatch_HandlerFailure(t *testing.T) {
	boom := errors.New("boom")
	d := NewDispatcher(&fakeHandler{
		onMessage: func(ctx context.Context, ev *domain.MessageEvent, b *collab.Bundle) error {
			return boom
		},
	})

	res := d.Dispatch(context.Background(), messageEvent("U1", "wamid.f"), userContext("U1"), nil)

	require.Equal(t, OutcomeHandlerFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, boom)

	// The failure is contained: the next dispatch proceeds normally.
	ok := NewDispatcher(&fakeHandler{})
	res = ok.Dispatch(context.Background(), messageEvent("U1", "wamid.g"), userContext("U1"), nil)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
}

func TestDispatch_PanicRecovered(t *testing.T) {
	d := NewDispatcher(&fakeHandler{
		onMessage: func(ctx context.Context, ev *domain.MessageEvent, b *collab.Bundle) error {
			panic("handler bug")
		},
	})

	res := d.Dispatch(context.Background(), messageEvent("U1", "wamid.p"), userContext("U1"), nil)

	require.Equal(t, OutcomeHandlerFailed, res.Outcome)
	assert.ErrorContains(t, res.Err, "handler bug")
}

func TestDispatch_Timeout(t *testing.T) {
	d := NewDispatcher(&fakeHandler{
		onMessage: func(ctx context.Context, ev *domain.MessageEvent, b *collab.Bundle) error {
			time.Sleep(300 * time.Millisecond)
			return nil
		},
	}, WithTimeout(20*time.Millisecond))

	res := d.Dispatch(context.Background(), messageEvent("U1", "wamid.t"), userContext("U1"), nil)

	require.Equal(t, OutcomeTimeout, res.Outcome)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
}

func TestDispatch_Busy(t *testing.T) {
	blocked := make(chan struct{})
	started := make(chan struct{})
	d := NewDispatcher(&fakeHandler{
		onMessage: func(ctx context.Context, ev *domain.MessageEvent, b *collab.Bundle) error {
			close(started)
			<-blocked
			return nil
		},
	}, WithTimeout(2*time.Second), WithLockWait(20*time.Millisecond))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		res := d.Dispatch(context.Background(), messageEvent("U1", "wamid.a"), userContext("U1"), nil)
		assert.Equal(t, OutcomeCompleted, res.Outcome)
	}()
	<-started

	res := d.Dispatch(context.Background(), messageEvent("U1", "wamid.b"), userContext("U1"), nil)
	require.Equal(t, OutcomeBusy, res.Outcome)

	close(blocked)
	wg.Wait()
}

func TestDispatch_OptionalCapabilities(t *testing.T) {
	status := &domain.StatusEvent{TenantID: "T1", MessageID: "wamid.s", RecipientID: "U1", Status: domain.StatusDelivered}
	errEv := &domain.ErrorEvent{TenantID: "T1"}

	t.Run("absent capability is a no-op", func(t *testing.T) {
		d := NewDispatcher(&fakeHandler{
			onMessage: func(ctx context.Context, ev *domain.MessageEvent, b *collab.Bundle) error {
				t.Error("OnMessage invoked for a status event")
				return nil
			},
		})

		res := d.Dispatch(context.Background(), status, userContext("U1"), nil)
		assert.Equal(t, OutcomeCompleted, res.Outcome)

		res = d.Dispatch(context.Background(), errEv, tenant.Context{TenantID: "T1"}, nil)
		assert.Equal(t, OutcomeCompleted, res.Outcome)
	})

	t.Run("present capability is invoked", func(t *testing.T) {
		var gotStatus, gotError atomic.Bool
		d := NewDispatcher(&fullHandler{
			onStatus: func(ctx context.Context, ev *domain.StatusEvent, b *collab.Bundle) error {
				gotStatus.Store(true)
				return nil
			},
			onError: func(ctx context.Context, ev *domain.ErrorEvent, b *collab.Bundle) error {
				gotError.Store(true)
				return nil
			},
		})

		res := d.Dispatch(context.Background(), status, userContext("U1"), nil)
		require.Equal(t, OutcomeCompleted, res.Outcome)
		res = d.Dispatch(context.Background(), errEv, tenant.Context{TenantID: "T1"}, nil)
		require.Equal(t, OutcomeCompleted, res.Outcome)

		assert.True(t, gotStatus.Load())
		assert.True(t, gotError.Load())
	})
}

func TestResult_HTTPStatus(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    int
	}{
		{OutcomeCompleted, http.StatusOK},
		{OutcomeHandlerFailed, http.StatusOK},
		{OutcomeTimeout, http.StatusOK},
		{OutcomeRejected, http.StatusBadRequest},
		{OutcomeMismatch, http.StatusForbidden},
		{OutcomeBusy, http.StatusServiceUnavailable},
		{OutcomeUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Result{Outcome: tt.outcome}.HTTPStatus(), string(tt.outcome))
	}
}

package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grasshoppermcp/gateway/internal/services/gateway/capability"
	"github.com/grasshoppermcp/gateway/internal/services/gateway/engine"
)

func TestNewRequiresFactoryAndRegistry(t *testing.T) {
	_, err := New(WithRegistry(testRegistry(t)))
	require.Error(t, err)
	_, err = New(WithEngineFactory(jsonrpcFactory(t)))
	require.Error(t, err)
}

func TestStartServesPing(t *testing.T) {
	g, recorder := newTestGateway(t)
	require.False(t, g.IsListening())

	require.NoError(t, g.Start(localAddress))
	require.True(t, g.IsListening())
	require.Equal(t, StateRunning, g.State())

	status, body := postJSON(t, g.Address(), `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, `{"jsonrpc":"2.0","id":1,"result":"pong"}`, body)

	g.Stop()
	require.False(t, g.IsListening())
	require.NoError(t, g.Close())
	require.Equal(t, []State{StateStarting, StateRunning, StateStopping, StateStopped}, recorder.states())
}

func TestUnknownMethodIsJSONRPCError(t *testing.T) {
	g, _ := newTestGateway(t)
	require.NoError(t, g.Start(localAddress))

	status, body := postJSON(t, g.Address(), `{"jsonrpc":"2.0","id":2,"method":"nope"}`)
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, `"code":-32601`)
	require.Contains(t, body, `"id":2`)
}

func TestInvalidRequestOverHTTP(t *testing.T) {
	g, _ := newTestGateway(t)
	require.NoError(t, g.Start(localAddress))

	resp, err := http.Get(g.Address())
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	status, body := postJSON(t, g.Address(), "")
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, body, `"code":-32600`)
}

func TestRestartLeavesOneGeneration(t *testing.T) {
	g, recorder := newTestGateway(t)
	require.NoError(t, g.Start(localAddress))
	first := g.Address()

	require.NoError(t, g.Start(localAddress))
	second := g.Address()
	require.True(t, g.IsListening())

	if first != second {
		client := &http.Client{Timeout: time.Second}
		_, err := client.Post(first, "application/json", nil)
		require.Error(t, err, "the first generation's listener must be closed")
	}

	status, body := postJSON(t, second, `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, `{"jsonrpc":"2.0","id":1,"result":"pong"}`, body)

	require.NoError(t, g.Close())
	require.Equal(t, []State{
		StateStarting, StateRunning,
		StateStopping, StateStopped,
		StateStarting, StateRunning,
		StateStopping, StateStopped,
	}, recorder.states())
}

func TestStopIsIdempotent(t *testing.T) {
	g, recorder := newTestGateway(t)
	g.Stop()
	require.Equal(t, StateStopped, g.State())

	require.NoError(t, g.Start(localAddress))
	g.Stop()
	g.Stop()
	require.NoError(t, g.Shutdown(context.Background()))
	require.Equal(t, StateStopped, g.State())
	require.Empty(t, g.Address())

	require.NoError(t, g.Close())
	require.Equal(t, []State{StateStarting, StateRunning, StateStopping, StateStopped}, recorder.states())
}

func TestBindFailureEntersErrorState(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()

	g, recorder := newTestGateway(t)
	err = g.Start("http://" + occupied.Addr().String() + "/")

	var bindErr *BindError
	require.ErrorAs(t, err, &bindErr)
	require.Equal(t, StateError, g.State())
	require.False(t, g.IsListening())
	require.ErrorAs(t, g.LastError(), &bindErr)

	require.NoError(t, g.Start(localAddress))
	require.Equal(t, StateRunning, g.State())
	require.NoError(t, g.LastError())

	require.NoError(t, g.Close())
	require.Equal(t, []State{
		StateStarting, StateError,
		StateStarting, StateRunning,
		StateStopping, StateStopped,
	}, recorder.states())
}

func TestInvalidAddressLeavesStateUntouched(t *testing.T) {
	g, _ := newTestGateway(t)
	require.NoError(t, g.Start(localAddress))

	require.Error(t, g.Start("ftp://localhost:21/"))
	require.Equal(t, StateRunning, g.State())
}

func TestEngineFailureEntersErrorState(t *testing.T) {
	eng := &controlledEngine{fail: make(chan error, 1)}
	g, recorder := newTestGateway(t, WithEngineFactory(func(*capability.Registry) (engine.Engine, error) {
		return eng, nil
	}))
	require.NoError(t, g.Start(localAddress))
	address := g.Address()

	eng.fail <- errEngineCrashed
	require.Eventually(t, func() bool { return g.State() == StateError }, 2*time.Second, 5*time.Millisecond)
	require.False(t, g.IsListening())
	require.ErrorIs(t, g.LastError(), ErrUnexpectedExit)
	require.ErrorIs(t, g.LastError(), errEngineCrashed)

	err := g.Wait(context.Background())
	require.ErrorIs(t, err, ErrUnexpectedExit)

	client := &http.Client{Timeout: time.Second}
	_, err = client.Post(address, "application/json", nil)
	require.Error(t, err, "listener must close when the engine dies")

	g.Stop()
	require.Equal(t, StateStopped, g.State())
	require.NoError(t, g.Close())
	states := recorder.states()
	require.Equal(t, []State{StateStarting, StateRunning, StateError, StateStopped}, states)
}

func TestEngineCleanExitIsUnexpected(t *testing.T) {
	eng := &controlledEngine{fail: make(chan error, 1)}
	g, _ := newTestGateway(t, WithEngineFactory(func(*capability.Registry) (engine.Engine, error) {
		return eng, nil
	}))
	require.NoError(t, g.Start(localAddress))

	eng.fail <- nil
	require.Eventually(t, func() bool { return g.State() == StateError }, 2*time.Second, 5*time.Millisecond)
	require.ErrorIs(t, g.LastError(), ErrUnexpectedExit)
}

func TestEngineFactoryFailure(t *testing.T) {
	g, _ := newTestGateway(t, WithEngineFactory(func(*capability.Registry) (engine.Engine, error) {
		return nil, errors.New("no engine")
	}))
	require.Error(t, g.Start(localAddress))
	require.Equal(t, StateError, g.State())
	require.False(t, g.IsListening())
}

func TestStopWaitIsBounded(t *testing.T) {
	eng := &stubbornEngine{release: make(chan struct{}), closed: make(chan struct{})}
	defer close(eng.release)
	g, _ := newTestGateway(t,
		WithEngineFactory(func(*capability.Registry) (engine.Engine, error) { return eng, nil }),
		WithStopWait(50*time.Millisecond),
	)
	require.NoError(t, g.Start(localAddress))

	start := time.Now()
	g.Stop()
	require.Less(t, time.Since(start), time.Second)
	require.Equal(t, StateStopped, g.State())

	select {
	case <-eng.closed:
	default:
		t.Fatal("engine was not closed")
	}
}

func TestShutdownHonoursContext(t *testing.T) {
	eng := &stubbornEngine{release: make(chan struct{}), closed: make(chan struct{})}
	defer close(eng.release)
	g, _ := newTestGateway(t,
		WithEngineFactory(func(*capability.Registry) (engine.Engine, error) { return eng, nil }),
		WithStopWait(time.Minute),
	)
	require.NoError(t, g.Start(localAddress))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, g.Shutdown(ctx), context.DeadlineExceeded)
	require.Equal(t, StateStopped, g.State())
}

func TestStatusSinkMayStopGateway(t *testing.T) {
	var g *Gateway
	var stopped atomic.Bool
	g, _ = newTestGateway(t, WithStatusSink(func(status Status) {
		if status.State == StateRunning {
			g.Stop()
			stopped.Store(true)
		}
	}))

	require.NoError(t, g.Start(localAddress))
	require.Eventually(t, stopped.Load, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, StateStopped, g.State())
}

func TestStatusCarriesBoundAddress(t *testing.T) {
	g, recorder := newTestGateway(t)
	require.NoError(t, g.Start(localAddress))
	address := g.Address()
	require.NoError(t, g.Close())

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	require.Len(t, recorder.statuses, 4)
	require.Equal(t, address, recorder.statuses[1].Address)
	require.False(t, recorder.statuses[1].At.IsZero())
}

func TestCloseRejectsStart(t *testing.T) {
	g, _ := newTestGateway(t)
	require.NoError(t, g.Close())
	require.NoError(t, g.Close())
	require.ErrorIs(t, g.Start(localAddress), ErrClosed)
}

func TestWaitBeforeStartReportsNotRunning(t *testing.T) {
	g, _ := newTestGateway(t)
	require.ErrorIs(t, g.Wait(context.Background()), ErrNotRunning)
}

func TestWaitReturnsNilAfterCleanStop(t *testing.T) {
	g, _ := newTestGateway(t)
	require.NoError(t, g.Start(localAddress))

	blocked, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, g.Wait(blocked), context.DeadlineExceeded, "Wait must block while running")

	done := make(chan error, 1)
	go func() { done <- g.Wait(context.Background()) }()
	g.Stop()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after Stop")
	}

	require.NoError(t, g.Wait(context.Background()), "a stopped gateway reports its clean stop")
}

func TestWaitAfterStopReportsSupervisionFailure(t *testing.T) {
	eng := &controlledEngine{fail: make(chan error, 1)}
	g, _ := newTestGateway(t, WithEngineFactory(func(*capability.Registry) (engine.Engine, error) {
		return eng, nil
	}))
	require.NoError(t, g.Start(localAddress))

	eng.fail <- errEngineCrashed
	require.Eventually(t, func() bool { return g.State() == StateError }, 2*time.Second, 5*time.Millisecond)
	g.Stop()

	err := g.Wait(context.Background())
	require.ErrorIs(t, err, ErrUnexpectedExit)
	require.ErrorIs(t, err, errEngineCrashed)
}

func TestWaitReportsFailedStart(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()

	g, _ := newTestGateway(t)
	require.NoError(t, g.Start(localAddress))
	g.Stop()
	require.Error(t, g.Start("http://"+occupied.Addr().String()+"/"))

	var bindErr *BindError
	require.ErrorAs(t, g.Wait(context.Background()), &bindErr)
}

// legalTransitions lists every state change the controller may report.
var legalTransitions = map[State][]State{
	StateStopped:  {StateStarting},
	StateStarting: {StateRunning, StateError},
	StateRunning:  {StateStopping, StateError},
	StateStopping: {StateStopped},
	StateError:    {StateStarting, StateStopped},
}

func TestConcurrentStartAndStop(t *testing.T) {
	g, recorder := newTestGateway(t)

	var wg sync.WaitGroup
	for worker := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 15 {
				if (worker+i)%2 == 0 {
					assert.NoError(t, g.Start(localAddress))
				} else {
					g.Stop()
				}
			}
		}()
	}
	wg.Wait()

	require.NoError(t, g.Start(localAddress))
	status, body := postJSON(t, g.Address(), `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, `{"jsonrpc":"2.0","id":1,"result":"pong"}`, body)
	require.NoError(t, g.Close())

	states := recorder.states()
	require.NotEmpty(t, states)
	previous := StateStopped
	for i, state := range states {
		require.Contains(t, legalTransitions[previous], state, "transition %d: %s -> %s", i, previous, state)
		previous = state
	}
	require.Equal(t, StateStopped, previous)
}

package bridge

import "context"

// requestToken is the binary token that serializes round trips within one
// generation. Unlike sync.Mutex, acquisition gives up when ctx ends.
type requestToken struct {
	ch chan struct{}
}

func newRequestToken() *requestToken {
	return &requestToken{ch: make(chan struct{}, 1)}
}

func (t *requestToken) Lock(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case t.ch <- struct{}{}:
	}

	// ctx may have ended in the same instant the token was free.
	if ctx.Err() != nil {
		t.Unlock()
		return ctx.Err()
	}
	return nil
}

func (t *requestToken) TryLock() bool {
	select {
	case t.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

func (t *requestToken) Unlock() {
	select {
	case <-t.ch:
	default:
	}
}

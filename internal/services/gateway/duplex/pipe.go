package duplex

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// Delimiter terminates every frame carried by a Pipe.
const Delimiter = '\n'

// Pipe is a goroutine-safe byte channel with an automatically expanding
// buffer, so writers never block on readers.
//
// Readers either consume raw bytes through Read or whole frames through
// NextFrame. Closing the pipe wakes every waiting reader; buffered bytes stay
// readable until drained, after which readers see the close error.
type Pipe struct {
	mu   sync.Mutex
	data bytes.Buffer
	err  error
	// wake is closed and replaced on every state change.
	wake chan struct{}
}

// NewPipe returns an empty open pipe.
func NewPipe() *Pipe {
	return &Pipe{wake: make(chan struct{})}
}

func (p *Pipe) signalLocked() {
	close(p.wake)
	p.wake = make(chan struct{})
}

// Write appends b to the pipe. It fails with io.ErrClosedPipe after Close.
func (p *Pipe) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return 0, io.ErrClosedPipe
	}
	n, err := p.data.Write(b)
	if n > 0 {
		p.signalLocked()
	}
	return n, err
}

// WriteFrame appends frame followed by Delimiter in one step, so concurrent
// writers can never interleave partial frames.
func (p *Pipe) WriteFrame(frame []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return io.ErrClosedPipe
	}
	p.data.Grow(len(frame) + 1)
	p.data.Write(frame)
	p.data.WriteByte(Delimiter)
	p.signalLocked()
	return nil
}

// Read blocks until data is available or the pipe is closed.
func (p *Pipe) Read(b []byte) (int, error) {
	for {
		p.mu.Lock()
		if p.data.Len() > 0 {
			n, err := p.data.Read(b)
			p.mu.Unlock()
			return n, err
		}
		if p.err != nil {
			err := p.err
			p.mu.Unlock()
			return 0, err
		}
		wake := p.wake
		p.mu.Unlock()
		<-wake
	}
}

// NextFrame blocks until a complete frame is buffered, then consumes and
// returns it without the delimiter. Blank frames are skipped.
//
// When the pipe closes, a trailing partial frame is returned once; after
// that NextFrame reports the close error (io.EOF for a plain Close).
func (p *Pipe) NextFrame(ctx context.Context) ([]byte, error) {
	for {
		p.mu.Lock()
		if frame, ok := p.takeFrameLocked(); ok {
			p.mu.Unlock()
			return frame, nil
		}
		if p.err != nil {
			err := p.err
			rest := bytes.TrimSpace(p.data.Bytes())
			var frame []byte
			if len(rest) > 0 {
				frame = bytes.Clone(rest)
			}
			p.data.Reset()
			p.mu.Unlock()
			if frame != nil {
				return frame, nil
			}
			return nil, err
		}
		wake := p.wake
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wake:
		}
	}
}

func (p *Pipe) takeFrameLocked() ([]byte, bool) {
	for {
		i := bytes.IndexByte(p.data.Bytes(), Delimiter)
		if i < 0 {
			return nil, false
		}
		line := p.data.Next(i + 1)[:i]
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		return bytes.Clone(line), true
	}
}

// Buffered reports the number of unread bytes.
func (p *Pipe) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data.Len()
}

// Close closes the pipe. Readers drain buffered data and then see io.EOF.
func (p *Pipe) Close() error {
	return p.CloseWithError(nil)
}

// CloseWithError closes the pipe with err as the reader-visible error. The
// first close wins; later calls are no-ops and always return nil.
func (p *Pipe) CloseWithError(err error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err == nil {
		err = io.EOF
	}
	if p.err == nil {
		p.err = err
		p.signalLocked()
	}
	return nil
}

// Closed reports whether Close has been called.
func (p *Pipe) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err != nil
}

var _ io.ReadWriteCloser = (*Pipe)(nil)

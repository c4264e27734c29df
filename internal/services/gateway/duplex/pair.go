package duplex

import (
	"errors"
	"io"
)

// Pair is the request/response channel pair owned by one gateway generation.
type Pair struct {
	// Requests carries bridge-to-engine frames.
	Requests *Pipe
	// Responses carries engine-to-bridge frames.
	Responses *Pipe
}

// NewPair returns a pair of open pipes.
func NewPair() *Pair {
	return &Pair{Requests: NewPipe(), Responses: NewPipe()}
}

// EngineSide returns the halves handed to the protocol engine: it reads
// requests and writes responses.
func (p *Pair) EngineSide() (io.ReadCloser, io.WriteCloser) {
	return p.Requests, p.Responses
}

// Close closes both pipes, waking any reader blocked on either side.
func (p *Pair) Close() error {
	return errors.Join(p.Requests.Close(), p.Responses.Close())
}

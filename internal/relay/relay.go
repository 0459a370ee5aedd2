// Package relay moves worker output onto a progress surface and paces the
// worker with acknowledgements.
//
// The exchange is strictly alternating: read a chunk, append it, wait until
// it is shown, acknowledge, read again. The worker blocks after each chunk
// until it reads the acknowledgement, so it never runs ahead of what the
// user can see.
package relay

import (
	"context"
	"io"
	"os"

	"sortmedia/internal/errors"
	"sortmedia/internal/log"
)

const defaultBufferSize = 64 * 1024

// Surface shows worker output. Append must return only once text is
// visible to the user.
type Surface interface {
	Append(text string)
}

// Result summarizes one relayed run.
type Result struct {
	Chunks int   // non-empty reads from the worker
	Acks   int   // acknowledgements written
	Bytes  int64 // raw bytes read
	// AckErr is set when the worker stopped accepting acknowledgements while
	// it was still producing output.
	AckErr error
	// ReadErr is set when the output stream failed other than by closing.
	ReadErr error
}

// Err returns the first problem recorded in the result, if any
func (r Result) Err() error {
	if r.AckErr != nil {
		return r.AckErr
	}
	return r.ReadErr
}

// Relay runs the chunk/acknowledge loop
type Relay struct {
	ack        []byte
	decoder    func() *Decoder
	bufferSize int
}

// New creates a relay that writes ackLine after every chunk. encoding is the
// optional legacy encoding of the worker output.
func New(ackLine string, encoding string) (*Relay, error) {
	if _, err := NewDecoder(encoding); err != nil {
		return nil, errors.NewConfigError("unknown output encoding", "worker.output_encoding", errors.InvalidConfig, err)
	}
	return &Relay{
		ack: []byte(ackLine),
		decoder: func() *Decoder {
			d, _ := NewDecoder(encoding)
			return d
		},
		bufferSize: defaultBufferSize,
	}, nil
}

// Run relays stdout to surface until end-of-stream, acknowledging every
// chunk on stdin. A nil stdin disables acknowledgements. Run returns when
// the stream is closed or ctx is done; it never closes stdin.
func (r *Relay) Run(ctx context.Context, stdout io.Reader, stdin io.Writer, surface Surface) Result {
	var res Result
	dec := r.decoder()
	buf := make([]byte, r.bufferSize)
	acking := stdin != nil

	// A failed acknowledgement is only a handshake error if the worker keeps
	// talking afterwards; a worker that has finished its last read exits
	// without reading the final acknowledgement.
	var pendingAckErr error

	for {
		if err := ctx.Err(); err != nil {
			res.ReadErr = err
			break
		}

		n, err := stdout.Read(buf)
		if n > 0 {
			if pendingAckErr != nil {
				res.AckErr = pendingAckErr
				pendingAckErr = nil
				log.LogWithError(res.AckErr).Warn("Worker stopped reading acknowledgements, draining output only")
			}

			res.Chunks++
			res.Bytes += int64(n)
			if text := dec.Decode(buf[:n]); text != "" {
				surface.Append(text)
			}

			if err == nil && acking {
				if _, werr := stdin.Write(r.ack); werr != nil {
					acking = false
					pendingAckErr = errors.NewHandshakeError("acknowledgement write failed", res.Acks, errors.HandshakeWriteFailed, werr)
				} else {
					res.Acks++
				}
			}
		}

		if err != nil {
			if err != io.EOF && !errors.Is(err, os.ErrClosed) {
				res.ReadErr = errors.NewHandshakeError("reading worker output failed", res.Acks, errors.OutputReadFailed, err)
				log.LogWithError(res.ReadErr).Error("Worker output stream failed")
			}
			break
		}
	}

	if pendingAckErr != nil {
		log.LogWithError(pendingAckErr).Debug("Final acknowledgement not read by exiting worker")
	}

	if tail := dec.Flush(); tail != "" {
		surface.Append(tail)
	}

	log.LogWithFields(
		log.F("chunks", res.Chunks),
		log.F("acks", res.Acks),
		log.F("bytes", res.Bytes),
	).Debug("Output relay finished")

	return res
}

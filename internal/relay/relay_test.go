package relay

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"sortmedia/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eventLog records appends and acks in the order they happen
type eventLog struct {
	mu     sync.Mutex
	events []string
	text   strings.Builder
}

func (l *eventLog) add(ev string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) Append(text string) {
	l.mu.Lock()
	l.text.WriteString(text)
	l.mu.Unlock()
	l.add("append:" + text)
}

func (l *eventLog) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (l *eventLog) Text() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.text.String()
}

// ackRecorder logs an ack and forwards it to the worker side
type ackRecorder struct {
	log *eventLog
	w   io.Writer
}

func (a *ackRecorder) Write(p []byte) (int, error) {
	a.log.add("ack:" + string(p))
	return a.w.Write(p)
}

type failingWriter struct{ writes int }

func (f *failingWriter) Write(p []byte) (int, error) {
	f.writes++
	return 0, io.ErrClosedPipe
}

// fakeWorker writes chunks to out, waiting for one ack line after each
// when acks is non-nil, then closes out.
func fakeWorker(t *testing.T, chunks []string, out *io.PipeWriter, acks io.Reader) <-chan []string {
	received := make(chan []string, 1)
	go func() {
		var got []string
		var scanner *bufio.Scanner
		if acks != nil {
			scanner = bufio.NewScanner(acks)
		}
		for _, c := range chunks {
			if _, err := io.WriteString(out, c); err != nil {
				t.Errorf("worker write: %v", err)
				break
			}
			if scanner != nil {
				if !scanner.Scan() {
					break
				}
				got = append(got, scanner.Text())
			}
		}
		out.Close()
		received <- got
	}()
	return received
}

func newTestRelay(t *testing.T) *Relay {
	t.Helper()
	r, err := New("done\n", "")
	require.NoError(t, err)
	return r
}

func TestRelayHandshakeOrdering(t *testing.T) {
	chunks := []string{"  0%| a.jpg to /p\n", " 33%| b.jpg to /p\n", " 66%| c.mov to /v\n"}
	outR, outW := io.Pipe()
	ackR, ackW := io.Pipe()
	received := fakeWorker(t, chunks, outW, ackR)

	events := &eventLog{}
	res := newTestRelay(t).Run(context.Background(), outR, &ackRecorder{log: events, w: ackW}, events)

	assert.Equal(t, 3, res.Chunks)
	assert.Equal(t, 3, res.Acks)
	assert.NoError(t, res.Err())
	assert.Equal(t, strings.Join(chunks, ""), events.Text())
	assert.Equal(t, []string{"done", "done", "done"}, <-received)

	var want []string
	for _, c := range chunks {
		want = append(want, "append:"+c, "ack:done\n")
	}
	assert.Equal(t, want, events.Events(), "each ack follows its chunk and precedes the next")
}

func TestRelayNoOutput(t *testing.T) {
	outR, outW := io.Pipe()
	outW.Close()
	events := &eventLog{}
	acks := &failingWriter{}

	res := newTestRelay(t).Run(context.Background(), outR, acks, events)

	assert.Equal(t, 0, res.Chunks)
	assert.Equal(t, 0, res.Acks)
	assert.Equal(t, 0, acks.writes)
	assert.Empty(t, events.Events())
	assert.NoError(t, res.Err())
}

func TestRelayDrainsAfterAckFailure(t *testing.T) {
	chunks := []string{"one\n", "two\n", "three\n"}
	outR, outW := io.Pipe()
	fakeWorker(t, chunks, outW, nil)

	events := &eventLog{}
	acks := &failingWriter{}
	res := newTestRelay(t).Run(context.Background(), outR, acks, events)

	assert.Equal(t, 3, res.Chunks)
	assert.Equal(t, 0, res.Acks)
	assert.Equal(t, 1, acks.writes, "a failed ack is not retried")
	assert.Equal(t, "one\ntwo\nthree\n", events.Text())
	require.Error(t, res.AckErr)
	assert.True(t, errors.IsHandshake(res.AckErr))
	assert.Equal(t, errors.HandshakeWriteFailed, errors.KindOf(res.Err()))
}

func TestRelayFinalAckNotReadIsNotAnError(t *testing.T) {
	outR, outW := io.Pipe()
	fakeWorker(t, []string{"100%| last.jpg to /p\n"}, outW, nil)

	events := &eventLog{}
	res := newTestRelay(t).Run(context.Background(), outR, &failingWriter{}, events)

	assert.Equal(t, 1, res.Chunks)
	assert.NoError(t, res.Err())
	assert.Equal(t, "100%| last.jpg to /p\n", events.Text())
}

func TestRelayWithoutStdin(t *testing.T) {
	outR, outW := io.Pipe()
	fakeWorker(t, []string{"a", "b"}, outW, nil)

	events := &eventLog{}
	res := newTestRelay(t).Run(context.Background(), outR, nil, events)
	assert.Equal(t, 2, res.Chunks)
	assert.Equal(t, 0, res.Acks)
	assert.Equal(t, "ab", events.Text())
}

type erroringReader struct {
	data []byte
	err  error
	done bool
}

func (r *erroringReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, r.err
	}
	r.done = true
	return copy(p, r.data), nil
}

func TestRelayReadError(t *testing.T) {
	events := &eventLog{}
	reader := &erroringReader{data: []byte("partial\n"), err: fmt.Errorf("device gone")}
	res := newTestRelay(t).Run(context.Background(), reader, io.Discard, events)

	assert.Equal(t, 1, res.Chunks)
	assert.Equal(t, 1, res.Acks)
	assert.Equal(t, "partial\n", events.Text())
	require.Error(t, res.ReadErr)
	assert.Equal(t, errors.OutputReadFailed, errors.KindOf(res.ReadErr))
	assert.Contains(t, res.ReadErr.Error(), "device gone")
}

func TestRelayContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := &eventLog{}
	res := newTestRelay(t).Run(ctx, strings.NewReader("never read"), io.Discard, events)
	assert.Equal(t, 0, res.Chunks)
	assert.ErrorIs(t, res.ReadErr, context.Canceled)
	assert.Empty(t, events.Text())
}

func TestRelayReassemblesSplitRunes(t *testing.T) {
	text := "  5%| Отпуск.jpg to /фото\n"
	raw := []byte(text)
	// split inside the two-byte "О"
	cut := strings.Index(text, "О") + 1
	outR, outW := io.Pipe()
	fakeWorker(t, []string{string(raw[:cut]), string(raw[cut:])}, outW, nil)

	events := &eventLog{}
	res := newTestRelay(t).Run(context.Background(), outR, io.Discard, events)
	assert.Equal(t, 2, res.Chunks)
	assert.Equal(t, 2, res.Acks)
	assert.Equal(t, text, events.Text())
}

func TestNewRejectsUnknownEncoding(t *testing.T) {
	_, err := New("done\n", "klingon-8")
	require.Error(t, err)
	assert.True(t, errors.IsInvalidConfig(err))
}

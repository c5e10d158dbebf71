package logger

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
)

const lineQueueSize = 512

// lineWriter fans log lines out to several sinks from one goroutine.
// Lines queued together are written as a batch and flushed once. A sink
// that fails is disabled and the others keep receiving lines; the first
// failure is reported by Flush and Close.
type lineWriter struct {
	lines   chan []byte
	flushes chan chan error
	stopped chan struct{}
	stop    sync.Once

	mu    sync.Mutex
	sinks []*sink
	err   error
}

type sink struct {
	buf    *bufio.Writer
	failed bool
}

func newLineWriter(outputs []io.Writer, bufSize int) *lineWriter {
	if bufSize <= 0 {
		bufSize = 32 * 1024
	}
	w := &lineWriter{
		lines:   make(chan []byte, lineQueueSize),
		flushes: make(chan chan error),
		stopped: make(chan struct{}),
	}
	for _, out := range outputs {
		if out != nil {
			w.sinks = append(w.sinks, &sink{buf: bufio.NewWriterSize(out, bufSize)})
		}
	}
	go w.run()
	return w
}

func (w *lineWriter) run() {
	defer close(w.stopped)
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				w.flush()
				return
			}
			w.write(line)
			w.drain()
			w.flush()
		case ack := <-w.flushes:
			w.drain()
			w.flush()
			ack <- w.firstErr()
		}
	}
}

// drain writes whatever else is already queued without blocking.
func (w *lineWriter) drain() {
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				return
			}
			w.write(line)
		default:
			return
		}
	}
}

func (w *lineWriter) write(line []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, s := range w.sinks {
		if s.failed {
			continue
		}
		if _, err := s.buf.Write(line); err != nil {
			w.failLocked(i, err)
		}
	}
}

func (w *lineWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, s := range w.sinks {
		if s.failed {
			continue
		}
		if err := s.buf.Flush(); err != nil {
			w.failLocked(i, err)
		}
	}
}

func (w *lineWriter) failLocked(i int, err error) {
	w.sinks[i].failed = true
	if w.err == nil {
		w.err = fmt.Errorf("logger: sink %d: %w", i, err)
	}
}

func (w *lineWriter) firstErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Write queues one line. It blocks only when the queue is full, so lines
// are never dropped.
func (w *lineWriter) Write(line []byte) error {
	if len(line) == 0 {
		return nil
	}
	select {
	case <-w.stopped:
		return errors.New("logger: writer closed")
	default:
	}
	w.lines <- append([]byte(nil), line...)
	return nil
}

// Flush waits until every queued line reached the sinks.
func (w *lineWriter) Flush() error {
	ack := make(chan error, 1)
	select {
	case w.flushes <- ack:
		return <-ack
	case <-w.stopped:
		return w.firstErr()
	}
}

// Close drains the queue and stops the writer goroutine.
func (w *lineWriter) Close() error {
	w.stop.Do(func() { close(w.lines) })
	<-w.stopped
	return w.firstErr()
}

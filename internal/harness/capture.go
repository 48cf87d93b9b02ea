package harness

import (
	"bytes"
	"io"
	"sync"
)

// outputCapture collects stdout and stderr of one process. Reads are safe while the process
// is still writing, which is what lets a timeout report partial output.
type outputCapture struct {
	mu     sync.Mutex
	stdout bytes.Buffer
	stderr bytes.Buffer
	// tee receives a copy of every write when set (verbose streaming).
	tee io.Writer
}

func newOutputCapture(tee io.Writer) *outputCapture {
	return &outputCapture{tee: tee}
}

func (c *outputCapture) stdoutWriter() io.Writer { return &captureWriter{c: c, buf: &c.stdout} }
func (c *outputCapture) stderrWriter() io.Writer { return &captureWriter{c: c, buf: &c.stderr} }

// snapshot returns what has been captured so far.
func (c *outputCapture) snapshot() (stdout, stderr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stdout.String(), c.stderr.String()
}

type captureWriter struct {
	c   *outputCapture
	buf *bytes.Buffer
}

func (w *captureWriter) Write(p []byte) (int, error) {
	w.c.mu.Lock()
	defer w.c.mu.Unlock()
	n, err := w.buf.Write(p)
	if w.c.tee != nil {
		_, _ = w.c.tee.Write(p)
	}
	return n, err
}

package utils

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinner_ShouldPrintStopMessage(t *testing.T) {
	out := &syncBuffer{}
	s := NewSpinner("starting camera", time.Millisecond, false)
	s.SetWriter(out)

	s.Start()
	time.Sleep(5 * time.Millisecond)
	s.StopMsg = "camera started"
	s.Stop()

	assert.Contains(t, out.String(), "starting camera")
	assert.Contains(t, out.String(), "camera started")
}

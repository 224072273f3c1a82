package bytespool

import (
	"bytes"
	"testing"
)

func TestGetIsEmpty(t *testing.T) {
	t.Parallel()

	b := Get()
	b.WriteString("frame")
	Put(b)

	if got := Get(); got.Len() != 0 {
		t.Fatalf("reused buffer holds %q", got.String())
	}
}

func TestCopyOutlivesBuffer(t *testing.T) {
	t.Parallel()

	b := Get()
	b.WriteString("payload")
	out := Copy(b)
	b.Reset()
	b.WriteString("overwritten")
	Put(b)

	if string(out) != "payload" {
		t.Fatalf("got %q", out)
	}
}

func TestPutDropsLargeBuffers(t *testing.T) {
	t.Parallel()

	Put(nil)
	Put(bytes.NewBuffer(make([]byte, 0, maxRetained+1)))
}

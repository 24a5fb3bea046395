package monitoring

import (
	"errors"
	"testing"
	"time"
)

type recordingMonitor struct {
	errs    []error
	panics  []any
	flushed bool
}

func (m *recordingMonitor) CaptureException(err error, _ map[string]string) {
	m.errs = append(m.errs, err)
}
func (m *recordingMonitor) RecoverPanic(r any)  { m.panics = append(m.panics, r) }
func (m *recordingMonitor) Flush(time.Duration) { m.flushed = true }

func TestRecoverReportsPanic(t *testing.T) {
	rec := &recordingMonitor{}
	prev := current
	Init(rec)
	defer Init(prev)

	func() {
		defer Recover()
		panic("boom")
	}()
	if len(rec.panics) != 1 || rec.panics[0] != "boom" {
		t.Fatalf("expected panic recorded, got %v", rec.panics)
	}

	CaptureException(nil, nil)
	CaptureException(errors.New("x"), map[string]string{"k": "v"})
	if len(rec.errs) != 1 {
		t.Fatalf("expected one error, got %d", len(rec.errs))
	}
	Flush(time.Second)
	if !rec.flushed {
		t.Fatal("expected flush")
	}
}

package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordSink struct {
	count int
	err   error
}

func (r *recordSink) RecordRun(RunEvent) error {
	r.count++
	return r.err
}

func (r *recordSink) RecordRevenue(RevenueEvent) error {
	r.count++
	return nil
}

// runOnly implements no optional recorder.
type runOnly struct{ runs int }

func (r *runOnly) RecordRun(RunEvent) error {
	r.runs++
	return nil
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	s3 := &runOnly{}
	m := NewMultiSink(s1, s2, s3)
	if err := m.RecordRun(RunEvent{Policy: "peak_shaving"}); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if err := m.RecordRevenue(RevenueEvent{Mode: "spread"}); err != nil {
		t.Fatalf("record revenue: %v", err)
	}
	assert.NoError(t, m.RecordSoCTrace("run", nil))
	assert.NoError(t, m.RecordSizing(SizingEvent{}))
	if s1.count != 2 || s2.count != 2 || s3.runs != 1 {
		t.Fatalf("events not forwarded: %d %d %d", s1.count, s2.count, s3.runs)
	}
}

func TestMultiSinkJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	failing := &recordSink{err: boom}
	ok := &recordSink{}
	m := NewMultiSink(failing, ok)
	err := m.RecordRun(RunEvent{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, ok.count, "later sinks still receive the event")
}

type closingSink struct {
	runOnly
	closed bool
}

func (c *closingSink) Close() error {
	c.closed = true
	return nil
}

func TestMultiSinkClose(t *testing.T) {
	c := &closingSink{}
	m := NewMultiSink(&runOnly{}, c)
	assert.NoError(t, m.Close())
	assert.True(t, c.closed)
}

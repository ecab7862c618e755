package processhandle_test

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodflow/supervizio/internal/application/processhandle"
	"github.com/kodflow/supervizio/internal/domain/process"
)

// fakeExecutor implements process.Executor without spawning a real OS
// child; startErr/exitResult let a test control Start/Stop outcomes.
type fakeExecutor struct {
	startErr   error
	exitResult process.ExitResult
}

func (f *fakeExecutor) Start(_ context.Context, _ process.Spec) (int, <-chan process.ExitResult, error) {
	if f.startErr != nil {
		return 0, nil, f.startErr
	}
	ch := make(chan process.ExitResult, 1)
	ch <- f.exitResult
	return 123, ch, nil
}

func (f *fakeExecutor) Stop(_ int, _ time.Duration) error { return nil }

func (f *fakeExecutor) Signal(_ int, _ os.Signal) error { return nil }

// recordingSink captures every AppendLine/SetLastError call made against it.
type recordingSink struct {
	mu        sync.Mutex
	lines     []string
	lastError string
}

func (s *recordingSink) AppendLine(_, _, line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
}

func (s *recordingSink) SetLastError(_, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = msg
}

func (s *recordingSink) snapshot() ([]string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...), s.lastError
}

func testDescriptor() process.Descriptor {
	return process.Descriptor{
		ID:             "svc-1",
		Metadata:       process.Metadata{Name: "svc-1"},
		ExecutablePath: "/bin/true",
		Policy:         process.DefaultPolicy(),
	}
}

func TestHandle_StartOutputPump_NotifiesOutputSink(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	h := processhandle.New(testDescriptor(), &fakeExecutor{}, processhandle.WithOutputSink(sink))

	require.NoError(t, h.Start(context.Background()))
	h.StartOutputPump(strings.NewReader("line one\nline two\n"), nil)

	require.Eventually(t, func() bool {
		lines, _ := sink.snapshot()
		return len(lines) == 2
	}, time.Second, 5*time.Millisecond)

	lines, _ := sink.snapshot()
	assert.Equal(t, []string{"line one", "line two"}, lines)
}

func TestHandle_StartFailure_NotifiesOutputSink(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	exec := &fakeExecutor{startErr: assert.AnError}
	h := processhandle.New(testDescriptor(), exec, processhandle.WithOutputSink(sink))

	err := h.Start(context.Background())
	require.Error(t, err)

	_, lastErr := sink.snapshot()
	assert.NotEmpty(t, lastErr)
}

func TestHandle_CrashOnStop_NotifiesOutputSink(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	exec := &fakeExecutor{exitResult: process.ExitResult{Code: 1, Error: assert.AnError}}
	h := processhandle.New(testDescriptor(), exec, processhandle.WithOutputSink(sink))

	require.NoError(t, h.Start(context.Background()))
	_ = h.Stop(time.Second)

	assert.Equal(t, process.StatusCrashed, h.Snapshot().Status)
	_, lastErr := sink.snapshot()
	assert.NotEmpty(t, lastErr)
}

func TestHandle_WithoutOutputSink_DoesNotPanic(t *testing.T) {
	t.Parallel()

	h := processhandle.New(testDescriptor(), &fakeExecutor{})
	require.NoError(t, h.Start(context.Background()))
	h.StartOutputPump(strings.NewReader("a line\n"), nil)
	_ = h.Stop(time.Second)
}

package actions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remotectl/pkg/dispatch"
	"remotectl/pkg/protocol"
)

func dispatchTo(t *testing.T, runner *Runner, spec Spec) *protocol.Response {
	t.Helper()

	handler := runner.Handler(spec)
	return handler(context.Background(), &protocol.Request{
		Method: protocol.MethodGet,
		Path:   spec.Path,
	})
}

func TestRunner_NoCommandSucceeds(t *testing.T) {
	runner := NewRunner(0, nil)

	resp := dispatchTo(t, runner, Spec{Name: "ping", Path: "/ping"})

	assert.Equal(t, 200, resp.Status)
	assert.Nil(t, resp.Body())
}

func TestRunner_CommandExitStatus(t *testing.T) {
	runner := NewRunner(5*time.Second, nil)

	ok := dispatchTo(t, runner, Spec{Name: "lock", Path: "/lock", Command: []string{"true"}})
	assert.Equal(t, 200, ok.Status)

	failed := dispatchTo(t, runner, Spec{Name: "lock", Path: "/lock", Command: []string{"false"}})
	assert.Equal(t, 500, failed.Status)
}

func TestRunner_MissingCommand(t *testing.T) {
	runner := NewRunner(5*time.Second, nil)

	resp := dispatchTo(t, runner, Spec{
		Name:    "lock",
		Path:    "/lock",
		Command: []string{"this-command-does-not-exist-anywhere"},
	})

	assert.Equal(t, 500, resp.Status)
}

func TestRunner_BinaryOutput(t *testing.T) {
	runner := NewRunner(5*time.Second, nil)

	resp := dispatchTo(t, runner, Spec{
		Name:    "screenshot",
		Path:    "/screenshot",
		Command: []string{"echo", "fake-png-bytes"},
		Binary:  true,
	})

	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "image/png", resp.ContentType())
	assert.Equal(t, "fake-png-bytes\n", string(resp.Body()))
}

func TestRunner_BinaryWithoutCommandFails(t *testing.T) {
	runner := NewRunner(0, nil)

	resp := dispatchTo(t, runner, Spec{Name: "screenshot", Path: "/screenshot", Binary: true})
	assert.Equal(t, 500, resp.Status)
}

func TestRunner_Timeout(t *testing.T) {
	runner := NewRunner(50*time.Millisecond, nil)

	start := time.Now()
	resp := dispatchTo(t, runner, Spec{
		Name:    "sleep",
		Path:    "/sleep",
		Command: []string{"sleep", "10"},
	})

	assert.Equal(t, 500, resp.Status)
	assert.Less(t, time.Since(start), 5*time.Second)
}

type recordingStore struct {
	keys []string
	data [][]byte
}

func (s *recordingStore) Put(ctx context.Context, key string, data []byte) error {
	s.keys = append(s.keys, key)
	s.data = append(s.data, data)
	return nil
}

func (s *recordingStore) Get(ctx context.Context, key string) ([]byte, error) { return nil, nil }
func (s *recordingStore) Close() error                                        { return nil }

func TestRunner_ArchivesBinaryOutput(t *testing.T) {
	store := &recordingStore{}
	runner := NewRunner(5*time.Second, store)

	resp := dispatchTo(t, runner, Spec{
		Name:    "screenshot",
		Path:    "/screenshot",
		Command: []string{"echo", "pixels"},
		Binary:  true,
	})

	require.Equal(t, 200, resp.Status)
	require.Len(t, store.keys, 1)
	assert.Contains(t, store.keys[0], "screenshot/")
	assert.Equal(t, []byte("pixels\n"), store.data[0])
}

func TestRunner_StatusActionsNotArchived(t *testing.T) {
	store := &recordingStore{}
	runner := NewRunner(5*time.Second, store)

	resp := dispatchTo(t, runner, Spec{Name: "ping", Path: "/ping", Command: []string{"true"}})

	assert.Equal(t, 200, resp.Status)
	assert.Empty(t, store.keys)
}

func TestDefaultSpecs(t *testing.T) {
	specs := DefaultSpecs()

	mux := dispatch.NewMux()
	NewRunner(0, nil).RegisterAll(mux, specs)

	paths := mux.Paths()
	for _, want := range []string{"/ping", "/sleep", "/sleep_display", "/minimize", "/screenshot", "/lock"} {
		assert.Contains(t, paths, want)
	}
}

package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"remotectl/pkg/protocol"
)

func TestMux_Dispatch(t *testing.T) {
	mux := NewMux()
	mux.Register("/ping", "ping", func(ctx context.Context, req *protocol.Request) *protocol.Response {
		return protocol.FromStatus(200)
	})

	resp := mux.Dispatch(context.Background(), &protocol.Request{
		Method: protocol.MethodGet,
		Path:   "/ping",
	})

	assert.Equal(t, 200, resp.Status)
}

func TestMux_UnknownPath(t *testing.T) {
	mux := NewMux()

	var invoked bool
	mux.Register("/ping", "ping", func(ctx context.Context, req *protocol.Request) *protocol.Response {
		invoked = true
		return protocol.FromStatus(200)
	})

	resp := mux.Dispatch(context.Background(), &protocol.Request{
		Method: protocol.MethodGet,
		Path:   "/does-not-exist",
	})

	assert.Equal(t, 404, resp.Status)
	assert.False(t, invoked)
}

func TestMux_RegisterReplaces(t *testing.T) {
	mux := NewMux()
	mux.Register("/x", "first", func(ctx context.Context, req *protocol.Request) *protocol.Response {
		return protocol.FromStatus(500)
	})
	mux.Register("/x", "second", func(ctx context.Context, req *protocol.Request) *protocol.Response {
		return protocol.FromStatus(200)
	})

	resp := mux.Dispatch(context.Background(), &protocol.Request{Path: "/x"})
	assert.Equal(t, 200, resp.Status)
}

func TestMux_Paths(t *testing.T) {
	mux := NewMux()
	mux.Register("/a", "a", nil)
	mux.Register("/b", "b", nil)

	assert.ElementsMatch(t, []string{"/a", "/b"}, mux.Paths())
}

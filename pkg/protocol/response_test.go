package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serialize(t *testing.T, r *Response) []byte {
	t.Helper()

	var buf bytes.Buffer
	n, err := r.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(buf.Len()), n)
	return buf.Bytes()
}

func TestResponse_FromStatus(t *testing.T) {
	out := serialize(t, FromStatus(200))

	assert.Equal(t, "HTTP/1.1 200\r\nContent-Length: 0\r\n\r\n", string(out))
}

func TestResponse_FromMessage(t *testing.T) {
	out := serialize(t, FromMessage(400, "x"))

	expected := "HTTP/1.1 400\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"Content-Length: 1\r\n" +
		"\r\n" +
		"x"
	assert.Equal(t, expected, string(out))
}

func TestResponse_FromMessage_LengthIsBytes(t *testing.T) {
	// Content-Length counts bytes, not runes.
	out := serialize(t, FromMessage(200, "héllo"))

	assert.Contains(t, string(out), "Content-Length: 6\r\n")
}

func TestResponse_FromBinary(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	resp := FromBinary(png)

	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "image/png", resp.ContentType())

	out := serialize(t, resp)
	expected := append([]byte("HTTP/1.1 200\r\nContent-Type: image/png\r\nContent-Length: 8\r\n\r\n"), png...)
	assert.Equal(t, expected, out)
}

func TestResponse_EmptyHasNoContentType(t *testing.T) {
	out := serialize(t, FromStatus(401))

	assert.NotContains(t, string(out), "Content-Type")
	assert.Equal(t, "HTTP/1.1 401\r\nContent-Length: 0\r\n\r\n", string(out))
}

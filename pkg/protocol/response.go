package protocol

import (
	"fmt"
	"io"
	"strings"
)

// MIME types used on the wire. Binary content is PNG in practice (the
// screenshot action) but the response model treats it as opaque bytes.
const (
	contentTypeText   = "text/plain; charset=utf-8"
	contentTypeBinary = "image/png"
)

// Response is a minimal HTTP-like response: a status code and optional typed
// content. A Response is written once and discarded.
type Response struct {
	Status int

	contentType string
	body        []byte
}

// FromStatus creates a response with no content. No Content-Type header is
// emitted; Content-Length is 0.
func FromStatus(status int) *Response {
	return &Response{Status: status}
}

// FromMessage creates a text response.
func FromMessage(status int, msg string) *Response {
	return &Response{
		Status:      status,
		contentType: contentTypeText,
		body:        []byte(msg),
	}
}

// FromBinary creates a 200 response carrying opaque binary content.
func FromBinary(body []byte) *Response {
	return &Response{
		Status:      200,
		contentType: contentTypeBinary,
		body:        body,
	}
}

// ContentType returns the MIME type, or "" when the response has no content.
func (r *Response) ContentType() string {
	return r.contentType
}

// Body returns the content bytes. Nil for a status-only response.
func (r *Response) Body() []byte {
	return r.body
}

// headers renders the status line and headers, including the terminating
// blank line. The format is fixed and byte-exact:
//
//	HTTP/1.1 <status>\r\n
//	Content-Type: <mime>\r\n        (omitted when there is no content)
//	Content-Length: <n>\r\n
//	\r\n
func (r *Response) headers() string {
	var b strings.Builder
	fmt.Fprintf(&b, "HTTP/1.1 %d\r\n", r.Status)
	if r.contentType != "" {
		fmt.Fprintf(&b, "Content-Type: %s\r\n", r.contentType)
	}
	fmt.Fprintf(&b, "Content-Length: %d\r\n\r\n", len(r.body))
	return b.String()
}

// WriteTo serializes the response to w. Implements io.WriterTo.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	var total int64

	n, err := io.WriteString(w, r.headers())
	total += int64(n)
	if err != nil {
		return total, fmt.Errorf("write response headers: %w", err)
	}

	if len(r.body) > 0 {
		n, err = w.Write(r.body)
		total += int64(n)
		if err != nil {
			return total, fmt.Errorf("write response body: %w", err)
		}
	}

	return total, nil
}

// Package protocol implements the wire format of the control protocol: a
// minimal HTTP-like request parser and a byte-exact response serializer.
//
// The parser runs on attacker-controlled bytes and must never panic; every
// failure is a typed error. It is deliberately not a general HTTP
// implementation: one request per connection, two known headers, no body
// handling, no chunking.
package protocol

import (
	"strings"
)

// Method is an HTTP method accepted by the server. Only GET and POST exist.
type Method string

const (
	MethodGet  Method = "GET"
	MethodPost Method = "POST"
)

// RawRequest is the parsed but not yet authenticated form of a request.
// The headers still need to pass authentication before the request may be
// dispatched.
type RawRequest struct {
	Method  Method
	Path    string
	Headers map[string]string
}

// Request is an authenticated request as handed to dispatch handlers. The
// connection loop only constructs one after authentication succeeds, so a
// handler receiving a Request can rely on the caller having proven key
// possession.
type Request struct {
	Method Method
	Path   string
}

// ParseRequest parses a raw read buffer into a RawRequest.
//
// The buffer is interpreted as UTF-8 with lossy substitution; bad encoding
// alone never fails a request. Lines are consumed up to the first blank line
// (the header/body boundary). The request line is split into at most three
// space-separated tokens; the third (the HTTP version) is ignored. Header
// lines split on the first ": "; lines without the separator are skipped
// rather than fatal.
//
// Errors:
//   - ErrMalformedHTTP: empty header section, missing method or path, or a
//     method other than GET/POST
//   - *IllegalEndpointError: the path is /favicon.ico, rejected here so it
//     is refused before authentication ever runs
func ParseRequest(buf []byte) (*RawRequest, error) {
	text := strings.ToValidUTF8(string(buf), "�")

	var headerLines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			break
		}
		headerLines = append(headerLines, line)
	}

	if len(headerLines) == 0 {
		return nil, ErrMalformedHTTP
	}

	tokens := strings.SplitN(headerLines[0], " ", 3)
	if len(tokens) < 2 || tokens[0] == "" || tokens[1] == "" {
		return nil, ErrMalformedHTTP
	}

	var method Method
	switch tokens[0] {
	case "GET":
		method = MethodGet
	case "POST":
		method = MethodPost
	default:
		return nil, ErrMalformedHTTP
	}

	path := tokens[1]
	if path == "/favicon.ico" {
		return nil, &IllegalEndpointError{Path: path}
	}

	headers := make(map[string]string)
	for _, line := range headerLines[1:] {
		name, value, found := strings.Cut(line, ": ")
		if !found {
			continue
		}
		headers[name] = value
	}

	return &RawRequest{
		Method:  method,
		Path:    path,
		Headers: headers,
	}, nil
}

package httpcore

import (
	"io"
	"strconv"

	"github.com/corehttpd/corehttpd/internal/httperr"
	"github.com/corehttpd/corehttpd/internal/transport"
)

// headerPair preserves response-side header insertion order, per §3's
// Response invariant that insertion order is preserved.
type headerPair struct{ name, value string }

// BodyKind tags which of the three body shapes §3 allows is in use.
type BodyKind int

const (
	BodyNone BodyKind = iota
	BodyStream
	BodyReader
)

// Response accumulates status, headers, and at most one body. The
// status is committed last: SetStatus may be called any number of
// times up until WriteTo flushes the header block.
type Response struct {
	status  int
	headers []headerPair
	seen    map[string]int // name -> index into headers, for last-write-wins Set

	bodyKind   BodyKind
	bodyStream io.Reader
	bodyLen    int64 // -1 if unknown
	bodyReader func(w io.Writer) error
}

// NewResponse returns a Response defaulting to 200 with no body.
func NewResponse() *Response {
	return &Response{status: 200, seen: make(map[string]int)}
}

// SetStatus overrides the status code; may be called repeatedly up
// until the header block is flushed.
func (r *Response) SetStatus(status int) { r.status = status }

// Status returns the currently set status.
func (r *Response) Status() int { return r.status }

// SetHeader sets a header, replacing any previous value with the same
// name (case-insensitive) while preserving its original position.
func (r *Response) SetHeader(name, value string) {
	key := canonicalKey(name)
	if idx, ok := r.seen[key]; ok {
		r.headers[idx].value = value
		return
	}
	r.seen[key] = len(r.headers)
	r.headers = append(r.headers, headerPair{name: name, value: value})
}

// AddHeader appends a header without deduplicating (e.g. Set-Cookie).
func (r *Response) AddHeader(name, value string) {
	r.headers = append(r.headers, headerPair{name: name, value: value})
}

// Header returns the first value set for name, or "".
func (r *Response) Header(name string) string {
	key := canonicalKey(name)
	if idx, ok := r.seen[key]; ok {
		return r.headers[idx].value
	}
	return ""
}

// SetBodyStream attaches a seekable stream of known length. Calling
// this (or SetBodyReader) a second time is a programmer error the
// caller must avoid; per §3, once a body is set, setting another body
// returns an error.
func (r *Response) SetBodyStream(stream io.Reader, length int64) error {
	if r.bodyKind != BodyNone {
		return httperr.New(httperr.Internal, "response body already set")
	}
	r.bodyKind = BodyStream
	r.bodyStream = stream
	r.bodyLen = length
	return nil
}

// SetBodyReader attaches a memory-backed, lazily-produced body of
// unknown length (the "response reader" shape from §3).
func (r *Response) SetBodyReader(fn func(w io.Writer) error) error {
	if r.bodyKind != BodyNone {
		return httperr.New(httperr.Internal, "response body already set")
	}
	r.bodyKind = BodyReader
	r.bodyReader = fn
	r.bodyLen = -1
	return nil
}

// BodyLength returns the body length: 0 when no body is set, -1 when
// the body's length is unknown (a body reader).
func (r *Response) BodyLength() int64 {
	if r.bodyKind == BodyNone {
		return 0
	}
	return r.bodyLen
}

// statusText mirrors the minimal set of reason phrases the scenarios
// in §8 name explicitly; anything else falls back to a generic phrase.
var statusText = map[int]string{
	200: "OK", 101: "Switching Protocols", 301: "Moved Permanently",
	400: "Bad Request", 403: "Forbidden", 404: "Not Found",
	405: "Method Not Allowed", 408: "Request Timeout", 413: "Payload Too Large",
	416: "Range Not Satisfiable", 417: "Expectation Failed", 421: "Misdirected Request",
	426: "Upgrade Required", 431: "Request Header Fields Too Large",
	500: "Internal Server Error", 503: "Service Unavailable",
}

func reasonPhrase(status int) string {
	if t, ok := statusText[status]; ok {
		return t
	}
	return "Status " + strconv.Itoa(status)
}

// WriteHeaderBlock serializes the status line and headers into acc,
// status-last (i.e. written immediately before the CRLFCRLF
// terminator flush, per §4.4): the status line is still the first
// bytes on the wire, but callers may mutate r.status up until this
// call executes, which is the ordering guarantee §8 tests.
func (r *Response) WriteHeaderBlock(acc *transport.Accumulator, version Version) error {
	acc.AppendString(version.String())
	acc.AppendByte(' ')
	acc.AppendString(strconv.Itoa(r.status))
	acc.AppendByte(' ')
	acc.AppendString(reasonPhrase(r.status))
	acc.WriteTerminator("\r\n")
	for _, h := range r.headers {
		acc.AppendString(h.name)
		acc.AppendString(": ")
		acc.AppendString(h.value)
		acc.WriteTerminator("\r\n")
	}
	acc.WriteTerminator("\r\n")
	return nil
}

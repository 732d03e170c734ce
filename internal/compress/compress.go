// Package compress implements the compression half of C9: negotiating
// a codec against a client's Accept-Encoding header and exposing it
// through the block-oriented interface §6 specifies
// (AllocateCompressor/GetCompressorBlockSize/CompressBlock/FreeCompressor),
// so a real native/cgo backend could later replace the codecs here
// without changing any caller.
package compress

import "strings"

// Type identifies a negotiable content coding.
type Type int

const (
	None Type = iota
	Gzip
	Deflate
	Brotli
	LZ4
)

func (t Type) String() string {
	switch t {
	case Gzip:
		return "gzip"
	case Deflate:
		return "deflate"
	case Brotli:
		return "br"
	case LZ4:
		return "lz4"
	default:
		return "identity"
	}
}

// parseType maps an Accept-Encoding token to a Type; unrecognized
// tokens map to None.
func parseType(token string) Type {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "gzip":
		return Gzip
	case "deflate":
		return Deflate
	case "br":
		return Brotli
	case "x-lz4", "lz4":
		return LZ4
	default:
		return None
	}
}

// Negotiate picks the first type in preference order (gzip, brotli,
// deflate, lz4 — brotli ranked above deflate as the stronger, still
// broadly supported codec) that both appears in acceptEncoding and is
// in supported. A bare "*" or an empty header with no explicit
// "identity;q=0" falls through to None (no compression), matching
// HTTP's default of not compressing unless asked.
func Negotiate(acceptEncoding string, supported map[Type]bool) Type {
	if acceptEncoding == "" {
		return None
	}
	offered := make(map[Type]bool)
	for _, part := range strings.Split(acceptEncoding, ",") {
		name, _, _ := strings.Cut(part, ";")
		if t := parseType(name); t != None {
			offered[t] = true
		}
	}
	for _, t := range []Type{Gzip, Brotli, Deflate, LZ4} {
		if offered[t] && supported[t] {
			return t
		}
	}
	return None
}

package httpd

import (
	"fmt"

	"github.com/corehttpd/corehttpd/internal/compress"
	"github.com/corehttpd/corehttpd/internal/config"
	"github.com/corehttpd/corehttpd/internal/httpcore"
)

// negotiateEncoding applies §4.4's compression precondition ("response
// size ... falls between CompressionMinimum and CompressionLimit
// inclusive") before asking compress.Negotiate to pick a codec from
// the request's Accept-Encoding. CompressionLimit == 0 disables
// compression outright, per HttpConfig's documented meaningful zero.
func (s *Server) negotiateEncoding(req *httpcore.Request, size int64) compress.Type {
	if s.cfg.CompressionLimit <= 0 || s.cfg.CompressionLevel == config.CompressionNone {
		return compress.None
	}
	if size < int64(s.cfg.CompressionMinimum) || size > int64(s.cfg.CompressionLimit) {
		return compress.None
	}
	return compress.Negotiate(req.Headers.Get("Accept-Encoding"), s.compressor.SupportedSet())
}

// compressAll drives the §6 block-oriented interface
// (AllocateCompressor/GetCompressorBlockSize/CompressBlock/FreeCompressor)
// to compress data in full, draining ErrOverflow by refilling BytesOut
// and retrying exactly as §4.9 describes.
func (s *Server) compressAll(typ compress.Type, data []byte) ([]byte, error) {
	h, err := s.compressor.AllocateCompressor(typ, compressionLevelFor(s.cfg.CompressionLevel))
	if err != nil {
		return nil, err
	}
	defer s.compressor.FreeCompressor(h)

	blockSize := s.compressor.GetCompressorBlockSize(h)
	buf := make([]byte, blockSize)
	out := make([]byte, 0, len(data)/2+blockSize)

	in := data
	for {
		flush := len(in) == 0
		res := s.compressor.CompressBlock(h, compress.BlockArgs{
			BytesIn: in, BytesInLen: len(in),
			BytesOut: buf, BytesOutLen: len(buf),
			Flush: flush,
		})
		if res.Status == compress.ErrInvalidHandle || res.Status == compress.ErrUnsupportedType || res.Status == compress.ErrAllocationFailed {
			return nil, fmt.Errorf("compress: block failed with status %d", res.Status)
		}
		out = append(out, buf[:res.BytesWritten]...)
		in = in[res.BytesRead:]

		for res.Status == compress.ErrOverflow {
			res = s.compressor.CompressBlock(h, compress.BlockArgs{BytesOut: buf, BytesOutLen: len(buf)})
			out = append(out, buf[:res.BytesWritten]...)
		}
		if flush {
			break
		}
	}
	return out, nil
}

// compressionLevelFor maps the persisted CompressionLevel enum onto
// the codec-specific integer level AllocateCompressor expects; 0
// means "codec default" for every codec Manager supports.
func compressionLevelFor(l config.CompressionLevel) int {
	switch l {
	case config.CompressionFastest:
		return 1
	case config.CompressionSmallest:
		return 9
	default:
		return 0
	}
}

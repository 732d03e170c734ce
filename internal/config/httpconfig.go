// Package config loads the persisted JSON configuration document (§6:
// top-level `http`, `virtual_hosts[]`, `plugins?`) plus the operational
// environment-variable overrides layered on top of it, following the
// retrieved config package's "validate required, default the rest"
// constructor shape and its getEnv* helper family.
package config

import "time"

// CompressionLevel mirrors §3's CompressionLevel enum.
type CompressionLevel int

const (
	CompressionOptimal CompressionLevel = iota
	CompressionFastest
	CompressionNone
	CompressionSmallest
)

func parseCompressionLevel(s string) CompressionLevel {
	switch s {
	case "Fastest":
		return CompressionFastest
	case "None":
		return CompressionNone
	case "Smallest":
		return CompressionSmallest
	default:
		return CompressionOptimal
	}
}

// HttpVersion mirrors §3's DefaultHttpVersion enum.
type HttpVersion int

const (
	VersionHttp1 HttpVersion = iota
	VersionHttp11
)

func parseHttpVersion(s string) HttpVersion {
	if s == "Http1" {
		return VersionHttp1
	}
	return VersionHttp11
}

// HttpConfig is §3's HttpConfig data model: the recognized tuning
// options shared by every virtual host bound to a listener. Opaque
// fields (MemoryPool, ServerLog, CompressorManager) are left for the
// server-assembly layer to attach; they have no JSON representation.
type HttpConfig struct {
	MaxUploadSize                 int64
	MaxFormDataUploadSize         int64 // 0 disables multipart
	FormDataBufferSize            int
	CompressionLimit              int // 0 disables compression
	CompressionMinimum            int
	ConnectionKeepAlive           time.Duration
	HttpEncoding                  string
	CompressionLevel              CompressionLevel
	DefaultHttpVersion            HttpVersion
	HeaderBufferSize              int
	ActiveConnectionRecvTimeoutMs int
	SendTimeoutMs                 int
	MaxRequestHeaderCount         int
	MaxOpenConnections            int64 // 0 means permanent 503
	ResponseHeaderBufferSize      int
	DiscardBufferSize             int
	ResponseBufferSize            int
	ChunkedResponseAccumulatorSize int
	MaxUploadsPerRequest          int
	DebugPerformanceCounters      bool
}

// defaultHttpConfig mirrors the retrieved config package's DefaultConfig,
// sized against §5's buffer defaults.
func defaultHttpConfig() HttpConfig {
	return HttpConfig{
		MaxUploadSize:                  10 * 1024 * 1024,
		MaxFormDataUploadSize:          2 * 1024 * 1024,
		FormDataBufferSize:             64 * 1024,
		CompressionLimit:               1 << 20,
		CompressionMinimum:             256,
		ConnectionKeepAlive:            15 * time.Second,
		HttpEncoding:                   "utf-8",
		CompressionLevel:               CompressionOptimal,
		DefaultHttpVersion:             VersionHttp11,
		HeaderBufferSize:               8192,
		ActiveConnectionRecvTimeoutMs:  30000,
		SendTimeoutMs:                  30000,
		MaxRequestHeaderCount:          100,
		MaxOpenConnections:             10000,
		ResponseHeaderBufferSize:       8192,
		DiscardBufferSize:              4096,
		ResponseBufferSize:             8192,
		ChunkedResponseAccumulatorSize: 8192,
		MaxUploadsPerRequest:           20,
		DebugPerformanceCounters:       false,
	}
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/corehttpd/corehttpd/internal/vhost"
)

// jsonInterface mirrors one entry of a virtual host's `interfaces[]`.
type jsonInterface struct {
	Address            string `json:"address"`
	Port               int    `json:"port"`
	SSL                bool   `json:"ssl"`
	Certificate        string `json:"certificate,omitempty"`
	PrivateKey         string `json:"private_key,omitempty"`
	Password           string `json:"password,omitempty"`
	ClientCertRequired bool   `json:"client_cert_required"`
	UseOSCiphers       bool   `json:"use_os_ciphers"`
}

// jsonCORS mirrors the persisted `cors{}` block.
type jsonCORS struct {
	Enabled           bool     `json:"enabled"`
	DenyCORSConnections bool   `json:"deny_cors_connections"`
	AllowedAuthority  []string `json:"allowed_authority"`
}

// jsonErrorFile mirrors one `error_files[]` entry.
type jsonErrorFile struct {
	Code int    `json:"code"`
	Path string `json:"path"`
}

// jsonBenchmark mirrors the optional `benchmark{}` block (§6); the
// running server ignores it, `cmd/httpd bench` reads it to size its
// synthetic load run.
type jsonBenchmark struct {
	Enabled bool `json:"enabled"`
	Size    int  `json:"size"`
	Random  bool `json:"random"`
}

// VirtualHostDoc is one `virtual_hosts[]` entry as persisted in the
// JSON configuration document (§6).
type VirtualHostDoc struct {
	Name            string            `json:"name"`
	Hostnames       []string          `json:"hostnames"`
	Interfaces      []jsonInterface   `json:"interfaces"`
	Path            string            `json:"path"`
	Whitelist       []string          `json:"whitelist,omitempty"`
	Blacklist       []string          `json:"blacklist,omitempty"`
	DefaultFiles    []string          `json:"default_files,omitempty"`
	DenyExtensions  []string          `json:"deny_extensions,omitempty"`
	Headers         map[string]string `json:"headers,omitempty"`
	SpecialHeaders  map[string]string `json:"special_headers,omitempty"`
	CORS            jsonCORS          `json:"cors"`
	ErrorFiles      []jsonErrorFile   `json:"error_files"`
	CacheDefaultSec int               `json:"cache_default_sec"`
	PathFilter      string            `json:"path_filter,omitempty"`
	Trace           bool              `json:"trace,omitempty"`
	ForcePortCheck  bool              `json:"force_port_check,omitempty"`
	Benchmark       *jsonBenchmark    `json:"benchmark,omitempty"`
}

// PluginsDoc mirrors the top-level `plugins{}` block.
type PluginsDoc struct {
	Enabled        bool   `json:"enabled"`
	Path           string `json:"path"`
	ConfigDir      string `json:"config_dir,omitempty"`
	HotReload      bool   `json:"hot_reload"`
	ReloadDelaySec int    `json:"reload_delay_sec"`
}

// jsonHttpConfig is the wire shape of the top-level `http` block,
// using the persisted doc's snake_case convention; BuildHttpConfig converts it
// into the zero-JSON HttpConfig type the rest of the server consumes.
type jsonHttpConfig struct {
	MaxUploadSize                  int64  `json:"max_upload_size"`
	// MaxFormDataUploadSize and CompressionLimit are pointers for the
	// same reason as MaxOpenConnections below: both treat an explicit
	// 0 as "disable this feature" per §3, distinct from "not set".
	MaxFormDataUploadSize          *int64 `json:"max_form_data_upload_size"`
	FormDataBufferSize             int    `json:"form_data_buffer_size"`
	CompressionLimit               *int   `json:"compression_limit"`
	CompressionMinimum             int    `json:"compression_minimum"`
	ConnectionKeepAliveMs          int    `json:"connection_keep_alive_ms"`
	HttpEncoding                   string `json:"http_encoding"`
	CompressionLevel               string `json:"compression_level"`
	DefaultHttpVersion              string `json:"default_http_version"`
	HeaderBufferSize                int    `json:"header_buffer_size"`
	ActiveConnectionRecvTimeoutMs   int    `json:"active_connection_recv_timeout_ms"`
	SendTimeoutMs                   int    `json:"send_timeout_ms"`
	MaxRequestHeaderCount            int    `json:"max_request_header_count"`
	// MaxOpenConnections is a pointer so an explicit `0` (§3: "permanent
	// 503") can be told apart from an omitted field, which should default.
	MaxOpenConnections               *int64 `json:"max_open_connections"`
	ResponseHeaderBufferSize         int    `json:"response_header_buffer_size"`
	DiscardBufferSize                int    `json:"discard_buffer_size"`
	ResponseBufferSize               int    `json:"response_buffer_size"`
	ChunkedResponseAccumulatorSize   int    `json:"chunked_response_accumulator_size"`
	MaxUploadsPerRequest             int    `json:"max_uploads_per_request"`
	DebugPerformanceCounters         bool   `json:"debug_performance_counters"`
}

// Document is the full persisted configuration (§6): `http`,
// `virtual_hosts[]`, and an optional `plugins{}` block.
type Document struct {
	HTTP         jsonHttpConfig   `json:"http"`
	VirtualHosts []VirtualHostDoc `json:"virtual_hosts"`
	Plugins      *PluginsDoc      `json:"plugins,omitempty"`
}

// Load reads and parses the JSON configuration document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &doc, nil
}

// BuildHttpConfig converts the parsed `http` block into an HttpConfig,
// defaulting any field left at its JSON zero value.
func BuildHttpConfig(j jsonHttpConfig) HttpConfig {
	cfg := defaultHttpConfig()
	if j.MaxUploadSize != 0 {
		cfg.MaxUploadSize = j.MaxUploadSize
	}
	if j.MaxFormDataUploadSize != nil {
		cfg.MaxFormDataUploadSize = *j.MaxFormDataUploadSize // 0 disables multipart parsing
	}
	if j.FormDataBufferSize != 0 {
		cfg.FormDataBufferSize = j.FormDataBufferSize
	}
	if j.CompressionLimit != nil {
		cfg.CompressionLimit = *j.CompressionLimit // 0 disables compression
	}
	if j.CompressionMinimum != 0 {
		cfg.CompressionMinimum = j.CompressionMinimum
	}
	if j.ConnectionKeepAliveMs != 0 {
		cfg.ConnectionKeepAlive = time.Duration(j.ConnectionKeepAliveMs) * time.Millisecond
	}
	if j.HttpEncoding != "" {
		cfg.HttpEncoding = j.HttpEncoding
	}
	if j.CompressionLevel != "" {
		cfg.CompressionLevel = parseCompressionLevel(j.CompressionLevel)
	}
	if j.DefaultHttpVersion != "" {
		cfg.DefaultHttpVersion = parseHttpVersion(j.DefaultHttpVersion)
	}
	if j.HeaderBufferSize != 0 {
		cfg.HeaderBufferSize = j.HeaderBufferSize
	}
	if j.ActiveConnectionRecvTimeoutMs != 0 {
		cfg.ActiveConnectionRecvTimeoutMs = j.ActiveConnectionRecvTimeoutMs
	}
	if j.SendTimeoutMs != 0 {
		cfg.SendTimeoutMs = j.SendTimeoutMs
	}
	if j.MaxRequestHeaderCount != 0 {
		cfg.MaxRequestHeaderCount = j.MaxRequestHeaderCount
	}
	if j.MaxOpenConnections != nil {
		cfg.MaxOpenConnections = *j.MaxOpenConnections // 0 is a valid "permanent 503" value
	}
	if j.ResponseHeaderBufferSize != 0 {
		cfg.ResponseHeaderBufferSize = j.ResponseHeaderBufferSize
	}
	if j.DiscardBufferSize != 0 {
		cfg.DiscardBufferSize = j.DiscardBufferSize
	}
	if j.ResponseBufferSize != 0 {
		cfg.ResponseBufferSize = j.ResponseBufferSize
	}
	if j.ChunkedResponseAccumulatorSize != 0 {
		cfg.ChunkedResponseAccumulatorSize = j.ChunkedResponseAccumulatorSize
	}
	if j.MaxUploadsPerRequest != 0 {
		cfg.MaxUploadsPerRequest = j.MaxUploadsPerRequest
	}
	cfg.DebugPerformanceCounters = j.DebugPerformanceCounters
	return cfg
}

// BuildVHostConfig converts one VirtualHostDoc into a vhost.Config,
// compiling its path-filter regex and error-file/extension sets.
func BuildVHostConfig(doc VirtualHostDoc) (*vhost.Config, error) {
	cfg := &vhost.Config{
		Name:           doc.Name,
		Hostnames:      doc.Hostnames,
		Root:           doc.Path,
		DefaultFiles:   doc.DefaultFiles,
		Whitelist:      doc.Whitelist,
		Blacklist:      doc.Blacklist,
		Headers:        doc.Headers,
		SpecialHeaders: doc.SpecialHeaders,
		CacheDefault:   time.Duration(doc.CacheDefaultSec) * time.Second,
		ForcePortCheck: doc.ForcePortCheck,
		CORS: vhost.CORSConfig{
			Enabled:             doc.CORS.Enabled,
			DenyCORSConnections: doc.CORS.DenyCORSConnections,
			AllowedAuthority:    doc.CORS.AllowedAuthority,
		},
	}

	for _, iface := range doc.Interfaces {
		cfg.Interfaces = append(cfg.Interfaces, vhost.Interface{
			Address: iface.Address,
			Port:    iface.Port,
			SSL:     iface.SSL,
		})
	}

	if doc.PathFilter != "" {
		re, err := regexp.Compile(doc.PathFilter)
		if err != nil {
			return nil, fmt.Errorf("config: virtual host %s: path_filter: %w", doc.Name, err)
		}
		cfg.PathFilter = re
	}

	if len(doc.DenyExtensions) > 0 {
		cfg.DeniedExtensions = make(map[string]bool, len(doc.DenyExtensions))
		for _, ext := range doc.DenyExtensions {
			cfg.DeniedExtensions[ext] = true
		}
	}

	if len(doc.ErrorFiles) > 0 {
		cfg.ErrorFiles = make(map[int]vhost.ErrorFile, len(doc.ErrorFiles))
		for _, ef := range doc.ErrorFiles {
			cfg.ErrorFiles[ef.Code] = vhost.ErrorFile{Code: ef.Code, Path: ef.Path}
		}
	}

	return cfg, nil
}

// BuildVHostConfigs converts every virtual_hosts[] entry.
func BuildVHostConfigs(docs []VirtualHostDoc) ([]*vhost.Config, error) {
	out := make([]*vhost.Config, 0, len(docs))
	for _, d := range docs {
		c, err := BuildVHostConfig(d)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

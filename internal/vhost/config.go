// Package vhost matches an incoming request to a virtual-host
// configuration (C5): hostname/interface lookup, path-filter, IP
// whitelist/blacklist, CORS denial, and force_port_check.
package vhost

import (
	"regexp"
	"time"
)

// Interface is one (address, port) the host listens on, mirroring the
// HttpConfig interface entries from the persisted JSON document.
type Interface struct {
	Address string
	Port    int
	SSL     bool
}

// CORSConfig mirrors the persisted `cors{}` block.
type CORSConfig struct {
	Enabled           bool
	DenyCORSConnections bool
	AllowedAuthority  []string
}

// ErrorFile maps a status code to a cached response body path.
type ErrorFile struct {
	Code int
	Path string
}

// Config is one virtual host's routing and policy configuration, per
// §3's VirtualHostConfig.
type Config struct {
	Name             string
	Hostnames        []string
	Interfaces       []Interface
	Root             string
	PathFilter       *regexp.Regexp
	DeniedExtensions map[string]bool
	DefaultFiles     []string
	Whitelist        []string // CIDR or literal IPs; nil disables
	Blacklist        []string
	CORS             CORSConfig
	ErrorFiles       map[int]ErrorFile
	CacheDefault     time.Duration
	ForcePortCheck   bool
	Headers          map[string]string
	SpecialHeaders   map[string]string // CSP, XSS, HSTS, X-Content-Type-Options, Server
}

// hasHostname reports whether name (already lowercased) matches one of
// the host's configured names, honoring a leading "*." wildcard.
func (c *Config) hasHostname(name string) bool {
	for _, h := range c.Hostnames {
		if h == name {
			return true
		}
		if len(h) > 2 && h[:2] == "*." && len(name) > len(h)-2 && name[len(name)-(len(h)-2):] == h[2:] {
			return true
		}
	}
	return false
}

func (c *Config) hasInterface(addr string, port int) bool {
	for _, i := range c.Interfaces {
		if i.Port == port && (i.Address == addr || i.Address == "" || i.Address == "0.0.0.0") {
			return true
		}
	}
	return false
}

package vhost

import (
	"net"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/corehttpd/corehttpd/internal/audit"
	"github.com/corehttpd/corehttpd/internal/httperr"
)

// Router matches (interface, hostname, path, peer IP) to a Config, per
// §4.5. It is built once from the loaded configuration and is safe for
// concurrent read-only use across request workers.
type Router struct {
	hosts   []*Config
	auditor *audit.Logger
}

// New builds a Router from the configured virtual hosts. Configuration
// is frozen after server start (§5), so Router carries no mutex. A nil
// auditor is replaced with a null logger.
func New(hosts []*Config, auditor *audit.Logger) *Router {
	if auditor == nil {
		auditor = audit.NewNullLogger()
	}
	return &Router{hosts: append([]*Config(nil), hosts...), auditor: auditor}
}

// Match resolves a Config for the request, in Lookup order
// (interface, hostname) → VirtualHostConfig, then applies the
// path-filter, whitelist, blacklist, and force_port_check invariants
// from §4.5. The path-filter-then-policy order mirrors the section's
// prose ("Path-filter regex runs before filesystem translation");
// whitelist/blacklist/CORS are then checked in configuration order
// (see DESIGN.md's Open Question decision).
func (r *Router) Match(listenAddr string, listenPort int, hostHeader, path, peerIP string) (*Config, error) {
	host := normalizeHost(hostHeader)

	var matched *Config
	for _, c := range r.hosts {
		if c.hasInterface(listenAddr, listenPort) && c.hasHostname(host) {
			matched = c
			break
		}
	}
	if matched == nil {
		return nil, httperr.New(httperr.RouteUnmatched, "no virtual host matched "+hostHeader)
	}

	if matched.PathFilter != nil && !matched.PathFilter.MatchString(path) {
		return nil, httperr.New(httperr.RouteUnmatched, "path rejected by path_filter")
	}

	if len(matched.Whitelist) > 0 && !ipInList(peerIP, matched.Whitelist) {
		r.audit(audit.ActionVHostWhitelist, matched.Name, peerIP, "peer not in whitelist")
		return nil, httperr.New(httperr.PolicyRejected, "peer not in whitelist")
	}
	if len(matched.Blacklist) > 0 && ipInList(peerIP, matched.Blacklist) {
		r.audit(audit.ActionVHostBlacklist, matched.Name, peerIP, "peer in blacklist")
		return nil, httperr.New(httperr.PolicyRejected, "peer in blacklist")
	}
	if matched.CORS.Enabled && matched.CORS.DenyCORSConnections && len(matched.CORS.AllowedAuthority) > 0 &&
		!authorityAllowed(hostHeader, matched.CORS.AllowedAuthority) {
		r.audit(audit.ActionVHostCORS, matched.Name, peerIP, "CORS authority denied")
		return nil, httperr.New(httperr.PolicyRejected, "CORS authority denied")
	}

	if matched.ForcePortCheck {
		_, hostPort, err := net.SplitHostPort(hostHeader)
		if err != nil {
			return nil, httperr.New(httperr.MisroutedRequest, "host header missing port under force_port_check")
		}
		if p, err := strconv.Atoi(hostPort); err != nil || p != listenPort {
			return nil, httperr.New(httperr.MisroutedRequest, "host header port does not match listener port")
		}
	}

	return matched, nil
}

func normalizeHost(hostHeader string) string {
	h := strings.ToLower(hostHeader)
	if idx := strings.IndexByte(h, ':'); idx >= 0 {
		h = h[:idx]
	}
	return h
}

func ipInList(peerIP string, list []string) bool {
	ip := net.ParseIP(peerIP)
	if ip == nil {
		return false
	}
	for _, entry := range list {
		if strings.Contains(entry, "/") {
			_, cidr, err := net.ParseCIDR(entry)
			if err == nil && cidr.Contains(ip) {
				return true
			}
			continue
		}
		if net.ParseIP(entry).Equal(ip) {
			return true
		}
	}
	return false
}

func authorityAllowed(hostHeader string, allowed []string) bool {
	host := normalizeHost(hostHeader)
	for _, a := range allowed {
		if strings.EqualFold(a, host) || a == "*" {
			return true
		}
	}
	return false
}

// TranslatePath joins the request path onto root per §4.5: collapses
// ".." segments to empty, normalizes separators to the host OS, and
// appends ".html" when the path has no extension and doesn't end in a
// separator. The result is verified to remain under root.
func TranslatePath(root, reqPath string) (string, error) {
	clean := filepath.Clean("/" + reqPath) // collapses ".." against a synthetic root
	clean = strings.TrimPrefix(clean, string(filepath.Separator))

	if clean == "." || clean == "" {
		clean = ""
	}

	if !strings.HasSuffix(reqPath, "/") && filepath.Ext(clean) == "" && clean != "" {
		clean += ".html"
	}

	full := filepath.Join(root, clean)
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", httperr.New(httperr.Internal, "could not resolve virtual host root")
	}
	fullAbs, err := filepath.Abs(full)
	if err != nil {
		return "", httperr.New(httperr.Internal, "could not resolve translated path")
	}
	if fullAbs != rootAbs && !strings.HasPrefix(fullAbs, rootAbs+string(filepath.Separator)) {
		return "", httperr.New(httperr.RouteUnmatched, "translated path escapes virtual host root")
	}
	return fullAbs, nil
}

// DeniedExtension reports whether path's extension is in the host's
// denied-extension set; set entries match with or without their
// leading dot ("exe" and ".exe" both deny "app.exe").
func (c *Config) DeniedExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return c.DeniedExtensions[ext] || c.DeniedExtensions[strings.TrimPrefix(ext, ".")]
}

func (r *Router) audit(action, vhost, peerIP, reason string) {
	_ = r.auditor.Log(audit.NewEvent(action, audit.ActorSystem, audit.ResultDeny).
		WithVHost(vhost).
		WithClientIP(peerIP).
		WithReason(reason))
}

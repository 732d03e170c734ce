package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/corehttpd/corehttpd/internal/audit"
	"github.com/corehttpd/corehttpd/internal/config"
	"github.com/corehttpd/corehttpd/internal/httpcore"
	"github.com/corehttpd/corehttpd/internal/httpd"
	"github.com/corehttpd/corehttpd/internal/logging"
	"github.com/corehttpd/corehttpd/internal/plugin"
	"github.com/corehttpd/corehttpd/internal/session"
	"github.com/corehttpd/corehttpd/internal/transport"
)

var (
	serveConfigPath  string
	servePluginsPath string
	serveAddr        string
	serveLogLevel    string
	serveLogFormat   string
	serveLogFile     string
	serveAuditLog    string
	serveSessionTTL  time.Duration
	serveRedisAddr   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the server in the foreground",
	RunE:  runServe,
}

func init() {
	op, _ := config.LoadOperational()
	if op == nil {
		op = &config.Operational{ConfigPath: "./config/httpd.json", ListenAddr: ":8080", LogLevel: "info", LogFormat: "json"}
	}

	serveCmd.Flags().StringVar(&serveConfigPath, "config", op.ConfigPath, "Path to the JSON configuration document")
	serveCmd.Flags().StringVar(&servePluginsPath, "plugins", config.EnvOrDefault("HTTPD_PLUGINS_MANIFEST", "./config/plugins.yaml"), "Path to the plugin manifest")
	serveCmd.Flags().StringVar(&serveAddr, "addr", op.ListenAddr, "Listen address used when no virtual host configures any interface")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", op.LogLevel, "Log level: debug, info, warn, error")
	serveCmd.Flags().StringVar(&serveLogFormat, "log-format", op.LogFormat, "Log format: json or console")
	serveCmd.Flags().StringVar(&serveLogFile, "log-file", op.LogFile, "Path to log file (default: stdout)")
	serveCmd.Flags().StringVar(&serveAuditLog, "audit-log", config.EnvOrDefault("HTTPD_AUDIT_LOG", ""), "Path to audit log file (disabled if empty)")
	serveCmd.Flags().DurationVar(&serveSessionTTL, "session-ttl", 30*time.Minute, "Default session time-to-live")
	serveCmd.Flags().StringVar(&serveRedisAddr, "redis-addr", config.EnvOrDefault("HTTPD_REDIS_ADDR", ""), "Redis address for session storage (in-memory store if empty)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log, err := logging.New(serveLogLevel, serveLogFormat, serveLogFile)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	doc, err := config.Load(serveConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	auditor := newAuditor(serveAuditLog, log)
	registry := plugin.NewRegistry(log.Named("plugin"), auditor)
	watchers, err := loadPlugins(registry, servePluginsPath, doc.Plugins, log)
	if err != nil {
		return fmt.Errorf("load plugins: %w", err)
	}
	for _, w := range watchers {
		w.Run()
	}
	defer func() {
		for _, w := range watchers {
			w.Stop()
		}
	}()

	sessions := session.NewAdapter(newSessionStore(serveRedisAddr), serveSessionTTL)

	srv, err := httpd.NewServer(doc, registry, sessions, auditor, log.Named("httpd"))
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	httpCfg := config.BuildHttpConfig(doc.HTTP)
	coreCfg := httpcore.Config{
		Limits: httpcore.Limits{
			MaxRequestHeaderCount: httpCfg.MaxRequestHeaderCount,
			MaxUploadSize:         httpCfg.MaxUploadSize,
			MaxFormDataUploadSize: httpCfg.MaxFormDataUploadSize,
			MaxUploadsPerRequest:  httpCfg.MaxUploadsPerRequest,
		},
		ResponseHeaderBufferSize: httpCfg.ResponseHeaderBufferSize,
		ConnectionKeepAlive:      httpCfg.ConnectionKeepAlive,
	}
	transportOpts := transport.Options{
		MaxOpenConnections: httpCfg.MaxOpenConnections,
		RecvTimeout:        time.Duration(httpCfg.ActiveConnectionRecvTimeoutMs) * time.Millisecond,
		SendTimeout:        time.Duration(httpCfg.SendTimeoutMs) * time.Millisecond,
	}

	addrs := listenAddresses(doc, serveAddr)
	listeners := make([]*transport.Listener, 0, len(addrs))
	for _, addr := range addrs {
		ln, err := transport.NewListener(addr, transportOpts, log.Named("transport"))
		if err != nil {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		listeners = append(listeners, ln)
		log.Info("listening", zap.String("addr", addr))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, ln := range listeners {
		ln := ln
		go func() {
			handle := func(_ context.Context, c *transport.Conn) {
				httpcore.Serve(c, coreCfg, srv.Handler, log)
			}
			if err := ln.Accept(ctx, handle); err != nil && ctx.Err() == nil {
				log.Error("accept loop exited", zap.Error(err))
			}
		}()
	}

	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Println("Press Ctrl+C to stop")
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-done
	log.Info("server shutting down")

	cancel()
	for _, ln := range listeners {
		_ = ln.Shutdown()
	}
	log.Info("server exited")
	return nil
}

// listenAddresses collects the unique address:port pairs named across
// every virtual host's interfaces, returning just fallback when none
// are configured at all.
func listenAddresses(doc *config.Document, fallback string) []string {
	seen := make(map[string]bool)
	var addrs []string
	for _, vh := range doc.VirtualHosts {
		for _, iface := range vh.Interfaces {
			host := iface.Address
			if host == "0.0.0.0" {
				host = ""
			}
			addr := net.JoinHostPort(host, strconv.Itoa(iface.Port))
			if !seen[addr] {
				seen[addr] = true
				addrs = append(addrs, addr)
			}
		}
	}
	if len(addrs) == 0 {
		addrs = append(addrs, fallback)
	}
	return addrs
}

func newAuditor(path string, log *zap.Logger) *audit.Logger {
	if path == "" {
		return audit.NewNullLogger()
	}
	a, err := audit.NewLogger(audit.Config{FilePath: path, CreateDir: true})
	if err != nil {
		log.Warn("audit log disabled, failed to open file", zap.String("path", path), zap.Error(err))
		return audit.NewNullLogger()
	}
	return a
}

func newSessionStore(redisAddr string) session.Store {
	if redisAddr == "" {
		return session.NewInMemoryStore(0)
	}
	client := redis.NewClient(&redis.Options{Addr: redisAddr})
	return session.NewRedisStore(client, "")
}

// loadPlugins registers every manual and dynamic unit named in the
// manifest. When doc's top-level plugins{} block enables hot_reload, a
// Watcher is started for each dynamic unit's containing directory.
func loadPlugins(registry *plugin.Registry, manifestPath string, plugins *config.PluginsDoc, log *zap.Logger) ([]*plugin.Watcher, error) {
	manifest, err := config.LoadPluginManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	for _, spec := range manifest.Manual {
		impl, ok := plugin.NewManual(spec.Name)
		if !ok {
			return nil, fmt.Errorf("plugin: no manual plugin registered as %q", spec.Name)
		}
		loader := plugin.NewManualLoader(spec.Name, []plugin.Factory{func() plugin.Implementation { return impl }}, spec.Config, log)
		if err := registry.LoadUnit(loader, spec.Groups); err != nil {
			return nil, fmt.Errorf("plugin %s: %w", spec.Name, err)
		}
	}

	var watchers []*plugin.Watcher
	for _, spec := range manifest.Dynamic {
		loader := plugin.NewDynamicLoader(spec.Name, spec.Path, spec.Config, log)
		if err := registry.LoadUnit(loader, spec.Groups); err != nil {
			return nil, fmt.Errorf("plugin %s: %w", spec.Name, err)
		}
		if plugins != nil && plugins.HotReload {
			w, err := plugin.NewWatcher(registry, spec.Name, filepath.Dir(spec.Path), plugins.ReloadDelaySec, log)
			if err != nil {
				return nil, fmt.Errorf("plugin %s: watcher: %w", spec.Name, err)
			}
			watchers = append(watchers, w)
		}
	}
	return watchers, nil
}

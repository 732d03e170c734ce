package httpd

import (
	"context"

	"github.com/corehttpd/corehttpd/internal/event"
	"github.com/corehttpd/corehttpd/internal/plugin"
)

// newPluginNode adapts a plugin.Registry's published endpoints to an
// event.Middleware: an exact path match against the matched vhost's
// endpoint snapshot bypasses the default filesystem handler entirely,
// per plugin.EndpointFunc's doc ("the event processor calls into this
// directly when a request routes to a plugin endpoint"). This adapter
// lives here rather than in internal/plugin so that package never has
// to import internal/event.
func newPluginNode(registry *plugin.Registry) event.Middleware {
	return event.MiddlewareFuncs{
		NodeName: "plugin_endpoints",
		Process: func(ctx context.Context, e *event.HttpEntity) (event.FileProcessArgs, error) {
			if e.VHost == nil || registry == nil {
				return event.ContinueArgs(), nil
			}
			for _, ep := range registry.Snapshot(e.VHost.Name) {
				if ep.Path != e.Request.Path {
					continue
				}
				resp, err := ep.Handler(ctx, e.Request)
				if err != nil {
					return event.FileProcessArgs{Kind: event.Error}, err
				}
				// Replace the entity's response in place: the struct
				// assignment copies resp's fields (status, headers,
				// body) onto the pointer the caller already holds,
				// without internal/httpd needing access to any of
				// httpcore.Response's unexported fields.
				*e.Response = *resp
				return event.FileProcessArgs{Kind: event.VirtualSkip}, nil
			}
			return event.ContinueArgs(), nil
		},
	}
}

package event

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// RequestIDNode is the first chain node: it assigns (or propagates) a
// request id into the logging context and echoes it back on the
// response, adapted from the retrieved requestid middleware's
// header-in/header-out shape but operating on an HttpEntity instead of
// net/http's ResponseWriter.
type RequestIDNode struct{}

// NewRequestIDNode returns a Middleware that never terminates the walk.
func NewRequestIDNode() Middleware { return RequestIDNode{} }

func (RequestIDNode) Name() string { return "request_id" }

func (RequestIDNode) ProcessAsync(ctx context.Context, e *HttpEntity) (FileProcessArgs, error) {
	id := strings.TrimSpace(e.Request.Headers.Get("X-Request-ID"))
	if id == "" {
		id = uuid.New().String()
	}
	e.RequestID = id
	e.Response.SetHeader("X-Request-ID", id)
	return ContinueArgs(), nil
}

func (RequestIDNode) VolatilePostProcess(ctx context.Context, e *HttpEntity, args *FileProcessArgs) {
}

package session

import (
	"context"

	"github.com/corehttpd/corehttpd/internal/event"
)

// Node is a chain middleware that attaches any on-record session to
// the entity before the rest of the chain runs; it never denies a
// request on its own — absence of a session is a fact downstream
// middleware (e.g. an authorization node) decides how to act on.
type Node struct {
	adapter *Adapter
}

// NewNode wraps adapter as an event.Middleware.
func NewNode(adapter *Adapter) event.Middleware { return &Node{adapter: adapter} }

func (n *Node) Name() string { return "session" }

func (n *Node) ProcessAsync(ctx context.Context, e *event.HttpEntity) (event.FileProcessArgs, error) {
	n.adapter.GetSession(ctx, e)
	return event.ContinueArgs(), nil
}

func (n *Node) VolatilePostProcess(ctx context.Context, e *event.HttpEntity, args *event.FileProcessArgs) {
}

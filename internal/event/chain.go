package event

import (
	"context"

	"go.uber.org/zap"
)

// Chain is an ordered list of middleware nodes plus the default
// filesystem handler that runs when the walk falls through with
// Continue, per §4.6.
type Chain struct {
	nodes []Middleware
	fs    *FileHandler
	log   *zap.Logger
}

// NewChain builds a Chain over nodes in execution order, serving the
// default filesystem routine via fs when every node returns Continue.
func NewChain(nodes []Middleware, fs *FileHandler, log *zap.Logger) *Chain {
	if log == nil {
		log = zap.NewNop()
	}
	return &Chain{nodes: nodes, fs: fs, log: log}
}

// Dispatch walks the chain head-to-tail invoking ProcessAsync. The
// first non-Continue return terminates the walk and becomes the
// routine to execute. Every node's VolatilePostProcess then runs in
// order 1..n, unless the terminal routine is VirtualSkip (§8: "given
// any return value V from node i, nodes j>i are not invoked for
// ProcessAsync, while VolatilePostProcess is invoked on nodes 1..n in
// order unless V = VirtualSkip").
func (c *Chain) Dispatch(ctx context.Context, e *HttpEntity) error {
	final := ContinueArgs()

	for _, node := range c.nodes {
		args, err := node.ProcessAsync(ctx, e)
		if err != nil {
			c.log.Warn("middleware returned error", zap.String("node", node.Name()), zap.Error(err))
			final = FileProcessArgs{Kind: Error}
			break
		}
		if args.Kind != Continue {
			final = args
			break
		}
	}

	if final.Kind == Continue && c.fs != nil {
		final = c.fs.Serve(e)
	}
	e.Args = final

	if final.Kind != VirtualSkip {
		for _, node := range c.nodes {
			node.VolatilePostProcess(ctx, e, &final)
		}
	}
	return nil
}

package event

import "context"

// Middleware is one node of the chain, per §4.6: ProcessAsync may alter
// the entity and must return the next routing decision; VolatilePostProcess
// is observational and runs after the walk completes, regardless of how
// it terminated (unless the final decision is VirtualSkip).
type Middleware interface {
	ProcessAsync(ctx context.Context, e *HttpEntity) (FileProcessArgs, error)
	VolatilePostProcess(ctx context.Context, e *HttpEntity, args *FileProcessArgs)
	Name() string
}

// MiddlewareFuncs adapts plain functions to the Middleware interface.
// Post is optional: when it is nil, VolatilePostProcess does nothing.
type MiddlewareFuncs struct {
	NodeName string
	Process  func(ctx context.Context, e *HttpEntity) (FileProcessArgs, error)
	Post     func(ctx context.Context, e *HttpEntity, args *FileProcessArgs)
}

func (m MiddlewareFuncs) Name() string { return m.NodeName }

func (m MiddlewareFuncs) ProcessAsync(ctx context.Context, e *HttpEntity) (FileProcessArgs, error) {
	return m.Process(ctx, e)
}

func (m MiddlewareFuncs) VolatilePostProcess(ctx context.Context, e *HttpEntity, args *FileProcessArgs) {
	if m.Post != nil {
		m.Post(ctx, e, args)
	}
}

package session

import "context"

// Context carries the ambient state a CLI or server front-end attaches to
// one connection: a cancellation context and the Engine it talks to.
// Adapted from the teacher's session.Context (DefaultEngine/
// DefaultDatabase for a multi-engine SQL server) down to this module's
// single storage Engine.
type Context interface {
	Context() context.Context
	Engine() *Engine
}

type sess struct {
	ctx context.Context
	eng *Engine
}

// NewContext binds ctx and eng into a session Context.
func NewContext(ctx context.Context, eng *Engine) Context {
	return &sess{ctx: ctx, eng: eng}
}

func (s *sess) Context() context.Context { return s.ctx }
func (s *sess) Engine() *Engine          { return s.eng }

package common

import "context"

type agentKey struct{}

// AgentIdentity is the authenticated caller of a quote endpoint.
type AgentIdentity struct {
	ID     string
	Agency string
}

// WithAgent stores the authenticated agent on ctx.
func WithAgent(ctx context.Context, agent AgentIdentity) context.Context {
	return context.WithValue(ctx, agentKey{}, agent)
}

// AgentFromContext returns the authenticated agent, if any.
func AgentFromContext(ctx context.Context) (AgentIdentity, bool) {
	agent, ok := ctx.Value(agentKey{}).(AgentIdentity)
	return agent, ok && agent.ID != ""
}

// AgentID returns only the agent identifier.
func AgentID(ctx context.Context) (string, bool) {
	agent, ok := AgentFromContext(ctx)
	return agent.ID, ok
}

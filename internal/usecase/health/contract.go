package health

import "context"

// StorePinger reports whether the document store answers.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker reports whether the embedding provider is reachable.
// Local providers always pass.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}

// CheckFunc adapts a plain function to ProviderChecker.
type CheckFunc func(ctx context.Context) error

// HealthCheck calls f.
func (f CheckFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

package health

import "context"

// StorePinger checks catalog store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// LLMChecker checks language-model provider availability.
type LLMChecker interface {
	HealthCheck(ctx context.Context) error
}

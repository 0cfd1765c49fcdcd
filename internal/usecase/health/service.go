package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Info describes the static configuration reported alongside checks.
type Info struct {
	Index      string
	Dimensions int
	Provider   string
	Fusion     string
	TextSearch bool
}

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	Info   Info
}

// Service coordinates health checks.
type Service struct {
	store     StorePinger
	embedding ProviderChecker
	info      Info
	timeout   time.Duration
}

// New creates a Service. embedding can be nil.
func New(store StorePinger, embedding ProviderChecker, info Info, timeout time.Duration) *Service {
	return &Service{store: store, embedding: embedding, info: info, timeout: timeout}
}

// Check runs health checks against all components. The status is Healthy only
// when the database answers a ping and every other check passes.
func (s *Service) Check(ctx context.Context) Report {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	checks := make(map[string]CheckResult)

	if err := s.store.Ping(ctx); err != nil {
		checks["database"] = CheckError
	} else {
		checks["database"] = CheckOK
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks, Info: s.info}
}

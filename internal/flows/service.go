package flows

import "context"

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Issue.ready() && s.deps.Verify.ready() && s.deps.Invalidate.ready()
}

func (s Service) Issue(ctx context.Context, req IssueRequest) IssueResult {
	return RunIssue(ctx, req, s.deps.Issue)
}

func (s Service) Verify(ctx context.Context, req VerifyRequest) VerifyResult {
	return RunVerify(ctx, req, s.deps.Verify)
}

func (s Service) Invalidate(ctx context.Context, identity string) (string, error) {
	return RunInvalidate(ctx, identity, s.deps.Invalidate)
}

func (s Service) ResetAttempts(ctx context.Context, identity string) (string, error) {
	return RunResetAttempts(ctx, identity, s.deps.Invalidate)
}

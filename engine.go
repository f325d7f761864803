package goOTP

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goOTP/internal/flows"
	"github.com/MrEthical07/goOTP/internal/janitor"
	"github.com/MrEthical07/goOTP/internal/keylock"
	"github.com/MrEthical07/goOTP/internal/limiters"
	"github.com/MrEthical07/goOTP/internal/stores"
)

// Engine issues and verifies codes. It exclusively owns the entry store and
// the attempt tracker; build one per process with [Builder].
type Engine struct {
	config   Config
	clock    Clock
	random   io.Reader
	logger   *slog.Logger
	locks    *keylock.Striped
	entries  stores.EntryStore
	attempts limiters.AttemptTracker
	flows    flows.Service
	janitor  *janitor.Janitor
	audit    *auditDispatcher
	metrics  *Metrics

	closed    atomic.Bool
	closeOnce sync.Once
}

// Close stops the janitor and flushes pending audit events. Redis clients
// passed to the builder are left open. Operations after Close fail with
// ErrEngineClosed or report false.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		e.janitor.Stop()
		e.audit.Close()
		e.logger.Info("otp engine closed")
	})
}

func (e *Engine) ready() bool {
	return e != nil && e.flows.Initialized() && !e.closed.Load()
}

func (e *Engine) notReadyErr() error {
	if e != nil && e.closed.Load() {
		return ErrEngineClosed
	}
	return ErrEngineNotReady
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditDroppedByEvent breaks AuditDropped down by audit event type.
func (e *Engine) AuditDroppedByEvent() map[string]uint64 {
	if e == nil {
		return map[string]uint64{}
	}
	return e.audit.DroppedByEvent()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricAdd(id MetricID, n int) {
	if e == nil || e.metrics == nil || n <= 0 {
		return
	}
	e.metrics.Add(id, uint64(n))
}

/*
====================================
ISSUANCE
====================================
*/

// IssueCode generates a code for identity and category, replacing any code
// the identity already had, and returns the plaintext for delivery.
//
// It fails with ErrInvalidIdentity, ErrInvalidCategory, ErrLockedOut,
// ErrBackendUnavailable or ErrCodeGeneration. The attempt tracker is never
// modified by issuance.
func (e *Engine) IssueCode(ctx context.Context, identity string, category Category) (string, error) {
	if !e.ready() {
		return "", e.notReadyErr()
	}

	res := e.flows.Issue(ctx, flows.IssueRequest{
		Identity: identity,
		Category: uint8(category),
	})
	if res.Err != nil {
		e.observeIssueFailure(ctx, res.Identity, category, res.Err)
		return "", res.Err
	}

	e.metricInc(MetricIssueSuccess)
	e.logger.InfoContext(ctx, "otp issued",
		"identity", res.Identity,
		"category", category.String(),
		"digits", int(res.Entry.Digits),
		"expires_at", res.Entry.ExpiresAt(),
	)
	e.emitAudit(ctx, auditEventIssued, true, res.Identity, category.String(), "", func() map[string]string {
		return map[string]string{
			"ttl_seconds": strconv.FormatInt(int64(res.Entry.TTL/time.Second), 10),
		}
	})
	return res.Code, nil
}

func (e *Engine) IssueStandardCode(ctx context.Context, identity string) (string, error) {
	return e.IssueCode(ctx, identity, CategoryStandard)
}

func (e *Engine) IssueFarmingCode(ctx context.Context, identity string) (string, error) {
	return e.IssueCode(ctx, identity, CategoryFarmingOperation)
}

func (e *Engine) IssueBuyingCode(ctx context.Context, identity string) (string, error) {
	return e.IssueCode(ctx, identity, CategoryBuyingOperation)
}

func (e *Engine) IssueAnalysisCode(ctx context.Context, identity string) (string, error) {
	return e.IssueCode(ctx, identity, CategoryAnalysisOperation)
}

func (e *Engine) IssueGovernmentCode(ctx context.Context, identity string) (string, error) {
	return e.IssueCode(ctx, identity, CategoryGovernmentOperation)
}

// IssueAdminCode issues an elevated-length code.
func (e *Engine) IssueAdminCode(ctx context.Context, identity string) (string, error) {
	return e.IssueCode(ctx, identity, CategoryAdminOperation)
}

// IssueSensitiveCode issues a code with the extended TTL.
func (e *Engine) IssueSensitiveCode(ctx context.Context, identity string) (string, error) {
	return e.IssueCode(ctx, identity, CategorySensitiveOperation)
}

func (e *Engine) observeIssueFailure(ctx context.Context, identity string, category Category, err error) {
	switch {
	case errors.Is(err, ErrLockedOut):
		e.metricInc(MetricIssueLockedOut)
		e.logger.WarnContext(ctx, "otp issuance refused: identity locked", "identity", identity)
	case errors.Is(err, ErrInvalidIdentity), errors.Is(err, ErrInvalidCategory):
		e.metricInc(MetricIssueRejected)
		e.logger.DebugContext(ctx, "otp issuance rejected", "identity", identity, "error", err)
	default:
		e.metricInc(MetricIssueFailure)
		e.logger.ErrorContext(ctx, "otp issuance failed", "identity", identity, "category", category.String(), "error", err)
	}

	e.emitAudit(ctx, auditEventIssueRejected, false, identity, category.String(), auditErrorCode(err), nil)
}

/*
====================================
VERIFICATION
====================================
*/

// VerifyCode reports whether code is the identity's active code. Every
// failure returns false; callers never learn why. A correct code consumes
// the entry and clears the identity's failure count.
func (e *Engine) VerifyCode(ctx context.Context, identity, code string) bool {
	return e.verify(ctx, flows.VerifyRequest{
		Identity: identity,
		Code:     code,
	})
}

// VerifyCodeForCategory is VerifyCode that additionally requires the stored
// code to have been issued for category.
func (e *Engine) VerifyCodeForCategory(ctx context.Context, identity, code string, category Category) bool {
	return e.verify(ctx, flows.VerifyRequest{
		Identity:       identity,
		Code:           code,
		Category:       uint8(category),
		AssertCategory: true,
	})
}

func (e *Engine) verify(ctx context.Context, req flows.VerifyRequest) bool {
	if !e.ready() {
		return false
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
	}

	res := e.flows.Verify(ctx, req)

	if !start.IsZero() {
		e.metrics.Observe(MetricVerifyLatency, time.Since(start))
	}
	e.observeVerify(ctx, req, res)
	return res.OK()
}

var verifyOutcomeMetric = map[flows.Outcome]MetricID{
	flows.OutcomeInvalidInput:     MetricVerifyInvalidInput,
	flows.OutcomeLocked:           MetricVerifyLocked,
	flows.OutcomeNoCode:           MetricVerifyNoCode,
	flows.OutcomeExpired:          MetricVerifyExpired,
	flows.OutcomeCategoryMismatch: MetricVerifyCategoryMismatch,
	flows.OutcomeMismatch:         MetricVerifyMismatch,
	flows.OutcomeUnavailable:      MetricVerifyUnavailable,
}

var verifyOutcomeAudit = map[flows.Outcome]AuditErrorCode{
	flows.OutcomeInvalidInput:     auditErrInvalidInput,
	flows.OutcomeLocked:           auditErrLockedOut,
	flows.OutcomeNoCode:           auditErrNoCode,
	flows.OutcomeExpired:          auditErrExpired,
	flows.OutcomeCategoryMismatch: auditErrCategoryMismatch,
	flows.OutcomeMismatch:         auditErrMismatch,
	flows.OutcomeUnavailable:      auditErrUnavailable,
}

func (e *Engine) observeVerify(ctx context.Context, req flows.VerifyRequest, res flows.VerifyResult) {
	category := Category(res.Category).String()

	if res.Err != nil {
		e.logger.ErrorContext(ctx, "otp verification backend error",
			"identity", res.Identity,
			"outcome", res.Outcome.String(),
			"error", res.Err,
		)
	}

	if res.OK() {
		e.metricInc(MetricVerifySuccess)
		e.logger.InfoContext(ctx, "otp verified", "identity", res.Identity, "category", category)
		e.emitAudit(ctx, auditEventVerified, true, res.Identity, category, "", nil)
		return
	}

	e.metricInc(MetricVerifyFailure)
	if id, ok := verifyOutcomeMetric[res.Outcome]; ok {
		e.metricInc(id)
	}

	attrs := []any{"identity", res.Identity, "reason", res.Outcome.String()}
	if res.FailureCount > 0 {
		attrs = append(attrs, "failures", res.FailureCount)
	}
	if req.AssertCategory {
		attrs = append(attrs, "expected_category", Category(req.Category).String())
	}
	e.logger.WarnContext(ctx, "otp verification failed", attrs...)

	e.emitAudit(ctx, auditEventVerifyFailed, false, res.Identity, "", verifyOutcomeAudit[res.Outcome], func() map[string]string {
		if res.FailureCount == 0 {
			return nil
		}
		return map[string]string{"failures": strconv.Itoa(res.FailureCount)}
	})

	if res.LockTriggered {
		window := e.config.Policy.LockoutWindow
		e.metricInc(MetricLockoutTriggered)
		e.logger.WarnContext(ctx, "otp lockout triggered",
			"identity", res.Identity,
			"failures", res.FailureCount,
			"window", window,
		)
		e.emitAudit(ctx, auditEventLockout, false, res.Identity, "", auditErrLockedOut, func() map[string]string {
			return map[string]string{
				"failures":       strconv.Itoa(res.FailureCount),
				"window_seconds": strconv.FormatInt(int64(window/time.Second), 10),
			}
		})
	}
}

/*
====================================
STATE CHANGES
====================================
*/

// Invalidate removes the identity's active code, if any. The failure count
// is left untouched.
func (e *Engine) Invalidate(ctx context.Context, identity string) error {
	if !e.ready() {
		return e.notReadyErr()
	}

	normalized, err := e.flows.Invalidate(ctx, identity)
	if err != nil {
		if !errors.Is(err, ErrInvalidIdentity) {
			e.logger.ErrorContext(ctx, "otp invalidation failed", "identity", normalized, "error", err)
		}
		return err
	}

	e.metricInc(MetricInvalidation)
	e.logger.DebugContext(ctx, "otp invalidated", "identity", normalized)
	e.emitAudit(ctx, auditEventInvalidated, true, normalized, "", "", nil)
	return nil
}

// ResetFailedAttempts clears the identity's failure record, lifting any
// lockout. The active code, if any, is kept.
func (e *Engine) ResetFailedAttempts(ctx context.Context, identity string) error {
	if !e.ready() {
		return e.notReadyErr()
	}

	normalized, err := e.flows.ResetAttempts(ctx, identity)
	if err != nil {
		if !errors.Is(err, ErrInvalidIdentity) {
			e.logger.ErrorContext(ctx, "otp attempt reset failed", "identity", normalized, "error", err)
		}
		return err
	}

	e.metricInc(MetricAttemptsReset)
	e.logger.InfoContext(ctx, "otp failed attempts reset", "identity", normalized)
	e.emitAudit(ctx, auditEventAttemptsReset, true, normalized, "", "", nil)
	return nil
}

// ClearAll drops every active code and every attempt record.
func (e *Engine) ClearAll(ctx context.Context) error {
	if !e.ready() {
		return e.notReadyErr()
	}

	entryErr := e.entries.Clear(ctx)
	attemptErr := e.attempts.ClearAll(ctx)
	if err := errors.Join(entryErr, attemptErr); err != nil {
		e.logger.ErrorContext(ctx, "otp clear all failed", "error", err)
		e.emitAudit(ctx, auditEventStateCleared, false, "", "", auditErrUnavailable, nil)
		return wrapBackend(err)
	}

	e.logger.WarnContext(ctx, "otp state cleared")
	e.emitAudit(ctx, auditEventStateCleared, true, "", "", "", nil)
	return nil
}

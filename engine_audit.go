package goOTP

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

const (
	auditEventIssued          = "otp_issued"
	auditEventIssueRejected   = "otp_issue_rejected"
	auditEventVerified        = "otp_verified"
	auditEventVerifyFailed    = "otp_verify_failed"
	auditEventLockout         = "otp_lockout"
	auditEventInvalidated     = "otp_invalidated"
	auditEventAttemptsReset   = "otp_attempts_reset"
	auditEventStateCleared    = "otp_state_cleared"
	auditEventJanitorSweep    = "otp_janitor_sweep"
	auditEventBackendDegraded = "otp_backend_degraded"
)

// AuditErrorCode is the stable error label carried by audit events.
type AuditErrorCode string

const (
	auditErrInvalidIdentity  AuditErrorCode = "invalid_identity"
	auditErrInvalidCategory  AuditErrorCode = "invalid_category"
	auditErrLockedOut        AuditErrorCode = "locked_out"
	auditErrNoCode           AuditErrorCode = "no_active_code"
	auditErrExpired          AuditErrorCode = "expired"
	auditErrMismatch         AuditErrorCode = "mismatch"
	auditErrCategoryMismatch AuditErrorCode = "category_mismatch"
	auditErrInvalidInput     AuditErrorCode = "invalid_input"
	auditErrGeneration       AuditErrorCode = "generation_failed"
	auditErrUnavailable      AuditErrorCode = "backend_unavailable"
	auditErrNotReady         AuditErrorCode = "engine_not_ready"
	auditErrInternal         AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	identity string,
	category string,
	code AuditErrorCode,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: e.clock.Now().UTC(),
		EventType: eventType,
		Identity:  identity,
		Category:  category,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Error:     string(code),
		Metadata:  metadata,
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidIdentity):
		return auditErrInvalidIdentity
	case errors.Is(err, ErrInvalidCategory):
		return auditErrInvalidCategory
	case errors.Is(err, ErrLockedOut):
		return auditErrLockedOut
	case errors.Is(err, ErrCodeGeneration):
		return auditErrGeneration
	case errors.Is(err, ErrBackendUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrEngineNotReady), errors.Is(err, ErrEngineClosed):
		return auditErrNotReady
	default:
		return auditErrInternal
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/selimd/porta/internal/app/models"
	"github.com/selimd/porta/internal/app/models/dto"
	"github.com/selimd/porta/internal/pkg/apperrors"
	"github.com/selimd/porta/internal/pkg/notify"
)

// Denial reasons returned to the guard UI.
const (
	DenialInvalidCode    = "invalid_code"
	DenialSuspended      = "suspended"
	DenialNotYetActive   = "not_yet_active"
	DenialExpired        = "expired"
	DenialAlreadyUsed    = "already_used"
	DenialLimitExhausted = "limit_exhausted"
	DenialLogFailed      = "log_failed"
)

// Store surfaces the verification engine needs. The pgx repositories
// satisfy these; tests substitute in-memory fakes reproducing the
// conditional-write semantics.
type verificationCodeStore interface {
	GetAccessCodeByCode(ctx context.Context, communityID int64, accessCode string) (*models.AccessCode, error)
	RegisterEntry(ctx context.Context, code *models.AccessCode, entry *models.EntryLog) (int64, error)
}

type verificationEntryLogStore interface {
	CloseOpenSession(ctx context.Context, accessCodeID int64, exitPoint string) (*models.EntryLog, error)
	GetEntryLogsByCommunity(ctx context.Context, communityID int64, accessCodeID int64, openOnly bool, page, pageSize int) ([]*models.EntryLog, int, error)
}

// VerificationService decides gate scans: grant or deny a submitted
// 6-digit code, and for service-provider codes toggle the open
// clock-in/clock-out session.
type VerificationService interface {
	Verify(ctx context.Context, communityID, guardMemberID int64, req *dto.VerifyRequest) (*dto.VerificationResponse, error)
	GetEntryLogs(ctx context.Context, communityID int64, filter *dto.EntryLogFilterRequest) (*dto.EntryLogListResponse, error)
}

// verificationServiceImpl implements VerificationService
type verificationServiceImpl struct {
	codes    verificationCodeStore
	entries  verificationEntryLogStore
	notifier notify.Notifier
	logger   zerolog.Logger
}

// NewVerificationService creates a new VerificationService
func NewVerificationService(
	codes verificationCodeStore,
	entries verificationEntryLogStore,
	notifier notify.Notifier,
	logger zerolog.Logger,
) VerificationService {
	return &verificationServiceImpl{
		codes:    codes,
		entries:  entries,
		notifier: notifier,
		logger:   logger,
	}
}

// Verify runs the scan protocol: resolve the code, check suspension
// and validity window, toggle the session for service providers, check
// and consume usage, and record the entry. A storage failure after the
// grant decision downgrades the result to a log_failed denial: the
// guard is never told "granted" unless the entry was durably recorded.
func (s *verificationServiceImpl) Verify(ctx context.Context, communityID, guardMemberID int64, req *dto.VerifyRequest) (*dto.VerificationResponse, error) {
	now := time.Now()

	code, err := s.codes.GetAccessCodeByCode(ctx, communityID, req.AccessCode)
	if err != nil {
		if errors.Is(err, apperrors.ErrAccessCodeNotFound) {
			return s.deny(ctx, nil, communityID, DenialInvalidCode, "Code not recognized", now), nil
		}
		return nil, err
	}

	if !code.IsActive {
		return s.deny(ctx, code, communityID, DenialSuspended, "Code has been suspended by the host", now), nil
	}

	if !code.WindowContains(now) {
		if now.Before(code.ValidFrom) {
			return s.deny(ctx, code, communityID, DenialNotYetActive,
				fmt.Sprintf("Code becomes valid at %s", code.ValidFrom.Format(time.RFC3339)), now), nil
		}
		return s.deny(ctx, code, communityID, DenialExpired, "Code has expired", now), nil
	}

	if code.CodeType == models.CodeTypeServiceProvider {
		closed, err := s.entries.CloseOpenSession(ctx, code.ID, req.EntryPoint)
		if err != nil {
			return nil, err
		}
		if closed != nil {
			// Clock-out: an open session always closes, with no usage
			// accounting.
			s.notifyHost(ctx, code, communityID, notify.EventProviderClocked,
				fmt.Sprintf("%s clocked out", code.VisitorName))
			return &dto.VerificationResponse{
				Granted:     true,
				Message:     fmt.Sprintf("%s clocked out. Goodbye!", code.VisitorName),
				VisitorName: code.VisitorName,
				CodeType:    string(code.CodeType),
				ClockedOut:  true,
				Timestamp:   now,
			}, nil
		}
		// No open session: this scan is a clock-in and falls through
		// to the standard entry path.
	}

	if code.IsOneTime && code.UsedAt != nil {
		return s.deny(ctx, code, communityID, DenialAlreadyUsed, "One-time code has already been used", now), nil
	}
	if code.IsCapped() && code.RemainingUses() == 0 {
		return s.deny(ctx, code, communityID, DenialLimitExhausted, "Code usage limit has been reached", now), nil
	}

	entry := &models.EntryLog{
		CommunityID:  communityID,
		AccessCodeID: code.ID,
		GuardID:      guardMemberID,
		CodeType:     code.CodeType,
		EnteredAt:    now,
		EntryPoint:   req.EntryPoint,
	}

	// Grant decided. The usage consumption and the entry-log insert
	// are one transaction; any failure below means nothing was
	// consumed and nothing was recorded.
	if _, err := s.codes.RegisterEntry(ctx, code, entry); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrCodeAlreadyUsed):
			return s.deny(ctx, code, communityID, DenialAlreadyUsed, "One-time code has already been used", now), nil
		case errors.Is(err, apperrors.ErrCodeLimitExhausted):
			return s.deny(ctx, code, communityID, DenialLimitExhausted, "Code usage limit has been reached", now), nil
		default:
			s.logger.Error().Err(err).
				Int64("codeID", code.ID).
				Int64("guardMemberID", guardMemberID).
				Msg("Entry grant computed but could not be recorded")
			return s.deny(ctx, code, communityID, DenialLogFailed, "Entry could not be recorded, please retry", now), nil
		}
	}

	resp := &dto.VerificationResponse{
		Granted:     true,
		VisitorName: code.VisitorName,
		CodeType:    string(code.CodeType),
		Timestamp:   now,
	}

	if code.CodeType == models.CodeTypeServiceProvider {
		resp.Message = fmt.Sprintf("%s clocked in. Welcome!", code.VisitorName)
		s.notifyHost(ctx, code, communityID, notify.EventEntryGranted,
			fmt.Sprintf("%s clocked in", code.VisitorName))
	} else {
		resp.Message = fmt.Sprintf("Access granted for %s. Welcome!", code.VisitorName)
		detail := fmt.Sprintf("%s entered", code.VisitorName)
		if code.IsCapped() {
			// Mirror the consumed use on the snapshot so the remaining
			// count reflects the committed state.
			code.UsageCount++
			remaining := code.RemainingUses()
			resp.RemainingUses = &remaining
			resp.Message = fmt.Sprintf("Access granted for %s. %d use(s) remaining.", code.VisitorName, remaining)
			detail = fmt.Sprintf("%s entered (use %d of %d)", code.VisitorName, code.UsageCount, *code.MaxUses)
		}
		s.notifyHost(ctx, code, communityID, notify.EventEntryGranted, detail)
	}

	return resp, nil
}

// GetEntryLogs pages through a community's granted entries.
func (s *verificationServiceImpl) GetEntryLogs(ctx context.Context, communityID int64, filter *dto.EntryLogFilterRequest) (*dto.EntryLogListResponse, error) {
	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	logs, total, err := s.entries.GetEntryLogsByCommunity(ctx, communityID, filter.AccessCodeID, filter.OpenOnly, page, pageSize)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.EntryLogResponse, 0, len(logs))
	for _, l := range logs {
		resp := dto.EntryLogResponse{
			ID:           l.ID,
			AccessCodeID: l.AccessCodeID,
			GuardID:      l.GuardID,
			EnteredAt:    l.EnteredAt,
			ExitedAt:     l.ExitedAt,
			EntryPoint:   l.EntryPoint,
			ExitPoint:    l.ExitPoint,
		}
		if l.AccessCode != nil {
			resp.VisitorName = l.AccessCode.VisitorName
		}
		responses = append(responses, resp)
	}

	return &dto.EntryLogListResponse{
		Logs:           responses,
		PaginationInfo: dto.NewPaginationInfo(page, pageSize, total),
	}, nil
}

func (s *verificationServiceImpl) deny(ctx context.Context, code *models.AccessCode, communityID int64, reason, message string, now time.Time) *dto.VerificationResponse {
	resp := &dto.VerificationResponse{
		Granted:   false,
		Reason:    reason,
		Message:   message,
		Timestamp: now,
	}
	if code != nil {
		resp.VisitorName = code.VisitorName
		resp.CodeType = string(code.CodeType)
		s.notifyHost(ctx, code, communityID, notify.EventEntryDenied,
			fmt.Sprintf("Entry denied for %s (%s)", code.VisitorName, reason))
	}
	return resp
}

// notifyHost publishes a host notification. Failures are logged and
// never alter the verification result.
func (s *verificationServiceImpl) notifyHost(ctx context.Context, code *models.AccessCode, communityID int64, eventType, detail string) {
	err := s.notifier.Publish(ctx, notify.Event{
		Type:        eventType,
		CommunityID: communityID,
		MemberID:    code.HostID,
		Detail:      detail,
	})
	if err != nil {
		s.logger.Warn().Err(err).
			Str("type", eventType).
			Int64("hostID", code.HostID).
			Msg("Failed to publish gate notification")
	}
}

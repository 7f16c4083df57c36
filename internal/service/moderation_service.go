package service

import (
	"context"
	"errors"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

var ErrNotAdmin = errors.New("admin role required")

// ModerationService covers the admin tooling: member reports, profile
// suspension and platform bans. Every admin action is recorded in the audit
// log before it is considered complete.
type ModerationService interface {
	// FileReport lets any member report another member.
	FileReport(ctx context.Context, reporterID, reportedUserID, reason string, details *string) (*model.Report, error)
	ListReports(ctx context.Context, adminID string, status model.ReportStatus, limit, offset int) ([]model.Report, error)
	ResolveReport(ctx context.Context, adminID, reportID string, status model.ReportStatus) error
	SuspendProfile(ctx context.Context, adminID, userID, reason string) error
	ReinstateProfile(ctx context.Context, adminID, userID string) error
	BanUser(ctx context.Context, adminID, userID, reason string) error
	IsBanned(ctx context.Context, userID string) (bool, error)
}

type moderationService struct {
	reportRepo  repository.ReportRepository
	profileRepo repository.ProfileRepository
	logger      zerolog.Logger
}

// NewModerationService creates a new ModerationService with a scoped logger.
func NewModerationService(reportRepo repository.ReportRepository, profileRepo repository.ProfileRepository, logger zerolog.Logger) ModerationService {
	return &moderationService{
		reportRepo:  reportRepo,
		profileRepo: profileRepo,
		logger:      logger.With().Str("service", "ModerationService").Logger(),
	}
}

// requireAdmin verifies the acting user holds the admin role.
func (s *moderationService) requireAdmin(ctx context.Context, adminID string) error {
	p, err := s.profileRepo.GetProfileByUserID(ctx, adminID)
	if err != nil {
		return err
	}
	if p == nil || p.Role != model.RoleAdmin {
		return ErrNotAdmin
	}
	return nil
}

func (s *moderationService) FileReport(ctx context.Context, reporterID, reportedUserID, reason string, details *string) (*model.Report, error) {
	report, err := s.reportRepo.CreateReport(ctx, reporterID, reportedUserID, reason, details)
	if err != nil {
		s.logger.Error().Err(err).Str("reporter_id", reporterID).Msg("Failed to file report")
		return nil, err
	}
	return report, nil
}

func (s *moderationService) ListReports(ctx context.Context, adminID string, status model.ReportStatus, limit, offset int) ([]model.Report, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	return s.reportRepo.ListReports(ctx, status, limit, offset)
}

func (s *moderationService) ResolveReport(ctx context.Context, adminID, reportID string, status model.ReportStatus) error {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}
	if err := s.reportRepo.UpdateReportStatus(ctx, reportID, status); err != nil {
		s.logger.Error().Err(err).Str("report_id", reportID).Msg("Failed to resolve report")
		return err
	}
	action := "report_" + string(status)
	if err := s.reportRepo.InsertAuditLog(ctx, adminID, action, nil, &reportID); err != nil {
		s.logger.Error().Err(err).Str("report_id", reportID).Msg("Failed to write audit log")
		return err
	}
	return nil
}

func (s *moderationService) SuspendProfile(ctx context.Context, adminID, userID, reason string) error {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}
	if err := s.profileRepo.SetSuspended(ctx, userID, true, reason); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to suspend profile")
		return err
	}
	if err := s.reportRepo.InsertAuditLog(ctx, adminID, "profile_suspended", &userID, &reason); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to write audit log")
		return err
	}
	return nil
}

func (s *moderationService) ReinstateProfile(ctx context.Context, adminID, userID string) error {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}
	if err := s.profileRepo.SetSuspended(ctx, userID, false, ""); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to reinstate profile")
		return err
	}
	if err := s.reportRepo.InsertAuditLog(ctx, adminID, "profile_reinstated", &userID, nil); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to write audit log")
		return err
	}
	return nil
}

func (s *moderationService) BanUser(ctx context.Context, adminID, userID, reason string) error {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}
	if err := s.reportRepo.InsertBan(ctx, userID, reason, adminID); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to ban user")
		return err
	}
	if err := s.reportRepo.InsertAuditLog(ctx, adminID, "user_banned", &userID, &reason); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to write audit log")
		return err
	}
	return nil
}

func (s *moderationService) IsBanned(ctx context.Context, userID string) (bool, error) {
	return s.reportRepo.IsBanned(ctx, userID)
}

package service

import (
	"context"
	"testing"

	"app/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReportRepo struct {
	reports map[string]*model.Report
	bans    map[string]bool
	audit   []model.AuditLog
	nextID  int
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{reports: map[string]*model.Report{}, bans: map[string]bool{}}
}

func (f *fakeReportRepo) CreateReport(_ context.Context, reporterID, reportedUserID, reason string, details *string) (*model.Report, error) {
	f.nextID++
	id := string(rune('a' + f.nextID))
	r := &model.Report{ID: id, ReporterID: reporterID, ReportedUserID: reportedUserID, Reason: reason, Details: details, Status: model.ReportPending}
	f.reports[id] = r
	return r, nil
}

func (f *fakeReportRepo) ListReports(_ context.Context, status model.ReportStatus, limit, offset int) ([]model.Report, error) {
	var out []model.Report
	for _, r := range f.reports {
		if r.Status == status {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReportRepo) UpdateReportStatus(_ context.Context, reportID string, status model.ReportStatus) error {
	f.reports[reportID].Status = status
	return nil
}

func (f *fakeReportRepo) InsertBan(_ context.Context, userID, reason, bannedBy string) error {
	f.bans[userID] = true
	return nil
}

func (f *fakeReportRepo) IsBanned(_ context.Context, userID string) (bool, error) {
	return f.bans[userID], nil
}

func (f *fakeReportRepo) InsertAuditLog(_ context.Context, adminID, action string, targetUserID, details *string) error {
	f.audit = append(f.audit, model.AuditLog{AdminID: adminID, Action: action, TargetUserID: targetUserID, Details: details})
	return nil
}

func newModerationFixture() (ModerationService, *fakeReportRepo, *fakeProfileRepo) {
	reports := newFakeReportRepo()
	profiles := &fakeProfileRepo{profiles: map[string]*model.Profile{
		"admin":  {UserID: "admin", Role: model.RoleAdmin},
		"member": {UserID: "member", Role: model.RoleConsumer},
		"target": {UserID: "target", Role: model.RoleCreator},
	}}
	return NewModerationService(reports, profiles, zerolog.Nop()), reports, profiles
}

func TestModeration(t *testing.T) {
	ctx := context.Background()

	t.Run("any member may file a report", func(t *testing.T) {
		svc, _, _ := newModerationFixture()
		report, err := svc.FileReport(ctx, "member", "target", "spam", nil)
		require.NoError(t, err)
		assert.Equal(t, model.ReportPending, report.Status)
	})

	t.Run("non-admin cannot list or resolve", func(t *testing.T) {
		svc, _, _ := newModerationFixture()
		_, err := svc.ListReports(ctx, "member", model.ReportPending, 20, 0)
		assert.ErrorIs(t, err, ErrNotAdmin)

		err = svc.ResolveReport(ctx, "member", "r1", model.ReportReviewed)
		assert.ErrorIs(t, err, ErrNotAdmin)
	})

	t.Run("resolving a report is audited", func(t *testing.T) {
		svc, reports, _ := newModerationFixture()
		report, err := svc.FileReport(ctx, "member", "target", "spam", nil)
		require.NoError(t, err)

		require.NoError(t, svc.ResolveReport(ctx, "admin", report.ID, model.ReportReviewed))
		assert.Equal(t, model.ReportReviewed, reports.reports[report.ID].Status)
		require.Len(t, reports.audit, 1)
		assert.Equal(t, "report_reviewed", reports.audit[0].Action)
	})

	t.Run("suspension flips the profile flag and is audited", func(t *testing.T) {
		svc, reports, profiles := newModerationFixture()
		require.NoError(t, svc.SuspendProfile(ctx, "admin", "target", "tos violation"))
		assert.True(t, profiles.profiles["target"].Suspended)

		require.NoError(t, svc.ReinstateProfile(ctx, "admin", "target"))
		assert.False(t, profiles.profiles["target"].Suspended)
		assert.Len(t, reports.audit, 2)
	})

	t.Run("ban is recorded", func(t *testing.T) {
		svc, _, _ := newModerationFixture()
		require.NoError(t, svc.BanUser(ctx, "admin", "target", "fraud"))
		banned, err := svc.IsBanned(ctx, "target")
		require.NoError(t, err)
		assert.True(t, banned)
	})
}

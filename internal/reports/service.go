package reports

import (
	"context"
	"strings"

	"github.com/SkCo-Dali/dali-crm/pkg/logging"
)

// Service resolves effective access on top of the repository.
type Service struct {
	repo   Repository
	logger *logging.Logger
}

// NewService creates a report access service.
func NewService(repo Repository, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Resolve computes one user's effective access on one report: the stronger of
// the direct grant and the workspace grant.
func (s *Service) Resolve(ctx context.Context, userID, reportID string) (EffectiveAccess, error) {
	if strings.TrimSpace(userID) == "" {
		return EffectiveAccess{}, ErrMissingUser
	}

	report, err := s.repo.GetReport(ctx, reportID)
	if err != nil {
		return EffectiveAccess{}, err
	}

	direct, err := s.repo.DirectRole(ctx, userID, reportID)
	if err != nil {
		return EffectiveAccess{}, err
	}
	inherited, err := s.repo.WorkspaceRole(ctx, userID, report.WorkspaceID)
	if err != nil {
		return EffectiveAccess{}, err
	}

	return EffectiveAccess{
		UserID:      userID,
		ReportID:    reportID,
		Role:        StrongerRole(direct, inherited),
		DirectRole:  direct,
		InheritRole: inherited,
	}, nil
}

// VisibleReports lists every report the user can see, with the effective role
// on each.
func (s *Service) VisibleReports(ctx context.Context, userID string) ([]VisibleReport, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUser
	}

	grants, err := s.repo.GrantsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	directRoles := make(map[string]string)
	workspaceRoles := make(map[string]string)
	for _, g := range grants {
		if g.ReportID != "" {
			directRoles[g.ReportID] = StrongerRole(directRoles[g.ReportID], g.Role)
		}
		if g.WorkspaceID != "" {
			workspaceRoles[g.WorkspaceID] = StrongerRole(workspaceRoles[g.WorkspaceID], g.Role)
		}
	}

	all, err := s.repo.ListReports(ctx)
	if err != nil {
		return nil, err
	}

	visible := make([]VisibleReport, 0)
	for _, report := range all {
		role := StrongerRole(directRoles[report.ID], workspaceRoles[report.WorkspaceID])
		if role == "" {
			continue
		}
		visible = append(visible, VisibleReport{Report: report, Role: role})
	}
	return visible, nil
}

// Grant gives userID a direct role on a report.
func (s *Service) Grant(ctx context.Context, userID, reportID, role, grantedBy string) (*Grant, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUser
	}
	grant, err := s.repo.GrantDirect(ctx, userID, reportID, role, grantedBy)
	if err != nil {
		return nil, err
	}
	s.logger.Info("report access granted",
		"user_id", userID,
		"report_id", reportID,
		"role", role,
		"granted_by", grantedBy,
	)
	return grant, nil
}

// Revoke removes userID's direct grant on a report. Workspace grants are
// untouched, so the user may retain inherited access.
func (s *Service) Revoke(ctx context.Context, userID, reportID string) error {
	if err := s.repo.RevokeDirect(ctx, userID, reportID); err != nil {
		return err
	}
	s.logger.Info("report access revoked", "user_id", userID, "report_id", reportID)
	return nil
}

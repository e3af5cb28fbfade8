package reports

import "errors"

var (
	ErrReportNotFound    = errors.New("reports: report not found")
	ErrWorkspaceNotFound = errors.New("reports: workspace not found")
	ErrGrantNotFound     = errors.New("reports: grant not found")
	ErrInvalidRole       = errors.New("reports: invalid role")
	ErrMissingUser       = errors.New("reports: user is required")
)

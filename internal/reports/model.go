// Package reports implements Power BI-style report access administration:
// reports live in workspaces, users get direct or workspace-level grants, and
// effective access is the union with the stronger role winning.
package reports

import "time"

// Access roles, weakest to strongest.
const (
	RoleViewer = "viewer"
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

var roleRank = map[string]int{
	RoleViewer: 1,
	RoleEditor: 2,
	RoleAdmin:  3,
}

// ValidRole reports whether role is one of the known access roles.
func ValidRole(role string) bool {
	_, ok := roleRank[role]
	return ok
}

// StrongerRole returns the stronger of two roles; an empty string means no
// access and always loses.
func StrongerRole(a, b string) string {
	if roleRank[a] >= roleRank[b] {
		return a
	}
	return b
}

// Workspace groups reports for workspace-level grants.
type Workspace struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Report is one embeddable report inside a workspace.
type Report struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	EmbedURL    string    `json:"embedUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Grant gives one user a role on a report (direct) or on a whole workspace.
// Exactly one of ReportID / WorkspaceID is set.
type Grant struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	ReportID    string    `json:"reportId,omitempty"`
	WorkspaceID string    `json:"workspaceId,omitempty"`
	Role        string    `json:"role"`
	GrantedBy   string    `json:"grantedBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// EffectiveAccess is the resolved access of one user on one report, with the
// sources that produced it, for audit.
type EffectiveAccess struct {
	UserID      string `json:"userId"`
	ReportID    string `json:"reportId"`
	Role        string `json:"role"`
	DirectRole  string `json:"directRole,omitempty"`
	InheritRole string `json:"inheritedRole,omitempty"`
}

// HasAccess reports whether any role was resolved.
func (a EffectiveAccess) HasAccess() bool {
	return a.Role != ""
}

// VisibleReport is a report together with the caller's effective role.
type VisibleReport struct {
	Report
	Role string `json:"role"`
}

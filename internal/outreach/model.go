package outreach

import (
	"strings"
	"time"
)

// Campaign statuses.
const (
	CampaignDraft      = "draft"
	CampaignPublishing = "publishing"
	CampaignPublished  = "published"
)

// Message statuses.
const (
	MessagePending      = "pending"
	MessageQueued       = "queued"
	MessageSent         = "sent"
	MessageFailed       = "failed"
	MessageRetryPending = "retry_pending"
)

// Campaign is one WhatsApp outreach campaign. The template body may reference
// lead fields with {field} placeholders.
type Campaign struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	TemplateBody string    `json:"templateBody"`
	CreatedBy    string    `json:"createdBy"`
	Status       string    `json:"status"`
	DryRun       bool      `json:"dryRun"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Message is one rendered outbound message for one lead.
type Message struct {
	ID          string     `json:"id"`
	CampaignID  string     `json:"campaignId"`
	LeadID      string     `json:"leadId"`
	Phone       string     `json:"phone"`
	Body        string     `json:"body"`
	Status      string     `json:"status"`
	Attempts    int        `json:"attempts"`
	ProviderID  string     `json:"providerId,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
	NextRetryAt *time.Time `json:"nextRetryAt,omitempty"`
	SentAt      *time.Time `json:"sentAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// CreateCampaignRequest is the request body for creating a campaign.
type CreateCampaignRequest struct {
	Name         string   `json:"name"`
	TemplateBody string   `json:"templateBody"`
	LeadIDs      []string `json:"leadIds"`
	DryRun       bool     `json:"dryRun"`
	CreatedBy    string   `json:"-"`
}

// Validate validates the create campaign request.
func (r *CreateCampaignRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidCampaignName
	}
	if strings.TrimSpace(r.TemplateBody) == "" {
		return ErrEmptyTemplate
	}
	if len(r.LeadIDs) == 0 {
		return ErrNoRecipients
	}
	return nil
}

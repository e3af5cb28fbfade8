package outreach

import "errors"

var (
	ErrInvalidCampaignName = errors.New("outreach: campaign name is required")
	ErrEmptyTemplate       = errors.New("outreach: template body is required")
	ErrNoRecipients        = errors.New("outreach: at least one lead is required")
	ErrCampaignNotFound    = errors.New("outreach: campaign not found")
	ErrMessageNotFound     = errors.New("outreach: message not found")
	ErrAlreadyPublished    = errors.New("outreach: campaign already published")
)

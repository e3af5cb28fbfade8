package outreach

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SkCo-Dali/dali-crm/internal/leads"
	"github.com/SkCo-Dali/dali-crm/internal/observability/metrics"
	"github.com/SkCo-Dali/dali-crm/pkg/logging"
)

// Publisher creates campaigns and pushes their send jobs onto the queue.
type Publisher struct {
	store   Store
	queue   Queue
	leads   leads.Repository
	logger  *logging.Logger
	metrics *metrics.OutreachMetrics

	// Dry runs send to at most this many leads.
	sampleSize int
}

// NewPublisher creates a campaign publisher.
func NewPublisher(store Store, queue Queue, repo leads.Repository, logger *logging.Logger, m *metrics.OutreachMetrics, sampleSize int) *Publisher {
	if logger == nil {
		logger = logging.Default()
	}
	if sampleSize <= 0 {
		sampleSize = 3
	}
	return &Publisher{
		store:      store,
		queue:      queue,
		leads:      repo,
		logger:     logger,
		metrics:    m,
		sampleSize: sampleSize,
	}
}

// CreateCampaign validates the request, renders the template for every lead,
// and persists the campaign with its pending messages. Leads without a phone
// number are skipped with a warning.
func (p *Publisher) CreateCampaign(ctx context.Context, req *CreateCampaignRequest) (*Campaign, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	campaign := &Campaign{
		ID:           uuid.NewString(),
		Name:         req.Name,
		TemplateBody: req.TemplateBody,
		CreatedBy:    req.CreatedBy,
		Status:       CampaignDraft,
		DryRun:       req.DryRun,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	messages := make([]*Message, 0, len(req.LeadIDs))
	for _, leadID := range req.LeadIDs {
		lead, err := p.leads.GetByID(ctx, leadID)
		if err != nil {
			return nil, fmt.Errorf("outreach: load lead %s: %w", leadID, err)
		}
		if strings.TrimSpace(lead.Phone) == "" {
			p.logger.Warn("lead skipped, no phone", "lead_id", leadID, "campaign", campaign.Name)
			continue
		}
		messages = append(messages, &Message{
			ID:         uuid.NewString(),
			CampaignID: campaign.ID,
			LeadID:     leadID,
			Phone:      lead.Phone,
			Body:       RenderTemplate(req.TemplateBody, lead),
			Status:     MessagePending,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	if len(messages) == 0 {
		return nil, ErrNoRecipients
	}

	if err := p.store.CreateCampaign(ctx, campaign); err != nil {
		return nil, err
	}
	for _, m := range messages {
		if err := p.store.CreateMessage(ctx, m); err != nil {
			return nil, err
		}
	}
	return campaign, nil
}

// Publish enqueues the campaign's messages for delivery. A dry-run campaign
// enqueues only the first few messages so content can be verified cheaply.
func (p *Publisher) Publish(ctx context.Context, campaignID string) (int, error) {
	campaign, err := p.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return 0, err
	}
	if campaign.Status == CampaignPublished {
		return 0, ErrAlreadyPublished
	}

	messages, err := p.store.ListMessages(ctx, campaignID)
	if err != nil {
		return 0, err
	}
	if campaign.DryRun && len(messages) > p.sampleSize {
		messages = messages[:p.sampleSize]
	}

	if err := p.store.UpdateCampaignStatus(ctx, campaignID, CampaignPublishing); err != nil {
		return 0, err
	}

	enqueued := 0
	for _, m := range messages {
		body, err := encodeJob(SendJob{
			MessageID:  m.ID,
			CampaignID: m.CampaignID,
			LeadID:     m.LeadID,
			Phone:      m.Phone,
			Body:       m.Body,
			DryRun:     campaign.DryRun,
		})
		if err != nil {
			return enqueued, err
		}
		if err := p.queue.Send(ctx, body); err != nil {
			return enqueued, fmt.Errorf("outreach: enqueue message %s: %w", m.ID, err)
		}
		enqueued++
	}

	if err := p.store.UpdateCampaignStatus(ctx, campaignID, CampaignPublished); err != nil {
		return enqueued, err
	}

	p.metrics.ObservePublished(campaign.DryRun)
	p.logger.Info("campaign published",
		"campaign_id", campaignID,
		"messages", enqueued,
		"dry_run", campaign.DryRun,
	)
	return enqueued, nil
}

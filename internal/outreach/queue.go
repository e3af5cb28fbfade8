package outreach

import (
	"context"
	"encoding/json"
	"fmt"
)

// Queue is the transport the publisher writes send jobs to and the worker
// drains from. Received messages stay in flight until Delete is called with
// their receipt handle; an undeleted message is redelivered once its
// visibility timeout elapses. The worker relies on this to defer throttled
// messages without losing them.
type Queue interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]QueueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

// QueueMessage is one received queue entry.
type QueueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// SendJob is the queue payload for one outbound message.
type SendJob struct {
	MessageID  string `json:"message_id"`
	CampaignID string `json:"campaign_id"`
	LeadID     string `json:"lead_id"`
	Phone      string `json:"phone"`
	Body       string `json:"body"`
	DryRun     bool   `json:"dry_run"`
}

func encodeJob(job SendJob) (string, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("outreach: encode send job: %w", err)
	}
	return string(body), nil
}

// DecodeJob parses a queue body back into a SendJob.
func DecodeJob(body string) (SendJob, error) {
	var job SendJob
	if err := json.Unmarshal([]byte(body), &job); err != nil {
		return SendJob{}, fmt.Errorf("outreach: decode send job: %w", err)
	}
	return job, nil
}

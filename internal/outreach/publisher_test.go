package outreach

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SkCo-Dali/dali-crm/internal/leads"
	"github.com/SkCo-Dali/dali-crm/pkg/logging"
)

func seedLeads(t *testing.T, n int) (*leads.InMemoryRepository, []string) {
	t.Helper()
	repo := leads.NewInMemoryRepository()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		lead, err := repo.Create(context.Background(), &leads.CreateLeadRequest{
			Name:      "Lead " + string(rune('A'+i)),
			Phone:     "+5730000000" + string(rune('0'+i)),
			CreatedBy: "u1",
		})
		require.NoError(t, err)
		ids = append(ids, lead.ID)
	}
	return repo, ids
}

func TestCreateCampaign_RendersPerLead(t *testing.T) {
	repo, ids := seedLeads(t, 2)
	store := NewMemoryStore()
	pub := NewPublisher(store, NewMemoryQueue(16), repo, logging.Default(), nil, 3)

	campaign, err := pub.CreateCampaign(context.Background(), &CreateCampaignRequest{
		Name:         "Bienvenida",
		TemplateBody: "Hola {name}",
		LeadIDs:      ids,
		CreatedBy:    "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, CampaignDraft, campaign.Status)

	messages, err := store.ListMessages(context.Background(), campaign.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	for _, m := range messages {
		assert.Equal(t, MessagePending, m.Status)
		assert.Contains(t, m.Body, "Hola Lead ")
		assert.NotEmpty(t, m.Phone)
	}
}

func TestCreateCampaign_SkipsLeadsWithoutPhone(t *testing.T) {
	repo := leads.NewInMemoryRepository()
	withPhone, err := repo.Create(context.Background(), &leads.CreateLeadRequest{
		Name: "Con Tel", Phone: "+573001112233", CreatedBy: "u1",
	})
	require.NoError(t, err)
	noPhone, err := repo.Create(context.Background(), &leads.CreateLeadRequest{
		Name: "Sin Tel", Email: "sin@tel.co", CreatedBy: "u1",
	})
	require.NoError(t, err)

	store := NewMemoryStore()
	pub := NewPublisher(store, NewMemoryQueue(16), repo, logging.Default(), nil, 3)

	campaign, err := pub.CreateCampaign(context.Background(), &CreateCampaignRequest{
		Name:         "Solo tel",
		TemplateBody: "Hola",
		LeadIDs:      []string{withPhone.ID, noPhone.ID},
		CreatedBy:    "u1",
	})
	require.NoError(t, err)

	messages, err := store.ListMessages(context.Background(), campaign.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, withPhone.ID, messages[0].LeadID)
}

func TestCreateCampaign_Validation(t *testing.T) {
	repo, ids := seedLeads(t, 1)
	pub := NewPublisher(NewMemoryStore(), NewMemoryQueue(16), repo, logging.Default(), nil, 3)

	_, err := pub.CreateCampaign(context.Background(), &CreateCampaignRequest{
		TemplateBody: "Hola", LeadIDs: ids,
	})
	assert.ErrorIs(t, err, ErrInvalidCampaignName)

	_, err = pub.CreateCampaign(context.Background(), &CreateCampaignRequest{
		Name: "x", LeadIDs: ids,
	})
	assert.ErrorIs(t, err, ErrEmptyTemplate)

	_, err = pub.CreateCampaign(context.Background(), &CreateCampaignRequest{
		Name: "x", TemplateBody: "Hola",
	})
	assert.ErrorIs(t, err, ErrNoRecipients)
}

func TestPublish_EnqueuesAllMessages(t *testing.T) {
	repo, ids := seedLeads(t, 4)
	store := NewMemoryStore()
	queue := NewMemoryQueue(16)
	pub := NewPublisher(store, queue, repo, logging.Default(), nil, 3)

	campaign, err := pub.CreateCampaign(context.Background(), &CreateCampaignRequest{
		Name: "Full", TemplateBody: "Hola {name}", LeadIDs: ids, CreatedBy: "u1",
	})
	require.NoError(t, err)

	n, err := pub.Publish(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	got, err := store.GetCampaign(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, CampaignPublished, got.Status)

	msgs, err := queue.Receive(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 4)

	job, err := DecodeJob(msgs[0].Body)
	require.NoError(t, err)
	assert.Equal(t, campaign.ID, job.CampaignID)
	assert.False(t, job.DryRun)
}

func TestPublish_DryRunSendsSampleOnly(t *testing.T) {
	repo, ids := seedLeads(t, 5)
	store := NewMemoryStore()
	queue := NewMemoryQueue(16)
	pub := NewPublisher(store, queue, repo, logging.Default(), nil, 3)

	campaign, err := pub.CreateCampaign(context.Background(), &CreateCampaignRequest{
		Name: "Prueba", TemplateBody: "Hola", LeadIDs: ids, DryRun: true, CreatedBy: "u1",
	})
	require.NoError(t, err)

	n, err := pub.Publish(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	msgs, err := queue.Receive(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for _, m := range msgs {
		job, err := DecodeJob(m.Body)
		require.NoError(t, err)
		assert.True(t, job.DryRun)
	}
}

func TestPublish_Twice(t *testing.T) {
	repo, ids := seedLeads(t, 1)
	pub := NewPublisher(NewMemoryStore(), NewMemoryQueue(16), repo, logging.Default(), nil, 3)

	campaign, err := pub.CreateCampaign(context.Background(), &CreateCampaignRequest{
		Name: "Una vez", TemplateBody: "Hola", LeadIDs: ids, CreatedBy: "u1",
	})
	require.NoError(t, err)

	_, err = pub.Publish(context.Background(), campaign.ID)
	require.NoError(t, err)

	_, err = pub.Publish(context.Background(), campaign.ID)
	assert.ErrorIs(t, err, ErrAlreadyPublished)
}

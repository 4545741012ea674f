package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"outreach-engine/internal/config/configs"
	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

// WebhookSender implements port.ChannelSender by POSTing send requests to
// a channel provider endpoint. The attempt's idempotency key travels in
// the Idempotency-Key header so a retried dispatch is a provider-side
// no-op; actual rendering and transport of the message belong to the
// provider.
type WebhookSender struct {
	channel  domain.Channel
	endpoint string
	client   *http.Client
}

// NewWebhookSender builds a sender for one channel against the given
// provider endpoint.
func NewWebhookSender(channel domain.Channel, endpoint string, cfg configs.Dispatch) *WebhookSender {
	return &WebhookSender{
		channel:  channel,
		endpoint: endpoint,
		client:   &http.Client{Timeout: cfg.SendTimeout},
	}
}

type sendRequest struct {
	Channel      string `json:"channel"`
	CampaignID   string `json:"campaign_id"`
	ProjectID    string `json:"project_id"`
	ContractorID string `json:"contractor_id"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	WebFormURL   string `json:"web_form_url,omitempty"`
}

type sendResponse struct {
	Status      string `json:"status"`
	ProviderRef string `json:"provider_ref"`
}

// Send submits one outreach attempt to the provider.
func (w *WebhookSender) Send(ctx context.Context, contractor domain.Contractor, campaign domain.Campaign, idempotencyKey string) (port.SendResult, error) {
	body, err := json.Marshal(sendRequest{
		Channel:      string(w.channel),
		CampaignID:   campaign.ID,
		ProjectID:    campaign.ProjectID,
		ContractorID: contractor.ID,
		Email:        contractor.Email,
		Phone:        contractor.Phone,
		WebFormURL:   contractor.WebFormURL,
	})
	if err != nil {
		return port.SendResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return port.SendResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := w.client.Do(req)
	if err != nil {
		return port.SendResult{Status: domain.DeliveryFailed}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return port.SendResult{Status: domain.DeliveryFailed},
			fmt.Errorf("channel %s provider returned status %d", w.channel, resp.StatusCode)
	}

	var ack sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		// Accepted but unparseable ack; the send went out.
		return port.SendResult{Status: domain.DeliverySent}, nil
	}
	status := domain.DeliveryStatus(ack.Status)
	switch status {
	case domain.DeliveryQueued, domain.DeliverySent, domain.DeliveryFailed, domain.DeliveryBounced:
	default:
		status = domain.DeliverySent
	}
	return port.SendResult{Status: status, ProviderRef: ack.ProviderRef}, nil
}

var _ port.ChannelSender = (*WebhookSender)(nil)

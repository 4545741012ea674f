package domain

import (
	"fmt"
	"time"
)

// Channel is an outreach medium.
type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelSMS     Channel = "sms"
	ChannelWebForm Channel = "web_form"
)

// DeliveryStatus is the state of one dispatched attempt as reported by the
// channel provider.
type DeliveryStatus string

const (
	DeliveryQueued  DeliveryStatus = "queued"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
	DeliveryBounced DeliveryStatus = "bounced"
)

// OutreachAttempt is one dispatch of one channel to one contractor within a
// campaign. The (CampaignID, ContractorID, Channel) triple is unique and
// doubles as the provider-facing idempotency token, so a retried dispatch
// can never double-send.
type OutreachAttempt struct {
	CampaignID       string
	ContractorID     string
	Channel          Channel
	Status           DeliveryStatus
	ProviderRef      string
	DispatchedAt     time.Time
	ResponseReceived bool
	RespondedAt      *time.Time
}

// IdempotencyKey returns the unique key for this attempt.
func (a OutreachAttempt) IdempotencyKey() string {
	return AttemptKey(a.CampaignID, a.ContractorID, a.Channel)
}

// AttemptKey builds the idempotency key for a (campaign, contractor,
// channel) triple.
func AttemptKey(campaignID, contractorID string, ch Channel) string {
	return fmt.Sprintf("%s:%s:%s", campaignID, contractorID, ch)
}

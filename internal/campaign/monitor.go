// Package campaign watches campaign event failures and unpublishes campaigns
// whose failure ratio crosses a threshold.
package campaign

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/crmimport/internal/store"
)

// DefaultDisableThreshold is the failed/contacts ratio that unpublishes a campaign.
const DefaultDisableThreshold = 0.1

// Permissions checked by the campaign routes.
const (
	PublishPermission = "campaign:campaigns:publish"
	EditPermission    = "campaign:campaigns:edit"
)

// Repository is the campaign storage used by Monitor.
type Repository interface {
	GetCampaign(ctx context.Context, id int64) (*store.Campaign, error)
	SaveCampaign(ctx context.Context, c *store.Campaign) error
	GetCampaignEvent(ctx context.Context, id int64) (*store.CampaignEvent, error)
	ResetFailedCounts(ctx context.Context, campaignID int64) error
	IncrementFailedCount(ctx context.Context, eventID int64) (int, error)
	CountCampaignContacts(ctx context.Context, campaignID int64) (int, error)
}

// Notifier tells users about failures.
type Notifier interface {
	NotifyOfFailure(ctx context.Context, contactID int64, event *store.CampaignEvent) error
	NotifyOfUnpublish(ctx context.Context, event *store.CampaignEvent) error
}

// Change is a pending campaign save. Published holds the stored and the
// in-memory isPublished values when that property changed.
type Change struct {
	Campaign  *store.Campaign
	Published *[2]bool
}

// PublishedChange returns a Change flipping isPublished from before to after.
func PublishedChange(c *store.Campaign, before, after bool) Change {
	return Change{Campaign: c, Published: &[2]bool{before, after}}
}

// FailedEvent is one failed execution of a campaign event for a contact.
type FailedEvent struct {
	EventID   int64
	ContactID int64
}

// Outcome reports what OnEventFailed did.
type Outcome struct {
	FailedCount int     `json:"failedCount"`
	Contacts    int     `json:"contacts"`
	Ratio       float64 `json:"ratio"`
	Unpublished bool    `json:"unpublished"`
}

// Monitor reacts to campaign saves and event failures.
type Monitor struct {
	repo      Repository
	notifier  Notifier
	threshold float64
	logger    *slog.Logger
}

// NewMonitor returns a Monitor. A threshold outside (0, 1] falls back to
// DefaultDisableThreshold.
func NewMonitor(repo Repository, notifier Notifier, threshold float64, logger *slog.Logger) *Monitor {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultDisableThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{repo: repo, notifier: notifier, threshold: threshold, logger: logger}
}

// OnCampaignPreSave resets the failure counts of a campaign's events when
// the campaign is being published.
func (m *Monitor) OnCampaignPreSave(ctx context.Context, change Change) error {
	if change.Published == nil {
		return nil
	}
	before, after := change.Published[0], change.Published[1]
	if before || !after {
		return nil
	}

	if err := m.repo.ResetFailedCounts(ctx, change.Campaign.ID); err != nil {
		return fmt.Errorf("reset failed counts of campaign %d: %w", change.Campaign.ID, err)
	}
	m.logger.InfoContext(ctx, "campaign failure counts reset", "campaign_id", change.Campaign.ID)
	return nil
}

// OnEventFailed records a failure, notifies users and unpublishes the
// campaign once failures reach the threshold share of its contacts. A
// campaign without contacts counts as fully failed.
func (m *Monitor) OnEventFailed(ctx context.Context, failed FailedEvent) (Outcome, error) {
	event, err := m.repo.GetCampaignEvent(ctx, failed.EventID)
	if err != nil {
		return Outcome{}, err
	}
	campaign, err := m.repo.GetCampaign(ctx, event.CampaignID)
	if err != nil {
		return Outcome{}, err
	}

	count, err := m.repo.IncrementFailedCount(ctx, event.ID)
	if err != nil {
		return Outcome{}, err
	}
	event.FailedCount = count

	contacts, err := m.repo.CountCampaignContacts(ctx, campaign.ID)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{FailedCount: count, Contacts: contacts, Ratio: 1}
	if contacts > 0 {
		out.Ratio = float64(count) / float64(contacts)
	}

	if err := m.notifier.NotifyOfFailure(ctx, failed.ContactID, event); err != nil {
		return out, fmt.Errorf("notify of failure: %w", err)
	}

	if out.Ratio < m.threshold {
		return out, nil
	}

	if err := m.notifier.NotifyOfUnpublish(ctx, event); err != nil {
		return out, fmt.Errorf("notify of unpublish: %w", err)
	}
	campaign.IsPublished = false
	if err := m.repo.SaveCampaign(ctx, campaign); err != nil {
		return out, fmt.Errorf("unpublish campaign %d: %w", campaign.ID, err)
	}
	out.Unpublished = true

	m.logger.WarnContext(ctx, "campaign unpublished after event failures",
		"campaign_id", campaign.ID,
		"event_id", event.ID,
		"failed", count,
		"contacts", contacts,
		"threshold", m.threshold,
	)
	return out, nil
}

// SetPublished saves a campaign's published flag, resetting failure counts
// when it is being published.
func (m *Monitor) SetPublished(ctx context.Context, campaignID int64, published bool) (*store.Campaign, error) {
	c, err := m.repo.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if c.IsPublished == published {
		return c, nil
	}

	if err := m.OnCampaignPreSave(ctx, PublishedChange(c, c.IsPublished, published)); err != nil {
		return nil, err
	}
	c.IsPublished = published
	if err := m.repo.SaveCampaign(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

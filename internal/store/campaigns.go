package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Campaign is a marketing campaign.
type Campaign struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	IsPublished bool   `json:"isPublished"`
}

// CampaignEvent is one event of a campaign, with its failure count.
type CampaignEvent struct {
	ID          int64  `json:"id"`
	CampaignID  int64  `json:"campaignId"`
	Name        string `json:"name"`
	FailedCount int    `json:"failedCount"`
}

// GetCampaign returns ErrNotFound for an unknown id.
func (s *Store) GetCampaign(ctx context.Context, id int64) (*Campaign, error) {
	var c Campaign
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, is_published FROM campaigns WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.IsPublished)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("campaign %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return &c, nil
}

// SaveCampaign updates an existing campaign.
func (s *Store) SaveCampaign(ctx context.Context, c *Campaign) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE campaigns SET name = $2, is_published = $3, date_modified = now() WHERE id = $1`,
		c.ID, c.Name, c.IsPublished)
	if err != nil {
		return fmt.Errorf("save campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("campaign %d: %w", c.ID, ErrNotFound)
	}
	return nil
}

// GetCampaignEvent returns ErrNotFound for an unknown id.
func (s *Store) GetCampaignEvent(ctx context.Context, id int64) (*CampaignEvent, error) {
	var e CampaignEvent
	err := s.pool.QueryRow(ctx,
		`SELECT id, campaign_id, name, failed_count FROM campaign_events WHERE id = $1`, id,
	).Scan(&e.ID, &e.CampaignID, &e.Name, &e.FailedCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("campaign event %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign event: %w", err)
	}
	return &e, nil
}

// ResetFailedCounts zeroes the failure counts of every event of a campaign.
func (s *Store) ResetFailedCounts(ctx context.Context, campaignID int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE campaign_events SET failed_count = 0 WHERE campaign_id = $1`, campaignID)
	if err != nil {
		return fmt.Errorf("reset failed counts: %w", err)
	}
	return nil
}

// IncrementFailedCount adds one failure to an event and returns the new count.
func (s *Store) IncrementFailedCount(ctx context.Context, eventID int64) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`UPDATE campaign_events SET failed_count = failed_count + 1 WHERE id = $1 RETURNING failed_count`,
		eventID,
	).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("campaign event %d: %w", eventID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("increment failed count: %w", err)
	}
	return count, nil
}

// CountCampaignContacts counts the contacts currently in a campaign.
func (s *Store) CountCampaignContacts(ctx context.Context, campaignID int64) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM campaign_leads WHERE campaign_id = $1 AND NOT manually_removed`,
		campaignID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count campaign contacts: %w", err)
	}
	return count, nil
}

// Notification is a message shown to a user.
type Notification struct {
	UserID  *int64
	Header  string
	Message string
}

// Notify stores a notification. A nil UserID addresses every user.
func (s *Store) Notify(ctx context.Context, n Notification) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (user_id, header, message) VALUES ($1, $2, $3)`,
		n.UserID, n.Header, n.Message)
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

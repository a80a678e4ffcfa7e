package campaign

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/crmimport/internal/store"
)

// NotificationSink stores user notifications.
type NotificationSink interface {
	Notify(ctx context.Context, n store.Notification) error
}

// StoreNotifier writes failure notifications to the notification table.
type StoreNotifier struct {
	sink NotificationSink
}

// NewStoreNotifier returns a Notifier backed by sink.
func NewStoreNotifier(sink NotificationSink) *StoreNotifier {
	return &StoreNotifier{sink: sink}
}

func (n *StoreNotifier) NotifyOfFailure(ctx context.Context, contactID int64, event *store.CampaignEvent) error {
	return n.sink.Notify(ctx, store.Notification{
		Header:  "Campaign event failed",
		Message: fmt.Sprintf("%s failed for contact #%d", event.Name, contactID),
	})
}

func (n *StoreNotifier) NotifyOfUnpublish(ctx context.Context, event *store.CampaignEvent) error {
	return n.sink.Notify(ctx, store.Notification{
		Header: "Campaign unpublished",
		Message: fmt.Sprintf("Campaign #%d was unpublished because %s failed %d times",
			event.CampaignID, event.Name, event.FailedCount),
	})
}

package notifier

import (
	"context"
	"fmt"

	"noterelay/internal/alerts"
	"noterelay/internal/storage"
	kit "noterelay/internal/transport"
)

// AlertSink routes fired alerts to one chat through a Service.
type AlertSink struct {
	Service *Service
	Target  kit.ChatTarget
}

// Deliver enqueues the alert. The dedup key pins item, due time and lead
// time, so a cycle re-run inside the same minute is suppressed.
func (a AlertSink) Deliver(ctx context.Context, al alerts.Alert) error {
	key := fmt.Sprintf("alert|%s|%s|%d|%d", al.Item.Source, al.Item.Title, al.Item.Due.Unix(), al.Minutes)
	return a.Service.Notify(ctx, Notification{
		Key:     key,
		Target:  a.Target,
		Text:    al.Text(),
		Options: &kit.SendOptions{DisablePreview: true},
		Kind:    storage.KindAlert,
		Title:   al.Item.Title,
	})
}

// Package presenter turns page classifications into badge state and shows
// notifications.
package presenter

import (
	"context"

	"github.com/google/uuid"

	"github.com/entrhq/pagepilot/pkg/host"
	"github.com/entrhq/pagepilot/pkg/logging"
	"github.com/entrhq/pagepilot/pkg/types"
)

// Badge is the glyph and background color shown on the toolbar icon.
type Badge struct {
	Text  string
	Color string
}

// Classification labels with a dedicated badge.
const (
	LabelArticle   = "article"
	LabelEcommerce = "ecommerce"
	LabelSearch    = "search"
	LabelSocial    = "social"
	LabelGeneral   = "general"
)

// DefaultColor is the neutral gray used for general and unknown labels.
const DefaultColor = "#9E9E9E"

var badges = map[string]Badge{
	LabelArticle:   {Text: "📄", Color: "#4CAF50"},
	LabelEcommerce: {Text: "🛒", Color: "#2196F3"},
	LabelSearch:    {Text: "🔍", Color: "#FF9800"},
	LabelSocial:    {Text: "💬", Color: "#F44336"},
	LabelGeneral:   {Text: "", Color: DefaultColor},
}

// BadgeFor maps a label to its badge. Unknown labels, including "", get an
// empty glyph and the default gray.
func BadgeFor(label string) Badge {
	if b, ok := badges[label]; ok {
		return b
	}
	return Badge{Text: "", Color: DefaultColor}
}

// Fixed content of the summary notification.
const (
	SummaryTitle     = "Summary Ready"
	SummaryMessage   = "Page summary has been generated"
	NotificationIcon = "icons/icon48.png"
)

// Capabilities is the slice of the host the presenter needs.
type Capabilities interface {
	host.Action
	host.Notifications
}

// Presenter applies badges and notifications through the host.
// Host failures are logged and never returned.
type Presenter struct {
	host   Capabilities
	logger *logging.Logger
}

// New creates a presenter.
func New(h Capabilities, logger *logging.Logger) *Presenter {
	return &Presenter{host: h, logger: logger}
}

// UpdateBadge sets the badge glyph and color of tabID for label.
func (p *Presenter) UpdateBadge(ctx context.Context, tabID types.TabID, label string) {
	badge := BadgeFor(label)

	if err := p.host.SetBadgeText(ctx, tabID, badge.Text); err != nil {
		p.logger.Warnf("%v", &types.CapabilityError{Capability: "setBadgeText", TabID: tabID, Err: err})
	}
	if err := p.host.SetBadgeBackgroundColor(ctx, tabID, badge.Color); err != nil {
		p.logger.Warnf("%v", &types.CapabilityError{Capability: "setBadgeBackgroundColor", TabID: tabID, Err: err})
	}

	p.logger.Debugf("badge for tab %d set to %q (%s) for label %q", tabID, badge.Text, badge.Color, label)
}

// NotifySummaryReady shows the basic "summary generated" notification.
func (p *Presenter) NotifySummaryReady(ctx context.Context) {
	n := host.Notification{
		ID:      uuid.NewString(),
		Type:    "basic",
		IconURL: NotificationIcon,
		Title:   SummaryTitle,
		Message: SummaryMessage,
	}
	if err := p.host.CreateNotification(ctx, n); err != nil {
		p.logger.Warnf("failed to create notification: %v", err)
	}
}

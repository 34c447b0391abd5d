// Package lifecycle keeps the session registry in step with tab navigation.
package lifecycle

import (
	"context"

	"github.com/entrhq/pagepilot/pkg/host"
	"github.com/entrhq/pagepilot/pkg/logging"
	"github.com/entrhq/pagepilot/pkg/session"
	"github.com/entrhq/pagepilot/pkg/types"
)

// Controller reacts to tab lifecycle events.
type Controller struct {
	registry *session.Registry
	scripts  host.Scripting
	logger   *logging.Logger
}

// New creates a controller.
func New(registry *session.Registry, scripts host.Scripting, logger *logging.Logger) *Controller {
	return &Controller{registry: registry, scripts: scripts, logger: logger}
}

// OnTabUpdated starts a fresh session once a navigation completes and injects
// the content script into web pages. Intermediate loading states are ignored.
func (c *Controller) OnTabUpdated(ctx context.Context, ev host.TabUpdated) {
	if c.TrackNavigation(ev) {
		c.Inject(ctx, ev.TabID)
	}
}

// TrackNavigation records a completed navigation in the registry and reports
// whether the content script should be injected. It never blocks on the host.
func (c *Controller) TrackNavigation(ev host.TabUpdated) bool {
	if ev.Status != host.TabStatusComplete || ev.URL == "" {
		return false
	}

	c.registry.Track(ev.TabID, session.Meta{URL: ev.URL, Title: ev.Title})
	c.logger.Debugf("tracking tab %d at %s", ev.TabID, ev.URL)
	return types.IsWebURL(ev.URL)
}

// Inject loads the content script into a tab.
func (c *Controller) Inject(ctx context.Context, tabID types.TabID) {
	if err := c.scripts.InjectContentScript(ctx, tabID); err != nil {
		// Restricted pages refuse injection; the session stays.
		c.logger.Warnf("%v", &types.CapabilityError{Capability: "inject", TabID: tabID, Err: err})
	}
}

// OnTabRemoved drops the session of a closed tab.
func (c *Controller) OnTabRemoved(ctx context.Context, ev host.TabRemoved) {
	c.registry.Remove(ev.TabID)
	c.logger.Debugf("tab %d removed", ev.TabID)
}

// OnActionClicked counts a toolbar icon activation for the focused tab.
func (c *Controller) OnActionClicked(ctx context.Context, ev host.ActionClicked) {
	if !c.registry.RecordInteraction(ev.Tab.ID) {
		c.logger.Debugf("icon clicked on untracked tab %d", ev.Tab.ID)
	}
}

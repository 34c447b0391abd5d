// Package commands registers the context menu entries and executes them.
package commands

import (
	"context"
	"strings"

	"github.com/entrhq/pagepilot/pkg/host"
	"github.com/entrhq/pagepilot/pkg/logging"
	"github.com/entrhq/pagepilot/pkg/types"
)

// Menu item ids.
const (
	SummarizePage    = "summarize-page"
	ExtractSelection = "extract-selection"
)

// Items returns the context menu entries in registration order.
func Items() []host.MenuItem {
	return []host.MenuItem{
		{
			ID:                  SummarizePage,
			Title:               "Summarize this page",
			Contexts:            []string{host.MenuContextPage},
			DocumentURLPatterns: host.WebURLPatterns,
		},
		{
			ID:                  ExtractSelection,
			Title:               "Extract selected text",
			Contexts:            []string{host.MenuContextSelection},
			DocumentURLPatterns: host.WebURLPatterns,
		},
	}
}

// Summarizer requests page summaries from the backend.
type Summarizer interface {
	Summarize(ctx context.Context, pageURL string) types.APIResult
}

// Notifier announces a finished summary.
type Notifier interface {
	NotifySummaryReady(ctx context.Context)
}

// Capabilities is the slice of the host the dispatcher needs.
type Capabilities interface {
	host.Tabs
	host.ContextMenus
}

// Dispatcher owns the context menu commands.
type Dispatcher struct {
	host       Capabilities
	summarizer Summarizer
	notifier   Notifier
	logger     *logging.Logger
}

// New creates a dispatcher.
func New(h Capabilities, summarizer Summarizer, notifier Notifier, logger *logging.Logger) *Dispatcher {
	return &Dispatcher{host: h, summarizer: summarizer, notifier: notifier, logger: logger}
}

// Register creates every menu item. A failing item is logged and does not
// stop the others. It returns the number of items registered.
func (d *Dispatcher) Register(ctx context.Context) int {
	registered := 0
	for _, item := range Items() {
		if err := d.host.CreateMenuItem(ctx, item); err != nil {
			d.logger.Warnf("failed to register menu item %s: %v", item.ID, err)
			continue
		}
		registered++
	}
	d.logger.Debugf("registered %d context menu items", registered)
	return registered
}

// OnClicked executes the command behind a menu invocation.
func (d *Dispatcher) OnClicked(ctx context.Context, ev host.ContextMenuClicked) {
	switch ev.Info.MenuItemID {
	case SummarizePage:
		d.summarize(ctx, ev)
	case ExtractSelection:
		d.extractSelection(ctx, ev)
	default:
		d.logger.Debugf("ignoring unknown menu item %q", ev.Info.MenuItemID)
	}
}

func (d *Dispatcher) summarize(ctx context.Context, ev host.ContextMenuClicked) {
	pageURL := ev.Info.PageURL
	if pageURL == "" && ev.Tab != nil {
		pageURL = ev.Tab.URL
	}
	if !types.IsWebURL(pageURL) {
		d.logger.Debugf("summarize skipped for non-web page %q", pageURL)
		return
	}

	res := d.summarizer.Summarize(ctx, pageURL)
	if !res.Success {
		d.logger.Errorf("summary of %s failed: %s", pageURL, res.Error)
		return
	}
	d.logger.Infof("summary of %s ready", pageURL)
	d.notifier.NotifySummaryReady(ctx)
}

func (d *Dispatcher) extractSelection(ctx context.Context, ev host.ContextMenuClicked) {
	text := ev.Info.SelectionText
	if strings.TrimSpace(text) == "" {
		return
	}
	if ev.Tab == nil {
		d.logger.Warnf("selection extracted outside a tab, dropping it")
		return
	}

	if _, err := d.host.SendMessage(ctx, ev.Tab.ID, types.ProcessSelection{Text: text}); err != nil {
		d.logger.Warnf("%v", &types.CapabilityError{Capability: "sendMessage", TabID: ev.Tab.ID, Err: err})
	}
}

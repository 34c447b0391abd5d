package pwhost

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/entrhq/pagepilot/pkg/host"
	"github.com/entrhq/pagepilot/pkg/types"
	"github.com/playwright-community/playwright-go"
)

// ErrNoSelection is returned when a selection command runs without selected text.
var ErrNoSelection = errors.New("no text selected")

// Open opens rawURL in a new tab and makes it active. An empty URL opens a
// blank tab.
func (h *Host) Open(ctx context.Context, rawURL string) (types.TabID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	h.mu.Lock()
	bctx := h.bctx
	h.mu.Unlock()
	if bctx == nil {
		return 0, ErrNotStarted
	}

	page, err := bctx.NewPage()
	if err != nil {
		return 0, fmt.Errorf("failed to open tab: %w", err)
	}
	id := h.attach(page)

	if rawURL != "" {
		if _, err := page.Goto(rawURL, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateLoad,
		}); err != nil {
			return id, fmt.Errorf("navigation failed: %w", err)
		}
	}
	return id, nil
}

// Activate focuses a tab.
func (h *Host) Activate(ctx context.Context, tabID types.TabID) error {
	t, err := h.tab(tabID)
	if err != nil {
		return err
	}
	if err := t.page.BringToFront(); err != nil {
		return fmt.Errorf("failed to focus tab %d: %w", tabID, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.tabs.activate(tabID) {
		return fmt.Errorf("%w %d", ErrUnknownTab, tabID)
	}
	return nil
}

// Tabs lists open tabs from least to most recently activated.
func (h *Host) Tabs() []types.Tab {
	h.mu.Lock()
	open := h.tabs.all()
	h.mu.Unlock()

	out := make([]types.Tab, 0, len(open))
	for _, t := range open {
		out = append(out, describe(t))
	}
	return out
}

// ClickAction simulates a click on the toolbar icon while tabID is focused.
func (h *Host) ClickAction(ctx context.Context, tabID types.TabID) error {
	t, err := h.tab(tabID)
	if err != nil {
		return err
	}
	h.emit(host.ActionClicked{Tab: describe(t)})
	return nil
}

// InvokeCommand simulates choosing a context menu item on tabID. The item must
// be registered and offered for the page URL; selection items read the live
// selection.
func (h *Host) InvokeCommand(ctx context.Context, tabID types.TabID, menuID string) error {
	t, err := h.tab(tabID)
	if err != nil {
		return err
	}
	item, ok := h.menu(menuID)
	if !ok {
		return fmt.Errorf("menu item %q is not registered", menuID)
	}

	var selection string
	if item.HasContext(host.MenuContextSelection) {
		v, err := t.page.Evaluate(readSelectionScript)
		if err != nil {
			return fmt.Errorf("failed to read selection: %w", err)
		}
		selection, _ = v.(string)
	}

	info, err := clickInfo(item, t.page.URL(), selection)
	if err != nil {
		return err
	}
	tab := describe(t)
	h.emit(host.ContextMenuClicked{Info: info, Tab: &tab})
	return nil
}

func (h *Host) menu(id string) (host.MenuItem, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, item := range h.menus {
		if item.ID == id {
			return item, true
		}
	}
	return host.MenuItem{}, false
}

// clickInfo builds the click for item on pageURL, refusing clicks the menu
// would not have offered.
func clickInfo(item host.MenuItem, pageURL, selection string) (host.ClickInfo, error) {
	ok, err := item.Matches(pageURL)
	if err != nil {
		return host.ClickInfo{}, err
	}
	if !ok {
		return host.ClickInfo{}, fmt.Errorf("menu item %q is not offered on %s", item.ID, pageURL)
	}

	onPage := item.HasContext(host.MenuContextPage)
	if !onPage && strings.TrimSpace(selection) == "" {
		return host.ClickInfo{}, ErrNoSelection
	}

	return host.ClickInfo{
		MenuItemID:    item.ID,
		PageURL:       pageURL,
		SelectionText: selection,
	}, nil
}

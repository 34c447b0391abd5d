package commands

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/entrhq/pagepilot/pkg/host"
	"github.com/entrhq/pagepilot/pkg/host/hosttest"
	"github.com/entrhq/pagepilot/pkg/logging"
	"github.com/entrhq/pagepilot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSummarizer struct {
	mu     sync.Mutex
	urls   []string
	result types.APIResult
}

func (f *fakeSummarizer) Summarize(ctx context.Context, pageURL string) types.APIResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, pageURL)
	return f.result
}

type countingNotifier struct {
	mu    sync.Mutex
	count int
}

func (n *countingNotifier) NotifySummaryReady(ctx context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++
}

func setup(result types.APIResult) (*Dispatcher, *hosttest.Host, *fakeSummarizer, *countingNotifier) {
	h := hosttest.New()
	s := &fakeSummarizer{result: result}
	n := &countingNotifier{}
	return New(h, s, n, logging.Discard("commands")), h, s, n
}

func TestRegister(t *testing.T) {
	d, h, _, _ := setup(types.APIResult{})

	assert.Equal(t, 2, d.Register(context.Background()))

	menus := h.Menus()
	require.Len(t, menus, 2)
	assert.Equal(t, SummarizePage, menus[0].ID)
	assert.Equal(t, "Summarize this page", menus[0].Title)
	assert.Equal(t, []string{"page"}, menus[0].Contexts)
	assert.Equal(t, ExtractSelection, menus[1].ID)
	assert.Equal(t, "Extract selected text", menus[1].Title)
	assert.Equal(t, []string{"selection"}, menus[1].Contexts)
	for _, m := range menus {
		assert.Equal(t, []string{"http://*/*", "https://*/*"}, m.DocumentURLPatterns)
	}
}

func TestRegister_PartialFailure(t *testing.T) {
	d, h, _, _ := setup(types.APIResult{})
	h.MenuErrs[SummarizePage] = errors.New("duplicate id")

	assert.Equal(t, 1, d.Register(context.Background()))
	menus := h.Menus()
	require.Len(t, menus, 1)
	assert.Equal(t, ExtractSelection, menus[0].ID)
}

func TestSummarizePage(t *testing.T) {
	t.Run("success notifies", func(t *testing.T) {
		d, _, s, n := setup(types.APIResult{Success: true, Status: 200, Data: json.RawMessage(`{}`)})
		d.OnClicked(context.Background(), host.ContextMenuClicked{
			Info: host.ClickInfo{MenuItemID: SummarizePage, PageURL: "https://example.com/a"},
			Tab:  &types.Tab{ID: 3, URL: "https://example.com/a"},
		})
		assert.Equal(t, []string{"https://example.com/a"}, s.urls)
		assert.Equal(t, 1, n.count)
	})

	t.Run("falls back to tab url", func(t *testing.T) {
		d, _, s, _ := setup(types.APIResult{Success: true})
		d.OnClicked(context.Background(), host.ContextMenuClicked{
			Info: host.ClickInfo{MenuItemID: SummarizePage},
			Tab:  &types.Tab{ID: 3, URL: "https://example.com/b"},
		})
		assert.Equal(t, []string{"https://example.com/b"}, s.urls)
	})

	t.Run("failure does not notify", func(t *testing.T) {
		d, _, s, n := setup(types.APIResult{Success: false, Error: "Request failed", Status: 500})
		d.OnClicked(context.Background(), host.ContextMenuClicked{
			Info: host.ClickInfo{MenuItemID: SummarizePage, PageURL: "https://example.com"},
		})
		assert.Len(t, s.urls, 1)
		assert.Zero(t, n.count)
	})

	t.Run("non-web page is ignored", func(t *testing.T) {
		d, _, s, n := setup(types.APIResult{Success: true})
		d.OnClicked(context.Background(), host.ContextMenuClicked{
			Info: host.ClickInfo{MenuItemID: SummarizePage, PageURL: "chrome://newtab"},
		})
		assert.Empty(t, s.urls)
		assert.Zero(t, n.count)
	})
}

func TestExtractSelection(t *testing.T) {
	t.Run("forwards text to the tab", func(t *testing.T) {
		d, h, _, _ := setup(types.APIResult{})
		h.Replies[4] = json.RawMessage(`{}`)
		d.OnClicked(context.Background(), host.ContextMenuClicked{
			Info: host.ClickInfo{MenuItemID: ExtractSelection, PageURL: "https://example.com", SelectionText: "hello world"},
			Tab:  &types.Tab{ID: 4},
		})

		sent := h.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, types.TabID(4), sent[0].TabID)
		assert.Equal(t, types.ProcessSelection{Text: "hello world"}, sent[0].Message)
	})

	t.Run("blank selection is ignored", func(t *testing.T) {
		d, h, _, _ := setup(types.APIResult{})
		d.OnClicked(context.Background(), host.ContextMenuClicked{
			Info: host.ClickInfo{MenuItemID: ExtractSelection, SelectionText: "  \n\t"},
			Tab:  &types.Tab{ID: 4},
		})
		assert.Empty(t, h.Sent())
	})

	t.Run("messaging failure is swallowed", func(t *testing.T) {
		d, h, _, _ := setup(types.APIResult{})
		assert.NotPanics(t, func() {
			d.OnClicked(context.Background(), host.ContextMenuClicked{
				Info: host.ClickInfo{MenuItemID: ExtractSelection, SelectionText: "x"},
				Tab:  &types.Tab{ID: 5},
			})
		})
		assert.Len(t, h.Sent(), 1)
	})
}

func TestUnknownMenuItem(t *testing.T) {
	d, h, s, n := setup(types.APIResult{Success: true})
	d.OnClicked(context.Background(), host.ContextMenuClicked{Info: host.ClickInfo{MenuItemID: "other"}})
	assert.Empty(t, h.Sent())
	assert.Empty(t, s.urls)
	assert.Zero(t, n.count)
}

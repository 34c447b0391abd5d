package presenter

import (
	"context"
	"errors"
	"testing"

	"github.com/entrhq/pagepilot/pkg/host/hosttest"
	"github.com/entrhq/pagepilot/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgeFor(t *testing.T) {
	tests := []struct {
		label string
		text  string
		color string
	}{
		{"article", "📄", "#4CAF50"},
		{"ecommerce", "🛒", "#2196F3"},
		{"search", "🔍", "#FF9800"},
		{"social", "💬", "#F44336"},
		{"general", "", "#9E9E9E"},
		{"", "", "#9E9E9E"},
		{"video", "", "#9E9E9E"},
		{"Article", "", "#9E9E9E"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			b := BadgeFor(tt.label)
			assert.Equal(t, tt.text, b.Text)
			assert.Equal(t, tt.color, b.Color)
		})
	}
}

func TestUpdateBadge(t *testing.T) {
	h := hosttest.New()
	p := New(h, logging.Discard("presenter"))

	p.UpdateBadge(context.Background(), 7, "article")

	state, ok := h.Badge(7)
	require.True(t, ok)
	assert.Equal(t, "📄", state.Text)
	assert.Equal(t, "#4CAF50", state.Color)
}

func TestUpdateBadge_HostFailureIsSwallowed(t *testing.T) {
	h := hosttest.New()
	h.BadgeErr = errors.New("tab closed")
	p := New(h, logging.Discard("presenter"))

	assert.NotPanics(t, func() {
		p.UpdateBadge(context.Background(), 1, "search")
	})
	_, ok := h.Badge(1)
	assert.False(t, ok)
}

func TestNotifySummaryReady(t *testing.T) {
	h := hosttest.New()
	p := New(h, nil)

	p.NotifySummaryReady(context.Background())
	p.NotifySummaryReady(context.Background())

	notes := h.Notifications()
	require.Len(t, notes, 2)
	assert.Equal(t, "basic", notes[0].Type)
	assert.Equal(t, SummaryTitle, notes[0].Title)
	assert.Equal(t, SummaryMessage, notes[0].Message)
	assert.NotEqual(t, notes[0].ID, notes[1].ID)

	h.NotifyErr = errors.New("permission denied")
	assert.NotPanics(t, func() { p.NotifySummaryReady(context.Background()) })
	assert.Len(t, h.Notifications(), 2)
}

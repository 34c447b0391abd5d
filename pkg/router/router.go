// Package router dispatches inbound protocol messages to their handlers.
//
// Every message gets exactly one types.Response. Handler errors and panics are
// converted into failure responses; nothing propagates to the caller.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/entrhq/pagepilot/pkg/host"
	"github.com/entrhq/pagepilot/pkg/logging"
	"github.com/entrhq/pagepilot/pkg/session"
	"github.com/entrhq/pagepilot/pkg/types"
)

// Proxy forwards backend calls.
type Proxy interface {
	Do(ctx context.Context, req types.APIRequest) types.APIResult
}

// BadgeUpdater reflects a page classification on the toolbar icon.
type BadgeUpdater interface {
	UpdateBadge(ctx context.Context, tabID types.TabID, label string)
}

// Router handles inbound messages.
type Router struct {
	registry *session.Registry
	proxy    Proxy
	badges   BadgeUpdater
	tabs     host.Tabs
	logger   *logging.Logger
}

// New creates a router.
func New(registry *session.Registry, proxy Proxy, badges BadgeUpdater, tabs host.Tabs, logger *logging.Logger) *Router {
	return &Router{
		registry: registry,
		proxy:    proxy,
		badges:   badges,
		tabs:     tabs,
		logger:   logger,
	}
}

// HandleRaw decodes a wire message and handles it.
func (r *Router) HandleRaw(ctx context.Context, raw []byte, sender types.Sender) types.Response {
	msg, err := types.DecodeInbound(raw)
	if err != nil {
		r.logger.Warnf("rejecting malformed message: %v", err)
		return types.Fail(err)
	}
	return r.Handle(ctx, msg, sender)
}

// Handle routes msg to its handler and returns the reply.
func (r *Router) Handle(ctx context.Context, msg types.InboundMessage, sender types.Sender) (resp types.Response) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Errorf("handler for %s panicked: %v", kindOf(msg), rec)
			resp = types.Fail(fmt.Errorf("internal error handling %s: %v", kindOf(msg), rec))
		}
	}()

	switch m := msg.(type) {
	case types.PageLoaded:
		return r.pageLoaded(ctx, m, sender)
	case types.APIRequest:
		return types.FromAPIResult(r.proxy.Do(ctx, m))
	case types.GetTabSessions:
		return types.Response{Success: true, Sessions: r.registry.List()}
	case types.AnalyzeCurrentTab:
		return r.analyzeCurrentTab(ctx)
	case types.UnknownMessage:
		r.logger.Debugf("unknown message type %q", m.RawKind)
		return types.Fail(types.ErrUnknownMessage)
	default:
		return types.Fail(types.ErrUnknownMessage)
	}
}

func (r *Router) pageLoaded(ctx context.Context, m types.PageLoaded, sender types.Sender) types.Response {
	tabID, ok := sender.TabID()
	if !ok {
		return types.OK()
	}

	ready := true
	if !r.registry.Patch(tabID, session.Patch{Analysis: m.Analysis, ContentReady: &ready}) {
		// The tab was closed or navigated away before the analysis arrived.
		r.logger.Debugf("dropping analysis for untracked tab %d", tabID)
		return types.OK()
	}

	if m.Analysis.HasPageType() {
		r.badges.UpdateBadge(ctx, tabID, m.Analysis.PageType())
	}
	return types.OK()
}

func (r *Router) analyzeCurrentTab(ctx context.Context) types.Response {
	tab, err := r.tabs.ActiveTab(ctx)
	if err != nil {
		if !errors.Is(err, types.ErrNoActiveTab) {
			r.logger.Warnf("active tab lookup failed: %v", err)
		}
		return types.Fail(types.ErrNoActiveTab)
	}

	raw, err := r.tabs.SendMessage(ctx, tab.ID, types.AnalyzePage{})
	if err != nil {
		r.logger.Warnf("%v", &types.CapabilityError{Capability: "sendMessage", TabID: tab.ID, Err: err})
		return types.Fail(err)
	}

	var reply types.AnalyzePageReply
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &reply); err != nil {
			return types.Fail(fmt.Errorf("invalid analysis reply from tab %d: %w", tab.ID, err))
		}
	}

	return types.Response{
		Success:  true,
		Analysis: reply.Analysis,
		Tab:      &tab,
	}
}

func kindOf(msg types.InboundMessage) types.MessageKind {
	if msg == nil {
		return ""
	}
	return msg.Kind()
}

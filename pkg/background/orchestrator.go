// Package background wires the orchestrator together and drives it from host
// events.
package background

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/entrhq/pagepilot/pkg/apiproxy"
	"github.com/entrhq/pagepilot/pkg/clock"
	"github.com/entrhq/pagepilot/pkg/commands"
	"github.com/entrhq/pagepilot/pkg/host"
	"github.com/entrhq/pagepilot/pkg/lifecycle"
	"github.com/entrhq/pagepilot/pkg/logging"
	"github.com/entrhq/pagepilot/pkg/presenter"
	"github.com/entrhq/pagepilot/pkg/router"
	"github.com/entrhq/pagepilot/pkg/session"
	"github.com/entrhq/pagepilot/pkg/types"
)

// Options configures an Orchestrator. Zero values select defaults.
type Options struct {
	// Proxy is the backend client. Defaults to apiproxy.New("").
	Proxy *apiproxy.Client
	// Clock is the registry time source.
	Clock clock.Clock
	// Logger is the parent logger; components log through children of it.
	Logger *logging.Logger
}

// Orchestrator owns the session registry and reacts to host events.
type Orchestrator struct {
	host      host.Host
	registry  *session.Registry
	lifecycle *lifecycle.Controller
	commands  *commands.Dispatcher
	router    *router.Router
	logger    *logging.Logger

	wg sync.WaitGroup
}

// New builds an orchestrator on top of h. The registry starts empty.
func New(h host.Host, opts Options) *Orchestrator {
	proxy := opts.Proxy
	if proxy == nil {
		proxy = apiproxy.New("", apiproxy.WithLogger(opts.Logger.WithComponent("apiproxy")))
	}
	var regOpts []session.Option
	if opts.Clock != nil {
		regOpts = append(regOpts, session.WithClock(opts.Clock))
	}

	registry := session.New(regOpts...)
	pres := presenter.New(h, opts.Logger.WithComponent("presenter"))

	return &Orchestrator{
		host:      h,
		registry:  registry,
		lifecycle: lifecycle.New(registry, h, opts.Logger.WithComponent("lifecycle")),
		commands:  commands.New(h, proxy, pres, opts.Logger.WithComponent("commands")),
		router:    router.New(registry, proxy, pres, h, opts.Logger.WithComponent("router")),
		logger:    opts.Logger,
	}
}

// Registry returns the session registry.
func (o *Orchestrator) Registry() *session.Registry {
	return o.registry
}

// Stats returns the registry summary.
func (o *Orchestrator) Stats() session.Stats {
	return o.registry.Stats()
}

// Router returns the message router.
func (o *Orchestrator) Router() *router.Router {
	return o.router
}

// Run registers the context menu commands and handles host events until ctx
// is cancelled or the event channel closes. Registry updates for lifecycle
// events are applied in arrival order on the loop itself; everything that
// waits on the host or the backend runs on its own goroutine. Run waits for
// in-flight handlers before returning.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.commands.Register(ctx)
	o.logger.Infof("orchestrator started")

	defer func() {
		o.wg.Wait()
		o.logger.Infof("orchestrator stopped with %d tracked sessions", o.registry.Len())
	}()

	events := o.host.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			o.dispatch(ctx, ev)
		}
	}
}

// dispatch applies the ordered part of ev and hands the rest to a goroutine.
func (o *Orchestrator) dispatch(ctx context.Context, ev host.Event) {
	defer o.recoverEvent(ev)

	switch e := ev.(type) {
	case host.TabUpdated:
		if o.lifecycle.TrackNavigation(e) {
			o.spawn(ev, func() { o.lifecycle.Inject(ctx, e.TabID) })
		}
	case host.TabRemoved:
		o.lifecycle.OnTabRemoved(ctx, e)
	case host.ActionClicked:
		o.lifecycle.OnActionClicked(ctx, e)
	default:
		o.spawn(ev, func() { o.handle(ctx, ev) })
	}
}

// spawn runs fn on a tracked goroutine.
func (o *Orchestrator) spawn(ev host.Event, fn func()) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.recoverEvent(ev)
		fn()
	}()
}

// Handle processes a single event synchronously.
func (o *Orchestrator) Handle(ctx context.Context, ev host.Event) {
	defer o.recoverEvent(ev)
	o.handle(ctx, ev)
}

func (o *Orchestrator) handle(ctx context.Context, ev host.Event) {
	switch e := ev.(type) {
	case host.TabUpdated:
		o.lifecycle.OnTabUpdated(ctx, e)
	case host.TabRemoved:
		o.lifecycle.OnTabRemoved(ctx, e)
	case host.ActionClicked:
		o.lifecycle.OnActionClicked(ctx, e)
	case host.ContextMenuClicked:
		o.commands.OnClicked(ctx, e)
	case host.Installed:
		o.commands.Register(ctx)
	case host.MessageReceived:
		o.handleMessage(ctx, e)
	default:
		o.logger.Warnf("ignoring unsupported event %T", ev)
	}
}

// handleMessage always answers exactly once, even when the router panics.
func (o *Orchestrator) handleMessage(ctx context.Context, e host.MessageReceived) {
	var once sync.Once
	respond := func(resp types.Response) {
		once.Do(func() {
			if e.Respond != nil {
				e.Respond(resp)
			}
		})
	}
	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Errorf("message handler panicked: %v", rec)
			respond(types.Fail(fmt.Errorf("internal error: %v", rec)))
		}
	}()

	respond(o.router.HandleRaw(ctx, e.Payload, e.Sender))
}

func (o *Orchestrator) recoverEvent(ev host.Event) {
	if rec := recover(); rec != nil {
		o.logger.Errorf("handler for %T panicked: %v\n%s", ev, rec, debug.Stack())
	}
}

package main

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/postboard/internal/config"
	"github.com/vango-dev/postboard/internal/errors"
	"github.com/vango-dev/postboard/pkg/live"
	"github.com/vango-dev/postboard/pkg/post"
	"github.com/vango-dev/postboard/pkg/posts"
	"github.com/vango-dev/postboard/pkg/ui"
)

// settleTimeout bounds a single settle round.
const settleTimeout = 5 * time.Second

// app wires a store, a component runtime and a board from one configuration.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	reg    *prometheus.Registry
	store  *posts.Store
	rt     *ui.Runtime
	board  *post.Board

	// live pushes renders to WebSocket clients. Nil for demo.
	live *live.Hub

	// onChange is called when settling mounts or unmounts posts.
	onChange func()
}

func newApp(cfg *config.Config, logger *slog.Logger, rtOpts ...ui.RuntimeOption) *app {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	store := posts.NewStore(
		posts.WithLogger(logger.With("component", "store")),
		posts.WithMetrics(posts.NewMetrics(reg, cfg.Metrics.Namespace)),
		posts.WithInitialSync(cfg.Store.InitialSync),
		posts.WithSeed(cfg.SeedPosts()...),
	)

	opts := append([]ui.RuntimeOption{
		ui.WithLogger(logger.With("component", "ui")),
		ui.WithMetrics(ui.NewMetrics(reg, cfg.Metrics.Namespace)),
	}, rtOpts...)
	rt := ui.NewRuntime(opts...)

	return &app{
		cfg:    cfg,
		logger: logger,
		reg:    reg,
		store:  store,
		rt:     rt,
		board:  post.NewBoard(rt, post.StoreConnect(store), logger, post.WithLogger(logger)),
	}
}

// newLiveApp is newApp with a live hub that re-broadcasts the board after
// every render and feeds client events back into the posts.
func newLiveApp(cfg *config.Config, logger *slog.Logger) *app {
	var a *app
	hub := live.New(
		func() string { return ui.RenderHTML(a.board.View()) },
		live.WithLogger(logger.With("component", "live")),
		live.WithEventHandler(func(ev live.Event) { a.handleLiveEvent(ev) }),
	)
	a = newApp(cfg, logger, ui.WithRenderHook(hub.RenderHook))
	a.live = hub
	a.onChange = hub.Notify
	return a
}

// handleLiveEvent fires a client event on the post's rendered tree and
// settles the board.
func (a *app) handleLiveEvent(ev live.Event) {
	hd, ok := a.board.Handle(posts.PostID(ev.Post))
	if !ok {
		a.logger.Debug("live event for unknown post", "post", ev.Post, "action", ev.Action)
		return
	}
	if !fireEvent(hd.Tree(), ev.Action, ev.Text) {
		a.logger.Debug("live event not handled", "post", ev.Post, "action", ev.Action)
		return
	}
	if err := a.settle(context.Background()); err != nil {
		a.logger.Warn("settle failed", "error", err)
	}
}

// fireEvent runs the handler behind action on a post tree: "submit" submits
// text to the input, "delete" clicks the delete button.
func fireEvent(tree *ui.Node, action, text string) bool {
	switch action {
	case "submit":
		return tree.Find("text").Submit(text)
	case "delete":
		return tree.Find("delete").Click()
	}
	return false
}

// settle waits until every message already sent by a mounted post has been
// applied by the store, the board matches the resulting snapshot and every
// post has handled the snapshots addressed to it.
func (a *app) settle(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()

	if err := a.board.Sync(ctx); err != nil {
		return settleError(err)
	}
	if err := a.store.Barrier(ctx); err != nil {
		return settleError(err)
	}
	if mounted, unmounted := a.board.Reconcile(a.store.Snapshot()); mounted+unmounted > 0 && a.onChange != nil {
		a.onChange()
	}
	// New posts subscribe through the store queue.
	if err := a.store.Barrier(ctx); err != nil {
		return settleError(err)
	}
	if err := a.board.Sync(ctx); err != nil {
		return settleError(err)
	}
	return nil
}

// close tears down the board, the runtime and the store in that order.
func (a *app) close() {
	a.board.Close()
	a.rt.Close()
	a.store.Close()
}

func settleError(err error) error {
	if stderrors.Is(err, posts.ErrStoreClosed) {
		return errors.New("E200").Wrap(err)
	}
	return errors.New("E201").Wrap(err)
}

// loadConfig loads the file named by --config, or looks for a configuration
// file in the working directory.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load(".")
}

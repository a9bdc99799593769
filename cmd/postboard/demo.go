package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/vango-dev/postboard/internal/errors"
	"github.com/vango-dev/postboard/pkg/post"
	"github.com/vango-dev/postboard/pkg/posts"
	"github.com/vango-dev/postboard/pkg/ui"
)

func demoCmd() *cobra.Command {
	var (
		id   uint64
		text string
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted edit session and print every render",
		Long: `Run a scripted edit session against an in-process store.

The demo mounts one post, submits a text twice through its input and then
clicks its delete button. Every render is printed as HTML; the second submit
of the same text leaves the post unchanged and does not render.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == 0 {
				return errors.New("E301").WithDetail("--id must be positive")
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printer := &renderPrinter{out: out}
			a := newApp(cfg, cfg.Log.NewLogger(cmd.ErrOrStderr()), ui.WithRenderHook(printer.print))
			defer a.close()
			return runDemo(cmd.Context(), out, a, posts.PostID(id), text)
		},
	}

	cmd.Flags().Uint64Var(&id, "id", 1, "post ID to mount")
	cmd.Flags().StringVar(&text, "text", "hello", "text to submit")

	return cmd
}

// renderPrinter writes every render as one HTML line.
type renderPrinter struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *renderPrinter) print(ev ui.RenderEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "  render #%d  %s\n", ev.Count, ui.RenderHTML(ev.Tree))
}

// runDemo drives one post through submit, equal submit and delete.
func runDemo(ctx context.Context, out io.Writer, a *app, id posts.PostID, text string) error {
	fmt.Fprintf(out, "mount post #%s\n", id)
	h := post.Mount(a.rt, post.StoreConnect(a.store), post.Props{ID: id}, post.WithLogger(a.logger))
	defer h.Unmount()

	step := func(title string, fire func(*ui.Node) bool) error {
		if title != "" {
			fmt.Fprintln(out, title)
		}
		before := h.Renders()
		if fire != nil && !fire(h.Tree()) {
			return errors.New("E301").WithDetail("post is not interactive")
		}
		if err := settlePost(ctx, a.store, h); err != nil {
			return err
		}
		if h.Renders() == before {
			fmt.Fprintln(out, "  (no render)")
		}
		return nil
	}

	submit := func(tree *ui.Node) bool { return tree.Find("text").Submit(text) }
	click := func(tree *ui.Node) bool { return tree.Find("delete").Click() }

	if err := step("", nil); err != nil {
		return err
	}
	if err := step(fmt.Sprintf("submit %q", text), submit); err != nil {
		return err
	}
	if err := step(fmt.Sprintf("submit %q again", text), submit); err != nil {
		return err
	}
	if err := step("click delete", click); err != nil {
		return err
	}

	state := h.Component().(*post.Post).Cache().State
	fmt.Fprintf(out, "\nrenders: %d  skipped: %d  state: %s\n", h.Renders(), h.Skipped(), state)
	return nil
}

// settlePost waits until h's sends are applied and the resulting snapshots
// are handled by h.
func settlePost(ctx context.Context, store *posts.Store, h *ui.Handle[post.Msg, post.Props]) error {
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()

	if err := h.Sync(ctx); err != nil {
		return settleError(err)
	}
	if err := store.Barrier(ctx); err != nil {
		return settleError(err)
	}
	if err := h.Sync(ctx); err != nil {
		return settleError(err)
	}
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vango-dev/postboard/internal/errors"
	"github.com/vango-dev/postboard/pkg/middleware"
	"github.com/vango-dev/postboard/pkg/posts"
	"github.com/vango-dev/postboard/pkg/ui"
)

const shutdownTimeout = 10 * time.Second

// pageTemplate wraps the board HTML. The script keeps the board in sync over
// /ws and sends input submits and delete clicks back as events.
const pageTemplate = `<!DOCTYPE html>
<html><head><title>postboard</title></head><body><div id="board">%s</div>
<script>
(function () {
  var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
  var board = document.getElementById("board");
  ws.onmessage = function (e) {
    var m = JSON.parse(e.data);
    if (m.event === "render") { board.innerHTML = m.html; }
  };
  function postID(el) {
    var p = el.closest(".post");
    return p ? parseInt(p.getAttribute("data-key").slice(5), 10) : 0;
  }
  board.addEventListener("keydown", function (e) {
    if (e.key === "Enter" && e.target.getAttribute("data-key") === "text") {
      ws.send(JSON.stringify({post: postID(e.target), action: "submit", text: e.target.value}));
    }
  });
  board.addEventListener("click", function (e) {
    if (e.target.getAttribute("data-key") === "delete") {
      ws.send(JSON.stringify({post: postID(e.target), action: "delete"}));
    }
  });
})();
</script>
</body></html>
`

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the board over HTTP",
		Long: `Serve the board over HTTP.

Routes:
  GET  /                   board HTML
  GET  /posts              all posts as JSON
  GET  /posts/{id}         one post as JSON
  POST /posts              create a post (form field "text")
  POST /posts/{id}         submit new text through the post's input
  POST /posts/{id}/delete  click the post's delete button
  GET  /ws                 live board over WebSocket
  GET  /healthz            liveness
  GET  /metrics            Prometheus metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Serve.Addr = addr
			}
			return runServe(newLiveApp(cfg, cfg.Log.NewLogger(os.Stderr)))
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides serve.addr)")

	return cmd
}

func runServe(a *app) error {
	defer a.close()
	logger := a.logger

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.live.Run(ctx)

	if err := a.settle(context.Background()); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              a.cfg.Serve.Addr,
		Handler:           newRouter(a),
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "address", srv.Addr, "posts", a.board.Len())
		errCh <- srv.ListenAndServe()
	}()

	printBanner()
	success("Serving %d posts on %s", a.board.Len(), srv.Addr)
	if a.cfg.Path() != "" {
		info("Config: %s", a.cfg.Path())
	}

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return errors.New("E300").WithDetail(srv.Addr).Wrap(err)
		}
		return nil

	case <-shutdown:
		fmt.Println("\n  Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", "error", err)
			return errors.New("E300").Wrap(err)
		}
		logger.Info("server shutdown complete")
		return nil
	}
}

// postJSON is the wire form of a post.
type postJSON struct {
	ID   posts.PostID `json:"id"`
	Text string       `json:"text"`
}

// boardJSON is the wire form of a snapshot.
type boardJSON struct {
	Seq   uint64     `json:"seq"`
	Posts []postJSON `json:"posts"`
}

func toBoardJSON(s posts.Snapshot) boardJSON {
	out := boardJSON{Seq: s.Seq(), Posts: make([]postJSON, 0, s.Len())}
	s.Ascend(func(p posts.Post) bool {
		out.Posts = append(out.Posts, postJSON{ID: p.ID, Text: p.Text})
		return true
	})
	return out
}

func newRouter(a *app) http.Handler {
	h := &handlers{app: a}

	skipMetrics := func(r *http.Request) bool { return r.URL.Path == "/metrics" }

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logger(a.logger.With("component", "http"), skipMetrics))
	r.Use(middleware.Prometheus(
		middleware.WithRegistry(a.reg),
		middleware.WithNamespace(a.cfg.Metrics.Namespace),
	))
	r.Use(middleware.OpenTelemetry(middleware.WithRequestFilter(func(r *http.Request) bool {
		return !skipMetrics(r)
	})))

	r.Get("/healthz", h.healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(a.reg, promhttp.HandlerOpts{}))

	r.Get("/", h.board)
	if a.live != nil {
		r.Get("/ws", a.live.ServeHTTP)
	}
	r.Route("/posts", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Post("/{id}", h.update)
		r.Post("/{id}/delete", h.remove)
	})
	return r
}

type handlers struct {
	app *app
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.app.store.Done():
		http.Error(w, "store closed", http.StatusServiceUnavailable)
	default:
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}

func (h *handlers) board(w http.ResponseWriter, r *http.Request) {
	if !h.settle(w, r) {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, pageTemplate, ui.RenderHTML(h.app.board.View()))
}

func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toBoardJSON(h.app.store.Snapshot()))
}

func (h *handlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	text, found := h.app.store.Snapshot().Get(id)
	if !found {
		http.Error(w, "post not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, postJSON{ID: id, Text: text})
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	text := r.FormValue("text")
	if err := h.app.store.Submit(posts.Create{Text: text}); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if !h.settle(w, r) {
		return
	}
	writeJSON(w, http.StatusCreated, toBoardJSON(h.app.store.Snapshot()))
}

func (h *handlers) update(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, "submit", r.FormValue("text"))
}

func (h *handlers) remove(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, "delete", "")
}

// dispatch fires an event on the rendered tree of the post named in the URL
// and responds with the board once the store has caught up.
func (h *handlers) dispatch(w http.ResponseWriter, r *http.Request, action, text string) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	hd, found := h.app.board.Handle(id)
	if !found {
		http.Error(w, "post not found", http.StatusNotFound)
		return
	}
	tree := hd.Tree()
	if !fireEvent(tree, action, text) {
		http.Error(w, "post is not interactive", http.StatusConflict)
		return
	}
	if !h.settle(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, toBoardJSON(h.app.store.Snapshot()))
}

func (h *handlers) settle(w http.ResponseWriter, r *http.Request) bool {
	if err := h.app.settle(r.Context()); err != nil {
		h.app.logger.Warn("settle failed", "error", err)
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return false
	}
	return true
}

func parseID(w http.ResponseWriter, r *http.Request) (posts.PostID, bool) {
	id, err := posts.ParsePostID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	tderrors "github.com/vango-dev/tendril/internal/errors"
	"github.com/vango-dev/tendril/internal/live"
	"github.com/vango-dev/tendril/pkg/middleware"
)

func serveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve FILE",
		Short: "Serve a document for live preview",
		Long: `Serve a document over HTTP.

Routes:
  GET /         the document, mounted and settled for each request;
                the query string seeds the URL store
  GET /live     websocket session driving one mounted document
  GET /metrics  Prometheus metrics
  GET /*        static files from the fetch root

Examples:
  tendril serve index.html
  tendril serve index.html --addr :8080`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a, args[0], cmd)
		},
	}

	cmd.Flags().String("addr", "", "address to listen on (default from config)")
	a.bindFlag("serve.addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func runServe(ctx context.Context, a *app, path string, cmd *cobra.Command) error {
	if _, err := os.Stat(path); err != nil {
		return tderrors.New(tderrors.ErrDocumentNotFound).WithDetailf("%s does not exist.", path)
	}

	sessions := live.NewServer(a.livePage(path),
		live.WithLogger(a.logger),
		live.WithSettleTimeout(a.cfg.Fetch.Timeout))
	srv := &http.Server{
		Addr:              a.cfg.Serve.Addr,
		Handler:           a.router(path, sessions),
		ReadHeaderTimeout: 10 * time.Second,
	}

	out := cmd.OutOrStdout()
	printBanner(out)
	success(out, "Serving %s", path)
	info(out, "Local:   http://%s/", a.cfg.Serve.Addr)
	info(out, "Live:    ws://%s/live", a.cfg.Serve.Addr)
	info(out, "Metrics: http://%s/metrics", a.cfg.Serve.Addr)
	fmt.Fprintln(out)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		a.logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		sessions.Close()
		return srv.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

// router builds the preview server routes.
func (a *app) router(path string, sessions *live.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logger(a.logger))
	r.Use(middleware.OpenTelemetry(middleware.WithFilter(func(r *http.Request) bool {
		return r.URL.Path != "/metrics"
	})))

	r.Get("/", a.handleDocument(path))
	r.Handle("/live", sessions)
	r.Handle("/metrics", a.metrics.Handler())
	r.Handle("/*", http.FileServer(http.Dir(a.fetchRoot(path))))
	return r
}

func (a *app) livePage(path string) live.Builder {
	return func(r *http.Request) (*live.Page, error) {
		p, err := a.openPage(path, r.URL.Query())
		if err != nil {
			return nil, err
		}
		return p.Page, nil
	}
}

// handleDocument renders the document per request. Responses carry an
// ETag of the rendered markup.
func (a *app) handleDocument(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		html, err := a.renderRequest(r, path)
		if err != nil {
			te := tderrors.FromError(err, tderrors.ErrDocumentParse)
			a.logger.Error("render failed", "code", te.Code, "error", err)
			status := http.StatusInternalServerError
			if te.Code == tderrors.ErrDocumentNotFound {
				status = http.StatusNotFound
			}
			http.Error(w, te.FormatCompact(), status)
			return
		}

		etag := fmt.Sprintf(`"%016x"`, xxhash.Sum64String(html))
		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", "no-cache")
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(html))
	}
}

func (a *app) renderRequest(r *http.Request, path string) (string, error) {
	p, err := a.openPage(path, r.URL.Query())
	if err != nil {
		return "", err
	}
	defer p.Close()

	if err := p.Engine.Mount(); err != nil {
		return "", err
	}
	defer p.Engine.Unmount()

	if err := settle(r.Context(), p, a.cfg.Fetch.Timeout); err != nil {
		return "", err
	}
	a.logger.Debug("rendered", "document", filepath.Base(path), "query", p.query.String())
	return p.Doc.Render(), nil
}

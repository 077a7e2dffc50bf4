package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	tderrors "github.com/vango-dev/tendril/internal/errors"
)

// dispatch is one --dispatch flag.
type dispatch struct {
	Selector string
	Event    string
}

// parseDispatch parses "selector@event". The last "@" separates the two.
func parseDispatch(spec string) (dispatch, error) {
	i := strings.LastIndex(spec, "@")
	if i < 0 {
		return dispatch{}, tderrors.New(tderrors.ErrDispatchSpec).
			WithDetailf("%q has no @event.", spec)
	}
	d := dispatch{
		Selector: strings.TrimSpace(spec[:i]),
		Event:    strings.TrimSpace(spec[i+1:]),
	}
	if d.Selector == "" || d.Event == "" {
		return dispatch{}, tderrors.New(tderrors.ErrDispatchSpec).
			WithDetailf("%q needs both a selector and an event.", spec)
	}
	return d, nil
}

// parseQuery turns k=v flags into URL store values.
func parseQuery(pairs []string) url.Values {
	values := url.Values{}
	for _, pair := range pairs {
		k, v, _ := strings.Cut(pair, "=")
		values.Add(k, v)
	}
	return values
}

func renderCmd(a *app) *cobra.Command {
	var (
		queries    []string
		dispatches []string
		wait       time.Duration
		stats      bool
	)

	cmd := &cobra.Command{
		Use:   "render FILE",
		Short: "Mount a document and print the result",
		Long: `Mount a document, optionally dispatch events into it, and print the
rendered HTML once every fetch, include and mutation has settled.

Examples:
  tendril render index.html
  tendril render index.html --query page=2
  tendril render index.html --dispatch "#inc@click" --dispatch "#inc@click"
  tendril render index.html --dispatch "#save@click" --wait 500ms --stats`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed := make([]dispatch, 0, len(dispatches))
			for _, spec := range dispatches {
				d, err := parseDispatch(spec)
				if err != nil {
					return err
				}
				parsed = append(parsed, d)
			}
			return runRender(cmd.Context(), a, args[0], renderOptions{
				query:      parseQuery(queries),
				dispatches: parsed,
				wait:       wait,
				stats:      stats,
				out:        cmd.OutOrStdout(),
				errOut:     cmd.ErrOrStderr(),
			})
		},
	}

	cmd.Flags().StringArrayVarP(&queries, "query", "q", nil, "URL store entry as key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&dispatches, "dispatch", "d", nil, `event to dispatch as "selector@event" (repeatable)`)
	cmd.Flags().DurationVar(&wait, "wait", 0, "keep running timers for this long after the last dispatch")
	cmd.Flags().BoolVar(&stats, "stats", false, "print render statistics to stderr")

	return cmd
}

type renderOptions struct {
	query      url.Values
	dispatches []dispatch
	wait       time.Duration
	stats      bool
	out        io.Writer
	errOut     io.Writer
}

func runRender(ctx context.Context, a *app, path string, opts renderOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	p, err := a.openPage(path, opts.query)
	if err != nil {
		return err
	}
	defer p.Close()

	if err := p.Engine.Mount(); err != nil {
		return err
	}
	defer p.Engine.Unmount()

	timeout := a.cfg.Fetch.Timeout
	if err := settle(ctx, p, timeout); err != nil {
		return err
	}
	for _, d := range opts.dispatches {
		if err := p.Engine.Dispatch(d.Selector, d.Event, nil); err != nil {
			return err
		}
		if err := settle(ctx, p, timeout); err != nil {
			return err
		}
	}
	if opts.wait > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, opts.wait)
		err := p.Engine.Loop().Run(waitCtx)
		cancel()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if err := settle(ctx, p, timeout); err != nil {
			return err
		}
	}

	html := p.Doc.Render()
	fmt.Fprintln(opts.out, html)

	if opts.stats {
		w := opts.errOut
		info(w, "Document:   %s", path)
		info(w, "Size:       %s", humanize.Bytes(uint64(len(html))))
		info(w, "Dispatched: %s", humanize.Comma(int64(len(opts.dispatches))))
		info(w, "Components: %s", strings.Join(p.Engine.Components(), ", "))
		info(w, "Scopes:     %s", strings.Join(p.Engine.Registry().Names(), ", "))
		info(w, "Query:      ?%s", p.query.String())
		info(w, "Faults:     %d", p.faults)
		info(w, "Elapsed:    %s", time.Since(start).Round(time.Millisecond))
	}
	return nil
}

func settle(ctx context.Context, p *page, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := p.Engine.Settle(ctx); err != nil {
		return tderrors.New(tderrors.ErrFetchRequest).
			WithDetail("The document did not settle before fetch.timeout.").
			Wrap(err)
	}
	return nil
}

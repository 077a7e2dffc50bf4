package fetch

import (
	"context"
	"log/slog"
	"sort"
	"time"

	tderrors "github.com/vango-dev/tendril/internal/errors"
	"github.com/vango-dev/tendril/internal/logging"
	"github.com/vango-dev/tendril/pkg/host"
)

// Vars is the scope a response is routed into.
type Vars interface {
	Has(name string) bool
	Set(name string, value any)
}

// Observer receives one call per completed request.
type Observer func(req *Request, resp *Response, elapsed time.Duration, err error)

// Handler performs fetch directives.
type Handler struct {
	transport Transport
	logger    *slog.Logger
	console   func(any)
	observe   Observer
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithLogger sets the logger used for failures and console output.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithConsole replaces the console target sink.
func WithConsole(fn func(any)) HandlerOption {
	return func(h *Handler) {
		h.console = fn
	}
}

// WithObserver sets a hook called after every request.
func WithObserver(fn Observer) HandlerOption {
	return func(h *Handler) {
		h.observe = fn
	}
}

// NewHandler returns a handler sending requests through t.
func NewHandler(t Transport, opts ...HandlerOption) *Handler {
	h := &Handler{transport: t}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logging.NewNop()
	}
	return h
}

// Do performs req. It may be called from any goroutine.
func (h *Handler) Do(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	if h.transport == nil {
		err := tderrors.New(tderrors.ErrFetchRequest).WithDetail("No fetch transport is configured.")
		h.report(req, nil, start, err)
		return nil, err
	}
	resp, err := h.transport.Do(ctx, req)
	if err != nil {
		err = tderrors.FromError(err, tderrors.ErrFetchRequest)
	}
	if resp != nil && resp.URL == "" {
		resp.URL = req.URL
	}
	h.report(req, resp, start, err)
	return resp, err
}

func (h *Handler) report(req *Request, resp *Response, start time.Time, err error) {
	if h.observe != nil {
		h.observe(req, resp, time.Since(start), err)
	}
}

// Route delivers a response according to d. Non-2xx responses are logged
// and change nothing. Keys of a "this" object are written in sorted
// order.
func (h *Handler) Route(resp *Response, d Descriptor, vars Vars, doc host.Document) error {
	if !resp.OK() {
		h.logger.Warn("fetch failed",
			"status", resp.Status,
			"reason", resp.StatusText,
			"url", resp.URL,
		)
		return nil
	}

	switch d.Kind(vars.Has) {
	case KindThis:
		obj, err := ParseObject(resp.Body)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			vars.Set(k, obj[k])
		}

	case KindConsole:
		v, err := Parse(resp.Body, d.Mode, resp.ContentType())
		if err != nil {
			return err
		}
		if h.console != nil {
			h.console(v)
		} else {
			h.logger.Info("fetch", "url", resp.URL, "value", v)
		}

	case KindVariable:
		v, err := Parse(resp.Body, d.Mode, resp.ContentType())
		if err != nil {
			return err
		}
		vars.Set(d.Target, v)

	case KindSelector:
		node := doc.Query(d.Target)
		if node == nil {
			return tderrors.New(tderrors.ErrTargetNotFound).WithDetailf("No node matches %q.", d.Target)
		}
		if !d.HasSubtarget {
			return node.SetHTML(string(resp.Body))
		}
		return node.Insert(d.Subtarget, string(resp.Body))
	}
	return nil
}

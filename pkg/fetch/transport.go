package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	tderrors "github.com/vango-dev/tendril/internal/errors"
)

// TracerName is the instrumentation name of transport spans.
const TracerName = "github.com/vango-dev/tendril/pkg/fetch"

// Transport performs requests.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *Request) (*Response, error)

// Do calls f.
func (f TransportFunc) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// HTTPTransport sends requests with net/http. Relative URLs resolve
// against BaseURL.
type HTTPTransport struct {
	BaseURL *url.URL
	Client  *http.Client
	// MaxBody limits how much of a body is read. Zero means 10 MiB.
	MaxBody int64

	tracer trace.Tracer
}

// NewHTTPTransport returns a transport rooted at base. An empty base only
// accepts absolute URLs.
func NewHTTPTransport(base string, timeout time.Duration) (*HTTPTransport, error) {
	t := &HTTPTransport{
		Client: &http.Client{Timeout: timeout},
		tracer: otel.Tracer(TracerName),
	}
	if base != "" {
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("fetch: base url: %w", err)
		}
		t.BaseURL = u
	}
	return t, nil
}

// Resolve returns the absolute URL of a request target.
func (t *HTTPTransport) Resolve(target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	if t.BaseURL != nil {
		u = t.BaseURL.ResolveReference(u)
	}
	if !u.IsAbs() {
		return "", fmt.Errorf("fetch: %q is relative and no base url is set", target)
	}
	return u.String(), nil
}

// Do performs req inside a client span.
func (t *HTTPTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	tracer := t.tracer
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}
	ctx, span := tracer.Start(ctx, "fetch "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", req.URL),
		),
	)
	defer span.End()

	target, err := t.Resolve(req.URL)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, tderrors.New(tderrors.ErrFetchRequest).Wrap(err)
	}

	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, tderrors.New(tderrors.ErrFetchRequest).Wrap(err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	hresp, err := client.Do(hreq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, tderrors.New(tderrors.ErrFetchRequest).Wrap(err)
	}
	defer hresp.Body.Close()

	limit := t.MaxBody
	if limit <= 0 {
		limit = 10 << 20
	}
	data, err := io.ReadAll(io.LimitReader(hresp.Body, limit))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, tderrors.New(tderrors.ErrFetchRequest).Wrap(err)
	}

	span.SetAttributes(attribute.Int("http.response.status_code", hresp.StatusCode))
	if hresp.StatusCode >= 400 {
		span.SetStatus(codes.Error, http.StatusText(hresp.StatusCode))
	}

	return &Response{
		Status:     hresp.StatusCode,
		StatusText: http.StatusText(hresp.StatusCode),
		Header:     hresp.Header,
		Body:       data,
	}, nil
}

// DirTransport serves GET requests from a directory. Missing files are
// 404 responses, other methods are 405.
type DirTransport struct {
	FS fs.FS
}

// NewDirTransport serves files under root.
func NewDirTransport(root string) *DirTransport {
	return &DirTransport{FS: os.DirFS(root)}
}

// Do reads the file named by the request path.
func (t *DirTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return status(http.StatusMethodNotAllowed), nil
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, tderrors.New(tderrors.ErrFetchRequest).Wrap(err)
	}
	name := strings.TrimPrefix(path.Clean("/"+u.Path), "/")
	if name == "" {
		name = "index.html"
	}
	data, err := fs.ReadFile(t.FS, name)
	if errors.Is(err, fs.ErrNotExist) {
		return status(http.StatusNotFound), nil
	}
	if err != nil {
		return nil, tderrors.New(tderrors.ErrFetchRequest).Wrap(err)
	}

	header := http.Header{}
	ctype := mime.TypeByExtension(filepath.Ext(name))
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	header.Set("Content-Type", ctype)

	resp := status(http.StatusOK)
	resp.Header = header
	if req.Method == http.MethodGet {
		resp.Body = data
	}
	return resp, nil
}

func status(code int) *Response {
	return &Response{Status: code, StatusText: http.StatusText(code), Header: http.Header{}}
}

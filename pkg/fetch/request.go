package fetch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mitchellh/mapstructure"

	tderrors "github.com/vango-dev/tendril/internal/errors"
)

// Request is a transport-neutral request.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   string
}

// Options is the decoded options object of a fetch call.
type Options struct {
	Method  string            `mapstructure:"method"`
	Headers map[string]string `mapstructure:"headers"`
	Body    any               `mapstructure:"body"`
}

// NewRequest builds a request from evaluated fetch arguments: a URL
// string, a [url, options] pair, or an options object carrying "url".
func NewRequest(args any) (*Request, error) {
	var (
		target string
		raw    any
	)
	switch v := args.(type) {
	case string:
		target = v
	case []any:
		if len(v) == 0 {
			return nil, tderrors.New(tderrors.ErrFetchDirective).WithDetail("The fetch arguments are empty.")
		}
		s, ok := v[0].(string)
		if !ok {
			return nil, tderrors.New(tderrors.ErrFetchDirective).WithDetailf("The fetch URL is a %T, not a string.", v[0])
		}
		target = s
		if len(v) > 1 {
			raw = v[1]
		}
	case map[string]any:
		s, ok := v["url"].(string)
		if !ok {
			return nil, tderrors.New(tderrors.ErrFetchDirective).WithDetail("The fetch options object has no url.")
		}
		target = s
		rest := make(map[string]any, len(v))
		for k, val := range v {
			if k != "url" {
				rest[k] = val
			}
		}
		raw = rest
	case fmt.Stringer:
		target = v.String()
	default:
		return nil, tderrors.New(tderrors.ErrFetchDirective).WithDetailf("Cannot fetch a %T.", args)
	}

	target = strings.TrimSpace(target)
	if target == "" {
		return nil, tderrors.New(tderrors.ErrFetchDirective).WithDetail("The fetch URL is empty.")
	}

	req := &Request{Method: http.MethodGet, URL: target, Header: http.Header{}}
	if raw == nil {
		return req, nil
	}

	var opts Options
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, tderrors.New(tderrors.ErrFetchDirective).WithDetail("The fetch options are invalid.").Wrap(err)
	}

	if opts.Method != "" {
		req.Method = strings.ToUpper(opts.Method)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	switch body := opts.Body.(type) {
	case nil:
	case string:
		req.Body = body
	case []byte:
		req.Body = string(body)
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, tderrors.New(tderrors.ErrFetchDirective).WithDetail("The fetch body cannot be encoded.").Wrap(err)
		}
		req.Body = string(data)
		if req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	return req, nil
}

// Response is a fully read response.
type Response struct {
	URL        string
	Status     int
	StatusText string
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// ContentType returns the Content-Type header.
func (r *Response) ContentType() string {
	if r.Header == nil {
		return ""
	}
	return r.Header.Get("Content-Type")
}

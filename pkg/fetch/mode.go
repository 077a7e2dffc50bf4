package fetch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"mime/multipart"
	"net/url"
	"strings"

	tderrors "github.com/vango-dev/tendril/internal/errors"
)

// ParseMode is how a response body is decoded.
type ParseMode string

const (
	Text        ParseMode = "text"
	JSON        ParseMode = "json"
	FormData    ParseMode = "formData"
	Blob        ParseMode = "blob"
	ArrayBuffer ParseMode = "arrayBuffer"
)

var parseModes = []ParseMode{Text, JSON, FormData, Blob, ArrayBuffer}

// LookupParseMode finds a mode by name, ignoring case.
func LookupParseMode(name string) (ParseMode, error) {
	for _, m := range parseModes {
		if strings.EqualFold(string(m), strings.TrimSpace(name)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown parse mode %q", name)
}

// BlobBody is a binary body with its media type.
type BlobBody struct {
	Type string
	Data []byte
}

// Size returns the length of the data.
func (b BlobBody) Size() int {
	return len(b.Data)
}

// Parse decodes body according to mode.
//
//	text         string
//	json         any, with objects as map[string]any
//	formData     map[string]any of string or []string values, from
//	             urlencoded or multipart bodies
//	blob         BlobBody
//	arrayBuffer  []byte
func Parse(body []byte, mode ParseMode, contentType string) (any, error) {
	switch mode {
	case Text, "":
		return string(body), nil
	case JSON:
		var v any
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, tderrors.New(tderrors.ErrFetchParse).WithDetailf("The body is not valid JSON.").Wrap(err)
		}
		return v, nil
	case FormData:
		return parseForm(body, contentType)
	case Blob:
		return BlobBody{Type: contentType, Data: body}, nil
	case ArrayBuffer:
		return body, nil
	default:
		return nil, tderrors.New(tderrors.ErrFetchParse).WithDetailf("Unknown parse mode %q.", mode)
	}
}

// ParseObject decodes a JSON object body, as routed to "this".
func ParseObject(body []byte) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, tderrors.New(tderrors.ErrFetchParse).WithDetail("A body routed to this must be a JSON object.").Wrap(err)
	}
	return m, nil
}

func parseForm(body []byte, contentType string) (map[string]any, error) {
	mediaType, params, _ := mime.ParseMediaType(contentType)
	values := url.Values{}
	if strings.HasPrefix(mediaType, "multipart/") {
		r := multipart.NewReader(bytes.NewReader(body), params["boundary"])
		form, err := r.ReadForm(32 << 20)
		if err != nil {
			return nil, tderrors.New(tderrors.ErrFetchParse).Wrap(err)
		}
		defer form.RemoveAll()
		for k, vs := range form.Value {
			values[k] = vs
		}
	} else {
		parsed, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, tderrors.New(tderrors.ErrFetchParse).Wrap(err)
		}
		values = parsed
	}

	out := make(map[string]any, len(values))
	for k, vs := range values {
		if len(vs) == 1 {
			out[k] = vs[0]
			continue
		}
		list := make([]any, len(vs))
		for i, v := range vs {
			list[i] = v
		}
		out[k] = list
	}
	return out, nil
}

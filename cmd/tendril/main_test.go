package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tderrors "github.com/vango-dev/tendril/internal/errors"
	"github.com/vango-dev/tendril/internal/live"
)

const counterDoc = `<!DOCTYPE html>
<html><head>
<link rel="include" href="/part.html" #include="#main -> afterBegin">
</head><body>
<main id="main" #let:count="0" #let-url:page="1">
	<span id="out" ::text="count"></span>
	<span id="page" ::text="page"></span>
	<button id="inc" @click="count = count + 1">+</button>
	<button id="later" @click|delay:10="count = 100">later</button>
</main>
</body></html>`

func writeDoc(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(path, []byte(counterDoc), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "part.html"), []byte(`<p id="part">part</p>`), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := execute(args, &out, &errOut)
	return out.String(), errOut.String(), err
}

func TestParseDispatch(t *testing.T) {
	tests := []struct {
		spec    string
		want    dispatch
		wantErr bool
	}{
		{spec: "#inc@click", want: dispatch{Selector: "#inc", Event: "click"}},
		{spec: "a[href='x@y']@click", want: dispatch{Selector: "a[href='x@y']", Event: "click"}},
		{spec: " button @ valueChanged ", want: dispatch{Selector: "button", Event: "valueChanged"}},
		{spec: "#inc", wantErr: true},
		{spec: "@click", wantErr: true},
		{spec: "#inc@", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := parseDispatch(tt.spec)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tderrors.ErrDispatchSpec, tderrors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseQuery(t *testing.T) {
	q := parseQuery([]string{"page=2", "tag=a", "tag=b", "flag"})
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, []string{"a", "b"}, q["tag"])
	assert.Equal(t, "", q.Get("flag"))
}

func TestRender(t *testing.T) {
	path := writeDoc(t)

	out, errOut, err := run(t, "render", path,
		"--dispatch", "#inc@click",
		"--dispatch", "#inc@click",
		"--query", "page=4",
		"--stats")
	require.NoError(t, err)

	assert.Contains(t, out, `<span id="out" ::text="count">2</span>`)
	assert.Contains(t, out, `<span id="page" ::text="page">4</span>`)
	assert.Contains(t, out, `<p id="part">part</p>`)
	assert.Contains(t, errOut, "Dispatched: 2")
	assert.Contains(t, errOut, "Faults:     0")
	assert.Contains(t, errOut, "Query:      ?page=4")
}

func TestRenderWait(t *testing.T) {
	path := writeDoc(t)

	out, _, err := run(t, "render", path, "-d", "#later@click", "--wait", "200ms")
	require.NoError(t, err)
	assert.Contains(t, out, `::text="count">100</span>`)
}

func TestRenderErrors(t *testing.T) {
	path := writeDoc(t)

	_, _, err := run(t, "render", filepath.Join(t.TempDir(), "missing.html"))
	assert.Equal(t, tderrors.ErrDocumentNotFound, tderrors.CodeOf(err))

	_, _, err = run(t, "render", path, "--dispatch", "nowhere")
	assert.Equal(t, tderrors.ErrDispatchSpec, tderrors.CodeOf(err))

	_, _, err = run(t, "render", path, "--dispatch", "#missing@click")
	assert.Equal(t, tderrors.ErrTargetNotFound, tderrors.CodeOf(err))
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(path, []byte(`
		<div id="app" #let-local:count="0" #bogus>
			<span ::text="count"></span>
			<button @click|once|throttle:50="count++">+</button>
		</div>`), 0644))

	out, _, err := run(t, "inspect", path)
	require.NoError(t, err)

	assert.Contains(t, out, "count (local)")
	assert.Contains(t, out, "textContent")
	assert.Contains(t, out, "click | once|throttle:50")
	assert.Contains(t, out, tderrors.ErrDirective)
	assert.Contains(t, out, "<div#app>")
	assert.Contains(t, out, "4 directives")
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tendril.yaml")

	out, _, err := run(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	_, _, err = run(t, "config", "init", path)
	assert.Equal(t, tderrors.ErrConfigWrite, tderrors.CodeOf(err))

	out, _, err = run(t, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "addr: localhost:3000")
	assert.Contains(t, out, "timeout: 10s")

	t.Setenv("TENDRIL_SERVE_ADDR", "0.0.0.0:9999")
	out, _, err = run(t, "config", "show", "--config", path, "--base-url", "https://api.example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "addr: 0.0.0.0:9999")
	assert.Contains(t, out, "base_url: https://api.example.com")

	_, _, err = run(t, "config", "show", "--config", filepath.Join(t.TempDir(), "none.yaml"))
	assert.Equal(t, tderrors.ErrConfigNotFound, tderrors.CodeOf(err))
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}

func TestServeRoutes(t *testing.T) {
	path := writeDoc(t)
	a := newApp()
	require.NoError(t, a.load(io.Discard))
	t.Cleanup(func() { a.close() })

	sessions := live.NewServer(a.livePage(path), live.WithSettleTimeout(time.Second))
	srv := httptest.NewServer(a.router(path, sessions))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/?page=5")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `::text="page">5</span>`)
	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/?page=5", nil)
	req.Header.Set("If-None-Match", etag)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/part.html")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, `<p id="part">part</p>`, string(body))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "tendril_writes_total")

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/live", nil)
	require.NoError(t, err)
	defer conn.Close()

	var reply live.Reply
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, live.ReplyRender, reply.Type)
	require.NoError(t, conn.WriteJSON(live.Message{Selector: "#inc", Event: "click"}))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Contains(t, reply.HTML, `::text="count">1</span>`)
}

package main

import (
	"bytes"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vango-dev/tendril/internal/config"
	tderrors "github.com/vango-dev/tendril/internal/errors"
	"github.com/vango-dev/tendril/internal/live"
	"github.com/vango-dev/tendril/internal/logging"
	"github.com/vango-dev/tendril/pkg/fetch"
	"github.com/vango-dev/tendril/pkg/htmltree"
	"github.com/vango-dev/tendril/pkg/loop"
	"github.com/vango-dev/tendril/pkg/metrics"
	"github.com/vango-dev/tendril/pkg/store"
	"github.com/vango-dev/tendril/pkg/tendril"
)

const envPrefix = "TENDRIL"

// configKeys are the leaf keys viper resolves from the environment.
var configKeys = []string{
	"base_url",
	"root",
	"fetch.timeout",
	"stores.local.kind",
	"stores.local.path",
	"stores.local.redis.addr",
	"stores.local.redis.password",
	"stores.local.redis.db",
	"stores.local.redis.prefix",
	"log.level",
	"log.file",
	"log.max_size",
	"log.max_backups",
	"log.max_age",
	"log.compress",
	"metrics.namespace",
	"serve.addr",
}

// app holds what every command shares once configuration is loaded.
type app struct {
	v       *viper.Viper
	cfgFile string
	noColor bool

	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	local   store.Store
	closers []io.Closer
}

func newApp() *app {
	return &app{
		v:      viper.New(),
		logger: logging.NewNop(),
	}
}

func (a *app) bindFlag(key string, flag *pflag.Flag) {
	if err := a.v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

// load resolves configuration from the file, TENDRIL_ environment
// variables and flags, in increasing precedence.
func (a *app) load(logOut io.Writer) error {
	cfg, err := a.readFile()
	if err != nil {
		return err
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}

	a.v.SetConfigType("yaml")
	if err := a.v.ReadConfig(bytes.NewReader(data)); err != nil {
		return tderrors.New(tderrors.ErrConfigInvalid).Wrap(err)
	}
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()
	for _, key := range configKeys {
		if err := a.v.BindEnv(key); err != nil {
			return tderrors.New(tderrors.ErrConfigInvalid).Wrap(err)
		}
	}

	resolved := config.Default()
	if err := a.v.Unmarshal(resolved); err != nil {
		return tderrors.New(tderrors.ErrConfigInvalid).Wrap(err)
	}
	resolved.Stores.Local.Kind = strings.ToLower(resolved.Stores.Local.Kind)
	if err := resolved.Validate(); err != nil {
		return err
	}
	a.cfg = resolved

	a.setupLogger(logOut)
	a.metrics = metrics.New(metrics.WithNamespace(resolved.Metrics.Namespace))
	return a.openLocal()
}

func (a *app) readFile() (*config.Config, error) {
	if a.cfgFile != "" {
		return config.LoadFile(a.cfgFile)
	}
	if config.Exists(".") {
		return config.LoadFile(config.ConfigFileName)
	}
	return config.Default(), nil
}

func (a *app) setupLogger(w io.Writer) {
	level := logging.ParseLevel(a.cfg.Log.Level)
	if a.cfg.Log.File == "" {
		a.logger = logging.New(level, w)
		return
	}
	logger, closer := logging.NewFile(logging.FileConfig{
		Path:       a.cfg.Log.File,
		Level:      level,
		MaxSize:    a.cfg.Log.MaxSize,
		MaxBackups: a.cfg.Log.MaxBackups,
		MaxAge:     a.cfg.Log.MaxAge,
		Compress:   a.cfg.Log.Compress,
	})
	a.logger = logger
	a.closers = append(a.closers, closer)
}

// openLocal opens the durable local store shared by every page.
func (a *app) openLocal() error {
	local := a.cfg.Stores.Local
	switch local.Kind {
	case config.StoreFile:
		fs, err := store.OpenFileStore(local.Path)
		if err != nil {
			return tderrors.New(tderrors.ErrStoreWrite).WithDetailf("Could not open %s.", local.Path).Wrap(err)
		}
		a.local = fs
	case config.StoreRedis:
		rs := store.NewRedisStore(local.Redis.Addr, local.Redis.Password, local.Redis.DB,
			store.WithPrefix(local.Redis.Prefix))
		a.local = rs
		a.closers = append(a.closers, rs)
	default:
		ms := store.NewMemoryStore()
		a.local = ms
		a.closers = append(a.closers, ms)
	}
	a.logger.Debug("local store opened", "kind", local.Kind)
	return nil
}

func (a *app) close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// page is a mounted-ready document with the stores it was built on.
type page struct {
	*live.Page
	query  *store.QueryStore
	faults int
}

// openPage parses the document at path and builds an engine over it.
// query seeds the URL store.
func (a *app) openPage(path string, query url.Values) (*page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, tderrors.New(tderrors.ErrDocumentNotFound).
				WithDetailf("%s does not exist.", path)
		}
		return nil, tderrors.New(tderrors.ErrDocumentNotFound).Wrap(err)
	}

	l := loop.New()
	doc, err := htmltree.Parse(bytes.NewReader(data), htmltree.WithPoster(l.Post))
	if err != nil {
		return nil, tderrors.New(tderrors.ErrDocumentParse).Wrap(err)
	}

	transport, err := a.transport(path)
	if err != nil {
		return nil, err
	}

	p := &page{query: store.NewQueryStore(query)}
	session := store.NewMemoryStore()
	engine := tendril.New(doc,
		tendril.WithLoop(l),
		tendril.WithLogger(a.logger.With("document", filepath.Base(path))),
		tendril.WithMetrics(a.metrics),
		tendril.WithTransport(transport),
		tendril.WithStores(store.Set{URL: p.query, Local: a.local, Session: session}),
		tendril.WithFaultHandler(func(error) { p.faults++ }),
	)
	p.Page = &live.Page{
		Doc:    doc,
		Engine: engine,
		Close:  func() { _ = session.Close() },
	}
	return p, nil
}

func (a *app) transport(path string) (fetch.Transport, error) {
	if a.cfg.BaseURL != "" {
		t, err := fetch.NewHTTPTransport(a.cfg.BaseURL, a.cfg.Fetch.Timeout)
		if err != nil {
			return nil, tderrors.New(tderrors.ErrConfigInvalid).Wrap(err)
		}
		return t, nil
	}
	return fetch.NewDirTransport(a.fetchRoot(path)), nil
}

func (a *app) fetchRoot(path string) string {
	if a.cfg.Root != "" {
		return a.cfg.Root
	}
	return filepath.Dir(path)
}

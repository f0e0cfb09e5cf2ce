package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/pathmut"
	metricshooks "github.com/unkn0wn-root/pathmut/hooks/metrics"
	pmzap "github.com/unkn0wn-root/pathmut/log/zap"
	"github.com/unkn0wn-root/pathmut/memdb"
	"github.com/unkn0wn-root/pathmut/querycache"
)

const envPrefix = "treectl"

// app is the state shared by the subcommands of one invocation.
type app struct {
	v       *viper.Viper
	out     io.Writer
	log     *zap.Logger
	db      *memdb.DB
	cache   querycache.Cache[any] // nil with --cache none
	metrics *metricshooks.Hooks   // nil without --metrics
	client  *pathmut.Client
	dirty   bool
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:          "treectl",
		Short:        "Mutate a JSON tree with cache invalidation",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown(cmd.Context())
		},
	}

	key := "file"
	root.PersistentFlags().String(key, "tree.json", "JSON tree file to load and save")
	key = "cache"
	root.PersistentFlags().String(key, "none", "query cache for reads (none, ristretto, bigcache, redis)")
	key = "codec"
	root.PersistentFlags().String(key, "json", "encoding of cached reads (json, cbor, msgpack, proto)")
	key = "namespace"
	root.PersistentFlags().String(key, "treectl", "query cache namespace")
	key = "redis-addr"
	root.PersistentFlags().String(key, "localhost:6379", "redis address for --cache redis")
	key = "log-level"
	root.PersistentFlags().String(key, "warn", "log level (debug, info, warn, error)")
	key = "metrics"
	root.PersistentFlags().Bool(key, false, "print Prometheus metrics after the command")

	root.AddCommand(a.getCmd(), a.setCmd(), a.updateCmd(), a.removeCmd(), a.incrCmd())
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	a.out = cmd.OutOrStdout()

	l, err := newZap(a.v.GetString("log-level"), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.log = l
	logger := pmzap.New(l)

	a.db = memdb.New(memdb.Options{Logger: logger})
	if err := a.load(a.v.GetString("file")); err != nil {
		return err
	}

	opts := pathmut.Options{Logger: logger}
	var hooks pathmut.Hooks
	if a.v.GetBool("metrics") {
		a.metrics = metricshooks.New()
		hooks = a.metrics
		opts.Hooks = hooks
	}

	a.cache, err = newCache(cmd.Context(), cacheConfig{
		Kind:      a.v.GetString("cache"),
		Codec:     a.v.GetString("codec"),
		Namespace: a.v.GetString("namespace"),
		RedisAddr: a.v.GetString("redis-addr"),
		Logger:    logger,
		Hooks:     hooks,
	})
	if err != nil {
		return err
	}
	if a.cache != nil {
		opts.Cache = a.cache
	}
	a.client = pathmut.New(opts)
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	var errs []error
	if a.dirty {
		errs = append(errs, a.save(a.v.GetString("file")))
	}
	if a.cache != nil {
		errs = append(errs, a.cache.Close(ctx))
	}
	if a.metrics != nil {
		a.metrics.WritePrometheus(a.out)
	}
	_ = a.log.Sync()
	return errors.Join(errs...)
}

func (a *app) load(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		a.log.Debug("tree file missing, starting empty", zap.String("file", path))
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	return a.db.Load(f)
}

// save writes to a temp file in the same directory and renames it over path.
func (a *app) save(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if err := a.db.Export(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func newZap(level string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	enc := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}

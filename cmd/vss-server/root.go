package main

import (
	"context"
	"fmt"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-vss/adapters/gologger"
	"github.com/goliatone/go-vss/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type serveFunc func(ctx context.Context, srv *server.Server, addr string) error

func newRootCmd() *cobra.Command {
	return newServerCmd(viper.New(), func(ctx context.Context, srv *server.Server, addr string) error {
		return srv.ListenAndServe(ctx, addr)
	})
}

func newServerCmd(v *viper.Viper, serve serveFunc) *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:           "vss-server",
		Short:         "Serve the Versioned Storage Service API",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v, cfgFile)
			if err != nil {
				return err
			}
			provider, err := newLoggerProvider(v, cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, provider, serve)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.String("addr", "", "listen address")
	flags.String("store", "", "store backend: memory, bolt, sqlite or postgres")
	flags.String("store-path", "", "bbolt database file")
	flags.String("store-dsn", "", "sqlite or postgres dsn")
	flags.String("version-policy", "", "keep_newest, last_write_wins or reject_stale")
	flags.String("log-level", "info", "log level")
	flags.String("log-format", "text", "log format: text or json")

	for key, flag := range map[string]string{
		"addr":           "addr",
		"store.backend":  "store",
		"store.path":     "store-path",
		"store.dsn":      "store-dsn",
		"version_policy": "version-policy",
		"log.level":      "log-level",
		"log.format":     "log-format",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
	return cmd
}

var configKeys = []string{
	"addr",
	"version_policy",
	"max_request_body_bytes",
	"auth.jwt_secret",
	"auth.issuer",
	"auth.audience",
	"auth.leeway_seconds",
	"store.backend",
	"store.path",
	"store.dsn",
	"store.debug",
	"store.cache_ttl_seconds",
}

// loadConfig layers the config file, VSS_* env vars and flags, then hands
// the result to server.LoadConfig for defaults and validation.
func loadConfig(v *viper.Viper, cfgFile string) (server.Config, error) {
	v.SetEnvPrefix("VSS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return server.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	raw := map[string]any{}
	for _, key := range configKeys {
		if !v.IsSet(key) {
			continue
		}
		section, field, nested := strings.Cut(key, ".")
		if !nested {
			raw[key] = v.Get(key)
			continue
		}
		inner, _ := raw[section].(map[string]any)
		if inner == nil {
			inner = map[string]any{}
			raw[section] = inner
		}
		inner[field] = v.Get(key)
	}
	return server.LoadConfig(raw)
}

func newLoggerProvider(v *viper.Viper, cmd *cobra.Command) (glog.LoggerProvider, error) {
	base, err := gologger.NewLogrus(gologger.Options{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}
	return gologger.NewLogrusProvider(base), nil
}

func run(ctx context.Context, cfg server.Config, provider glog.LoggerProvider, serve serveFunc) error {
	logger := provider.GetLogger("vss.server")
	itemStore, err := server.OpenStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := itemStore.Close(); err != nil {
			logger.Error("close item store failed", "error", err)
		}
	}()

	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	srv, err := server.New(itemStore, append(opts, server.WithLoggerProvider(provider))...)
	if err != nil {
		return err
	}
	logger.Info("vss server configured",
		"store", cfg.Store.Backend,
		"policy", cfg.VersionPolicy,
		"bearer_auth", cfg.Auth.JWTSecret != "",
	)
	return serve(ctx, srv, cfg.Addr)
}

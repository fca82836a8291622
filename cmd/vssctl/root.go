package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
	vss "github.com/goliatone/go-vss"
	"github.com/goliatone/go-vss/adapters/gologger"
	"github.com/goliatone/go-vss/auth"
	"github.com/goliatone/go-vss/core"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var clientKeys = []string{"base_url", "mode", "transport", "user_agent", "max_response_body_bytes"}

type app struct {
	v       *viper.Viper
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	logger  glog.LoggerProvider
	cfgFile string
}

func newRootCmd(stdin io.Reader, stdout io.Writer, stderr io.Writer) *cobra.Command {
	a := &app{v: viper.New(), stdin: stdin, stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "vssctl",
		Short:         "Client for a Versioned Storage Service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.String("url", "", "VSS server base url")
	flags.String("mode", "", "anonymous or authenticated")
	flags.String("key-hex", "", "hex encoded secret key")
	flags.String("profile", "default", "keyring profile holding the secret key")
	flags.String("log-level", "warn", "log level")
	flags.String("log-format", "text", "log format: text or json")

	bindings := map[string]string{
		"client.base_url": "url",
		"client.mode":     "mode",
		"secret_key":      "key-hex",
		"profile":         "profile",
		"log.level":       "log-level",
		"log.format":      "log-format",
	}
	for key, flag := range bindings {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(
		newKeygenCmd(a),
		newWhoamiCmd(a),
		newPutCmd(a),
		newGetCmd(a),
		newListCmd(a),
		newDiffCmd(a),
		newSyncCmd(a),
	)
	return root
}

func (a *app) init() error {
	a.v.SetEnvPrefix("VSS")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()
	if err := a.readConfig(); err != nil {
		return err
	}

	base, err := gologger.NewLogrus(gologger.Options{
		Level:  a.v.GetString("log.level"),
		Format: a.v.GetString("log.format"),
		Output: a.stderr,
	})
	if err != nil {
		return err
	}
	a.logger = gologger.NewLogrusProvider(base)
	return nil
}

// readConfig loads --config, or $HOME/.vssctl.{yaml,json,toml} when present.
func (a *app) readConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		return nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return nil
	}
	a.v.AddConfigPath(home)
	a.v.SetConfigName(".vssctl")
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// clientConfig collects the client section from config file, env and flags.
func (a *app) clientConfig() map[string]any {
	raw := map[string]any{}
	for _, key := range clientKeys {
		if a.v.IsSet("client." + key) {
			raw[key] = a.v.Get("client." + key)
		}
	}
	return raw
}

func (a *app) newClient(ctx context.Context) (*vss.Client, error) {
	key, err := a.secretKey()
	if err != nil {
		return nil, err
	}
	raw := a.clientConfig()
	opts := []vss.Option{
		vss.WithConfigProvider(core.NewCfgxConfigProvider(core.StaticConfigLoader(raw))),
		vss.WithLoggerProvider(a.logger),
		vss.WithUserAgent("vssctl"),
	}

	mode, _ := raw["mode"].(string)
	if parsed, ok := core.ParseMode(mode); ok && parsed == core.ModeAuthenticated {
		tokens := auth.NewHS256TokenSource(auth.HS256TokenSourceConfig{
			Secret:   a.v.GetString("auth.secret"),
			Subject:  a.v.GetString("auth.subject"),
			Issuer:   a.v.GetString("auth.issuer"),
			Audience: a.v.GetString("auth.audience"),
		})
		if _, err := tokens.Token(ctx); err != nil {
			return nil, err
		}
		opts = append(opts, vss.WithAuthClient(auth.NewBearerClient(auth.BearerClientConfig{
			Tokens:    tokens,
			UserAgent: "vssctl",
		})))
	}
	return vss.NewClient(vss.Config{}, key, opts...)
}

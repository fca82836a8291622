package core

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

// ConfigProvider loads the file or environment layer of a client Config.
type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

// OptionsResolver merges the three configuration layers; later layers win.
type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

// ResolveConfig runs provider over the defaults, then lets resolver merge
// defaults, loaded and runtime values and validate the result.
func ResolveConfig(ctx context.Context, runtime Config, provider ConfigProvider, resolver OptionsResolver) (Config, error) {
	if provider == nil {
		provider = NewCfgxConfigProvider(nil)
	}
	if resolver == nil {
		resolver = GoOptionsResolver{}
	}
	defaults := DefaultConfig()
	loaded, err := provider.Load(ctx, defaults)
	if err != nil {
		return Config{}, err
	}
	return resolver.Resolve(defaults, loaded, runtime)
}

type staticLoader map[string]any

func (l staticLoader) LoadRaw(context.Context) (map[string]any, error) {
	if l == nil {
		return map[string]any{}, nil
	}
	return maps.Clone(map[string]any(l)), nil
}

// StaticConfigLoader serves a fixed raw map, e.g. one assembled from CLI
// flags.
func StaticConfigLoader(values map[string]any) RawConfigLoader {
	return staticLoader(values)
}

// CfgxConfigProvider decodes a raw map into Config with cfgx.
type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

// Load does not validate: a partial file may rely on a runtime base_url.
func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil || p.Loader == nil {
		return defaults, nil
	}
	raw, err := p.Loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	return cfgx.Build[Config](raw, cfgx.WithDefaults(defaults))
}

// GoOptionsResolver stacks the layers with go-options and decodes the merged
// map with cfgx.
type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(opts.NewScope("defaults", 0), defaults.layer(true), opts.WithSnapshotID[map[string]any]("defaults")),
		opts.NewLayer(opts.NewScope("config", 10), loaded.layer(false), opts.WithSnapshotID[map[string]any]("config")),
		opts.NewLayer(opts.NewScope("runtime", 20), runtime.layer(false), opts.WithSnapshotID[map[string]any]("runtime")),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: build options stack: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: merge options: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return resolved, resolved.Validate()
}

// layer flattens c into option keys, dropping unset fields unless all is
// true.
func (c Config) layer(all bool) map[string]any {
	out := map[string]any{}
	set := func(key string, value any, present bool) {
		if all || present {
			out[key] = value
		}
	}
	baseURL := strings.TrimSpace(c.BaseURL)
	mode := strings.ToLower(strings.TrimSpace(c.Mode))
	kind := strings.ToLower(strings.TrimSpace(c.Transport))
	userAgent := strings.TrimSpace(c.UserAgent)
	set("base_url", baseURL, baseURL != "")
	set("mode", mode, mode != "")
	set("transport", kind, kind != "")
	set("user_agent", userAgent, userAgent != "")
	set("max_response_body_bytes", c.MaxResponseBodyBytes, c.MaxResponseBodyBytes > 0)
	return out
}

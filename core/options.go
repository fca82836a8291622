package core

import (
	"strings"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-vss/security"
)

const loggerName = "vss"

type clientBuilder struct {
	logger           Logger
	loggerProvider   LoggerProvider
	codec            Codec
	maxBody          int64
	userAgent        string
	authClient       AuthClient
	transportAdapter TransportAdapter
	registry         TransportRegistry
	configProvider   ConfigProvider
	optionsResolver  OptionsResolver
}

type Option func(*clientBuilder)

func WithLogger(logger Logger) Option {
	return func(b *clientBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *clientBuilder) {
		b.loggerProvider = provider
	}
}

func WithCodec(codec Codec) Option {
	return func(b *clientBuilder) {
		if codec != nil {
			b.codec = codec
		}
	}
}

func WithMaxResponseBodyBytes(limit int64) Option {
	return func(b *clientBuilder) {
		b.maxBody = limit
	}
}

// WithUserAgent sets the User-Agent header on anonymous requests.
func WithUserAgent(userAgent string) Option {
	return func(b *clientBuilder) {
		b.userAgent = strings.TrimSpace(userAgent)
	}
}

func WithAuthClient(client AuthClient) Option {
	return func(b *clientBuilder) {
		b.authClient = client
	}
}

func WithTransportAdapter(adapter TransportAdapter) Option {
	return func(b *clientBuilder) {
		b.transportAdapter = adapter
	}
}

func WithTransportRegistry(registry TransportRegistry) Option {
	return func(b *clientBuilder) {
		b.registry = registry
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *clientBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *clientBuilder) {
		b.optionsResolver = resolver
	}
}

func newClientBuilder(options ...Option) clientBuilder {
	builder := clientBuilder{
		codec:           security.NewXChaChaCodec(),
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}
	if builder.codec == nil {
		builder.codec = security.NewXChaChaCodec()
	}
	return builder
}

func (b clientBuilder) resolveLogger() Logger {
	provider, logger := glog.Resolve(loggerName, b.loggerProvider, b.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger(loggerName); named != nil {
			logger = glog.Ensure(named)
		}
	}
	return logger
}

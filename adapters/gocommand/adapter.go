// Package gocommand wires the VSS command and query handlers into the
// go-command registry and dispatcher.
package gocommand

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	vsscommand "github.com/goliatone/go-vss/command"
	"github.com/goliatone/go-vss/core"
	vssquery "github.com/goliatone/go-vss/query"
)

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

var errNoRegistry = errors.New("gocommand: registry is not configured")

// RegistryAdapter keeps the go-command registry that resolvers such as the
// go-job queue mirror read from.
type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	reg, _ := a.target()
	return reg
}

func (a *RegistryAdapter) target() (*command.Registry, error) {
	if a == nil || a.registry == nil {
		return nil, errNoRegistry
	}
	return a.registry, nil
}

// RegisterCommand records a command or query handler; go-command keeps both
// in the same table.
func (a *RegistryAdapter) RegisterCommand(handler any) error {
	reg, err := a.target()
	if err != nil {
		return err
	}
	return reg.RegisterCommand(handler)
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	reg, err := a.target()
	if err != nil {
		return err
	}
	return reg.AddResolver(strings.TrimSpace(key), resolver)
}

// AddQueueResolver mirrors registered handlers into a go-job queue registry
// so writes can also be run from a worker.
func (a *RegistryAdapter) AddQueueResolver(key string, queue *jobqueuecommand.Registry) error {
	if queue == nil {
		return errors.New("gocommand: queue registry is required")
	}
	return a.AddResolver(key, jobqueuecommand.QueueResolver(queue))
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	reg, err := a.target()
	return err == nil && reg.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	reg, err := a.target()
	if err != nil {
		return err
	}
	return reg.Initialize()
}

// Client is the VSS surface the handlers need; *core.Client satisfies it.
type Client interface {
	PutObjects(ctx context.Context, items []core.VersionedItem) error
	GetObject(ctx context.Context, key string) (core.VersionedItem, error)
	ListKeyVersions(ctx context.Context, keyPrefix *string) ([]core.KeyVersion, error)
}

// Subscriptions are dispatcher subscriptions owned by one registration.
type Subscriptions []commanddispatcher.Subscription

func (s Subscriptions) Unsubscribe() {
	for _, sub := range s {
		if sub != nil {
			sub.Unsubscribe()
		}
	}
}

// RegisterClient registers and subscribes every VSS command and query
// handler backed by client. On error nothing stays subscribed.
func RegisterClient(adapter *RegistryAdapter, client Client, runnerOpts ...runner.Option) (Subscriptions, error) {
	if client == nil {
		return nil, errors.New("gocommand: vss client is required")
	}
	if _, err := adapter.target(); err != nil {
		return nil, err
	}
	putObjects := vsscommand.NewPutObjectsCommand(client)
	putObject := vsscommand.NewPutObjectCommand(client)
	getObject := vssquery.NewGetObjectQuery(client)
	lookupObject := vssquery.NewLookupObjectQuery(client)
	listVersions := vssquery.NewListKeyVersionsQuery(client)

	subs := Subscriptions{
		commanddispatcher.SubscribeCommand(putObjects, runnerOpts...),
		commanddispatcher.SubscribeCommand(putObject, runnerOpts...),
		commanddispatcher.SubscribeQuery(getObject, runnerOpts...),
		commanddispatcher.SubscribeQuery(lookupObject, runnerOpts...),
		commanddispatcher.SubscribeQuery(listVersions, runnerOpts...),
	}
	handlers := []any{putObjects, putObject, getObject, lookupObject, listVersions}
	for _, handler := range handlers {
		if err := adapter.RegisterCommand(handler); err != nil {
			subs.Unsubscribe()
			return nil, fmt.Errorf("gocommand: register %T: %w", handler, err)
		}
	}
	return subs, nil
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

// RegisterAndSubscribe makes cmd reachable through Dispatch and visible to
// registry resolvers.
func RegisterAndSubscribe[T any](adapter *RegistryAdapter, cmd command.Commander[T], runnerOpts ...runner.Option) (commanddispatcher.Subscription, error) {
	return registerThen(adapter, cmd, func() commanddispatcher.Subscription {
		return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
	})
}

func RegisterAndSubscribeQuery[T any, R any](adapter *RegistryAdapter, qry command.Querier[T, R], runnerOpts ...runner.Option) (commanddispatcher.Subscription, error) {
	return registerThen(adapter, qry, func() commanddispatcher.Subscription {
		return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
	})
}

func registerThen(adapter *RegistryAdapter, handler any, subscribe func() commanddispatcher.Subscription) (commanddispatcher.Subscription, error) {
	if err := adapter.RegisterCommand(handler); err != nil {
		return nil, err
	}
	return subscribe(), nil
}

package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-vss/core"
)

type ObjectWriter interface {
	PutObjects(ctx context.Context, items []core.VersionedItem) error
}

// PutObjectsResult is stored in the context result collector, when present.
type PutObjectsResult struct {
	Keys []string
}

type PutObjectsCommand struct {
	writer ObjectWriter
}

func NewPutObjectsCommand(writer ObjectWriter) *PutObjectsCommand {
	return &PutObjectsCommand{writer: writer}
}

func (c *PutObjectsCommand) Execute(ctx context.Context, msg PutObjectsMessage) error {
	if c == nil || c.writer == nil {
		return commandDependencyError("command: object writer is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := c.writer.PutObjects(ctx, msg.Items); err != nil {
		return err
	}
	storeResult(ctx, PutObjectsResult{Keys: keysOf(msg.Items)})
	return nil
}

type PutObjectCommand struct {
	writer ObjectWriter
}

func NewPutObjectCommand(writer ObjectWriter) *PutObjectCommand {
	return &PutObjectCommand{writer: writer}
}

func (c *PutObjectCommand) Execute(ctx context.Context, msg PutObjectMessage) error {
	if c == nil || c.writer == nil {
		return commandDependencyError("command: object writer is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	item, err := core.NewVersionedItem(msg.Key, msg.Value, msg.Version)
	if err != nil {
		return err
	}
	if err := c.writer.PutObjects(ctx, []core.VersionedItem{item}); err != nil {
		return err
	}
	storeResult(ctx, item)
	return nil
}

func keysOf(items []core.VersionedItem) []string {
	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, item.Key)
	}
	return keys
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}

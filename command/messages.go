package command

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-vss/core"
)

const (
	TypePutObjects = "vss.command.objects.put"
	TypePutObject  = "vss.command.object.put"
)

// PutObjectsMessage submits Items as one transaction.
type PutObjectsMessage struct {
	Items []core.VersionedItem
}

func (PutObjectsMessage) Type() string { return TypePutObjects }

func (m PutObjectsMessage) Validate() error {
	seen := make(map[string]struct{}, len(m.Items))
	for idx, item := range m.Items {
		field := fmt.Sprintf("items[%d]", idx)
		if err := validateItem(field, item); err != nil {
			return err
		}
		if _, ok := seen[item.Key]; ok {
			return commandValidationError(field+".key", fmt.Sprintf("duplicate key %q in transaction", item.Key))
		}
		seen[item.Key] = struct{}{}
	}
	return nil
}

// PutObjectMessage stores a single value, marshalling Value as JSON.
type PutObjectMessage struct {
	Key     string
	Value   any
	Version uint32
}

func (PutObjectMessage) Type() string { return TypePutObject }

func (m PutObjectMessage) Validate() error {
	if strings.TrimSpace(m.Key) == "" {
		return commandValidationError("key", "key is required")
	}
	if _, err := json.Marshal(m.Value); err != nil {
		return commandWrapValidation(err, "command: value is not json serialisable")
	}
	return nil
}

func validateItem(field string, item core.VersionedItem) error {
	if strings.TrimSpace(item.Key) == "" {
		return commandValidationError(field+".key", "key is required")
	}
	if len(item.Value) == 0 || !json.Valid(item.Value) {
		return commandValidationError(field+".value", "value must be valid json")
	}
	return nil
}

package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
)

// NewItemStoreFromPersistence builds an ItemStore on the bun database owned
// by a go-persistence-bun client. Migrations must already be applied.
func NewItemStoreFromPersistence(client *persistence.Client) (*ItemStore, error) {
	if client == nil {
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	}
	db := client.DB()
	if db == nil {
		return nil, fmt.Errorf("sqlstore: persistence client has no open database")
	}
	return NewItemStore(db)
}

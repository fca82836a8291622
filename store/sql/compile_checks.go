package sqlstore

import "github.com/goliatone/go-vss/store"

var _ store.ItemStore = (*ItemStore)(nil)

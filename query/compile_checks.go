package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-vss/core"
)

var (
	_ gocmd.Querier[GetObjectMessage, core.VersionedItem]      = (*GetObjectQuery)(nil)
	_ gocmd.Querier[LookupObjectMessage, ObjectLookup]         = (*LookupObjectQuery)(nil)
	_ gocmd.Querier[ListKeyVersionsMessage, []core.KeyVersion] = (*ListKeyVersionsQuery)(nil)
)

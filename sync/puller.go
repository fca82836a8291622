package sync

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-vss/core"
	"github.com/google/uuid"
)

type Remote interface {
	ListKeyVersions(ctx context.Context, keyPrefix *string) ([]core.KeyVersion, error)
	GetObject(ctx context.Context, key string) (core.VersionedItem, error)
}

type PullResult struct {
	Plan Plan
	// Items are the decrypted values for Plan.Fetch, in key order.
	Items []core.VersionedItem
	// Vanished lists keys that were listed but gone by the time they were
	// fetched.
	Vanished []string
}

// Puller fetches only the keys whose remote version moved past the local
// one. Conflict resolution is left to the caller.
type Puller struct {
	remote Remote
	logger core.Logger
}

func NewPuller(remote Remote, logger core.Logger) *Puller {
	if logger == nil {
		logger = glog.Nop()
	}
	return &Puller{remote: remote, logger: logger}
}

// KeyPrefix turns a literal prefix into the listing filter. Only the empty
// string means no filter; the prefix is never trimmed.
func KeyPrefix(prefix string) *string {
	if prefix == "" {
		return nil
	}
	return &prefix
}

func (p *Puller) Pull(ctx context.Context, prefix string, local map[string]uint32) (PullResult, error) {
	if p == nil || p.remote == nil {
		return PullResult{}, core.NewError("sync: remote is required", core.ErrorInternal, nil)
	}
	runID := uuid.NewString()
	logger := p.logger.WithContext(ctx)

	remote, err := p.remote.ListKeyVersions(ctx, KeyPrefix(prefix))
	if err != nil {
		logger.Error("sync: list key versions failed", "sync_run_id", runID, "prefix", prefix, "error", err)
		return PullResult{}, err
	}

	plan := NewPlan(remote, local)
	logger.Debug("sync: plan computed",
		"sync_run_id", runID,
		"fetch", len(plan.Fetch),
		"local_ahead", len(plan.LocalAhead),
		"local_only", len(plan.LocalOnly),
		"up_to_date", plan.UpToDate,
	)

	result := PullResult{
		Plan:     plan,
		Items:    make([]core.VersionedItem, 0, len(plan.Fetch)),
		Vanished: []string{},
	}
	for _, entry := range plan.Fetch {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		item, err := p.remote.GetObject(ctx, entry.Key)
		if err != nil {
			if core.IsNotFound(err) {
				result.Vanished = append(result.Vanished, entry.Key)
				continue
			}
			logger.Error("sync: fetch failed", "sync_run_id", runID, "key", entry.Key, "error", err)
			return result, err
		}
		result.Items = append(result.Items, item)
	}
	logger.Info("sync: pull complete", "sync_run_id", runID, "fetched", len(result.Items), "vanished", len(result.Vanished))
	return result, nil
}

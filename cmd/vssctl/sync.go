package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	vsssync "github.com/goliatone/go-vss/sync"
	"github.com/spf13/cobra"
)

func newSyncCmd(a *app) *cobra.Command {
	var statePath string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "sync [PREFIX]",
		Short: "Pull newer items into a local JSON replica",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			client, err := a.newClient(cmd.Context())
			if err != nil {
				return err
			}
			replica, err := loadReplica(statePath)
			if err != nil {
				return err
			}
			local, err := replica.Versions(cmd.Context(), prefix)
			if err != nil {
				return err
			}

			puller := vsssync.NewPuller(client, a.logger.GetLogger("vss.sync"))
			if dryRun {
				remote, err := client.ListKeyVersions(cmd.Context(), vsssync.KeyPrefix(prefix))
				if err != nil {
					return err
				}
				printPlan(a, vsssync.NewPlan(remote, local))
				return nil
			}
			result, err := puller.Pull(cmd.Context(), prefix, local)
			if err != nil {
				return err
			}
			if err := replica.Apply(cmd.Context(), result); err != nil {
				return err
			}
			if err := replica.Save(statePath); err != nil {
				return err
			}
			printPlan(a, result.Plan)
			fmt.Fprintf(a.stdout, "pulled %d item(s), %d vanished\n", len(result.Items), len(result.Vanished))
			return nil
		},
	}
	cmd.Flags().StringVar(&statePath, "state", "vss-replica.json", "local replica file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the plan without fetching")
	return cmd
}

func printPlan(a *app, plan vsssync.Plan) {
	for _, entry := range plan.Fetch {
		fmt.Fprintf(a.stdout, "fetch\t%s\t%d\n", entry.Key, entry.Version)
	}
	for _, entry := range plan.LocalAhead {
		fmt.Fprintf(a.stdout, "ahead\t%s\t%d\n", entry.Key, entry.Version)
	}
	for _, key := range plan.LocalOnly {
		fmt.Fprintf(a.stdout, "local\t%s\n", key)
	}
	if plan.Empty() {
		fmt.Fprintln(a.stdout, "up to date")
	}
}

type replicaEntry struct {
	Version uint32          `json:"version"`
	Value   json.RawMessage `json:"value"`
}

// replica is a JSON file of decrypted items keyed by item key.
type replica struct {
	Items map[string]replicaEntry `json:"items"`
}

func loadReplica(path string) (*replica, error) {
	r := &replica{Items: map[string]replicaEntry{}}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, r); err != nil {
		return nil, fmt.Errorf("parse replica %s: %w", path, err)
	}
	if r.Items == nil {
		r.Items = map[string]replicaEntry{}
	}
	return r, nil
}

func (r *replica) Versions(_ context.Context, prefix string) (map[string]uint32, error) {
	out := map[string]uint32{}
	for key, entry := range r.Items {
		if strings.HasPrefix(key, prefix) {
			out[key] = entry.Version
		}
	}
	return out, nil
}

func (r *replica) Apply(_ context.Context, result vsssync.PullResult) error {
	for _, item := range result.Items {
		r.Items[item.Key] = replicaEntry{Version: item.Version, Value: item.Value}
	}
	for _, key := range result.Vanished {
		delete(r.Items, key)
	}
	return nil
}

func (r *replica) Save(path string) error {
	raw, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(raw, '\n'), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

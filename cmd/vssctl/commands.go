package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	vss "github.com/goliatone/go-vss"
	"github.com/goliatone/go-vss/core"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
)

func newKeygenCmd(a *app) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a secret key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := vss.GenerateSecretKey()
			if err != nil {
				return err
			}
			if save {
				if err := saveKey(a.profile(), key); err != nil {
					return fmt.Errorf("save key to keyring: %w", err)
				}
				fmt.Fprintf(a.stdout, "saved key for profile %q\n", a.profile())
			} else {
				fmt.Fprintf(a.stdout, "secret_key: %s\n", key.Hex())
			}
			fmt.Fprintf(a.stdout, "store_id:   %s\n", key.PublicKeyHex())
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "store the key in the OS keyring instead of printing it")
	return cmd
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the client mode and store identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.newClient(cmd.Context())
			if err != nil {
				return err
			}
			storeID, ok := client.StoreID()
			if !ok {
				storeID = "(assigned by server)"
			}
			fmt.Fprintf(a.stdout, "url:      %s\nmode:     %s\nstore_id: %s\n", client.BaseURL(), client.Mode(), storeID)
			return nil
		},
	}
}

func newPutCmd(a *app) *cobra.Command {
	var version uint32
	var asString bool
	cmd := &cobra.Command{
		Use:   "put KEY VALUE",
		Short: "Store a value; VALUE is parsed as JSON unless --string is set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.newClient(cmd.Context())
			if err != nil {
				return err
			}
			item := core.VersionedItem{Key: args[0], Version: version}
			if !asString && json.Valid([]byte(args[1])) {
				item.Value = json.RawMessage(args[1])
			} else if item, err = vss.NewItem(args[0], args[1], version); err != nil {
				return err
			}
			if err := client.PutObjects(cmd.Context(), []core.VersionedItem{item}); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "stored %s@%d\n", item.Key, item.Version)
			return nil
		},
	}
	cmd.Flags().Uint32Var(&version, "version", 0, "item version")
	cmd.Flags().BoolVar(&asString, "string", false, "store VALUE as a JSON string")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	var showVersion bool
	cmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Fetch and decrypt a value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.newClient(cmd.Context())
			if err != nil {
				return err
			}
			item, err := client.GetObject(cmd.Context(), args[0])
			if err != nil {
				if core.IsNotFound(err) {
					return fmt.Errorf("key %q not found", args[0])
				}
				return err
			}
			if showVersion {
				fmt.Fprintf(a.stdout, "version: %d\n", item.Version)
			}
			fmt.Fprintln(a.stdout, prettyJSON(item.Value))
			return nil
		},
	}
	cmd.Flags().BoolVar(&showVersion, "show-version", false, "print the item version before the value")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "ls [PREFIX]",
		Aliases: []string{"list"},
		Short:   "List keys and versions",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.newClient(cmd.Context())
			if err != nil {
				return err
			}
			var prefix *string
			if len(args) == 1 {
				prefix = &args[0]
			}
			versions, err := client.ListKeyVersions(cmd.Context(), prefix)
			if err != nil {
				return err
			}
			for _, entry := range versions {
				fmt.Fprintf(a.stdout, "%s\t%d\n", entry.Key, entry.Version)
			}
			return nil
		},
	}
}

func newDiffCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diff KEY FILE",
		Short: "Compare a stored value with a local file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.newClient(cmd.Context())
			if err != nil {
				return err
			}
			local, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			item, err := client.GetObject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			remote := prettyJSON(item.Value)
			fmt.Fprintf(a.stdout, "--- %s@%d\n+++ %s\n", item.Key, item.Version, args[1])
			if !writeLineDiff(a, remote, prettyJSON(local)) {
				fmt.Fprintln(a.stdout, "no differences")
			}
			return nil
		},
	}
}

// writeLineDiff prints a line-level diff and reports whether anything
// differed.
func writeLineDiff(a *app, remote string, local string) bool {
	dmp := diffmatchpatch.New()
	left, right, lines := dmp.DiffLinesToChars(ensureNewline(remote), ensureNewline(local))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(left, right, false), lines)

	changed := false
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix, changed = "-", true
		case diffmatchpatch.DiffInsert:
			prefix, changed = "+", true
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			fmt.Fprint(a.stdout, prefix+line)
		}
	}
	return changed
}

func ensureNewline(value string) string {
	if strings.HasSuffix(value, "\n") {
		return value
	}
	return value + "\n"
}

// prettyJSON indents valid JSON and returns anything else unchanged.
func prettyJSON(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(raw), "", "  "); err != nil {
		return strings.TrimRight(string(raw), "\n")
	}
	return buf.String()
}

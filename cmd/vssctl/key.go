package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	vss "github.com/goliatone/go-vss"
	"github.com/goliatone/go-vss/security"
	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

const keyringService = "go-vss"

// secretKey resolves the key from --key-hex or VSS_SECRET_KEY, then the OS
// keyring, then a terminal prompt.
func (a *app) secretKey() (vss.SecretKey, error) {
	if value := strings.TrimSpace(a.v.GetString("secret_key")); value != "" {
		return vss.ParseSecretKey(value)
	}

	profile := a.profile()
	stored, err := keyring.Get(keyringService, profile)
	switch {
	case err == nil:
		return vss.ParseSecretKey(stored)
	case !errors.Is(err, keyring.ErrNotFound):
		return vss.SecretKey{}, fmt.Errorf("read keyring profile %q: %w", profile, err)
	}

	file, ok := a.stdin.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return vss.SecretKey{}, fmt.Errorf("no secret key: pass --key-hex, set VSS_SECRET_KEY or run keygen --save")
	}
	fmt.Fprint(a.stderr, "Secret key (hex): ")
	input, err := term.ReadPassword(int(file.Fd()))
	fmt.Fprintln(a.stderr)
	if err != nil {
		return vss.SecretKey{}, fmt.Errorf("read secret key: %w", err)
	}
	defer security.ClearBytes(input)
	return vss.ParseSecretKey(string(input))
}

func (a *app) profile() string {
	profile := strings.TrimSpace(a.v.GetString("profile"))
	if profile == "" {
		return "default"
	}
	return profile
}

func saveKey(profile string, key vss.SecretKey) error {
	return keyring.Set(keyringService, profile, key.Hex())
}

package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	secretService         = "archon"
	secretAPITokenAccount = "api_token"
)

// APIToken resolves the bearer token protecting the REST API. Resolution
// order: config/env, platform secret store, then mint-and-store. The minted
// token survives restarts via the secret store.
func APIToken(cfg Config) (string, error) {
	if cfg.Server.APIToken != "" {
		return cfg.Server.APIToken, nil
	}

	if raw, err := keychainGet(secretService, secretAPITokenAccount); err == nil {
		if tok := strings.TrimSpace(string(raw)); tok != "" {
			return tok, nil
		}
	}

	tok, err := mintToken()
	if err != nil {
		return "", fmt.Errorf("minting api token: %w", err)
	}
	if err := keychainSet(secretService, secretAPITokenAccount, tok); err != nil {
		return "", fmt.Errorf("storing api token: %w", err)
	}
	return tok, nil
}

func mintToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "archon_" + hex.EncodeToString(buf), nil
}

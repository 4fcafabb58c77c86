// Package main provides a CLI tool for minting test tokens.
// Tokens signed with a generated throwaway key will NOT verify against a
// deployed gateway; pass -key to sign with a real private key.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/aBasicDream/tc/internal/token"
)

type tokenOutput struct {
	Token     string `json:"token"`
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	Scope     string `json:"scope"`
	ExpiresIn string `json:"expires_in"`
	Usage     string `json:"usage"`
}

func main() {
	keyPath := flag.String("key", "", "Path to an RSA private key PEM. A throwaway key is generated if empty.")
	userID := flag.Int64("user-id", 1, "Subject user id")
	username := flag.String("username", "demo", "Username claim")
	scope := flag.String("scope", "tc-user", "System scope tag")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token time-to-live")
	asJSON := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	codec, err := buildCodec(*keyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tokengen: %v\n", err)
		os.Exit(1)
	}

	minted, err := codec.Issue(*userID, *username, *scope, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tokengen: issue token: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		out := tokenOutput{
			Token:     minted,
			UserID:    *userID,
			Username:  *username,
			Scope:     *scope,
			ExpiresIn: ttl.String(),
			Usage:     fmt.Sprintf(`curl -H "Authorization: Bearer %s" http://localhost:8080/api/user/profile`, minted),
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(os.Stderr, "tokengen: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *keyPath == "" {
		fmt.Fprintln(os.Stderr, "WARNING: signed with a throwaway generated key; this token will not verify against a running gateway.")
	}
	fmt.Println(minted)
}

func buildCodec(keyPath string) (*token.Codec, error) {
	if keyPath != "" {
		data, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}
		priv, err := token.ParsePrivateKeyPEM(data)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		return token.New(priv, &priv.PublicKey), nil
	}
	priv, pub, err := token.GenerateDevKeyPair()
	if err != nil {
		return nil, fmt.Errorf("generate dev key: %w", err)
	}
	return token.New(priv, pub), nil
}

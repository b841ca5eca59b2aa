// Package auth provides Google OAuth2 authentication for the Gmail-backed
// remote client.
//
// Credentials and the cached token live in the profile directory as
// credentials.json and token.json. Tokens are refreshed transparently and
// written back so the next run does not need to re-authenticate.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Scopes requested for the mail account.
var Scopes = []string{
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/gmail.compose",
	"https://www.googleapis.com/auth/gmail.modify",
}

// NewGmailService returns an authenticated Gmail API service for the
// account whose credentials live in profileDir.
func NewGmailService(ctx context.Context, profileDir string) (*gmail.Service, error) {
	client, err := newHTTPClient(ctx, profileDir)
	if err != nil {
		return nil, fmt.Errorf("get oauth client: %w", err)
	}
	return gmail.NewService(ctx, option.WithHTTPClient(client))
}

// newHTTPClient builds an authenticated HTTP client from the profile's
// credentials.json and token.json.
func newHTTPClient(ctx context.Context, profileDir string) (*http.Client, error) {
	config, err := loadOAuthConfig(filepath.Join(profileDir, "credentials.json"))
	if err != nil {
		return nil, err
	}

	tokenPath := filepath.Join(profileDir, "token.json")
	token, err := loadToken(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("load token from %s: %w", tokenPath, err)
	}

	ts := config.TokenSource(ctx, token)
	fresh, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	if fresh.AccessToken != token.AccessToken {
		if saveErr := saveToken(tokenPath, fresh); saveErr != nil {
			// Non-fatal: the refreshed token still works for this run.
			fmt.Fprintf(os.Stderr, "warning: could not save refreshed token: %v\n", saveErr)
		}
	}

	return oauth2.NewClient(ctx, ts), nil
}

func loadOAuthConfig(credentialsPath string) (*oauth2.Config, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials from %s: %w", credentialsPath, err)
	}
	config, err := google.ConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return config, nil
}

func loadToken(tokenPath string) (*oauth2.Token, error) {
	data, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return &token, nil
}

func saveToken(tokenPath string, token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(tokenPath, data, 0o600)
}

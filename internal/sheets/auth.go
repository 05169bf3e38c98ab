package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// NewHTTPClient builds an authenticated Google API client from an OAuth
// client-secrets file and a previously obtained token file. The client
// refreshes the access token automatically; obtaining the initial token is an
// out-of-band step (opsctl auth prints the instructions).
func NewHTTPClient(ctx context.Context, credentialsFile, tokenFile string) (*http.Client, error) {
	config, err := OAuthConfig(credentialsFile)
	if err != nil {
		return nil, err
	}
	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("load token %s: %w", tokenFile, err)
	}
	return config.Client(ctx, tok), nil
}

// OAuthConfig parses an OAuth client-secrets file into a config carrying the
// scopes the dashboard needs: read-only spreadsheet access plus Drive access
// for the persisted task document.
func OAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	secrets, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read client secrets %s: %w", credentialsFile, err)
	}
	config, err := google.ConfigFromJSON(secrets,
		sheetsapi.SpreadsheetsReadonlyScope,
		drive.DriveScope,
	)
	if err != nil {
		return nil, fmt.Errorf("parse client secrets: %w", err)
	}
	return config, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return tok, nil
}

// SaveToken writes a token to disk with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create token file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return json.NewEncoder(f).Encode(tok)
}

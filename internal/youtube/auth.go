package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"golang.org/x/oauth2"

	"github.com/randysalars/dreamweaving-publisher/internal/util"
)

// Google OAuth2 endpoints. Hardcoded rather than pulled from the google
// helper package to keep the dependency surface to x/oauth2 itself.
var googleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

// uploadScope covers video upload and thumbnail set
const uploadScope = "https://www.googleapis.com/auth/youtube.upload"

// analyticsScope covers read-only channel analytics
const analyticsScope = "https://www.googleapis.com/auth/yt-analytics.readonly"

// fileTokenSource wraps an oauth2.TokenSource and persists refreshed tokens
// back to disk. The mutex guarantees a single in-process refresh attempt;
// overlapping callers reuse the result.
type fileTokenSource struct {
	mu     sync.Mutex
	path   string
	source oauth2.TokenSource
	token  *oauth2.Token
}

func (f *fileTokenSource) Token() (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.token != nil && f.token.Valid() {
		return f.token, nil
	}

	token, err := f.source.Token()
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	if f.token == nil || token.AccessToken != f.token.AccessToken {
		if err := saveToken(f.path, token); err != nil {
			util.WarnLog("Failed to persist refreshed token: %v", err)
		}
	}
	f.token = token
	return token, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	return &token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// newTokenSource builds the persistent token source for the client
func newTokenSource(ctx context.Context, cfg *Config) (oauth2.TokenSource, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing OAuth client credentials", util.ErrInvalidConfig)
	}
	if cfg.TokenFile == "" {
		return nil, fmt.Errorf("%w: missing OAuth token file", util.ErrInvalidConfig)
	}

	token, err := loadToken(cfg.TokenFile)
	if err != nil {
		return nil, err
	}

	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     googleEndpoint,
		Scopes:       []string{uploadScope, analyticsScope},
	}

	return &fileTokenSource{
		path:   cfg.TokenFile,
		source: oc.TokenSource(ctx, token),
		token:  token,
	}, nil
}

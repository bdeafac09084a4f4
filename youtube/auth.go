package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	yt "google.golang.org/api/youtube/v3"
)

// ErrTokenNotFound indicates no cached OAuth token exists yet.
// Run the auth command to perform the initial authorization.
var ErrTokenNotFound = errors.New("youtube: no cached oauth token")

// Scopes required for reading subscriptions and modifying playlists.
var oauthScopes = []string{
	yt.YoutubeReadonlyScope,
	yt.YoutubeScope,
	yt.YoutubeForceSslScope,
}

// Authenticator manages OAuth credentials for an installed application:
// a client secrets file from the Google Cloud Console and a locally cached
// token that is refreshed automatically.
type Authenticator struct {
	// ClientSecretsFile is the OAuth client credentials JSON (Desktop app).
	ClientSecretsFile string
	// TokenFile is where the user token is cached between runs.
	TokenFile string
}

// NewAuthenticator creates an authenticator using the given file paths.
func NewAuthenticator(clientSecretsFile, tokenFile string) *Authenticator {
	return &Authenticator{
		ClientSecretsFile: clientSecretsFile,
		TokenFile:         tokenFile,
	}
}

// TokenSource returns a token source backed by the cached token.
// Refreshed tokens are written back to the token file.
// Returns ErrTokenNotFound if no token has been cached yet.
func (a *Authenticator) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	cfg, err := a.oauthConfig()
	if err != nil {
		return nil, err
	}

	token, err := a.loadToken()
	if err != nil {
		return nil, err
	}

	return &persistingTokenSource{
		base: cfg.TokenSource(ctx, token),
		path: a.TokenFile,
		last: token,
	}, nil
}

// Authorize runs the interactive installed-app flow: it prints the
// authorization URL to out, reads the pasted code from in, exchanges it,
// and caches the resulting token.
func (a *Authenticator) Authorize(ctx context.Context, in io.Reader, out io.Writer) error {
	cfg, err := a.oauthConfig()
	if err != nil {
		return err
	}

	url := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Open the following URL in your browser and paste the authorization code:\n\n%s\n\nCode: ", url)

	var code string
	if _, err := fmt.Fscan(in, &code); err != nil {
		return fmt.Errorf("read authorization code: %w", err)
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("%w: exchange failed: %v", ErrAuthFailed, err)
	}

	if err := saveToken(a.TokenFile, token); err != nil {
		return err
	}

	fmt.Fprintf(out, "Authorization complete. Token saved to %s\n", a.TokenFile)
	return nil
}

// oauthConfig loads the OAuth client configuration from the secrets file.
func (a *Authenticator) oauthConfig() (*oauth2.Config, error) {
	data, err := os.ReadFile(a.ClientSecretsFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: client secrets file %s not found (download it from the Google Cloud Console)", ErrAuthFailed, a.ClientSecretsFile)
		}
		return nil, fmt.Errorf("read client secrets: %w", err)
	}

	cfg, err := google.ConfigFromJSON(data, oauthScopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: parse client secrets: %v", ErrAuthFailed, err)
	}
	return cfg, nil
}

// loadToken reads the cached token from the token file.
func (a *Authenticator) loadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(a.TokenFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("read token file: %w", err)
	}

	token := &oauth2.Token{}
	if err := json.Unmarshal(data, token); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}
	return token, nil
}

// saveToken writes the token to path with owner-only permissions.
func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}

	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// persistingTokenSource writes refreshed tokens back to disk so the refresh
// token is not re-requested every run.
type persistingTokenSource struct {
	base oauth2.TokenSource
	path string

	mu   sync.Mutex
	last *oauth2.Token
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || token.AccessToken != s.last.AccessToken {
		if err := saveToken(s.path, token); err == nil {
			s.last = token
		}
	}
	return token, nil
}

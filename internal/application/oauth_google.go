package application

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserinfoURL = "https://www.googleapis.com/oauth2/v1/userinfo"

// FederatedIdentity is the profile the external provider vouches for.
type FederatedIdentity struct {
	Email         string
	Name          string
	ProfilePicURL string
}

// IdentityProvider is the contract the orchestrator needs from an OAuth2
// provider: build the consent URL and turn an authorization code into a
// verified profile.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	FetchIdentity(ctx context.Context, code string) (FederatedIdentity, error)
}

// GoogleProvider implements IdentityProvider via the standard
// authorization-code grant against Google.
type GoogleProvider struct {
	cfg *oauth2.Config
}

func NewGoogleProvider(clientID, clientSecret, redirectURI string) *GoogleProvider {
	return &GoogleProvider{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state)
}

func (p *GoogleProvider) FetchIdentity(ctx context.Context, code string) (FederatedIdentity, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tok, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return FederatedIdentity{}, fmt.Errorf("code exchange: %w", err)
	}

	resp, err := p.cfg.Client(ctx, tok).Get(googleUserinfoURL)
	if err != nil {
		return FederatedIdentity{}, fmt.Errorf("userinfo fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return FederatedIdentity{}, fmt.Errorf("userinfo fetch: status %d", resp.StatusCode)
	}

	var info struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return FederatedIdentity{}, fmt.Errorf("userinfo decode: %w", err)
	}
	return FederatedIdentity{Email: info.Email, Name: info.Name, ProfilePicURL: info.Picture}, nil
}

var _ IdentityProvider = (*GoogleProvider)(nil)

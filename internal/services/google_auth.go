package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const defaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

var ErrGoogleNotConfigured = errors.New("google sign-in is not configured")

// GoogleAuthService drives the Google OAuth authorization-code flow and
// resolves the resulting token to a verified identity.
type GoogleAuthService struct {
	config      *oauth2.Config
	userInfoURL string
}

// NewGoogleAuthService creates a GoogleAuthService. Returns a disabled
// service when the client id is empty.
func NewGoogleAuthService(clientID, clientSecret, redirectURL string) *GoogleAuthService {
	if clientID == "" {
		return &GoogleAuthService{}
	}
	return &GoogleAuthService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: defaultUserInfoURL,
	}
}

// Enabled reports whether Google sign-in is configured.
func (s *GoogleAuthService) Enabled() bool {
	return s.config != nil
}

// AuthCodeURL builds the provider authorization URL for one sign-in
// attempt, bound to the given state token.
func (s *GoogleAuthService) AuthCodeURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// googleUserInfo is the provider's userinfo endpoint response.
type googleUserInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Exchange trades the authorization code for a token and fetches the
// signed-in user's identity.
func (s *GoogleAuthService) Exchange(ctx context.Context, code string) (*ExternalIdentity, error) {
	if !s.Enabled() {
		return nil, ErrGoogleNotConfigured
	}

	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	info, err := s.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}

	return &ExternalIdentity{
		Email:       info.Email,
		DisplayName: info.Name,
		AvatarURL:   info.Picture,
	}, nil
}

func (s *GoogleAuthService) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := s.config.Client(ctx, token)

	resp, err := client.Get(s.userInfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("userinfo returned %d: %s", resp.StatusCode, body)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	if info.Email == "" {
		return nil, fmt.Errorf("userinfo response missing email")
	}

	return &info, nil
}

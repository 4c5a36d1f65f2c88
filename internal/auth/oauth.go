package auth

import (
	"context"
	"errors"
	"fmt"

	gogithub "github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
	oauthgithub "golang.org/x/oauth2/github"
)

var ErrOAuthStateMismatch = errors.New("oauth state mismatch")

// GitHubUser is the identity fetched after a successful exchange.
type GitHubUser struct {
	ID        int64
	Login     string
	Email     string
	AvatarURL string
}

// GitHubOAuth drives the authorization-code flow against GitHub. The
// access token obtained in Exchange is handed back to the caller once;
// persistence stores only its SHA-256 digest.
type GitHubOAuth struct {
	config *oauth2.Config
	states *StateStore
}

// NewGitHubOAuth wires the oauth2 config with GitHub endpoints.
func NewGitHubOAuth(clientID, clientSecret, redirectURL string, states *StateStore) *GitHubOAuth {
	return &GitHubOAuth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     oauthgithub.Endpoint,
		},
		states: states,
	}
}

// AuthURL mints a state token and returns the GitHub authorization URL.
func (g *GitHubOAuth) AuthURL() (string, error) {
	state, err := g.states.Issue()
	if err != nil {
		return "", err
	}
	return g.config.AuthCodeURL(state), nil
}

// Exchange validates the callback state and trades the code for a token.
func (g *GitHubOAuth) Exchange(ctx context.Context, state, code string) (*oauth2.Token, error) {
	if !g.states.Consume(state) {
		return nil, ErrOAuthStateMismatch
	}
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	return token, nil
}

// FetchUser loads the authenticated GitHub identity.
func (g *GitHubOAuth) FetchUser(ctx context.Context, token *oauth2.Token) (*GitHubUser, error) {
	client := gogithub.NewClient(g.config.Client(ctx, token))

	ghUser, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch github user: %w", err)
	}
	if ghUser.GetID() == 0 || ghUser.GetLogin() == "" {
		return nil, errors.New("github returned an incomplete user")
	}

	return &GitHubUser{
		ID:        ghUser.GetID(),
		Login:     ghUser.GetLogin(),
		Email:     ghUser.GetEmail(),
		AvatarURL: ghUser.GetAvatarURL(),
	}, nil
}

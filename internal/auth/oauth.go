package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/arefin/fellowdash/internal/apperror"
)

// Profile is the slice of the Twitter "users/me" response we care about.
// Twitter returns more fields — we only unmarshal what the account resolver
// needs: the stable user ID and the current handle.
type Profile struct {
	ID       string // Twitter's user ID — opaque, stable, never changes
	Username string // Twitter handle, e.g. "jack" (can change over time)
}

// Provider is the identity-provider capability the rest of the app depends
// on. Handlers and services only see this interface, so an alternate
// provider can be substituted without touching the account resolver.
//
// The verifier is the PKCE secret: the caller generates it before the
// redirect (GenerateVerifier), persists it across the handshake (cookie),
// and presents it again at exchange time.
type Provider interface {
	AuthURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (*Profile, error)
}

// twitterUserResponse mirrors the envelope of GET /2/users/me.
type twitterUserResponse struct {
	Data struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"data"`
}

// TwitterProvider implements Provider with the Twitter OAuth 2.0
// Authorization Code flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW WITH PKCE:
//  1. Our server redirects the user to Twitter's authorization endpoint with
//     our ClientID, the requested scopes, and a PKCE code challenge.
//  2. The user approves the request on Twitter.
//  3. Twitter redirects back to our CallbackURL with a short-lived "code".
//  4. Our server exchanges the code for an access token (server-to-server),
//     presenting the PKCE verifier that matches the original challenge.
//  5. Our server uses the token for one call to the users/me endpoint.
//
// Twitter requires PKCE on every authorization-code exchange, which is why
// the verifier is threaded through both Provider methods.
type TwitterProvider struct {
	config     *oauth2.Config
	profileURL string
}

// twitterEndpoint is Twitter's OAuth 2.0 endpoint pair.
// x/oauth2 ships predefined endpoints for GitHub, Google etc. but not for
// Twitter's v2 flow, so it's declared here.
var twitterEndpoint = oauth2.Endpoint{
	AuthURL:  "https://twitter.com/i/oauth2/authorize",
	TokenURL: "https://api.twitter.com/2/oauth2/token",
}

const twitterProfileURL = "https://api.twitter.com/2/users/me"

// NewTwitterProvider creates a TwitterProvider with the given credentials.
//
// ClientID and ClientSecret come from a "Web App" registration in the
// Twitter developer portal; callbackURL must exactly match one of the
// registered redirect URIs.
//
// Scopes:
//   - "users.read" — read the authenticated user's profile (id, username)
//   - "tweet.read" — required by Twitter for users/me even when no tweets
//     are fetched with this token
func NewTwitterProvider(clientID, clientSecret, callbackURL string) *TwitterProvider {
	return newTwitterProvider(clientID, clientSecret, callbackURL, twitterEndpoint, twitterProfileURL)
}

// newTwitterProvider lets the tests in this package point the provider at an
// httptest server instead of api.twitter.com.
func newTwitterProvider(clientID, clientSecret, callbackURL string, endpoint oauth2.Endpoint, profileURL string) *TwitterProvider {
	return &TwitterProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"users.read", "tweet.read"},
			Endpoint:     endpoint,
		},
		profileURL: profileURL,
	}
}

// AuthURL returns the URL to redirect the user to for authorization.
//
// The state is a random value the caller stores in a cookie before the
// redirect and checks again on callback — it proves the callback belongs to
// a flow this server started (CSRF protection). The verifier is hashed into
// the S256 code challenge Twitter will verify at exchange time.
func (p *TwitterProvider) AuthURL(state, verifier string) string {
	return p.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// Exchange completes the handshake: trades the authorization code for a
// Twitter profile.
//
// Steps:
//  1. Exchange code + PKCE verifier → OAuth access token (server-to-server)
//  2. Call users/me with the token
//  3. Unmarshal the profile and require a non-empty ID
//
// Every failure wraps apperror.ErrAuthExchange. On failure no account is
// created or mutated — the caller flashes a message and redirects to /login.
func (p *TwitterProvider) Exchange(ctx context.Context, code, verifier string) (*Profile, error) {
	token, err := p.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, apperror.AuthExchange(fmt.Errorf("exchanging OAuth code: %w", err))
	}

	// oauth2.Config.Client returns an *http.Client that attaches the
	// "Authorization: Bearer <token>" header to every request.
	client := p.config.Client(ctx, token)

	resp, err := client.Get(p.profileURL)
	if err != nil {
		return nil, apperror.AuthExchange(fmt.Errorf("calling users/me: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.AuthExchange(fmt.Errorf("users/me returned status %d", resp.StatusCode))
	}

	var payload twitterUserResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperror.AuthExchange(fmt.Errorf("decoding users/me response: %w", err))
	}

	if payload.Data.ID == "" {
		return nil, apperror.AuthExchange(fmt.Errorf("users/me response missing user id"))
	}

	return &Profile{
		ID:       payload.Data.ID,
		Username: payload.Data.Username,
	}, nil
}

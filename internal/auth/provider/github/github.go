package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"auth-portal/internal/auth"
	"auth-portal/internal/logger"

	"github.com/samber/oops"
	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"
)

const (
	providerName   = "github"
	defaultAPIBase = "https://api.github.com"
)

// Options overrides the public GitHub endpoints.
type Options struct {
	Endpoint   oauth2.Endpoint
	APIBaseURL string
}

type Provider struct {
	oauthConfig *oauth2.Config
	apiBase     string
}

func New(clientID, clientSecret, redirectURL string) (*Provider, error) {
	return NewWithOptions(clientID, clientSecret, redirectURL, Options{})
}

func NewWithOptions(clientID, clientSecret, redirectURL string, opts Options) (*Provider, error) {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("github oauth config missing required fields")
	}
	if opts.Endpoint.AuthURL == "" {
		opts.Endpoint = githuboauth.Endpoint
	}
	if opts.APIBaseURL == "" {
		opts.APIBaseURL = defaultAPIBase
	}

	return &Provider{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     opts.Endpoint,
			Scopes:       []string{"read:user", "user:email"},
		},
		apiBase: strings.TrimRight(opts.APIBaseURL, "/"),
	}, nil
}

func (p *Provider) Name() string {
	return providerName
}

// AuthCodeURL builds the OAuth authorization URL with PKCE parameters.
func (p *Provider) AuthCodeURL(state string, codeChallenge string) string {
	return p.oauthConfig.AuthCodeURL(
		state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// ExchangeCode trades the code for an access token and reads the
// profile plus the primary email from the REST API. GitHub has no
// id_token, so verification status comes from /user/emails.
func (p *Provider) ExchangeCode(
	ctx context.Context,
	code string,
	codeVerifier string,
) (*auth.Identity, error) {

	token, err := p.oauthConfig.Exchange(
		ctx,
		code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		return nil, oops.Code("OAUTH_EXCHANGE_FAILED").With("provider", providerName).Wrapf(err, "github token exchange")
	}

	client := p.oauthConfig.Client(ctx, token)

	var user githubUser
	if err := p.getJSON(ctx, client, "/user", &user); err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, oops.Code("OAUTH_IDENTITY_INCOMPLETE").Errorf("github user missing id")
	}

	var emails []githubEmail
	if err := p.getJSON(ctx, client, "/user/emails", &emails); err != nil {
		return nil, err
	}

	email, verified := primaryEmail(emails)
	if email == "" {
		// profile email is public but never asserted as verified
		email = user.Email
	}
	if email == "" {
		return nil, oops.Code("OAUTH_IDENTITY_INCOMPLETE").Errorf("github account has no usable email")
	}

	name := user.Name
	if name == "" {
		name = user.Login
	}

	logger.Info("github user fetched", map[string]any{
		"email_verified": verified,
	})

	return &auth.Identity{
		Provider:       providerName,
		ProviderUserID: strconv.FormatInt(user.ID, 10),
		Email:          email,
		EmailVerified:  verified,
		Name:           name,
		Image:          user.AvatarURL,
	}, nil
}

func primaryEmail(emails []githubEmail) (string, bool) {
	for _, e := range emails {
		if e.Primary {
			return e.Email, e.Verified
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, true
		}
	}
	return "", false
}

func (p *Provider) getJSON(ctx context.Context, client *http.Client, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBase+path, nil)
	if err != nil {
		return oops.Code("OAUTH_PROFILE_FAILED").Wrap(err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return oops.Code("OAUTH_PROFILE_FAILED").With("path", path).Wrapf(err, "github api request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return oops.Code("OAUTH_PROFILE_FAILED").With("path", path, "status", resp.StatusCode).Errorf("github api returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return oops.Code("OAUTH_PROFILE_FAILED").With("path", path).Wrapf(err, "decode github response")
	}
	return nil
}

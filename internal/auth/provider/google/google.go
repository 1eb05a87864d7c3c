package google

import (
	"context"
	"errors"

	"auth-portal/internal/auth"
	"auth-portal/internal/logger"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/samber/oops"
	"golang.org/x/oauth2"
)

const (
	providerName = "google"
	issuerURL    = "https://accounts.google.com"
)

type Provider struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
}

// New discovers Google's OIDC endpoints and builds the provider.
func New(
	ctx context.Context,
	clientID string,
	clientSecret string,
	redirectURL string,
) (*Provider, error) {
	return newWithIssuer(ctx, issuerURL, clientID, clientSecret, redirectURL)
}

func newWithIssuer(
	ctx context.Context,
	issuer string,
	clientID string,
	clientSecret string,
	redirectURL string,
) (*Provider, error) {

	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("google oauth config missing required fields")
	}

	oidcProvider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, oops.Code("OIDC_DISCOVERY_FAILED").With("issuer", issuer).Wrapf(err, "init google oidc provider")
	}

	verifier := oidcProvider.Verifier(&oidc.Config{
		ClientID: clientID,
	})

	oauthCfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     oidcProvider.Endpoint(),
		Scopes: []string{
			oidc.ScopeOpenID,
			"profile",
			"email",
		},
	}

	return &Provider{
		oauthConfig: oauthCfg,
		verifier:    verifier,
	}, nil
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return providerName
}

// AuthCodeURL builds the OAuth authorization URL with PKCE parameters.
func (p *Provider) AuthCodeURL(state string, codeChallenge string) string {
	return p.oauthConfig.AuthCodeURL(
		state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

type idClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (c idClaims) identity() (*auth.Identity, error) {
	if c.Subject == "" || c.Email == "" {
		return nil, oops.Code("OAUTH_IDENTITY_INCOMPLETE").Errorf("google id_token missing required claims")
	}
	return &auth.Identity{
		Provider:       providerName,
		ProviderUserID: c.Subject,
		Email:          c.Email,
		EmailVerified:  c.EmailVerified,
		Name:           c.Name,
		Image:          c.Picture,
	}, nil
}

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
		return nil, oops.Code("OAUTH_EXCHANGE_FAILED").With("provider", providerName).Wrapf(err, "google token exchange")
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, oops.Code("OAUTH_EXCHANGE_FAILED").With("provider", providerName).Errorf("google did not return id_token")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, oops.Code("OAUTH_EXCHANGE_FAILED").With("provider", providerName).Wrapf(err, "verify google id_token")
	}

	var claims idClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, oops.Code("OAUTH_EXCHANGE_FAILED").With("provider", providerName).Wrapf(err, "parse google id_token claims")
	}

	logger.Info("google oidc verified", map[string]any{
		"issuer":         idToken.Issuer,
		"email_verified": claims.EmailVerified,
		"expiry_unix":    idToken.Expiry.Unix(),
	})

	return claims.identity()
}

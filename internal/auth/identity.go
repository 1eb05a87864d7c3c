package auth

// Identity represents a normalized external authentication identity
// returned by an OAuth provider. It contains facts only, no decisions.
type Identity struct {
	Provider       string // "google" or "github"
	ProviderUserID string // provider-scoped unique user identifier
	Email          string // primary email returned by provider
	EmailVerified  bool   // whether provider asserts email ownership
	Name           string // display name, may be empty
	Image          string // avatar URL, may be empty
}

package handler

import (
	"crypto/sha256"
	"encoding/base64"

	"auth-portal/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"
)

const pkceCookieName = "__oauth_pkce"

func generatePKCE(c *gin.Context, secure bool) (verifier string, challenge string, err error) {
	verifier, err = utils.RandomString(32)
	if err != nil {
		return "", "", oops.Code("PKCE_FAILED").Wrap(err)
	}

	hash := sha256.Sum256([]byte(verifier))
	challenge = base64.RawURLEncoding.EncodeToString(hash[:])

	setFlowCookie(c, pkceCookieName, verifier, secure)

	return verifier, challenge, nil
}

func getPKCEVerifier(c *gin.Context) string {
	return getFlowCookie(c, pkceCookieName)
}

package handler

import (
	"net/http"

	"auth-portal/internal/auth/otp"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) SignInEmail(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c)
		return
	}

	res, err := h.auth.SignInEmail(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	h.writeSignedIn(c, http.StatusOK, res)
}

type sendOTPRequest struct {
	Email string `json:"email"`
	Type  string `json:"type"`
}

func (h *Handler) SendVerificationOTP(c *gin.Context) {
	var req sendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c)
		return
	}

	typ, err := otp.ParseType(req.Type)
	if err != nil {
		writeError(c, err)
		return
	}

	if err := h.auth.SendVerificationOTP(c.Request.Context(), req.Email, typ); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type otpRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (h *Handler) SignInEmailOTP(c *gin.Context) {
	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c)
		return
	}

	res, err := h.auth.SignInEmailOTP(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		writeError(c, err)
		return
	}

	h.writeSignedIn(c, http.StatusOK, res)
}

func (h *Handler) VerifyEmail(c *gin.Context) {
	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c)
		return
	}

	user, err := h.auth.VerifyEmail(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": true, "user": user})
}

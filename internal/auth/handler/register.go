package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// registerRequest deliberately has no role field; unknown JSON keys
// such as "role" are dropped by the decoder.
type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) SignUpEmail(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c)
		return
	}

	res, err := h.auth.SignUpEmail(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	h.writeSignedIn(c, http.StatusOK, res)
}

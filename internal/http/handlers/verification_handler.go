// Verification HTTP handlers.
//
// This file exposes the endpoint that issues email verification codes:
//   - POST /verifications (send a one-time code)
//
// The code itself never appears in the response; it travels by email only.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/erickosgey/safari-planner-backend/internal/services"
)

// IssueVerificationRequest is the JSON payload for requesting a code.
type IssueVerificationRequest struct {
	Email string `json:"email" binding:"required" example:"jane@example.com"`
}

// IssueVerificationResponse acknowledges that a code was sent.
type IssueVerificationResponse struct {
	Message string `json:"message" example:"verification code sent"`
}

// IssueVerification godoc
// @ID          issueVerification
// @Summary     Send an email verification code
// @Description Generates a one-time code for the address and delivers it by email. A new request replaces any previously issued code.
// @Tags        Verifications
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.IssueVerificationRequest  true  "Target address"
//
// @Success     202  {object}  handlers.IssueVerificationResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /verifications [post]
func (h *Handlers) IssueVerification(c *gin.Context) {
	var req IssueVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email required")
		return
	}

	if err := h.verSvc.Issue(c.Request.Context(), req.Email); err != nil {
		if errors.Is(err, services.ErrInvalidRequest) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		failServer(c, ErrCodeVerificationFailed, err)
		return
	}
	ok(c, http.StatusAccepted, IssueVerificationResponse{Message: "verification code sent"})
}

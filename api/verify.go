package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/loungeaccess-backend/customer"
	"github.com/semanticallynull/loungeaccess-backend/verify"
)

type verificationError struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type verificationResponse struct {
	State         verify.State        `json:"state"`
	Customer      *customer.Customer  `json:"customer,omitempty"`
	Eligibility   *verify.Eligibility `json:"eligibility,omitempty"`
	Error         *verificationError  `json:"error,omitempty"`
	VisitRecorded bool                `json:"visitRecorded"`
}

func toVerificationResponse(v *verify.Verification) verificationResponse {
	resp := verificationResponse{
		State:         v.State,
		Customer:      v.Customer,
		VisitRecorded: v.VisitRecorded,
	}
	if v.Customer != nil {
		e := v.Eligibility
		resp.Eligibility = &e
	}
	if v.Err != nil {
		resp.Error = &verificationError{Reason: v.Err.Reason.String(), Message: v.Err.Error()}
	}
	return resp
}

// verifyHandler resolves a scanned verification link. Failed lookups are a regular
// outcome of the page and are reported with state "error" and status 200.
func (a *API) verifyHandler(c *gin.Context) {
	v, err := a.vw.Resolve(c.Request.Context(), verify.RequestFromQuery(c.Request.URL.Query()))
	if err != nil {
		respondError(c, err, "failed to resolve verification")
		return
	}

	c.JSON(http.StatusOK, toVerificationResponse(v))
}

func (a *API) allowHandler(c *gin.Context) {
	a.decide(c, a.vw.Allow)
}

func (a *API) denyHandler(c *gin.Context) {
	a.decide(c, a.vw.Deny)
}

func (a *API) decide(c *gin.Context, decision func(ctx context.Context, v *verify.Verification) error) {
	ctx := c.Request.Context()

	v, err := a.vw.Resolve(ctx, verify.RequestFromQuery(c.Request.URL.Query()))
	if err != nil {
		respondError(c, err, "failed to resolve verification")
		return
	}
	if v.State == verify.Failed {
		c.JSON(http.StatusNotFound, gin.H{
			"code":         "VERIFICATION_FAILED",
			"message":      v.Err.Error(),
			"verification": toVerificationResponse(v),
		})
		return
	}

	err = decision(ctx, v)
	if errors.Is(err, verify.ErrTransitionNotAllowed) {
		c.JSON(http.StatusConflict, gin.H{
			"code":         "ACCESS_NOT_ALLOWED",
			"message":      "Customer is not eligible for lounge access",
			"verification": toVerificationResponse(v),
		})
		return
	}
	if err != nil {
		respondError(c, err, "failed to record access decision")
		return
	}

	c.JSON(http.StatusOK, toVerificationResponse(v))
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"github.com/semanticallynull/loungeaccess-backend/customer"
)

const qrCodeSize = 256

type cardResponse struct {
	Customer        customer.Customer `json:"customer"`
	FullName        string            `json:"fullName"`
	VerificationURL string            `json:"verificationUrl"`
	QRCodeURL       string            `json:"qrCodeUrl"`
	Expired         bool              `json:"expired"`
	DaysUntilExpiry int               `json:"daysUntilExpiry"`
}

func (a *API) cardHandler(c *gin.Context) {
	found, err := a.cr.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "failed to get customer")
		return
	}

	now := a.cr.Now()
	c.JSON(http.StatusOK, cardResponse{
		Customer:        found,
		FullName:        found.FullName(),
		VerificationURL: a.links.ForMembershipNumber(found.MembershipNumber),
		QRCodeURL:       "/api/customers/" + found.ID + "/qrcode.png",
		Expired:         found.ExpiredAt(now),
		DaysUntilExpiry: found.DaysUntilExpiry(now),
	})
}

// qrCodeHandler renders the verification link as a PNG. An unknown id still yields a
// code, pointing at the customer-not-found verification page.
func (a *API) qrCodeHandler(c *gin.Context) {
	link, err := a.links.ForCustomer(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "failed to build verification link")
		return
	}

	png, err := qrcode.Encode(link, qrcode.Medium, qrCodeSize)
	if err != nil {
		respondError(c, err, "failed to render qr code")
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"github.com/moyoez/localshare-go/tool"
)

const (
	defaultQRSize = 256
	maxQRSize     = 512
)

// QRCode returns a PNG QR code of the client URL so a phone on the same
// network can open it. ?data= overrides the content, ?size=256 or 256x256
// sets the edge length.
// GET /admin/qrcode
func (ac *AdminController) QRCode(c *gin.Context) {
	data := c.DefaultQuery("data", ac.ClientURL)
	if data == "" {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Missing required parameter: data"))
		return
	}

	size := parseSize(c.Query("size"))
	if size <= 0 {
		size = defaultQRSize
	}
	size = min(size, maxQRSize)

	png, err := qrcode.Encode(data, qrcode.Medium, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to encode QR code: "+err.Error()))
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// parseSize reads "256x256" or "256".
func parseSize(s string) int {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, 'x'); idx > 0 {
		s = strings.TrimSpace(s[:idx])
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

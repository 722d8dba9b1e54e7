package handler

import (
	"embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed web/index.html
var webFS embed.FS

// StaticHandler serves the embedded dashboard page.
type StaticHandler struct{}

func (h *StaticHandler) Register(r *gin.Engine) {
	r.GET("/", h.index)
}

func (h *StaticHandler) index(c *gin.Context) {
	page, err := webFS.ReadFile("web/index.html")
	if err != nil {
		Error(c, http.StatusInternalServerError, "dashboard page unavailable", nil)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

package httpserver

import (
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/localstore"

	"github.com/gin-gonic/gin"
)

const (
	themeLight = "light"
	themeDark  = "dark"
)

func (h *handlers) getTheme(c *gin.Context) {
	theme := themeLight
	if key := identityFrom(c).SessionKey(); key != "" {
		var stored string
		ok, err := h.deps.Store.Get(c.Request.Context(), localstore.ThemeKey(key), &stored)
		if err != nil {
			h.logger.Printf("http: theme load session=%s error=%v", key, err)
		} else if ok && (stored == themeLight || stored == themeDark) {
			theme = stored
		}
	}
	respond(c, http.StatusOK, gin.H{"theme": theme})
}

func (h *handlers) putTheme(c *gin.Context) {
	var req struct {
		Theme string `json:"theme"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Theme != themeLight && req.Theme != themeDark {
		writeError(c, h.logger, domain.Validation("theme must be light or dark"))
		return
	}
	key := localstore.ThemeKey(identityFrom(c).SessionKey())
	if err := h.deps.Store.Set(c.Request.Context(), key, req.Theme, 0); err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"theme": req.Theme})
}

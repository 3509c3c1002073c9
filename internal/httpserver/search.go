package httpserver

import (
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/service/search"

	"github.com/gin-gonic/gin"
)

func (h *handlers) search(c *gin.Context) {
	f, err := search.ParseFacets(c.Request.URL.Query())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	res := h.deps.SearchSvc.Search(c.Request.Context(), identityFrom(c), f, sinkFrom(c))
	respond(c, http.StatusOK, res)
}

func (h *handlers) trending(c *gin.Context) {
	respond(c, http.StatusOK, h.deps.SearchSvc.Trending(c.Request.Context(), queryInt(c, "limit", 10)))
}

func (h *handlers) recentSearches(c *gin.Context) {
	respond(c, http.StatusOK, h.deps.SearchSvc.Recent(c.Request.Context(), identityFrom(c)))
}

func (h *handlers) searchHistory(c *gin.Context) {
	entries, err := h.deps.SearchSvc.History(c.Request.Context(), identityFrom(c).CustomerID, queryInt(c, "limit", 20))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if entries == nil {
		entries = []domain.SearchHistoryEntry{}
	}
	respond(c, http.StatusOK, entries)
}

func (h *handlers) clearSearchHistory(c *gin.Context) {
	if err := h.deps.SearchSvc.ClearHistory(c.Request.Context(), identityFrom(c)); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Join-image HTTP handler.
//
// GET /join/{id}.png renders the shareable image for a room. The route is
// registered with the ".png" suffix baked into the parameter, so the handler
// strips it before use.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/alphatexting/go-backend/internal/joincode"
)

// JoinImage serves the PNG visual token for a session. The image only depends
// on the join URL, so it is served cacheable for a day.
func (h *Handlers) JoinImage(c *gin.Context) {
	sid := strings.TrimSuffix(c.Param("id"), ".png")
	if strings.TrimSpace(sid) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id required")
		return
	}

	img, err := joincode.Generate(h.baseURL + "/join/" + sid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/png", img)
}

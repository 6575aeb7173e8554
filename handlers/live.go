package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/irisdrone/moviedb/services"
)

func (h *Handler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowAll(h.origins) {
				return true
			}
			for _, o := range h.origins {
				if o == origin {
					return true
				}
			}
			return false
		},
	}
}

// HandleRatingsWebSocket handles GET /ws/ratings
func (h *Handler) HandleRatingsWebSocket(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Live feed not enabled"})
		return
	}

	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("ip", c.ClientIP()).Msg("websocket upgrade failed")
		return
	}

	client := services.NewRatingClient(h.hub, conn, c.ClientIP())
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// GetLiveStats handles GET /api/live/stats
func (h *Handler) GetLiveStats(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}

	resp := gin.H{
		"enabled": true,
		"hub":     h.hub.Stats(),
	}
	if h.brokerStats != nil {
		resp["broker"] = h.brokerStats()
	}
	c.JSON(http.StatusOK, resp)
}

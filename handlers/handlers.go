// Package handlers exposes the HTTP API on gin
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/irisdrone/moviedb/metrics"
	"github.com/irisdrone/moviedb/services"
)

// Deps are the collaborators of the HTTP layer. Hub and BrokerStats are
// optional and nil when the live feed is disabled.
type Deps struct {
	Auth           *services.AuthService
	Movies         *services.MovieService
	Reviews        *services.ReviewService
	Genres         *services.GenreService
	Store          services.Store
	Hub            *services.RatingHub
	BrokerStats    func() interface{}
	AllowedOrigins []string
	Log            zerolog.Logger
}

// Handler holds the request handlers
type Handler struct {
	auth        *services.AuthService
	movies      *services.MovieService
	reviews     *services.ReviewService
	genres      *services.GenreService
	store       services.Store
	hub         *services.RatingHub
	brokerStats func() interface{}
	origins     []string
	log         zerolog.Logger
}

func New(d Deps) *Handler {
	return &Handler{
		auth:        d.Auth,
		movies:      d.Movies,
		reviews:     d.Reviews,
		genres:      d.Genres,
		store:       d.Store,
		hub:         d.Hub,
		brokerStats: d.BrokerStats,
		origins:     d.AllowedOrigins,
		log:         d.Log.With().Str("component", "http").Logger(),
	}
}

// Router builds the gin engine with middleware and every route
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(h.log), metrics.Middleware())
	if cfg, ok := corsConfig(h.origins); ok {
		router.Use(cors.New(cfg))
	}

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// WebSocket route for live ratings (outside /api group)
	router.GET("/ws/ratings", h.HandleRatingsWebSocket)

	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", h.Register)
			authGroup.POST("/login", h.Login)
			authGroup.GET("/me", h.RequireAuth(), h.Me)
		}

		movies := api.Group("/movies")
		{
			movies.GET("", h.ListMovies)
			movies.GET("/:id", h.GetMovie)
			movies.GET("/:id/reviews", h.ListMovieReviews)
			movies.GET("/:id/genres", h.GetMovieGenres)

			admin := movies.Group("", h.RequireAuth(), h.RequireAdmin())
			admin.POST("", h.CreateMovie)
			admin.PUT("/:id", h.UpdateMovie)
			admin.DELETE("/:id", h.DeleteMovie)
			admin.POST("/:id/genres", h.AddMovieGenres)
			admin.PUT("/:id/genres", h.ReplaceMovieGenres)
			admin.DELETE("/:id/genres/:genre_id", h.RemoveMovieGenre)
		}

		genres := api.Group("/genres")
		{
			genres.GET("", h.ListGenres)
			genres.GET("/:id", h.GetGenre)

			admin := genres.Group("", h.RequireAuth(), h.RequireAdmin())
			admin.POST("", h.CreateGenre)
			admin.PUT("/:id", h.UpdateGenre)
			admin.DELETE("/:id", h.DeleteGenre)
		}

		reviews := api.Group("/reviews")
		{
			reviews.GET("/:id", h.GetReview)

			authed := reviews.Group("", h.RequireAuth())
			authed.POST("", h.CreateReview)
			authed.PUT("/:id", h.UpdateReview)
			authed.DELETE("/:id", h.DeleteReview)
		}

		api.GET("/live/stats", h.GetLiveStats)
	}

	return router
}

func corsConfig(origins []string) (cors.Config, bool) {
	if len(origins) == 0 {
		return cors.Config{}, false
	}
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader}
	cfg.ExposeHeaders = []string{requestIDHeader}
	cfg.AllowCredentials = true
	cfg.MaxAge = 12 * time.Hour
	if allowAll(origins) {
		cfg.AllowCredentials = false
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg, true
}

func allowAll(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// Health reports whether the store is reachable
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.log.Error().Err(err).Msg("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  "database unreachable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"live_feed": h.hub != nil,
	})
}

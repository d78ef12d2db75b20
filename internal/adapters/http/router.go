package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"dmrelay/internal/adapters/ws"
	"dmrelay/internal/config"
	"dmrelay/internal/core"
	"dmrelay/internal/domain"
	"dmrelay/internal/identity"
)

func SetupRouter(ctx context.Context, cfg *config.Config, ctl *ws.Controller, store core.MessageStore) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	api.GET("/ws", func(c *gin.Context) {
		ctl.HandleWS(ctx, c)
	})

	// Thin read surface over the message store; the session core itself only
	// ever appends.
	api.GET("/history/:otherUserId", historyHandler(ctl.Verifier, store))

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}

func historyHandler(verifier identity.Verifier, store core.MessageStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, err := verifier.Verify(ws.BearerToken(c))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid identity"})
			return
		}
		other := domain.UserID(c.Param("otherUserId"))
		ch, err := domain.NewChannelID(uid, other)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}
		msgs, err := store.Query(c.Request.Context(), ch)
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Str("channel", string(ch)).Msg("history query")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		if msgs == nil {
			msgs = []domain.Message{}
		}
		c.JSON(http.StatusOK, gin.H{"channelId": ch, "messages": msgs})
	}
}

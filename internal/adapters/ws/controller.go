package ws

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"dmrelay/internal/app"
	"dmrelay/internal/config"
	"dmrelay/internal/domain"
	"dmrelay/internal/identity"
)

const sendBuffer = 64

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Controller struct {
	Sup      *app.Supervisor
	Messages *app.MessageRelay
	Typing   *app.TypingRelay
	Verifier identity.Verifier

	cfg      *config.Config
	limiter  *SendRateLimiter
	validate *validator.Validate
}

func NewController(cfg *config.Config, sup *app.Supervisor, messages *app.MessageRelay, typing *app.TypingRelay, verifier identity.Verifier) *Controller {
	return &Controller{
		Sup:      sup,
		Messages: messages,
		Typing:   typing,
		Verifier: verifier,
		cfg:      cfg,
		limiter:  NewSendRateLimiter(cfg.SendLimit, cfg.SendWindow),
		validate: validator.New(),
	}
}

// BearerToken pulls the handshake credential from the query string or the
// Authorization header.
func BearerToken(c *gin.Context) string {
	if t := c.Query("token"); t != "" {
		return t
	}
	h := c.GetHeader("Authorization")
	if after, ok := strings.CutPrefix(h, "Bearer "); ok {
		return after
	}
	return ""
}

// HandleWS verifies the identity claim, upgrades the connection and starts
// the pumps. A connection without a valid claim never becomes active.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	uid, err := ctl.Verifier.Verify(BearerToken(c))
	if err != nil {
		log.Warn().Err(err).Str("module", "ws").Str("remote", c.ClientIP()).Msg("handshake rejected")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid identity"})
		return
	}

	sock, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("ws upgrade")
		return
	}
	sock.SetReadLimit(ctl.cfg.ReadLimit)

	cid := domain.ConnID(uuid.NewString())
	conn := newWSConn(sock, sendBuffer)
	log.Info().Str("module", "ws").Str("conn", string(cid)).Str("user", string(uid)).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	ctl.Sup.Activate(cid, uid, conn)

	go ctl.writePump(ctx, cancel, conn)
	go ctl.readPump(ctx, cancel, cid, uid, conn)
}

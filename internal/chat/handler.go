package chat

import (
	"net/http"
	"time"

	"manas-backend/internal/crisis"
	"manas-backend/internal/inference"
	"manas-backend/internal/models"
	"manas-backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler upgrades GET /ws/chat connections into streaming sessions.
type Handler struct {
	tokens         *service.TokenAuthenticator
	gateway        *inference.Gateway
	reporter       *crisis.Reporter
	allowAnonymous bool
	crisisSeverity int
	idleTimeout    time.Duration
	upgrader       websocket.Upgrader
	logger         *zap.Logger
}

func NewHandler(tokens *service.TokenAuthenticator, gateway *inference.Gateway, reporter *crisis.Reporter, allowAnonymous bool, crisisSeverity int, idleTimeout time.Duration, logger *zap.Logger) *Handler {
	return &Handler{
		tokens:         tokens,
		gateway:        gateway,
		reporter:       reporter,
		allowAnonymous: allowAnonymous,
		crisisSeverity: crisisSeverity,
		idleTimeout:    idleTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The browser client sends the token as a query param, not a
			// header, so origin checking is delegated to the CORS layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Serve authenticates the handshake and runs the session. Browsers cannot set
// headers on websocket dials, so the token rides in ?token=. A bad token is an
// HTTP 401 before the upgrade unless anonymous access is enabled, in which
// case the session runs under an anonymous identity.
func (h *Handler) Serve(c *gin.Context) {
	identity, err := h.tokens.Authenticate(c.Query("token"))
	if err != nil {
		if !h.allowAnonymous {
			h.logger.Info("Rejected websocket handshake", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
			return
		}
		identity = models.AnonymousIdentity()
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	session := newSession(uuid.NewString(), identity, conn, h.gateway, h.reporter, h.crisisSeverity, h.idleTimeout, h.logger)
	session.run()
}

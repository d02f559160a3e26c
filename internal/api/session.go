package api

import (
	"net/http"

	"medichat-client/internal/service"

	"github.com/gin-gonic/gin"
)

// SessionController handles session lifecycle endpoints
type SessionController struct {
	chatService *service.ChatService
}

// NewSessionController creates a new session controller
func NewSessionController(chatService *service.ChatService) *SessionController {
	return &SessionController{chatService: chatService}
}

// RegisterRoutes registers the routes for the session controller
func (c *SessionController) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/sessions", c.ListSessions)
	group.POST("/sessions", c.CreateSession)
	group.GET("/sessions/:id", c.GetSession)
	group.DELETE("/sessions/:id", c.DeleteSession)
}

// ListSessions returns the durable history in persisted order
func (c *SessionController) ListSessions(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"sessions": c.chatService.History()})
}

// CreateSession starts a new empty conversation
func (c *SessionController) CreateSession(ctx *gin.Context) {
	sess := c.chatService.NewSession()
	ctx.JSON(http.StatusCreated, gin.H{"session": sess})
}

// GetSession returns one conversation with its full message log
func (c *SessionController) GetSession(ctx *gin.Context) {
	sess, err := c.chatService.Session(ctx.Param("id"))
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"session": sess})
}

// DeleteSession removes a session from history. The response carries the
// replacement session so a client deleting its active conversation can
// switch without a second round trip.
func (c *SessionController) DeleteSession(ctx *gin.Context) {
	replacement, err := c.chatService.DeleteSession(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"deleted":  ctx.Param("id"),
		"active":   replacement,
		"sessions": c.chatService.History(),
	})
}

package api

import (
	"net/http"

	"medichat-client/internal/service"
	"medichat-client/internal/suggest"
	apperrors "medichat-client/pkg/errors"

	"github.com/gin-gonic/gin"
)

// DirectoryController handles medicine directory endpoints: suggestions,
// detail lookups and backend status passthrough
type DirectoryController struct {
	chatService *service.ChatService
	suggestions *suggest.Engine
}

// NewDirectoryController creates a new directory controller
func NewDirectoryController(chatService *service.ChatService, suggestions *suggest.Engine) *DirectoryController {
	return &DirectoryController{
		chatService: chatService,
		suggestions: suggestions,
	}
}

// RegisterRoutes registers the routes for the directory controller
func (c *DirectoryController) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/suggestions", c.GetSuggestions)
	group.GET("/medicines/:name", c.GetMedicine)
	group.GET("/agents/status", c.GetAgentsStatus)
}

// GetSuggestions returns up to the configured number of name matches for
// the q parameter. An empty q yields an empty list.
func (c *DirectoryController) GetSuggestions(ctx *gin.Context) {
	names := c.suggestions.Suggest(ctx.Request.Context(), ctx.Query("q"))
	ctx.JSON(http.StatusOK, gin.H{"suggestions": names})
}

// GetMedicine returns the raw database record for one medicine
func (c *DirectoryController) GetMedicine(ctx *gin.Context) {
	name := ctx.Param("name")
	if name == "" {
		ctx.Error(apperrors.NewBadRequestError("INVALID_NAME", "Medicine name is required"))
		return
	}

	record, err := c.chatService.MedicineDetail(ctx.Request.Context(), name)
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, record)
}

// GetAgentsStatus passes the backend agent system status through
func (c *DirectoryController) GetAgentsStatus(ctx *gin.Context) {
	status, err := c.chatService.AgentsStatus(ctx.Request.Context())
	if err != nil {
		ctx.Error(apperrors.NewError(http.StatusBadGateway, apperrors.CodeBackendUnreachable,
			"The medicine service is unreachable right now."))
		return
	}
	ctx.JSON(http.StatusOK, status)
}

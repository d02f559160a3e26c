package api

import (
	"errors"
	"net/http"

	"medichat-client/internal/capture"
	"medichat-client/internal/service"
	"medichat-client/pkg/config"
	apperrors "medichat-client/pkg/errors"

	"github.com/gin-gonic/gin"
)

// ChatController handles query turn submission endpoints
type ChatController struct {
	chatService *service.ChatService
}

// NewChatController creates a new chat controller
func NewChatController(chatService *service.ChatService) *ChatController {
	return &ChatController{chatService: chatService}
}

// RegisterRoutes registers the routes for the chat controller
func (c *ChatController) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/sessions/:id/query", c.SubmitQuery)
	group.POST("/sessions/:id/image", c.SubmitImage)
}

type queryRequest struct {
	Query string `json:"query"`
}

// SubmitQuery runs a text turn against the session
func (c *ChatController) SubmitQuery(ctx *gin.Context) {
	sessionID := ctx.Param("id")

	var req queryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.Error(apperrors.NewBadRequestError("INVALID_BODY", "Request body must be JSON with a query field"))
		return
	}

	cfg := config.Get()
	input, err := capture.Text(req.Query, cfg.Features.MaxQueryLength)
	if err != nil {
		ctx.Error(apperrors.NewInputRejectedError("Please enter a medicine name or question."))
		return
	}

	msg, err := c.chatService.Submit(ctx.Request.Context(), sessionID, input)
	if err != nil {
		ctx.Error(err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"message":    msg,
	})
}

// SubmitImage runs an image turn against the session. The image arrives as
// a multipart form field named "image", either a chosen file or a captured
// camera frame.
func (c *ChatController) SubmitImage(ctx *gin.Context) {
	sessionID := ctx.Param("id")

	fileHeader, err := ctx.FormFile("image")
	if err != nil {
		ctx.Error(apperrors.NewInputRejectedError("No image provided"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		ctx.Error(apperrors.NewBadRequestError("INVALID_IMAGE", "Could not read the uploaded image"))
		return
	}
	defer file.Close()

	cfg := config.Get()
	input, err := capture.ImageFile(fileHeader.Filename, file, cfg.Features.MaxImageSize)
	if err != nil {
		switch {
		case errors.Is(err, capture.ErrBadImageType):
			ctx.Error(apperrors.NewInputRejectedError("Invalid file type. Only .jpg, .jpeg, .png are allowed."))
		case errors.Is(err, capture.ErrImageTooLarge):
			ctx.Error(apperrors.NewInputRejectedError("The image is too large. Maximum size is 10MB."))
		default:
			ctx.Error(apperrors.NewInputRejectedError("No image provided"))
		}
		return
	}

	msg, err := c.chatService.Submit(ctx.Request.Context(), sessionID, input)
	if err != nil {
		ctx.Error(err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"message":    msg,
	})
}

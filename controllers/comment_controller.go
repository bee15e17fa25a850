package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dailychallenge/server/errs"
	"github.com/dailychallenge/server/models"
	"github.com/dailychallenge/server/services"
	"github.com/dailychallenge/server/utils"
)

const (
	commentPart      = "commentDto"
	commentImagePart = "commentDtoImg"
)

// CommentController exposes comment CRUD, likes and the two comment listings.
type CommentController struct {
	comments *services.CommentService
}

func NewCommentController(comments *services.CommentService) *CommentController {
	return &CommentController{comments: comments}
}

type commentRequest struct {
	Content string `json:"content"`
}

type commentResponse struct {
	ID             uint      `json:"id"`
	Content        string    `json:"content"`
	Likes          int       `json:"likes"`
	CreatedAt      time.Time `json:"createdAt"`
	CommentImgURLs []string  `json:"commentImgUrls"`
	UserID         uint      `json:"userId"`
	ChallengeID    uint      `json:"challengeId"`
}

func newCommentResponse(c *models.Comment) commentResponse {
	return commentResponse{
		ID:             c.ID,
		Content:        c.Content,
		Likes:          c.Likes,
		CreatedAt:      c.CreatedAt,
		CommentImgURLs: c.ImageURLs(),
		UserID:         c.UserID,
		ChallengeID:    c.ChallengeID,
	}
}

// Create posts a comment on a challenge. POST /:id/comment/new
func (cc *CommentController) Create(ctx *gin.Context) {
	challengeID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	a, ok := actor(ctx)
	if !ok {
		return
	}

	var req commentRequest
	images, ok := bindPayload(ctx, &req, commentPart, commentImagePart)
	if !ok {
		return
	}

	comment, err := cc.comments.Create(ctx.Request.Context(), challengeID, a.UserID, req.Content, images)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, newCommentResponse(comment))
}

// Update edits the caller's comment. POST /:id/comment/:commentId
func (cc *CommentController) Update(ctx *gin.Context) {
	commentID, ok := parseID(ctx, "commentId")
	if !ok {
		return
	}
	a, ok := actor(ctx)
	if !ok {
		return
	}

	var req commentRequest
	images, ok := bindPayload(ctx, &req, commentPart, commentImagePart)
	if !ok {
		return
	}

	comment, err := cc.comments.Update(ctx.Request.Context(), commentID, a, req.Content, images)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, newCommentResponse(comment))
}

// Delete removes the caller's comment. DELETE /:id/comment/:commentId
func (cc *CommentController) Delete(ctx *gin.Context) {
	commentID, ok := parseID(ctx, "commentId")
	if !ok {
		return
	}
	a, ok := actor(ctx)
	if !ok {
		return
	}

	if err := cc.comments.Delete(ctx.Request.Context(), commentID, a); err != nil {
		utils.Fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "댓글이 삭제되었습니다."})
}

// Like toggles the caller's like. POST /:id/like?isLike=0|1
func (cc *CommentController) Like(ctx *gin.Context) {
	commentID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	a, ok := actor(ctx)
	if !ok {
		return
	}

	isLike, err := strconv.Atoi(strings.TrimSpace(ctx.Query("isLike")))
	if err != nil {
		utils.Fail(ctx, errs.Validation("isLike", "isLike must be 0 or 1"))
		return
	}

	likes, err := cc.comments.ToggleLike(ctx.Request.Context(), commentID, a.UserID, isLike)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"isLike": likes})
}

// ListByChallenge pages a challenge's comments. GET /:id/comment
func (cc *CommentController) ListByChallenge(ctx *gin.Context) {
	challengeID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	page, err := cc.comments.ListByChallenge(ctx.Request.Context(), challengeID, parsePagination(ctx))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, page)
}

// ListByUser pages one user's comments across challenges. GET /user/:userId/comment
func (cc *CommentController) ListByUser(ctx *gin.Context) {
	userID, ok := parseID(ctx, "userId")
	if !ok {
		return
	}
	page, err := cc.comments.ListByUser(ctx.Request.Context(), userID, parsePagination(ctx))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, page)
}

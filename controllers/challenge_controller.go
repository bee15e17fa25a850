package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dailychallenge/server/models"
	"github.com/dailychallenge/server/services"
	"github.com/dailychallenge/server/utils"
)

const (
	challengePart      = "challengeDto"
	challengeImagePart = "challengeImg"

	defaultPopularHashtags = 10
)

// ChallengeController serves challenge CRUD, search and participation.
type ChallengeController struct {
	challenges *services.ChallengeService
	joins      *services.UserChallengeService
	hashtags   *services.HashtagService
}

func NewChallengeController(challenges *services.ChallengeService, joins *services.UserChallengeService, hashtags *services.HashtagService) *ChallengeController {
	return &ChallengeController{challenges: challenges, joins: joins, hashtags: hashtags}
}

type successResponse struct {
	*models.UserChallenge
	Badges []models.Badge `json:"badges"`
}

// Create publishes a challenge; its owner joins it right away. POST /challenge/new
func (cc *ChallengeController) Create(ctx *gin.Context) {
	a, ok := actor(ctx)
	if !ok {
		return
	}
	var req services.ChallengeInput
	images, ok := bindPayload(ctx, &req, challengePart, challengeImagePart)
	if !ok {
		return
	}

	ch, err := cc.challenges.Create(ctx.Request.Context(), a.UserID, req, images)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, ch)
}

// Search pages challenges. Without filters every challenge is listed. GET /challenge
func (cc *ChallengeController) Search(ctx *gin.Context) {
	cond := services.SearchCondition{
		Keyword:  strings.TrimSpace(ctx.Query("keyword")),
		Category: strings.TrimSpace(ctx.Query("category")),
		Location: strings.TrimSpace(ctx.Query("location")),
		Duration: strings.TrimSpace(ctx.Query("duration")),
		Hashtag:  strings.TrimSpace(ctx.Query("hashtag")),
	}
	req := parsePagination(ctx)

	var (
		page services.Page[services.ChallengeSummary]
		err  error
	)
	if cond == (services.SearchCondition{}) {
		page, err = cc.joins.SearchAll(ctx.Request.Context(), req)
	} else {
		page, err = cc.joins.SearchByCondition(ctx.Request.Context(), cond, req)
	}
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, page)
}

// Get returns one challenge. GET /challenge/:id
func (cc *ChallengeController) Get(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	ch, err := cc.challenges.Get(ctx.Request.Context(), id)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, ch)
}

// Update edits the caller's challenge. POST /challenge/:id
func (cc *ChallengeController) Update(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	a, ok := actor(ctx)
	if !ok {
		return
	}
	var req services.ChallengeInput
	images, ok := bindPayload(ctx, &req, challengePart, challengeImagePart)
	if !ok {
		return
	}

	ch, err := cc.challenges.Update(ctx.Request.Context(), id, a, req, images)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, ch)
}

// Delete removes the caller's challenge with its comments and participations. DELETE /challenge/:id
func (cc *ChallengeController) Delete(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	a, ok := actor(ctx)
	if !ok {
		return
	}
	if err := cc.challenges.Delete(ctx.Request.Context(), id, a); err != nil {
		utils.Fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "챌린지가 삭제되었습니다."})
}

// Participate joins the caller to a challenge. POST /challenge/:id/participate
func (cc *ChallengeController) Participate(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	a, ok := actor(ctx)
	if !ok {
		return
	}
	uc, err := cc.joins.Join(ctx.Request.Context(), id, a.UserID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, uc)
}

// Success marks the caller's participation as SUCCESS and reports newly earned badges.
// POST /challenge/:id/success
func (cc *ChallengeController) Success(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	a, ok := actor(ctx)
	if !ok {
		return
	}
	uc, badges, err := cc.joins.Succeed(ctx.Request.Context(), a.UserID, id)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successResponse{UserChallenge: uc, Badges: badges})
}

// Participants lists who joined a challenge. GET /challenge/:id/participants
func (cc *ChallengeController) Participants(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	ps, err := cc.joins.Participants(ctx.Request.Context(), id)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, ps)
}

// PopularHashtags lists the most used hashtags. GET /hashtag/popular?limit=
func (cc *ChallengeController) PopularHashtags(ctx *gin.Context) {
	limit := defaultPopularHashtags
	if n, err := strconv.Atoi(ctx.Query("limit")); err == nil && n > 0 {
		limit = n
	}
	tags, err := cc.hashtags.Popular(ctx.Request.Context(), limit)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, tags)
}

package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dailychallenge/server/errs"
	"github.com/dailychallenge/server/middleware"
	"github.com/dailychallenge/server/services"
	"github.com/dailychallenge/server/utils"
)

const (
	userPart      = "userDto"
	userImagePart = "userImg"
)

// UserController handles accounts: sign up, login, logout and profile management.
type UserController struct {
	users     *services.UserService
	badges    *services.BadgeService
	blacklist *utils.TokenBlacklist
	guard     *utils.RegisterGuard
}

func NewUserController(users *services.UserService, badges *services.BadgeService, blacklist *utils.TokenBlacklist, guard *utils.RegisterGuard) *UserController {
	return &UserController{users: users, badges: badges, blacklist: blacklist, guard: guard}
}

// Register creates an account. POST /user/new
func (uc *UserController) Register(ctx *gin.Context) {
	ip := ctx.ClientIP()
	if !uc.guard.Allow(ctx.Request.Context(), ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42902, "too many registrations, try again later")
		return
	}

	var req services.RegisterInput
	images, ok := bindPayload(ctx, &req, userPart, userImagePart)
	if !ok {
		return
	}
	user, err := uc.users.Register(ctx.Request.Context(), req, firstUpload(images))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	uc.guard.Record(ctx.Request.Context(), ip)
	ctx.JSON(http.StatusCreated, user)
}

// Login exchanges credentials for a bearer token. POST /user/login
func (uc *UserController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40000, "invalid request payload")
		return
	}

	res, err := uc.users.Login(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, res)
}

// Logout revokes the presented token until it would have expired anyway. POST /user/logout
func (uc *UserController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	if token == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "invalid authorization header")
		return
	}

	uc.blacklist.Revoke(ctx.Request.Context(), token, tokenExpiry(ctx))
	ctx.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Get returns a public profile. GET /user/:userId
func (uc *UserController) Get(ctx *gin.Context) {
	id, ok := parseID(ctx, "userId")
	if !ok {
		return
	}
	user, err := uc.users.Get(ctx.Request.Context(), id)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, user)
}

// Update edits the caller's profile. POST /user/:userId
func (uc *UserController) Update(ctx *gin.Context) {
	id, ok := parseID(ctx, "userId")
	if !ok {
		return
	}
	a, ok := actor(ctx)
	if !ok {
		return
	}

	var req services.ProfileInput
	images, ok := bindPayload(ctx, &req, userPart, userImagePart)
	if !ok {
		return
	}

	user, err := uc.users.Update(ctx.Request.Context(), id, a, req, firstUpload(images))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, user)
}

// Delete removes the account with everything it owns. DELETE /user/:userId
func (uc *UserController) Delete(ctx *gin.Context) {
	id, ok := parseID(ctx, "userId")
	if !ok {
		return
	}
	a, ok := actor(ctx)
	if !ok {
		return
	}

	if err := uc.users.Delete(ctx.Request.Context(), id, a); err != nil {
		utils.Fail(ctx, err)
		return
	}
	if a.UserID == id {
		uc.blacklist.Revoke(ctx.Request.Context(), ctx.GetString(middleware.ContextTokenKey), tokenExpiry(ctx))
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "회원 탈퇴가 완료되었습니다."})
}

// CheckEmail reports whether an address is still free. POST /user/check?email=
func (uc *UserController) CheckEmail(ctx *gin.Context) {
	email := strings.TrimSpace(ctx.Query("email"))
	if email == "" {
		utils.Fail(ctx, errs.Validation("email", "email is required"))
		return
	}
	if err := uc.users.CheckEmail(ctx.Request.Context(), email); err != nil {
		utils.Fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"available": true})
}

// CheckPassword verifies the caller's current password. POST /user/:userId/check?password=
func (uc *UserController) CheckPassword(ctx *gin.Context) {
	id, ok := parseID(ctx, "userId")
	if !ok {
		return
	}
	a, ok := actor(ctx)
	if !ok {
		return
	}

	password := ctx.Query("password")
	if password == "" {
		password = ctx.PostForm("password")
	}
	if err := uc.users.CheckPassword(ctx.Request.Context(), id, a, password); err != nil {
		utils.Fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"matches": true})
}

// Badges lists the achievements a user holds. GET /user/:userId/badges
func (uc *UserController) Badges(ctx *gin.Context) {
	id, ok := parseID(ctx, "userId")
	if !ok {
		return
	}
	badges, err := uc.badges.ListByUser(ctx.Request.Context(), id)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, badges)
}

func tokenExpiry(ctx *gin.Context) time.Time {
	if v, ok := ctx.Get(middleware.ContextTokenExpiryKey); ok {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}
	return time.Now().Add(72 * time.Hour)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dailychallenge/server/errs"
	"github.com/dailychallenge/server/models"
	"github.com/dailychallenge/server/storage"
	"github.com/dailychallenge/server/utils"
)

// RegisterInput is the sign up form.
type RegisterInput struct {
	Email    string `json:"email"`
	UserName string `json:"userName"`
	Password string `json:"password"`
	Info     string `json:"info"`
}

// ProfileInput changes a profile. Empty fields are left as they are, except Info:
// a present but empty info clears the bio, an absent one keeps it.
type ProfileInput struct {
	UserName string  `json:"userName"`
	Info     *string `json:"info"`
	Password string  `json:"password"`
}

// LoginResult carries the issued access token.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

type UserService struct {
	db     *gorm.DB
	store  storage.Store
	cache  *utils.Cache
	tokens *utils.TokenIssuer
}

func NewUserService(db *gorm.DB, store storage.Store, cache *utils.Cache, tokens *utils.TokenIssuer) *UserService {
	return &UserService{db: db, store: store, cache: cache, tokens: tokens}
}

// Register creates the account. The email must not be taken.
func (s *UserService) Register(ctx context.Context, in RegisterInput, image *storage.Upload) (*models.User, error) {
	email, err := validEmail(in.Email)
	if err != nil {
		return nil, err
	}
	name := utils.SanitizeText(in.UserName)
	if name == "" {
		return nil, errs.Validation("userName", "userName must not be empty")
	}
	if err := utils.ValidatePassword(in.Password); err != nil {
		return nil, errs.Validation("password", err.Error())
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{Email: email, UserName: name, PasswordHash: hash, Info: utils.SanitizeText(in.Info)}
	var obj *storage.Object
	if image != nil {
		objs, err := storeUploads(ctx, s.store, []storage.Upload{*image})
		if err != nil {
			return nil, err
		}
		obj = &objs[0]
		user.ImgName, user.ImgURL = obj.Key, obj.URL
	}

	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(user)
	if res.Error == nil && res.RowsAffected == 0 {
		res.Error = errs.Duplicate("email")
	}
	if res.Error != nil {
		if obj != nil {
			discard(ctx, s.store, []storage.Object{*obj})
		}
		if errs.IsDuplicate(res.Error) {
			return nil, res.Error
		}
		return nil, fmt.Errorf("create user: %w", res.Error)
	}
	return user, nil
}

// Login checks the credentials and issues a token.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err != nil || !utils.CheckPassword(user.PasswordHash, password) {
		return nil, errs.Unauthorized("invalid email or password")
	}
	token, exp, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &LoginResult{Token: token, ExpiresAt: exp, User: &user}, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := first(s.db.WithContext(ctx), &user, "user", id); err != nil {
		return nil, err
	}
	return &user, nil
}

// CheckEmail succeeds when the address is free to register.
func (s *UserService) CheckEmail(ctx context.Context, email string) error {
	normalized, err := validEmail(email)
	if err != nil {
		return err
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", normalized).Count(&n).Error; err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if n > 0 {
		return errs.Duplicate("email")
	}
	return nil
}

// CheckPassword verifies the user's current password, e.g. before a profile change.
func (s *UserService) CheckPassword(ctx context.Context, id uint, actor Actor, password string) error {
	if actor.UserID != id {
		return errs.Forbidden("password can only be checked for yourself")
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return errs.Validation("password", "password does not match")
	}
	return nil
}

// Update changes the caller's own profile. A new image replaces the old one.
func (s *UserService) Update(ctx context.Context, id uint, actor Actor, in ProfileInput, image *storage.Upload) (*models.User, error) {
	if actor.UserID != id {
		return nil, errs.Forbidden("only the account owner may edit this profile")
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}
	renamed := false
	if name := utils.SanitizeText(in.UserName); name != "" && name != user.UserName {
		changes["user_name"] = name
		renamed = true
	}
	if in.Info != nil {
		changes["info"] = utils.SanitizeText(*in.Info)
	}
	if in.Password != "" {
		if err := utils.ValidatePassword(in.Password); err != nil {
			return nil, errs.Validation("password", err.Error())
		}
		hash, err := utils.HashPassword(in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		changes["password_hash"] = hash
	}

	var objs []storage.Object
	oldKey := ""
	if image != nil {
		if objs, err = storeUploads(ctx, s.store, []storage.Upload{*image}); err != nil {
			return nil, err
		}
		changes["img_name"], changes["img_url"] = objs[0].Key, objs[0].URL
		oldKey = user.ImgName
	}
	if len(changes) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(changes).Error; err != nil {
		discard(ctx, s.store, objs)
		return nil, fmt.Errorf("update user: %w", err)
	}
	if oldKey != "" {
		removeFiles(ctx, s.store, []string{oldKey})
	}
	// cached comment pages carry the author name
	if renamed {
		s.cache.InvalidateByPrefix(ctx, "cache:challenge:")
	}
	return s.Get(ctx, id)
}

// Delete removes the account and everything it owns: its challenges, comments, likes,
// participations and badges. Like counters on other users' comments are decremented.
func (s *UserService) Delete(ctx context.Context, id uint, actor Actor) error {
	if !actor.owns(id) {
		return errs.Forbidden("only the account owner may delete this account")
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	var keys []string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owned []uint
		if err := tx.Model(&models.Challenge{}).Where("user_id = ?", id).Pluck("id", &owned).Error; err != nil {
			return fmt.Errorf("load owned challenges: %w", err)
		}
		challengeKeys, err := deleteChallenges(tx, owned)
		if err != nil {
			return err
		}
		keys = append(keys, challengeKeys...)

		var commentIDs []uint
		if err := tx.Model(&models.Comment{}).Where("user_id = ?", id).Pluck("id", &commentIDs).Error; err != nil {
			return fmt.Errorf("load comments: %w", err)
		}
		commentKeys, err := deleteComments(tx, commentIDs)
		if err != nil {
			return err
		}
		keys = append(keys, commentKeys...)

		liked := tx.Model(&models.CommentLike{}).Select("comment_id").Where("user_id = ?", id)
		if err := tx.Model(&models.Comment{}).Where("id IN (?) AND likes > 0", liked).
			UpdateColumn("likes", gorm.Expr("likes - ?", 1)).Error; err != nil {
			return fmt.Errorf("withdraw likes: %w", err)
		}
		for _, model := range []interface{}{&models.CommentLike{}, &models.UserChallenge{}, &models.Badge{}} {
			if err := tx.Where("user_id = ?", id).Delete(model).Error; err != nil {
				return fmt.Errorf("delete %T: %w", model, err)
			}
		}
		return tx.Delete(&models.User{}, id).Error
	})
	if err != nil {
		return err
	}

	if user.ImgName != "" {
		keys = append(keys, user.ImgName)
	}
	removeFiles(ctx, s.store, keys)
	s.cache.InvalidateByPrefix(ctx, "cache:challenge:")
	return nil
}

func validEmail(raw string) (string, error) {
	email := models.NormalizeEmail(raw)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", errs.Validation("email", "invalid email address")
	}
	return email, nil
}

package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dailychallenge/server/errs"
	"github.com/dailychallenge/server/models"
	"github.com/dailychallenge/server/storage"
	"github.com/dailychallenge/server/utils"
)

// CommentOwner is the author summary embedded in challenge comment listings.
type CommentOwner struct {
	UserID   uint   `json:"userId"`
	UserName string `json:"userName"`
	Email    string `json:"email"`
}

// ChallengeComment is one row of ListByChallenge.
type ChallengeComment struct {
	ID               uint         `json:"id"`
	Content          string       `json:"content"`
	Likes            int          `json:"likes"`
	CreatedAt        time.Time    `json:"createdAt"`
	CommentImgURLs   []string     `json:"commentImgUrls"`
	CommentOwnerUser CommentOwner `json:"commentOwnerUser"`
}

// UserComment is one row of ListByUser; it names the parent challenge instead of the author.
type UserComment struct {
	ID             uint      `json:"id"`
	Content        string    `json:"content"`
	Likes          int       `json:"likes"`
	CreatedAt      time.Time `json:"createdAt"`
	CommentImgURLs []string  `json:"commentImgUrls"`
	ChallengeID    uint      `json:"challengeId"`
	ChallengeTitle string    `json:"challengeTitle"`
}

var commentSortFields = map[string]string{
	"likes":     "likes",
	"time":      "created_at",
	"createdAt": "created_at",
	"id":        "id",
}

var (
	challengeCommentsDefaultSort = sortOrder{column: "likes", desc: true}
	userCommentsDefaultSort      = sortOrder{column: "created_at", desc: true, idDesc: true}
)

// CommentsCachePrefix is the Redis key prefix of cached comment pages for one challenge.
func CommentsCachePrefix(challengeID uint) string {
	return fmt.Sprintf("cache:challenge:%d:comments:", challengeID)
}

type CommentService struct {
	db    *gorm.DB
	store storage.Store
	cache *utils.Cache
}

func NewCommentService(db *gorm.DB, store storage.Store, cache *utils.Cache) *CommentService {
	return &CommentService{db: db, store: store, cache: cache}
}

// Create stores the images, then records the comment with likes 0 and its image rows.
func (s *CommentService) Create(ctx context.Context, challengeID, authorID uint, content string, images []storage.Upload) (*models.Comment, error) {
	content = utils.SanitizeText(content)
	if content == "" {
		return nil, errs.Validation("content", "content must not be empty")
	}

	db := s.db.WithContext(ctx)
	if err := exists(db, &models.Challenge{}, "challenge", challengeID); err != nil {
		return nil, err
	}
	if err := exists(db, &models.User{}, "user", authorID); err != nil {
		return nil, err
	}

	objs, err := storeUploads(ctx, s.store, images)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{Content: content, UserID: authorID, ChallengeID: challengeID}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		imgs, err := createCommentImages(tx, comment.ID, objs)
		if err != nil {
			return err
		}
		comment.Images = imgs
		return nil
	})
	if err != nil {
		discard(ctx, s.store, objs)
		return nil, err
	}

	s.cache.InvalidateByPrefix(ctx, CommentsCachePrefix(challengeID))
	return comment, nil
}

// Update replaces the content. When images are supplied they replace the previous set.
func (s *CommentService) Update(ctx context.Context, commentID uint, actor Actor, content string, images []storage.Upload) (*models.Comment, error) {
	content = utils.SanitizeText(content)
	if content == "" {
		return nil, errs.Validation("content", "content must not be empty")
	}

	db := s.db.WithContext(ctx)
	var comment models.Comment
	if err := first(db, &comment, "comment", commentID); err != nil {
		return nil, err
	}
	if !actor.owns(comment.UserID) {
		return nil, errs.Forbidden("only the author may edit this comment")
	}

	objs, err := storeUploads(ctx, s.store, images)
	if err != nil {
		return nil, err
	}

	var oldKeys []string
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&comment).Update("content", content).Error; err != nil {
			return fmt.Errorf("update comment: %w", err)
		}
		if len(objs) > 0 {
			keys, err := deleteCommentImages(tx, []uint{comment.ID})
			if err != nil {
				return err
			}
			oldKeys = keys
			if _, err := createCommentImages(tx, comment.ID, objs); err != nil {
				return err
			}
		}
		return tx.Preload("Images").First(&comment, comment.ID).Error
	})
	if err != nil {
		discard(ctx, s.store, objs)
		return nil, err
	}

	removeFiles(ctx, s.store, oldKeys)
	s.cache.InvalidateByPrefix(ctx, CommentsCachePrefix(comment.ChallengeID))
	return &comment, nil
}

// Delete removes the comment with its images and likes. Stored files go after commit.
func (s *CommentService) Delete(ctx context.Context, commentID uint, actor Actor) error {
	db := s.db.WithContext(ctx)
	var comment models.Comment
	if err := first(db, &comment, "comment", commentID); err != nil {
		return err
	}
	if !actor.owns(comment.UserID) {
		return errs.Forbidden("only the author may delete this comment")
	}

	var keys []string
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		keys, err = deleteComments(tx, []uint{comment.ID})
		return err
	})
	if err != nil {
		return err
	}

	removeFiles(ctx, s.store, keys)
	s.cache.InvalidateByPrefix(ctx, CommentsCachePrefix(comment.ChallengeID))
	return nil
}

// ToggleLike records (isLike=1) or withdraws (isLike=0) the user's like and returns the stored count.
// A user's repeated like or unlike does not move the counter.
func (s *CommentService) ToggleLike(ctx context.Context, commentID, userID uint, isLike int) (int, error) {
	if isLike != 0 && isLike != 1 {
		return 0, errs.Validation("isLike", "isLike must be 0 or 1")
	}

	var comment models.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := first(tx, &comment, "comment", commentID); err != nil {
			return err
		}
		if err := exists(tx, &models.User{}, "user", userID); err != nil {
			return err
		}

		if isLike == 1 {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.CommentLike{CommentID: commentID, UserID: userID})
			if res.Error != nil {
				return fmt.Errorf("insert like: %w", res.Error)
			}
			if res.RowsAffected > 0 {
				if err := tx.Model(&models.Comment{}).Where("id = ?", commentID).
					UpdateColumn("likes", gorm.Expr("likes + ?", 1)).Error; err != nil {
					return fmt.Errorf("increment likes: %w", err)
				}
			}
		} else {
			res := tx.Where("comment_id = ? AND user_id = ?", commentID, userID).Delete(&models.CommentLike{})
			if res.Error != nil {
				return fmt.Errorf("delete like: %w", res.Error)
			}
			if res.RowsAffected > 0 {
				if err := tx.Model(&models.Comment{}).Where("id = ? AND likes > 0", commentID).
					UpdateColumn("likes", gorm.Expr("likes - ?", 1)).Error; err != nil {
					return fmt.Errorf("decrement likes: %w", err)
				}
			}
		}

		return tx.Model(&models.Comment{}).Select("likes").Where("id = ?", commentID).Scan(&comment.Likes).Error
	})
	if err != nil {
		return 0, err
	}

	s.cache.InvalidateByPrefix(ctx, CommentsCachePrefix(comment.ChallengeID))
	return comment.Likes, nil
}

// ListByChallenge pages the comments of one challenge, most liked first by default.
// An unknown challenge yields an empty page.
func (s *CommentService) ListByChallenge(ctx context.Context, challengeID uint, req PageRequest) (Page[ChallengeComment], error) {
	req = req.normalized()
	order := resolveSort(req.Sort, commentSortFields, challengeCommentsDefaultSort)

	key := fmt.Sprintf("%sp%d:s%d:%s", CommentsCachePrefix(challengeID), req.Page, req.Size, order)
	var cached Page[ChallengeComment]
	if s.cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	db := s.db.WithContext(ctx)
	var total int64
	if err := db.Model(&models.Comment{}).Where("challenge_id = ?", challengeID).Count(&total).Error; err != nil {
		return Page[ChallengeComment]{}, fmt.Errorf("count comments: %w", err)
	}

	var comments []models.Comment
	q := order.apply(db.Preload("Images").Where("challenge_id = ?", challengeID), "comments")
	if err := q.Offset(req.offset()).Limit(req.Size).Find(&comments).Error; err != nil {
		return Page[ChallengeComment]{}, fmt.Errorf("list comments: %w", err)
	}

	userIDs := make([]uint, 0, len(comments))
	for _, c := range comments {
		userIDs = append(userIDs, c.UserID)
	}
	owners := map[uint]models.User{}
	if len(userIDs) > 0 {
		var users []models.User
		if err := db.Where("id IN ?", utils.UniqueUint(userIDs)).Find(&users).Error; err != nil {
			return Page[ChallengeComment]{}, fmt.Errorf("load comment authors: %w", err)
		}
		for _, u := range users {
			owners[u.ID] = u
		}
	}

	items := make([]ChallengeComment, 0, len(comments))
	for i := range comments {
		c := &comments[i]
		u := owners[c.UserID]
		items = append(items, ChallengeComment{
			ID:             c.ID,
			Content:        c.Content,
			Likes:          c.Likes,
			CreatedAt:      c.CreatedAt,
			CommentImgURLs: c.ImageURLs(),
			CommentOwnerUser: CommentOwner{
				UserID:   c.UserID,
				UserName: u.UserName,
				Email:    u.Email,
			},
		})
	}

	page := newPage(items, req, total)
	s.cache.SetJSON(ctx, key, page)
	return page, nil
}

// ListByUser pages one user's comments across all challenges, newest first by default.
func (s *CommentService) ListByUser(ctx context.Context, userID uint, req PageRequest) (Page[UserComment], error) {
	req = req.normalized()
	order := resolveSort(req.Sort, commentSortFields, userCommentsDefaultSort)

	db := s.db.WithContext(ctx)
	var total int64
	if err := db.Model(&models.Comment{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return Page[UserComment]{}, fmt.Errorf("count comments: %w", err)
	}

	var comments []models.Comment
	q := order.apply(db.Preload("Images").Where("user_id = ?", userID), "comments")
	if err := q.Offset(req.offset()).Limit(req.Size).Find(&comments).Error; err != nil {
		return Page[UserComment]{}, fmt.Errorf("list comments: %w", err)
	}

	challengeIDs := make([]uint, 0, len(comments))
	for _, c := range comments {
		challengeIDs = append(challengeIDs, c.ChallengeID)
	}
	titles := map[uint]string{}
	if len(challengeIDs) > 0 {
		var challenges []models.Challenge
		if err := db.Select("id", "title").Where("id IN ?", utils.UniqueUint(challengeIDs)).Find(&challenges).Error; err != nil {
			return Page[UserComment]{}, fmt.Errorf("load challenges: %w", err)
		}
		for _, ch := range challenges {
			titles[ch.ID] = ch.Title
		}
	}

	items := make([]UserComment, 0, len(comments))
	for i := range comments {
		c := &comments[i]
		items = append(items, UserComment{
			ID:             c.ID,
			Content:        c.Content,
			Likes:          c.Likes,
			CreatedAt:      c.CreatedAt,
			CommentImgURLs: c.ImageURLs(),
			ChallengeID:    c.ChallengeID,
			ChallengeTitle: titles[c.ChallengeID],
		})
	}
	return newPage(items, req, total), nil
}

func createCommentImages(tx *gorm.DB, commentID uint, objs []storage.Object) ([]models.CommentImg, error) {
	if len(objs) == 0 {
		return []models.CommentImg{}, nil
	}
	imgs := make([]models.CommentImg, 0, len(objs))
	for _, o := range objs {
		imgs = append(imgs, models.CommentImg{ImgName: o.Key, OriImgName: o.OriginalName, ImgURL: o.URL, CommentID: commentID})
	}
	if err := tx.Create(&imgs).Error; err != nil {
		return nil, fmt.Errorf("create comment images: %w", err)
	}
	return imgs, nil
}

// deleteCommentImages removes the image rows and returns their storage keys.
func deleteCommentImages(tx *gorm.DB, commentIDs []uint) ([]string, error) {
	if len(commentIDs) == 0 {
		return nil, nil
	}
	var keys []string
	if err := tx.Model(&models.CommentImg{}).Where("comment_id IN ?", commentIDs).Pluck("img_name", &keys).Error; err != nil {
		return nil, fmt.Errorf("load comment images: %w", err)
	}
	if err := tx.Where("comment_id IN ?", commentIDs).Delete(&models.CommentImg{}).Error; err != nil {
		return nil, fmt.Errorf("delete comment images: %w", err)
	}
	return keys, nil
}

// deleteComments removes comments with their images and likes, returning image keys to remove after commit.
func deleteComments(tx *gorm.DB, commentIDs []uint) ([]string, error) {
	if len(commentIDs) == 0 {
		return nil, nil
	}
	keys, err := deleteCommentImages(tx, commentIDs)
	if err != nil {
		return nil, err
	}
	if err := tx.Where("comment_id IN ?", commentIDs).Delete(&models.CommentLike{}).Error; err != nil {
		return nil, fmt.Errorf("delete comment likes: %w", err)
	}
	if err := tx.Where("id IN ?", commentIDs).Delete(&models.Comment{}).Error; err != nil {
		return nil, fmt.Errorf("delete comments: %w", err)
	}
	return keys, nil
}

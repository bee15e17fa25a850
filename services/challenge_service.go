package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/dailychallenge/server/errs"
	"github.com/dailychallenge/server/models"
	"github.com/dailychallenge/server/storage"
	"github.com/dailychallenge/server/utils"
)

// ChallengeInput is the client supplied part of a challenge. Enum fields accept the constant or its description.
type ChallengeInput struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"challengeCategory"`
	Location string   `json:"challengeLocation"`
	Duration string   `json:"challengeDuration"`
	Hashtags []string `json:"hashtagDto"`
}

// SearchCondition filters challenge searches. Empty fields are ignored.
type SearchCondition struct {
	Keyword  string
	Category string
	Location string
	Duration string
	Hashtag  string
}

// ChallengeOwner summarizes who created a challenge.
type ChallengeOwner struct {
	UserID   uint   `json:"userId"`
	UserName string `json:"userName"`
	Email    string `json:"email"`
}

// ChallengeSummary is the read model for challenge listings and detail.
type ChallengeSummary struct {
	ID                 uint                     `json:"id"`
	Title              string                   `json:"title"`
	Content            string                   `json:"content"`
	ChallengeCategory  models.ChallengeCategory `json:"challengeCategory"`
	ChallengeLocation  models.ChallengeLocation `json:"challengeLocation"`
	ChallengeDuration  models.ChallengeDuration `json:"challengeDuration"`
	ChallengeImgURLs   []string                 `json:"challengeImgUrls"`
	Hashtags           []string                 `json:"hashtags"`
	HowManyUsers       int64                    `json:"howManyUsers"`
	ChallengeOwnerUser ChallengeOwner           `json:"challengeOwnerUser"`
	CreatedAt          time.Time                `json:"createdAt"`
	UpdatedAt          time.Time                `json:"updatedAt"`
}

var challengeSortFields = map[string]string{
	"time":      "created_at",
	"createdAt": "created_at",
	"id":        "id",
}

var challengesDefaultSort = sortOrder{column: "created_at", desc: true, idDesc: true}

const participantCountSQL = "(SELECT COUNT(*) FROM user_challenges WHERE user_challenges.challenge_id = challenges.id)"

type ChallengeService struct {
	db    *gorm.DB
	store storage.Store
	cache *utils.Cache
}

func NewChallengeService(db *gorm.DB, store storage.Store, cache *utils.Cache) *ChallengeService {
	return &ChallengeService{db: db, store: store, cache: cache}
}

// Create records the challenge with its images and hashtags and joins the owner as TRYING.
func (s *ChallengeService) Create(ctx context.Context, ownerID uint, in ChallengeInput, images []storage.Upload) (*ChallengeSummary, error) {
	ch, err := in.toModel()
	if err != nil {
		return nil, err
	}
	ch.UserID = ownerID

	db := s.db.WithContext(ctx)
	if err := exists(db, &models.User{}, "user", ownerID); err != nil {
		return nil, err
	}

	objs, err := storeUploads(ctx, s.store, images)
	if err != nil {
		return nil, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ch).Error; err != nil {
			return fmt.Errorf("create challenge: %w", err)
		}
		if err := createChallengeImages(tx, ch.ID, objs); err != nil {
			return err
		}
		if err := linkHashtags(tx, ch.ID, in.Hashtags); err != nil {
			return err
		}
		_, err := joinChallenge(tx, ch.ID, ownerID)
		return err
	})
	if err != nil {
		discard(ctx, s.store, objs)
		return nil, err
	}
	return s.Get(ctx, ch.ID)
}

// Get returns the detail projection of one challenge.
func (s *ChallengeService) Get(ctx context.Context, id uint) (*ChallengeSummary, error) {
	db := s.db.WithContext(ctx)
	var ch models.Challenge
	if err := first(db.Preload("Images"), &ch, "challenge", id); err != nil {
		return nil, err
	}
	out, err := summarize(db, []models.Challenge{ch})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// Update changes the owner's challenge. Supplied images replace the old ones; a nil Hashtags keeps the old tags.
func (s *ChallengeService) Update(ctx context.Context, id uint, actor Actor, in ChallengeInput, images []storage.Upload) (*ChallengeSummary, error) {
	changes, err := in.toModel()
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var ch models.Challenge
	if err := first(db, &ch, "challenge", id); err != nil {
		return nil, err
	}
	if !actor.owns(ch.UserID) {
		return nil, errs.Forbidden("only the owner may edit this challenge")
	}

	objs, err := storeUploads(ctx, s.store, images)
	if err != nil {
		return nil, err
	}

	var oldKeys []string
	err = db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&ch).Updates(map[string]interface{}{
			"title":    changes.Title,
			"content":  changes.Content,
			"category": changes.Category,
			"location": changes.Location,
			"duration": changes.Duration,
		}).Error
		if err != nil {
			return fmt.Errorf("update challenge: %w", err)
		}
		if len(objs) > 0 {
			if oldKeys, err = deleteChallengeImages(tx, []uint{ch.ID}); err != nil {
				return err
			}
			if err := createChallengeImages(tx, ch.ID, objs); err != nil {
				return err
			}
		}
		if in.Hashtags != nil {
			return linkHashtags(tx, ch.ID, in.Hashtags)
		}
		return nil
	})
	if err != nil {
		discard(ctx, s.store, objs)
		return nil, err
	}

	removeFiles(ctx, s.store, oldKeys)
	return s.Get(ctx, ch.ID)
}

// Delete removes the challenge and everything hanging off it.
func (s *ChallengeService) Delete(ctx context.Context, id uint, actor Actor) error {
	db := s.db.WithContext(ctx)
	var ch models.Challenge
	if err := first(db, &ch, "challenge", id); err != nil {
		return err
	}
	if !actor.owns(ch.UserID) {
		return errs.Forbidden("only the owner may delete this challenge")
	}

	var keys []string
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		keys, err = deleteChallenges(tx, []uint{ch.ID})
		return err
	})
	if err != nil {
		return err
	}

	removeFiles(ctx, s.store, keys)
	s.cache.InvalidateByPrefix(ctx, CommentsCachePrefix(ch.ID))
	return nil
}

func (in ChallengeInput) toModel() (*models.Challenge, error) {
	title := utils.SanitizeText(in.Title)
	if title == "" {
		return nil, errs.Validation("title", "title must not be empty")
	}
	content := utils.SanitizeText(in.Content)
	if content == "" {
		return nil, errs.Validation("content", "content must not be empty")
	}
	category, ok := models.ParseCategory(in.Category)
	if !ok {
		return nil, errs.Validation("challengeCategory", fmt.Sprintf("unknown category %q", in.Category))
	}
	location, ok := models.ParseLocation(in.Location)
	if !ok {
		return nil, errs.Validation("challengeLocation", fmt.Sprintf("unknown location %q", in.Location))
	}
	duration, ok := models.ParseDuration(in.Duration)
	if !ok {
		return nil, errs.Validation("challengeDuration", fmt.Sprintf("unknown duration %q", in.Duration))
	}
	return &models.Challenge{
		Title:    title,
		Content:  content,
		Category: category,
		Location: location,
		Duration: duration,
	}, nil
}

// likeEscaper makes LIKE wildcards in a keyword match literally. '!' is the escape
// character since a backslash needs different quoting on MySQL and Postgres.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// searchChallenges pages challenges matching cond. Sort "popular" orders by participant count.
func searchChallenges(db *gorm.DB, cond SearchCondition, req PageRequest) (Page[ChallengeSummary], error) {
	req = req.normalized()

	filtered := func() (*gorm.DB, error) {
		q := db.Model(&models.Challenge{})
		if kw := strings.TrimSpace(cond.Keyword); kw != "" {
			like := "%" + likeEscaper.Replace(kw) + "%"
			q = q.Where("challenges.title LIKE ? ESCAPE '!' OR challenges.content LIKE ? ESCAPE '!'", like, like)
		}
		if cond.Category != "" {
			c, ok := models.ParseCategory(cond.Category)
			if !ok {
				return nil, errs.Validation("category", fmt.Sprintf("unknown category %q", cond.Category))
			}
			q = q.Where("challenges.category = ?", c)
		}
		if cond.Location != "" {
			l, ok := models.ParseLocation(cond.Location)
			if !ok {
				return nil, errs.Validation("location", fmt.Sprintf("unknown location %q", cond.Location))
			}
			q = q.Where("challenges.location = ?", l)
		}
		if cond.Duration != "" {
			d, ok := models.ParseDuration(cond.Duration)
			if !ok {
				return nil, errs.Validation("duration", fmt.Sprintf("unknown duration %q", cond.Duration))
			}
			q = q.Where("challenges.duration = ?", d)
		}
		if tag := strings.TrimPrefix(strings.TrimSpace(cond.Hashtag), "#"); tag != "" {
			sub := db.Table("challenge_hashtags").
				Select("challenge_hashtags.challenge_id").
				Joins("JOIN hashtags ON hashtags.id = challenge_hashtags.hashtag_id").
				Where("hashtags.content = ?", tag)
			q = q.Where("challenges.id IN (?)", sub)
		}
		return q, nil
	}

	countQ, err := filtered()
	if err != nil {
		return Page[ChallengeSummary]{}, err
	}
	var total int64
	if err := countQ.Count(&total).Error; err != nil {
		return Page[ChallengeSummary]{}, fmt.Errorf("count challenges: %w", err)
	}

	listQ, _ := filtered()
	sortName, _, _ := strings.Cut(req.Sort, ",")
	if strings.TrimSpace(sortName) == "popular" {
		listQ = listQ.Order(participantCountSQL + " DESC").Order("challenges.id DESC")
	} else {
		listQ = resolveSort(req.Sort, challengeSortFields, challengesDefaultSort).apply(listQ, "challenges")
	}

	var challenges []models.Challenge
	if err := listQ.Preload("Images").Offset(req.offset()).Limit(req.Size).Find(&challenges).Error; err != nil {
		return Page[ChallengeSummary]{}, fmt.Errorf("list challenges: %w", err)
	}
	items, err := summarize(db, challenges)
	if err != nil {
		return Page[ChallengeSummary]{}, err
	}
	return newPage(items, req, total), nil
}

// summarize builds read models for challenges whose Images are already loaded.
func summarize(db *gorm.DB, challenges []models.Challenge) ([]ChallengeSummary, error) {
	out := make([]ChallengeSummary, 0, len(challenges))
	if len(challenges) == 0 {
		return out, nil
	}
	ids := make([]uint, 0, len(challenges))
	ownerIDs := make([]uint, 0, len(challenges))
	for _, ch := range challenges {
		ids = append(ids, ch.ID)
		ownerIDs = append(ownerIDs, ch.UserID)
	}

	var counts []struct {
		ChallengeID uint
		N           int64
	}
	if err := db.Model(&models.UserChallenge{}).
		Select("challenge_id, COUNT(*) AS n").
		Where("challenge_id IN ?", ids).
		Group("challenge_id").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("count participants: %w", err)
	}
	participants := make(map[uint]int64, len(counts))
	for _, c := range counts {
		participants[c.ChallengeID] = c.N
	}

	tags, err := hashtagsFor(db, ids)
	if err != nil {
		return nil, err
	}

	var users []models.User
	if err := db.Where("id IN ?", utils.UniqueUint(ownerIDs)).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load owners: %w", err)
	}
	owners := make(map[uint]models.User, len(users))
	for _, u := range users {
		owners[u.ID] = u
	}

	for _, ch := range challenges {
		urls := make([]string, 0, len(ch.Images))
		for _, img := range ch.Images {
			urls = append(urls, img.ImgURL)
		}
		hashtags := tags[ch.ID]
		if hashtags == nil {
			hashtags = []string{}
		}
		owner := owners[ch.UserID]
		out = append(out, ChallengeSummary{
			ID:                ch.ID,
			Title:             ch.Title,
			Content:           ch.Content,
			ChallengeCategory: ch.Category,
			ChallengeLocation: ch.Location,
			ChallengeDuration: ch.Duration,
			ChallengeImgURLs:  urls,
			Hashtags:          hashtags,
			HowManyUsers:      participants[ch.ID],
			ChallengeOwnerUser: ChallengeOwner{
				UserID:   ch.UserID,
				UserName: owner.UserName,
				Email:    owner.Email,
			},
			CreatedAt: ch.CreatedAt,
			UpdatedAt: ch.UpdatedAt,
		})
	}
	return out, nil
}

func createChallengeImages(tx *gorm.DB, challengeID uint, objs []storage.Object) error {
	if len(objs) == 0 {
		return nil
	}
	imgs := make([]models.ChallengeImg, 0, len(objs))
	for _, o := range objs {
		imgs = append(imgs, models.ChallengeImg{ImgName: o.Key, OriImgName: o.OriginalName, ImgURL: o.URL, ChallengeID: challengeID})
	}
	if err := tx.Create(&imgs).Error; err != nil {
		return fmt.Errorf("create challenge images: %w", err)
	}
	return nil
}

func deleteChallengeImages(tx *gorm.DB, challengeIDs []uint) ([]string, error) {
	var keys []string
	if err := tx.Model(&models.ChallengeImg{}).Where("challenge_id IN ?", challengeIDs).Pluck("img_name", &keys).Error; err != nil {
		return nil, fmt.Errorf("load challenge images: %w", err)
	}
	if err := tx.Where("challenge_id IN ?", challengeIDs).Delete(&models.ChallengeImg{}).Error; err != nil {
		return nil, fmt.Errorf("delete challenge images: %w", err)
	}
	return keys, nil
}

// deleteChallenges removes challenges with their images, hashtag links, participations and comments.
// It returns the storage keys of every removed image.
func deleteChallenges(tx *gorm.DB, challengeIDs []uint) ([]string, error) {
	if len(challengeIDs) == 0 {
		return nil, nil
	}
	var commentIDs []uint
	if err := tx.Model(&models.Comment{}).Where("challenge_id IN ?", challengeIDs).Pluck("id", &commentIDs).Error; err != nil {
		return nil, fmt.Errorf("load challenge comments: %w", err)
	}
	keys, err := deleteComments(tx, commentIDs)
	if err != nil {
		return nil, err
	}
	imgKeys, err := deleteChallengeImages(tx, challengeIDs)
	if err != nil {
		return nil, err
	}
	keys = append(keys, imgKeys...)

	if err := tx.Where("challenge_id IN ?", challengeIDs).Delete(&models.ChallengeHashtag{}).Error; err != nil {
		return nil, fmt.Errorf("delete hashtag links: %w", err)
	}
	if err := tx.Where("challenge_id IN ?", challengeIDs).Delete(&models.UserChallenge{}).Error; err != nil {
		return nil, fmt.Errorf("delete participations: %w", err)
	}
	if err := tx.Where("id IN ?", challengeIDs).Delete(&models.Challenge{}).Error; err != nil {
		return nil, fmt.Errorf("delete challenges: %w", err)
	}
	return keys, nil
}

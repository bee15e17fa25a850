package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dailychallenge/server/models"
	"github.com/dailychallenge/server/utils"
)

type HashtagService struct {
	db *gorm.DB
}

func NewHashtagService(db *gorm.DB) *HashtagService {
	return &HashtagService{db: db}
}

// ForChallenge returns the hashtag texts linked to a challenge, alphabetically.
func (s *HashtagService) ForChallenge(ctx context.Context, challengeID uint) ([]string, error) {
	byChallenge, err := hashtagsFor(s.db.WithContext(ctx), []uint{challengeID})
	if err != nil {
		return nil, err
	}
	if tags := byChallenge[challengeID]; tags != nil {
		return tags, nil
	}
	return []string{}, nil
}

// Popular returns the most used hashtags.
func (s *HashtagService) Popular(ctx context.Context, limit int) ([]HashtagCount, error) {
	if limit < 1 || limit > MaxPageSize {
		limit = DefaultPageSize
	}
	out := []HashtagCount{}
	err := s.db.WithContext(ctx).
		Table("hashtags").
		Select("hashtags.content AS content, COUNT(challenge_hashtags.id) AS uses").
		Joins("JOIN challenge_hashtags ON challenge_hashtags.hashtag_id = hashtags.id").
		Group("hashtags.id, hashtags.content").
		Order("uses desc, hashtags.content asc").
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("popular hashtags: %w", err)
	}
	return out, nil
}

// HashtagCount is a hashtag with the number of challenges using it.
type HashtagCount struct {
	Content string `json:"content"`
	Uses    int64  `json:"count"`
}

// linkHashtags makes the challenge's hashtags exactly tags, creating missing Hashtag rows.
func linkHashtags(tx *gorm.DB, challengeID uint, tags []string) error {
	if err := tx.Where("challenge_id = ?", challengeID).Delete(&models.ChallengeHashtag{}).Error; err != nil {
		return fmt.Errorf("unlink hashtags: %w", err)
	}
	for _, tag := range utils.NormalizeTags(tags) {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Hashtag{Content: tag}).Error; err != nil {
			return fmt.Errorf("create hashtag %q: %w", tag, err)
		}
		var h models.Hashtag
		if err := tx.Where("content = ?", tag).First(&h).Error; err != nil {
			return fmt.Errorf("load hashtag %q: %w", tag, err)
		}
		link := models.ChallengeHashtag{ChallengeID: challengeID, HashtagID: h.ID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
			return fmt.Errorf("link hashtag %q: %w", tag, err)
		}
	}
	return nil
}

// hashtagsFor returns hashtag texts keyed by challenge id.
func hashtagsFor(tx *gorm.DB, challengeIDs []uint) (map[uint][]string, error) {
	out := map[uint][]string{}
	if len(challengeIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		ChallengeID uint
		Content     string
	}
	err := tx.Table("challenge_hashtags").
		Select("challenge_hashtags.challenge_id AS challenge_id, hashtags.content AS content").
		Joins("JOIN hashtags ON hashtags.id = challenge_hashtags.hashtag_id").
		Where("challenge_hashtags.challenge_id IN ?", challengeIDs).
		Order("hashtags.content asc").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load hashtags: %w", err)
	}
	for _, r := range rows {
		out[r.ChallengeID] = append(out[r.ChallengeID], r.Content)
	}
	return out, nil
}

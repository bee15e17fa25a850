package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dailychallenge/server/models"
)

type BadgeService struct {
	db *gorm.DB
}

func NewBadgeService(db *gorm.DB) *BadgeService {
	return &BadgeService{db: db}
}

// Award grants every badge reached by successCount that the user does not hold yet.
func (s *BadgeService) Award(ctx context.Context, userID uint, successCount int) ([]models.Badge, error) {
	var awarded []models.Badge
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		awarded, err = awardBadges(tx, userID, successCount)
		return err
	})
	return awarded, err
}

// ListByUser returns the user's badges, lowest threshold first.
func (s *BadgeService) ListByUser(ctx context.Context, userID uint) ([]models.Badge, error) {
	badges := []models.Badge{}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("threshold asc").Find(&badges).Error; err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	return badges, nil
}

// awardBadges relies on the (user_id, name) unique index, so concurrent awards insert each badge once.
func awardBadges(tx *gorm.DB, userID uint, successCount int) ([]models.Badge, error) {
	awarded := []models.Badge{}
	for _, t := range models.AchievementsReached(successCount) {
		badge := models.Badge{UserID: userID, Name: t.Name, Threshold: t.Count}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&badge)
		if res.Error != nil {
			return nil, fmt.Errorf("award badge %q: %w", t.Name, res.Error)
		}
		if res.RowsAffected > 0 {
			awarded = append(awarded, badge)
		}
	}
	return awarded, nil
}

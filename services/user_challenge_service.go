package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dailychallenge/server/errs"
	"github.com/dailychallenge/server/models"
)

// Participant is one user taking part in a challenge.
type Participant struct {
	UserID          uint                   `json:"userId"`
	UserName        string                 `json:"userName"`
	ChallengeStatus models.ChallengeStatus `json:"challengeStatus"`
}

// UserChallengeService handles joining challenges, succeeding in them and searching them.
type UserChallengeService struct {
	db *gorm.DB
}

func NewUserChallengeService(db *gorm.DB) *UserChallengeService {
	return &UserChallengeService{db: db}
}

// Join adds the user to the challenge as TRYING. A second join fails with a duplicate error.
func (s *UserChallengeService) Join(ctx context.Context, challengeID, userID uint) (*models.UserChallenge, error) {
	var uc *models.UserChallenge
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &models.Challenge{}, "challenge", challengeID); err != nil {
			return err
		}
		if err := exists(tx, &models.User{}, "user", userID); err != nil {
			return err
		}
		var err error
		uc, err = joinChallenge(tx, challengeID, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return uc, nil
}

// Succeed marks the participation SUCCESS and awards any badge the user's success count now reaches.
// Succeeding twice is harmless.
func (s *UserChallengeService) Succeed(ctx context.Context, userID, challengeID uint) (*models.UserChallenge, []models.Badge, error) {
	var (
		uc      models.UserChallenge
		awarded []models.Badge
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND challenge_id = ?", userID, challengeID).First(&uc).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NotFound("participation")
		}
		if err != nil {
			return fmt.Errorf("load participation: %w", err)
		}

		if uc.Succeed() {
			if err := tx.Model(&uc).Update("status", uc.Status).Error; err != nil {
				return fmt.Errorf("update participation: %w", err)
			}
		}

		var successes int64
		if err := tx.Model(&models.UserChallenge{}).
			Where("user_id = ? AND status = ?", userID, models.StatusSuccess).
			Count(&successes).Error; err != nil {
			return fmt.Errorf("count successes: %w", err)
		}
		awarded, err = awardBadges(tx, userID, int(successes))
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return &uc, awarded, nil
}

// Participants lists everyone who joined the challenge, in join order.
func (s *UserChallengeService) Participants(ctx context.Context, challengeID uint) ([]Participant, error) {
	db := s.db.WithContext(ctx)
	if err := exists(db, &models.Challenge{}, "challenge", challengeID); err != nil {
		return nil, err
	}
	out := []Participant{}
	err := db.Table("user_challenges").
		Select("users.id AS user_id, users.user_name AS user_name, user_challenges.status AS challenge_status").
		Joins("JOIN users ON users.id = user_challenges.user_id").
		Where("user_challenges.challenge_id = ?", challengeID).
		Order("user_challenges.id asc").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return out, nil
}

// SearchAll pages every challenge.
func (s *UserChallengeService) SearchAll(ctx context.Context, req PageRequest) (Page[ChallengeSummary], error) {
	return searchChallenges(s.db.WithContext(ctx), SearchCondition{}, req)
}

// SearchByCondition pages the challenges matching every set field of cond.
func (s *UserChallengeService) SearchByCondition(ctx context.Context, cond SearchCondition, req PageRequest) (Page[ChallengeSummary], error) {
	return searchChallenges(s.db.WithContext(ctx), cond, req)
}

// joinChallenge inserts the TRYING row; the unique (user_id, challenge_id) index rejects the second one.
func joinChallenge(tx *gorm.DB, challengeID, userID uint) (*models.UserChallenge, error) {
	uc := &models.UserChallenge{UserID: userID, ChallengeID: challengeID, Status: models.StatusTrying}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(uc)
	if res.Error != nil {
		return nil, fmt.Errorf("join challenge: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errs.Duplicate("participation")
	}
	return uc, nil
}

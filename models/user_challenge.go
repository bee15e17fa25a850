package models

import "time"

// ChallengeStatus is the state of one user's attempt at a challenge.
type ChallengeStatus string

const (
	StatusTrying  ChallengeStatus = "TRYING"
	StatusSuccess ChallengeStatus = "SUCCESS"
)

// UserChallenge records a user's participation. At most one row exists per (user, challenge).
type UserChallenge struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      uint            `gorm:"not null;uniqueIndex:idx_user_challenge" json:"userId"`
	ChallengeID uint            `gorm:"not null;uniqueIndex:idx_user_challenge;index" json:"challengeId"`
	Status      ChallengeStatus `gorm:"size:16;not null" json:"challengeStatus"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Succeed moves the participation to SUCCESS. There is no way back to TRYING.
func (uc *UserChallenge) Succeed() bool {
	if uc.Status == StatusSuccess {
		return false
	}
	uc.Status = StatusSuccess
	return true
}

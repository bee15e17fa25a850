package models

// Hashtag is a unique tag text shared across challenges.
type Hashtag struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Content string `gorm:"size:64;not null;uniqueIndex" json:"content"`
}

// ChallengeHashtag links a challenge to a hashtag.
type ChallengeHashtag struct {
	ID          uint `gorm:"primaryKey" json:"id"`
	ChallengeID uint `gorm:"not null;uniqueIndex:idx_challenge_hashtag" json:"challengeId"`
	HashtagID   uint `gorm:"not null;uniqueIndex:idx_challenge_hashtag;index" json:"hashtagId"`
}

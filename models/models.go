// Package models holds the gorm entities of the daily challenge service.
package models

// All lists every entity for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Challenge{},
		&ChallengeImg{},
		&UserChallenge{},
		&Comment{},
		&CommentImg{},
		&CommentLike{},
		&Hashtag{},
		&ChallengeHashtag{},
		&Badge{},
	}
}

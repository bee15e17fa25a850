package models

import (
	"strings"
	"time"
)

// ChallengeCategory classifies what kind of activity a challenge is.
type ChallengeCategory string

const (
	CategoryStudy     ChallengeCategory = "STUDY"
	CategoryVolunteer ChallengeCategory = "VOLUNTEER"
	CategoryExercise  ChallengeCategory = "EXERCISE"
	CategoryEconomy   ChallengeCategory = "ECONOMY"
	CategoryHealth    ChallengeCategory = "HEALTH"
)

// ChallengeLocation is where the challenge takes place.
type ChallengeLocation string

const (
	LocationIndoor  ChallengeLocation = "INDOOR"
	LocationOutdoor ChallengeLocation = "OUTDOOR"
)

// ChallengeDuration is how long one attempt takes.
type ChallengeDuration string

const (
	DurationWithinTenMinutes    ChallengeDuration = "WITHIN_TEN_MINUTES"
	DurationWithinThirtyMinutes ChallengeDuration = "WITHIN_THIRTY_MINUTES"
	DurationWithinAnHour        ChallengeDuration = "WITHIN_AN_HOUR"
	DurationOverAnHour          ChallengeDuration = "OVER_AN_HOUR"
)

var categoryDescriptions = map[ChallengeCategory]string{
	CategoryStudy:     "공부",
	CategoryVolunteer: "봉사",
	CategoryExercise:  "운동",
	CategoryEconomy:   "경제",
	CategoryHealth:    "건강",
}

var locationDescriptions = map[ChallengeLocation]string{
	LocationIndoor:  "실내",
	LocationOutdoor: "실외",
}

var durationDescriptions = map[ChallengeDuration]string{
	DurationWithinTenMinutes:    "10분 이내",
	DurationWithinThirtyMinutes: "30분 이내",
	DurationWithinAnHour:        "1시간 이내",
	DurationOverAnHour:          "1시간 이상",
}

func (c ChallengeCategory) Description() string { return categoryDescriptions[c] }
func (l ChallengeLocation) Description() string { return locationDescriptions[l] }
func (d ChallengeDuration) Description() string { return durationDescriptions[d] }

// ParseCategory accepts either the constant name ("STUDY") or its description ("공부").
func ParseCategory(s string) (ChallengeCategory, bool) {
	return parseEnum(s, categoryDescriptions)
}

func ParseLocation(s string) (ChallengeLocation, bool) {
	return parseEnum(s, locationDescriptions)
}

func ParseDuration(s string) (ChallengeDuration, bool) {
	return parseEnum(s, durationDescriptions)
}

func parseEnum[T ~string](s string, descriptions map[T]string) (T, bool) {
	s = strings.TrimSpace(s)
	for value, desc := range descriptions {
		if strings.EqualFold(string(value), s) || desc == s {
			return value, true
		}
	}
	return "", false
}

// Challenge is a user-created goal other users can join.
type Challenge struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	Title     string            `gorm:"size:255;not null" json:"title"`
	Content   string            `gorm:"type:text;not null" json:"content"`
	Category  ChallengeCategory `gorm:"size:32;not null;index" json:"challengeCategory"`
	Location  ChallengeLocation `gorm:"size:32;not null" json:"challengeLocation"`
	Duration  ChallengeDuration `gorm:"size:32;not null" json:"challengeDuration"`
	UserID    uint              `gorm:"index;not null" json:"userId"` // owner, fixed at creation
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
	Images    []ChallengeImg    `gorm:"foreignKey:ChallengeID" json:"-"`
}

// ChallengeImg is a stored image attached to a challenge.
type ChallengeImg struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ImgName     string    `gorm:"size:255;not null" json:"imgName"` // storage key
	OriImgName  string    `gorm:"size:255" json:"oriImgName"`
	ImgURL      string    `gorm:"size:1024;not null" json:"imgUrl"`
	ChallengeID uint      `gorm:"index;not null" json:"challengeId"`
	CreatedAt   time.Time `json:"createdAt"`
}

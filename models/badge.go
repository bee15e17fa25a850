package models

import (
	"fmt"
	"time"
)

// Badge is an achievement earned by a user. (user_id, name) is unique, so a badge is awarded once.
type Badge struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_badge" json:"userId"`
	Name      string    `gorm:"size:64;not null;uniqueIndex:idx_user_badge" json:"badgeName"`
	Threshold int       `gorm:"not null" json:"threshold"`
	CreatedAt time.Time `json:"createdAt"`
}

// Threshold pairs a number of succeeded challenges with the badge it earns.
type Threshold struct {
	Count int
	Name  string
}

// AchievementThresholds is ordered ascending by Count. Adding a badge is a data change here.
var AchievementThresholds = achievementTable(10, 20, 30, 40, 50)

func achievementTable(counts ...int) []Threshold {
	table := make([]Threshold, 0, len(counts))
	for _, n := range counts {
		table = append(table, Threshold{Count: n, Name: fmt.Sprintf("챌린지 %d개 달성", n)})
	}
	return table
}

// HighestAchievement returns the largest threshold met by count.
func HighestAchievement(count int) (Threshold, bool) {
	reached := AchievementsReached(count)
	if len(reached) == 0 {
		return Threshold{}, false
	}
	return reached[len(reached)-1], true
}

// AchievementsReached returns every threshold met by count, ascending.
func AchievementsReached(count int) []Threshold {
	var out []Threshold
	for _, t := range AchievementThresholds {
		if count >= t.Count {
			out = append(out, t)
		}
	}
	return out
}

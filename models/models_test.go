package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHighestAchievement(t *testing.T) {
	_, ok := HighestAchievement(9)
	assert.False(t, ok)

	got, ok := HighestAchievement(10)
	assert.True(t, ok)
	assert.Equal(t, 10, got.Count)
	assert.Equal(t, "챌린지 10개 달성", got.Name)

	got, _ = HighestAchievement(37)
	assert.Equal(t, 30, got.Count)

	got, _ = HighestAchievement(500)
	assert.Equal(t, 50, got.Count)
}

func TestAchievementsReached(t *testing.T) {
	assert.Empty(t, AchievementsReached(0))
	reached := AchievementsReached(25)
	if assert.Len(t, reached, 2) {
		assert.Equal(t, 10, reached[0].Count)
		assert.Equal(t, 20, reached[1].Count)
	}
}

func TestParseEnums(t *testing.T) {
	c, ok := ParseCategory("공부")
	assert.True(t, ok)
	assert.Equal(t, CategoryStudy, c)

	c, ok = ParseCategory("exercise")
	assert.True(t, ok)
	assert.Equal(t, CategoryExercise, c)

	_, ok = ParseCategory("cooking")
	assert.False(t, ok)

	l, ok := ParseLocation("실내")
	assert.True(t, ok)
	assert.Equal(t, LocationIndoor, l)

	d, ok := ParseDuration("WITHIN_TEN_MINUTES")
	assert.True(t, ok)
	assert.Equal(t, "10분 이내", d.Description())
}

func TestUserChallengeSucceedIsOneWay(t *testing.T) {
	uc := UserChallenge{Status: StatusTrying}

	assert.True(t, uc.Succeed())
	assert.Equal(t, StatusSuccess, uc.Status)
	assert.False(t, uc.Succeed())
	assert.Equal(t, StatusSuccess, uc.Status)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@b.com", NormalizeEmail("  A@B.com "))
}

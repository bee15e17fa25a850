package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailychallenge/server/errs"
	"github.com/dailychallenge/server/models"
)

func TestJoinTwiceIsDuplicate(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	u2 := f.user("u2")
	ch := f.challenge(owner, "c1")

	uc, err := f.joins.Join(f.ctx, ch.ID, u2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusTrying, uc.Status)

	_, err = f.joins.Join(f.ctx, ch.ID, u2.ID)
	assert.True(t, errs.IsDuplicate(err))

	var n int64
	f.db.Model(&models.UserChallenge{}).Where("challenge_id = ? AND user_id = ?", ch.ID, u2.ID).Count(&n)
	assert.EqualValues(t, 1, n)

	// the owner joined on creation
	_, err = f.joins.Join(f.ctx, ch.ID, owner.ID)
	assert.True(t, errs.IsDuplicate(err))
}

func TestJoinUnknown(t *testing.T) {
	f := newFixture(t)
	u := f.user("u")
	ch := f.challenge(u, "c1")

	_, err := f.joins.Join(f.ctx, 999, u.ID)
	assert.True(t, errs.IsNotFound(err))
	_, err = f.joins.Join(f.ctx, ch.ID, 999)
	assert.True(t, errs.IsNotFound(err))
}

func TestSucceed(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	u2 := f.user("u2")
	ch := f.challenge(owner, "c1")

	_, _, err := f.joins.Succeed(f.ctx, u2.ID, ch.ID)
	assert.True(t, errs.IsNotFound(err))

	_, err = f.joins.Join(f.ctx, ch.ID, u2.ID)
	require.NoError(t, err)

	uc, badges, err := f.joins.Succeed(f.ctx, u2.ID, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, uc.Status)
	assert.Empty(t, badges)

	uc, _, err = f.joins.Succeed(f.ctx, u2.ID, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, uc.Status)

	var stored models.UserChallenge
	require.NoError(t, f.db.Where("user_id = ? AND challenge_id = ?", u2.ID, ch.ID).First(&stored).Error)
	assert.Equal(t, models.StatusSuccess, stored.Status)
}

func TestTenthSuccessAwardsBadgeOnce(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	u := f.user("runner")

	var last []models.Badge
	for i := 0; i < 10; i++ {
		ch := f.challenge(owner, fmt.Sprintf("c%d", i))
		_, err := f.joins.Join(f.ctx, ch.ID, u.ID)
		require.NoError(t, err)
		_, awarded, err := f.joins.Succeed(f.ctx, u.ID, ch.ID)
		require.NoError(t, err)
		if i < 9 {
			assert.Empty(t, awarded, "challenge %d", i)
		}
		last = awarded
	}
	require.Len(t, last, 1)
	assert.Equal(t, "챌린지 10개 달성", last[0].Name)

	again, err := f.badges.Award(f.ctx, u.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, again)

	held, err := f.badges.ListByUser(f.ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, held, 1)
	assert.Equal(t, 10, held[0].Threshold)
}

func TestAwardCatchesUpMissedBadges(t *testing.T) {
	f := newFixture(t)
	u := f.user("u")

	awarded, err := f.badges.Award(f.ctx, u.ID, 25)
	require.NoError(t, err)
	require.Len(t, awarded, 2)
	assert.Equal(t, "챌린지 10개 달성", awarded[0].Name)
	assert.Equal(t, "챌린지 20개 달성", awarded[1].Name)
}

func TestParticipants(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	u2 := f.user("u2")
	ch := f.challenge(owner, "c1")
	_, err := f.joins.Join(f.ctx, ch.ID, u2.ID)
	require.NoError(t, err)
	_, _, err = f.joins.Succeed(f.ctx, u2.ID, ch.ID)
	require.NoError(t, err)

	ps, err := f.joins.Participants(f.ctx, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, []Participant{
		{UserID: owner.ID, UserName: "owner", ChallengeStatus: models.StatusTrying},
		{UserID: u2.ID, UserName: "u2", ChallengeStatus: models.StatusSuccess},
	}, ps)

	_, err = f.joins.Participants(f.ctx, 999)
	assert.True(t, errs.IsNotFound(err))
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	u2 := f.user("u2")
	u3 := f.user("u3")

	quiet := f.challenge(owner, "read a book", "reading")
	popular := f.challenge(owner, "push ups", "fitness", "morning")
	_, err := f.challenges.Create(f.ctx, owner.ID, ChallengeInput{
		Title: "plogging", Content: "pick up trash", Category: "봉사", Location: "실외", Duration: "1시간 이내",
		Hashtags: []string{"#morning"},
	}, nil)
	require.NoError(t, err)
	for _, u := range []*models.User{u2, u3} {
		_, err := f.joins.Join(f.ctx, popular.ID, u.ID)
		require.NoError(t, err)
	}

	all, err := f.joins.SearchAll(f.ctx, PageRequest{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, all.TotalElements)
	assert.Equal(t, "plogging", all.Content[0].Title, "newest first")

	byPopularity, err := f.joins.SearchAll(f.ctx, PageRequest{Sort: "popular"})
	require.NoError(t, err)
	assert.Equal(t, popular.ID, byPopularity.Content[0].ID)
	assert.EqualValues(t, 3, byPopularity.Content[0].HowManyUsers)
	assert.Equal(t, []string{"fitness", "morning"}, byPopularity.Content[0].Hashtags)

	res, err := f.joins.SearchByCondition(f.ctx, SearchCondition{Keyword: "book"}, PageRequest{})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	assert.Equal(t, quiet.ID, res.Content[0].ID)

	res, err = f.joins.SearchByCondition(f.ctx, SearchCondition{Hashtag: "#morning"}, PageRequest{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.TotalElements)

	res, err = f.joins.SearchByCondition(f.ctx, SearchCondition{Category: "VOLUNTEER", Location: "OUTDOOR"}, PageRequest{})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	assert.Equal(t, "plogging", res.Content[0].Title)
	assert.Equal(t, models.DurationWithinAnHour, res.Content[0].ChallengeDuration)

	_, err = f.joins.SearchByCondition(f.ctx, SearchCondition{Category: "cooking"}, PageRequest{})
	assert.True(t, errs.IsValidation(err))
}

func TestSearchKeywordMatchesWildcardsLiterally(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	percent := f.challenge(owner, "100% done")
	f.challenge(owner, "1000 steps")
	underscore := f.challenge(owner, "snake_case")
	f.challenge(owner, "snakeXcase")

	res, err := f.joins.SearchByCondition(f.ctx, SearchCondition{Keyword: "100%"}, PageRequest{})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	assert.Equal(t, percent.ID, res.Content[0].ID)

	res, err = f.joins.SearchByCondition(f.ctx, SearchCondition{Keyword: "e_c"}, PageRequest{})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	assert.Equal(t, underscore.ID, res.Content[0].ID)
}

package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailychallenge/server/errs"
	"github.com/dailychallenge/server/models"
	"github.com/dailychallenge/server/storage"
)

func TestCreateChallenge(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")

	ch, err := f.challenges.Create(f.ctx, owner.ID, ChallengeInput{
		Title:    "매일 영어 공부",
		Content:  "하루 단어 10개",
		Category: "공부",
		Location: "INDOOR",
		Duration: "30분 이내",
		Hashtags: []string{"#영어", "영어", "study"},
	}, []storage.Upload{image("cover.png")})
	require.NoError(t, err)

	assert.Equal(t, models.CategoryStudy, ch.ChallengeCategory)
	assert.Equal(t, models.DurationWithinThirtyMinutes, ch.ChallengeDuration)
	assert.Equal(t, []string{"study", "영어"}, ch.Hashtags)
	assert.Len(t, ch.ChallengeImgURLs, 1)
	assert.EqualValues(t, 1, ch.HowManyUsers)
	assert.Equal(t, owner.ID, ch.ChallengeOwnerUser.UserID)
	assert.Equal(t, 1, f.fileCount())
}

func TestCreateChallengeValidation(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	valid := ChallengeInput{Title: "t", Content: "c", Category: "STUDY", Location: "INDOOR", Duration: "OVER_AN_HOUR"}

	bad := valid
	bad.Category = "COOKING"
	_, err := f.challenges.Create(f.ctx, owner.ID, bad, nil)
	assert.True(t, errs.IsValidation(err))

	bad = valid
	bad.Title = " "
	_, err = f.challenges.Create(f.ctx, owner.ID, bad, nil)
	assert.True(t, errs.IsValidation(err))

	_, err = f.challenges.Create(f.ctx, 999, valid, nil)
	assert.True(t, errs.IsNotFound(err))

	_, err = f.challenges.Get(f.ctx, 999)
	assert.True(t, errs.IsNotFound(err))
}

func TestUpdateChallengeOwnerOnly(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	other := f.user("other")
	ch := f.challenge(owner, "before", "old")

	in := ChallengeInput{Title: "after", Content: "c", Category: "HEALTH", Location: "OUTDOOR", Duration: "WITHIN_AN_HOUR"}
	_, err := f.challenges.Update(f.ctx, ch.ID, Actor{UserID: other.ID}, in, nil)
	assert.True(t, errs.IsForbidden(err))

	updated, err := f.challenges.Update(f.ctx, ch.ID, Actor{UserID: owner.ID}, in, nil)
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Title)
	assert.Equal(t, models.CategoryHealth, updated.ChallengeCategory)
	assert.Equal(t, []string{"old"}, updated.Hashtags, "nil hashtags keep the old ones")
	assert.Equal(t, owner.ID, updated.ChallengeOwnerUser.UserID)

	in.Hashtags = []string{}
	updated, err = f.challenges.Update(f.ctx, ch.ID, Actor{UserID: owner.ID}, in, nil)
	require.NoError(t, err)
	assert.Empty(t, updated.Hashtags)
}

func TestDeleteChallengeRemovesEverything(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	u2 := f.user("u2")
	ch, err := f.challenges.Create(f.ctx, owner.ID, ChallengeInput{
		Title: "t", Content: "c", Category: "STUDY", Location: "INDOOR", Duration: "OVER_AN_HOUR", Hashtags: []string{"x"},
	}, []storage.Upload{image("a.png")})
	require.NoError(t, err)
	_, err = f.joins.Join(f.ctx, ch.ID, u2.ID)
	require.NoError(t, err)
	cm := f.comment(ch.ID, u2.ID, "hi", image("b.png"))
	_, err = f.comments.ToggleLike(f.ctx, cm.ID, owner.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 2, f.fileCount())

	assert.True(t, errs.IsForbidden(f.challenges.Delete(f.ctx, ch.ID, Actor{UserID: u2.ID})))
	require.NoError(t, f.challenges.Delete(f.ctx, ch.ID, Actor{UserID: owner.ID}))

	for _, model := range []interface{}{
		&models.Challenge{}, &models.ChallengeImg{}, &models.ChallengeHashtag{},
		&models.UserChallenge{}, &models.Comment{}, &models.CommentImg{}, &models.CommentLike{},
	} {
		var n int64
		require.NoError(t, f.db.Model(model).Count(&n).Error)
		assert.Zero(t, n, "%T", model)
	}
	assert.Equal(t, 0, f.fileCount())

	var tags int64
	f.db.Model(&models.Hashtag{}).Count(&tags)
	assert.EqualValues(t, 1, tags, "hashtag rows are shared and kept")
}

func TestPopularHashtags(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	f.challenge(owner, "a", "run", "morning")
	f.challenge(owner, "b", "run")

	tags := NewHashtagService(f.db)
	popular, err := tags.Popular(f.ctx, 10)
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, HashtagCount{Content: "run", Uses: 2}, popular[0])

	forA, err := tags.ForChallenge(f.ctx, 999)
	require.NoError(t, err)
	assert.Equal(t, []string{}, forA)
}

package services

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dailychallenge/server/models"
	"github.com/dailychallenge/server/storage"
	"github.com/dailychallenge/server/utils"
)

type fixture struct {
	t          *testing.T
	ctx        context.Context
	db         *gorm.DB
	store      *storage.Local
	comments   *CommentService
	joins      *UserChallengeService
	challenges *ChallengeService
	users      *UserService
	badges     *BadgeService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	store, err := storage.NewLocal(t.TempDir(), "/uploads", 1<<20)
	require.NoError(t, err)

	tokens := utils.NewTokenIssuer("test-secret", time.Hour)
	return &fixture{
		t:          t,
		ctx:        context.Background(),
		db:         db,
		store:      store,
		comments:   NewCommentService(db, store, nil),
		joins:      NewUserChallengeService(db),
		challenges: NewChallengeService(db, store, nil),
		users:      NewUserService(db, store, nil, tokens),
		badges:     NewBadgeService(db),
	}
}

func (f *fixture) user(name string) *models.User {
	f.t.Helper()
	u, err := f.users.Register(f.ctx, RegisterInput{
		Email:    name + "@example.com",
		UserName: name,
		Password: "passw0rd",
	}, nil)
	require.NoError(f.t, err)
	return u
}

func (f *fixture) challenge(owner *models.User, title string, tags ...string) *ChallengeSummary {
	f.t.Helper()
	ch, err := f.challenges.Create(f.ctx, owner.ID, ChallengeInput{
		Title:    title,
		Content:  title + " content",
		Category: "STUDY",
		Location: "INDOOR",
		Duration: "WITHIN_TEN_MINUTES",
		Hashtags: tags,
	}, nil)
	require.NoError(f.t, err)
	return ch
}

func (f *fixture) comment(challengeID, authorID uint, content string, images ...storage.Upload) *models.Comment {
	f.t.Helper()
	c, err := f.comments.Create(f.ctx, challengeID, authorID, content, images)
	require.NoError(f.t, err)
	return c
}

func (f *fixture) fileCount() int {
	f.t.Helper()
	var n int
	err := filepath.WalkDir(f.store.Dir(), func(_ string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			n++
		}
		return err
	})
	require.NoError(f.t, err)
	return n
}

func image(name string) storage.Upload {
	return storage.Upload{
		Filename:    name,
		ContentType: "image/png",
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("png-bytes")), nil
		},
	}
}

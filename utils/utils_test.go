package utils

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/dailychallenge/server/errs"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("passw0rd!")
	assert.NoError(t, err)
	assert.True(t, CheckPassword(hash, "passw0rd!"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("abcd1234"))
	assert.ErrorIs(t, ValidatePassword("short1"), ErrWeakPassword)
	assert.ErrorIs(t, ValidatePassword("onlyletters"), ErrWeakPassword)
	assert.ErrorIs(t, ValidatePassword("12345678"), ErrWeakPassword)
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "hello", SanitizeText(" <b>hello</b><script>alert(1)</script> "))
	assert.Equal(t, "댓글 내용0", SanitizeText("댓글 내용0"))
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"run", "morning"}, NormalizeTags([]string{"#run", " morning", "run", "", "#"}))
	assert.Equal(t, []uint{3, 1}, UniqueUint([]uint{3, 1, 3}))
}

func TestFailMapsApiErr(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
	}{
		{errs.NotFound("comment"), http.StatusNotFound},
		{errs.Forbidden("not the author"), http.StatusForbidden},
		{errs.Duplicate("participation"), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		ctx, _ := gin.CreateTestContext(w)
		ctx.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		Fail(ctx, tc.err)
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		assert.Contains(t, w.Body.String(), `"code"`)
	}
}

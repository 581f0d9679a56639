package messages

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/godeps/community-sdk-go/pkg/envelope"
)

func TestErrorMessageIgnoresBackendText(t *testing.T) {
	assert.Equal(t, "이미 존재하는 리소스입니다.", ErrorMessage(envelope.CodeAlreadyExists, "x"))
	assert.Equal(t, "로그인이 필요합니다.", ErrorMessage(envelope.CodeUnauthorized, "session expired"))
}

func TestErrorMessageFallbacks(t *testing.T) {
	assert.Equal(t, "backend says", ErrorMessage("SOMETHING_NEW", "backend says"))
	assert.Equal(t, "알 수 없는 오류가 발생했습니다.", ErrorMessage("SOMETHING_NEW", ""))
	assert.Equal(t, "fallback", ErrorMessage("", "fallback"))
}

func TestSuccessMessageDefaultsToSuccess(t *testing.T) {
	assert.Equal(t, "성공적으로 로그인되었습니다. 환영합니다!", SuccessMessage(envelope.CodeLoginSuccess))
	assert.Equal(t, "요청이 성공적으로 처리되었습니다.", SuccessMessage(""))
	assert.Equal(t, "요청이 성공적으로 처리되었습니다.", SuccessMessage("PASSWORD_UPDATED"))
}

func TestEveryErrorCodeIsMapped(t *testing.T) {
	codes := []string{
		envelope.CodeBadRequest, envelope.CodeUnauthorized, envelope.CodeForbidden,
		envelope.CodeNotFound, envelope.CodeMethodNotAllowed, envelope.CodeConflict,
		envelope.CodeTooManyRequest, envelope.CodeInternalServerError, envelope.CodeInvalidInput,
		envelope.CodeInvalidCredentials, envelope.CodeValidationError, envelope.CodeAlreadyExists,
		envelope.CodeAlreadyLogin, envelope.CodeUserNotFound, envelope.CodePostNotFound,
		envelope.CodeCommentNotFound, envelope.CodePostAlreadyLiked, envelope.CodePostAlreadyUnliked,
		envelope.CodePayloadTooLarge, envelope.CodeRateLimitExceeded,
	}
	for _, cat := range []Catalog{Korean(), English()} {
		for _, code := range codes {
			assert.NotEqualf(t, "fb", cat.ErrorMessage(code, "fb"), "%s missing %s", cat.Tag, code)
		}
		assert.Len(t, cat.Success, 7)
	}
}

func TestInvalidatesSession(t *testing.T) {
	assert.True(t, InvalidatesSession(envelope.CodeUnauthorized))
	assert.True(t, InvalidatesSession(envelope.CodeInvalidSession))
	assert.False(t, InvalidatesSession(envelope.CodeForbidden))
	assert.False(t, InvalidatesSession(""))
}

func TestLocaleSelection(t *testing.T) {
	assert.Equal(t, language.English, Match("en-US").Tag)
	assert.Equal(t, language.English, Match("fr;q=0.9, en;q=0.5").Tag)
	assert.Equal(t, language.Korean, Match("ko-KR").Tag)
	assert.Equal(t, language.Korean, Match("").Tag)
	assert.Equal(t, language.Korean, Match("!!").Tag)
	assert.Equal(t, language.English, ForLanguage(language.BritishEnglish).Tag)
}

func TestCatalogCopiesAreIndependent(t *testing.T) {
	a := Korean()
	a.Errors[envelope.CodeForbidden] = "changed"
	assert.Equal(t, "권한이 없습니다.", Korean().ErrorMessage(envelope.CodeForbidden, ""))
}

func TestLoadFileOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "messages.yaml")
	content := "errors:\n  POST_NOT_FOUND: \"삭제된 게시글입니다.\"\nsuccess:\n  CREATED: \"등록 완료\"\nnetwork: \"오프라인\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cat, err := LoadFile(path, Korean())
	require.NoError(t, err)
	assert.Equal(t, "삭제된 게시글입니다.", cat.ErrorMessage(envelope.CodePostNotFound, ""))
	assert.Equal(t, "댓글을 찾을 수 없습니다.", cat.ErrorMessage(envelope.CodeCommentNotFound, ""))
	assert.Equal(t, "등록 완료", cat.SuccessMessage(envelope.CodeCreated))
	assert.Equal(t, "오프라인", cat.NetworkMessage())
	assert.Equal(t, language.Korean, cat.Tag)

	assert.Equal(t, "게시글을 찾을 수 없습니다.", ErrorMessage(envelope.CodePostNotFound, ""))
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), Korean())
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("errors: [unterminated"), 0o600))
	base := English()
	got, err := LoadFile(path, base)
	require.Error(t, err)
	assert.Equal(t, base.Tag, got.Tag)
}

package community_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godeps/community-sdk-go/pkg/client"
	"github.com/godeps/community-sdk-go/pkg/community"
	"github.com/godeps/community-sdk-go/pkg/community/communitytest"
	"github.com/godeps/community-sdk-go/pkg/envelope"
	"github.com/godeps/community-sdk-go/pkg/session"
)

const (
	testEmail    = "neo@example.com"
	testPassword = "Abcdef1!"
)

type fixture struct {
	backend *communitytest.Backend
	svc     *community.Service
	store   *session.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend, srv := communitytest.NewServer(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := client.New(srv.URL, client.WithLogger(logger))
	require.NoError(t, err)
	store := session.NewMemoryStore()
	return &fixture{backend: backend, svc: community.New(c, store, community.WithLogger(logger)), store: store}
}

func (f *fixture) login(t *testing.T, email, password, nickname string) int64 {
	t.Helper()
	id := f.backend.SeedUser(email, password, nickname)
	_, err := f.svc.Login(context.Background(), community.Credentials{Email: email, Password: password})
	require.NoError(t, err)
	return id
}

func failureOf(t *testing.T, err error) *envelope.Failure {
	t.Helper()
	var f *envelope.Failure
	require.True(t, errors.As(err, &f), "expected *envelope.Failure, got %v", err)
	return f
}

func TestLoginStoresSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.backend.SeedUser(testEmail, testPassword, "neo")

	res, err := f.svc.Login(ctx, community.Credentials{Email: testEmail, Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, envelope.CodeLoginSuccess, res.Code)
	assert.Equal(t, id, res.Value.UserID)

	sess, err := f.store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, session.Session{UserID: id, Email: testEmail, Nickname: "neo"}, *sess)

	me, err := f.svc.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "neo", me.Value.Nickname)

	_, err = f.svc.Login(ctx, community.Credentials{Email: testEmail, Password: testPassword})
	assert.Equal(t, envelope.CodeAlreadyLogin, failureOf(t, err).Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.SeedUser(testEmail, testPassword, "neo")

	_, err := f.svc.Login(ctx, community.Credentials{Email: testEmail, Password: "Wrong123!"})
	fail := failureOf(t, err)
	assert.Equal(t, http.StatusUnauthorized, fail.Status)
	assert.Equal(t, envelope.CodeInvalidCredentials, fail.Code)
	assert.False(t, session.LoggedIn(ctx, f.store))
}

func TestSignupAndAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	avail, err := f.svc.EmailAvailable(ctx, testEmail)
	require.NoError(t, err)
	assert.True(t, avail.Value.Available)

	img := "/uploads/a.png"
	res, err := f.svc.Signup(ctx, community.SignupInput{Email: testEmail, Password: testPassword, Nickname: "neo", ProfileImageURL: &img})
	require.NoError(t, err)
	assert.Equal(t, envelope.CodeSignupSuccess, res.Code)
	assert.Equal(t, img, res.Value.ProfileImageURL)
	assert.False(t, session.LoggedIn(ctx, f.store), "signup does not log in")

	avail, err = f.svc.EmailAvailable(ctx, testEmail)
	require.NoError(t, err)
	assert.False(t, avail.Value.Available)
	avail, err = f.svc.NicknameAvailable(ctx, "trinity")
	require.NoError(t, err)
	assert.True(t, avail.Value.Available)

	_, err = f.svc.Signup(ctx, community.SignupInput{Email: testEmail, Password: testPassword, Nickname: "other"})
	fail := failureOf(t, err)
	assert.Equal(t, http.StatusConflict, fail.Status)
	assert.Equal(t, envelope.CodeAlreadyExists, fail.Code)
	msg, ok := fail.Details.First("email")
	require.True(t, ok)
	assert.Equal(t, "이미 사용중입니다", msg)
	_, has := fail.Details.First("nickname")
	assert.False(t, has)

	_, err = f.svc.Signup(ctx, community.SignupInput{Email: "bad", Password: "short", Nickname: "a b"})
	fail = failureOf(t, err)
	assert.Equal(t, envelope.CodeValidationError, fail.Code)
	assert.Equal(t, []string{"email", "nickname", "password"}, fail.Details.Fields())
}

func TestLogoutClearsSessionEvenOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t, testEmail, testPassword, "neo")

	f.backend.FailNext(http.StatusInternalServerError, envelope.CodeInternalServerError, "boom", nil)
	_, err := f.svc.Logout(ctx)
	assert.Equal(t, envelope.CodeInternalServerError, failureOf(t, err).Code)
	assert.False(t, session.LoggedIn(ctx, f.store))
}

func TestLogoutEndsBackendSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t, testEmail, testPassword, "neo")

	res, err := f.svc.Logout(ctx)
	require.NoError(t, err)
	assert.Equal(t, envelope.CodeLogoutSuccess, res.Code)

	_, err = f.svc.Me(ctx)
	assert.Equal(t, envelope.CodeUnauthorized, failureOf(t, err).Code)
}

func TestExpiredSessionIsInvalidSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t, testEmail, testPassword, "neo")
	f.backend.ExpireSessions()

	_, err := f.svc.Me(ctx)
	fail := failureOf(t, err)
	assert.Equal(t, envelope.CodeInvalidSession, fail.Code)
	assert.NotEqual(t, envelope.LocalRequestID, fail.RequestID)
}

func TestUpdateProfileOverwritesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.SeedUser("taken@example.com", testPassword, "taken")
	id := f.login(t, testEmail, testPassword, "neo")

	nick := "morpheus"
	img := "/uploads/m.png"
	res, err := f.svc.UpdateProfile(ctx, community.ProfileUpdate{Nickname: &nick, ProfileImageURL: &img})
	require.NoError(t, err)
	assert.Equal(t, envelope.CodeUpdated, res.Code)

	sess, err := f.store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Session{UserID: id, Email: testEmail, Nickname: nick, ProfileImageURL: img}, *sess)

	taken := "taken"
	_, err = f.svc.UpdateProfile(ctx, community.ProfileUpdate{Nickname: &taken})
	assert.Equal(t, envelope.CodeAlreadyExists, failureOf(t, err).Code)
	sess, _ = f.store.Load(ctx)
	assert.Equal(t, nick, sess.Nickname, "failed update leaves the session alone")
}

func TestChangePasswordThenLoginAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t, testEmail, testPassword, "neo")

	_, err := f.svc.ChangePassword(ctx, "weak")
	assert.Equal(t, envelope.CodeValidationError, failureOf(t, err).Code)

	res, err := f.svc.ChangePassword(ctx, "Newpass1!")
	require.NoError(t, err)
	assert.Equal(t, "PASSWORD_UPDATED", res.Code)

	_, err = f.svc.Logout(ctx)
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, community.Credentials{Email: testEmail, Password: "Newpass1!"})
	require.NoError(t, err)
}

func TestWithdrawClearsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t, testEmail, testPassword, "neo")

	res, err := f.svc.Withdraw(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Code, "204 carries no code")
	assert.False(t, session.LoggedIn(ctx, f.store))

	_, err = f.svc.Login(ctx, community.Credentials{Email: testEmail, Password: testPassword})
	assert.Equal(t, envelope.CodeInvalidCredentials, failureOf(t, err).Code)
}

func TestPostsPaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.backend.SeedUser(testEmail, testPassword, "neo")
	f.backend.SeedPosts(author, 25)

	first, err := f.svc.ListPosts(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Value.Page)
	assert.Len(t, first.Value.Posts, community.DefaultPageSize)
	assert.True(t, first.Value.HasNext)
	assert.Equal(t, "제목 25", first.Value.Posts[0].Title, "newest first")
	assert.Equal(t, "neo", first.Value.Posts[0].Author.Nickname)

	last, err := f.svc.ListPosts(ctx, 3, 10)
	require.NoError(t, err)
	assert.Len(t, last.Value.Posts, 5)
	assert.False(t, last.Value.HasNext)

	empty, err := f.svc.ListPosts(ctx, 9, 10)
	require.NoError(t, err)
	assert.Empty(t, empty.Value.Posts)
}

func TestPostLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t, testEmail, testPassword, "neo")

	_, err := f.svc.CreatePost(ctx, community.PostInput{Title: "  ", Content: "x"})
	fail := failureOf(t, err)
	assert.Equal(t, envelope.CodeValidationError, fail.Code)
	assert.Equal(t, []string{"title"}, fail.Details.Fields())

	img, err := f.svc.UploadPostImage(ctx, client.File{Name: "cat.png", ContentType: "image/png", Content: strings.NewReader("meow")})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(img.Value.PostImageURL, "/uploads/"))

	created, err := f.svc.CreatePost(ctx, community.PostInput{Title: "hello", Content: "world", PostImageURL: img.Value.PostImageURL})
	require.NoError(t, err)
	assert.Equal(t, envelope.CodeCreated, created.Code)
	id := created.Value.PostID

	resp, err := http.Get(f.svc.ImageURL(created.Value.PostImageURL))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "meow", string(body))

	got, err := f.svc.GetPost(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "world", got.Value.Content)
	assert.EqualValues(t, 1, got.Value.ViewCount)

	updated, err := f.svc.UpdatePost(ctx, id, community.PostInput{Title: "hello2", Content: "world2"})
	require.NoError(t, err)
	assert.Equal(t, "hello2", updated.Value.Title)
	assert.Equal(t, img.Value.PostImageURL, updated.Value.PostImageURL)

	liked, err := f.svc.LikePost(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, community.Like{LikeCount: 1, IsLiked: true}, liked.Value)
	_, err = f.svc.LikePost(ctx, id)
	assert.Equal(t, envelope.CodePostAlreadyLiked, failureOf(t, err).Code)
	unliked, err := f.svc.UnlikePost(ctx, id)
	require.NoError(t, err)
	assert.False(t, unliked.Value.IsLiked)
	_, err = f.svc.UnlikePost(ctx, id)
	assert.Equal(t, envelope.CodePostAlreadyUnliked, failureOf(t, err).Code)

	_, err = f.svc.DeletePost(ctx, id)
	require.NoError(t, err)
	_, err = f.svc.GetPost(ctx, id)
	fail = failureOf(t, err)
	assert.Equal(t, http.StatusNotFound, fail.Status)
	assert.Equal(t, envelope.CodePostNotFound, fail.Code)
}

func TestCommentsLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := f.backend.SeedUser("other@example.com", testPassword, "other")
	postID := f.backend.SeedPosts(other, 1)[0]
	f.login(t, testEmail, testPassword, "neo")

	c, err := f.svc.CreateComment(ctx, postID, "first!")
	require.NoError(t, err)
	assert.Equal(t, "neo", c.Value.Author.Nickname)

	_, err = f.svc.CreateComment(ctx, postID, " ")
	assert.Equal(t, envelope.CodeValidationError, failureOf(t, err).Code)

	edited, err := f.svc.UpdateComment(ctx, postID, c.Value.CommentID, "second")
	require.NoError(t, err)
	assert.Equal(t, "second", edited.Value.Content)

	list, err := f.svc.ListComments(ctx, postID)
	require.NoError(t, err)
	require.Len(t, list.Value, 1)
	assert.Equal(t, "second", list.Value[0].Content)

	post, err := f.svc.GetPost(ctx, postID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, post.Value.CommentCount)

	_, err = f.svc.DeletePost(ctx, postID)
	assert.Equal(t, envelope.CodeForbidden, failureOf(t, err).Code)

	_, err = f.svc.DeleteComment(ctx, postID, c.Value.CommentID)
	require.NoError(t, err)
	_, err = f.svc.DeleteComment(ctx, postID, c.Value.CommentID)
	assert.Equal(t, envelope.CodeCommentNotFound, failureOf(t, err).Code)
}

func TestUploadProfileImageWithoutLogin(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.UploadProfileImage(context.Background(), client.File{Name: "me.jpg", Content: strings.NewReader("\xff\xd8\xffjpeg")})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.Value.ProfileImageURL, ".jpg"))
}

func TestUnauthenticatedWrite(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreatePost(context.Background(), community.PostInput{Title: "t", Content: "c"})
	fail := failureOf(t, err)
	assert.Equal(t, envelope.CodeUnauthorized, fail.Code)
	assert.False(t, fail.Transport())
}

func TestPayloadMismatchIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = envelope.Write(w, r, http.StatusOK, envelope.OK(envelope.CodeSuccess, "not a user"))
	}))
	defer srv.Close()
	c, err := client.New(srv.URL, client.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	_, err = community.New(c, nil).Me(context.Background())
	fail := failureOf(t, err)
	assert.True(t, fail.Transport())
	assert.Error(t, fail.Err)
}

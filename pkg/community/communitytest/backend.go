// Package communitytest provides an in-memory forum backend speaking the
// response envelope. It backs the community tests and the mock-backend host.
package communitytest

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/godeps/community-sdk-go/pkg/community"
	"github.com/godeps/community-sdk-go/pkg/envelope"
	"github.com/godeps/community-sdk-go/pkg/validate"
)

const (
	// SessionCookie names the cookie carrying the session id.
	SessionCookie = "session_id"
	maxUpload     = 10 << 20
	maxPageSize   = 50
)

type user struct {
	community.User
	password string
}

type post struct {
	community.Post
	authorID int64
	likes    map[int64]bool
}

type comment struct {
	community.Comment
	authorID int64
}

type apiError struct {
	status  int
	code    string
	message string
	details envelope.Details
}

func fail(status int, code, message string) *apiError {
	return &apiError{status: status, code: code, message: message}
}

// Backend is a fake forum server. The zero value is not usable; call New.
type Backend struct {
	mu       sync.Mutex
	users    map[int64]*user
	sessions map[string]int64
	posts    map[int64]*post
	comments map[int64][]*comment
	uploads  map[string]upload
	nextID   int64
	injected []*apiError
	calls    []string

	now    func() time.Time
	logger *slog.Logger
	mux    *http.ServeMux
}

type upload struct {
	contentType string
	data        []byte
}

type Option func(*Backend)

// WithClock fixes the time used for created timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		if now != nil {
			b.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.logger = l
		}
	}
}

func New(opts ...Option) *Backend {
	b := &Backend{
		users:    map[int64]*user{},
		sessions: map[string]int64{},
		posts:    map[int64]*post{},
		comments: map[int64][]*comment{},
		uploads:  map[string]upload{},
		now:      time.Now,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	b.routes()
	return b
}

// NewServer starts b on an httptest server closed at the end of the test.
func NewServer(t testing.TB, opts ...Option) (*Backend, *httptest.Server) {
	t.Helper()
	b := New(opts...)
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *Backend) routes() {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+community.RouteLogin, b.wrap(b.login))
	mux.HandleFunc("POST "+community.RouteLogout, b.wrap(b.logout))
	mux.HandleFunc("POST "+community.RouteSignup, b.wrap(b.signup))
	mux.HandleFunc("GET "+community.RouteEmailAvailable, b.wrap(b.emailAvailable))
	mux.HandleFunc("GET "+community.RouteNicknameAvailable, b.wrap(b.nicknameAvailable))
	mux.HandleFunc("POST "+community.RouteProfileImage, b.wrap(b.uploadImage(community.FieldProfileImage, "profileImageUrl", false)))
	mux.HandleFunc("GET "+community.RouteMe, b.wrap(b.me))
	mux.HandleFunc("PATCH "+community.RouteMe, b.wrap(b.updateMe))
	mux.HandleFunc("DELETE "+community.RouteMe, b.wrap(b.withdraw))
	mux.HandleFunc("PATCH "+community.RoutePassword, b.wrap(b.changePassword))
	mux.HandleFunc("GET "+community.RoutePosts, b.wrap(b.listPosts))
	mux.HandleFunc("POST "+community.RoutePosts, b.wrap(b.createPost))
	mux.HandleFunc("POST "+community.RoutePostImage, b.wrap(b.uploadImage(community.FieldPostImage, "postImageUrl", true)))
	mux.HandleFunc("GET "+community.RoutePost, b.wrap(b.getPost))
	mux.HandleFunc("PATCH "+community.RoutePost, b.wrap(b.updatePost))
	mux.HandleFunc("DELETE "+community.RoutePost, b.wrap(b.deletePost))
	mux.HandleFunc("POST "+community.RouteLikes, b.wrap(b.like))
	mux.HandleFunc("DELETE "+community.RouteLikes, b.wrap(b.unlike))
	mux.HandleFunc("GET "+community.RouteComments, b.wrap(b.listComments))
	mux.HandleFunc("POST "+community.RouteComments, b.wrap(b.createComment))
	mux.HandleFunc("PATCH "+community.RouteComment, b.wrap(b.updateComment))
	mux.HandleFunc("DELETE "+community.RouteComment, b.wrap(b.deleteComment))
	mux.HandleFunc("GET /uploads/{name}", b.serveUpload)
	mux.HandleFunc("/", b.wrap(func(*http.Request, http.ResponseWriter) (int, envelope.Envelope, *apiError) {
		return 0, envelope.Envelope{}, fail(http.StatusNotFound, envelope.CodeNotFound, "not found")
	}))
	b.mux = mux
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(envelope.RequestIDHeader) == "" {
		r.Header.Set(envelope.RequestIDHeader, uuid.NewString())
	}
	b.mux.ServeHTTP(w, r)
}

type handlerFunc func(r *http.Request, w http.ResponseWriter) (int, envelope.Envelope, *apiError)

func (b *Backend) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls = append(b.calls, r.Method+" "+r.URL.Path)
		var injected *apiError
		if len(b.injected) > 0 {
			injected, b.injected = b.injected[0], b.injected[1:]
		}
		b.mu.Unlock()

		status, env, apiErr := 0, envelope.Envelope{}, injected
		if apiErr == nil {
			status, env, apiErr = h(r, w)
		}
		if apiErr != nil {
			status = apiErr.status
			env = envelope.Fail(apiErr.code, apiErr.message, apiErr.details)
		}
		if err := envelope.Write(w, r, status, env); err != nil {
			b.logger.Warn("communitytest: write response", "path", r.URL.Path, "error", err)
		}
		b.logger.Debug("communitytest: served", "method", r.Method, "path", r.URL.Path, "status", status, "code", env.Code)
	}
}

// FailNext makes the next request answer with the given failure, whatever
// its route.
func (b *Backend) FailNext(status int, code, message string, details map[string][]string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.injected = append(b.injected, &apiError{status: status, code: code, message: message, details: details})
}

// Calls lists "METHOD /path" of every request served so far.
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// ExpireSessions forgets every session; later requests carrying the old
// cookie answer INVALID_SESSION.
func (b *Backend) ExpireSessions() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id := range b.sessions {
		b.sessions[id] = 0
	}
}

// SeedUser registers a user directly and returns its id.
func (b *Backend) SeedUser(email, password, nickname string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUserLocked(email, password, nickname, "")
}

// SeedPosts creates n posts by author with ascending titles and returns their ids.
func (b *Backend) SeedPosts(author int64, n int) []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]int64, 0, n)
	for i := 1; i <= n; i++ {
		p := b.addPostLocked(author, community.PostInput{
			Title:   "제목 " + strconv.Itoa(i),
			Content: "내용 " + strconv.Itoa(i),
		})
		ids = append(ids, p.PostID)
	}
	return ids
}

func (b *Backend) id() int64 {
	b.nextID++
	return b.nextID
}

func (b *Backend) addUserLocked(email, password, nickname, image string) int64 {
	id := b.id()
	b.users[id] = &user{
		User:     community.User{UserID: id, Email: email, Nickname: nickname, ProfileImageURL: image},
		password: password,
	}
	return id
}

func (b *Backend) addPostLocked(author int64, in community.PostInput) *post {
	now := b.now()
	p := &post{
		Post: community.Post{
			PostID:       b.id(),
			Title:        in.Title,
			Content:      in.Content,
			PostImageURL: in.PostImageURL,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		authorID: author,
		likes:    map[int64]bool{},
	}
	b.posts[p.PostID] = p
	return p
}

func (b *Backend) authorLocked(id int64) community.Author {
	u, ok := b.users[id]
	if !ok {
		return community.Author{Nickname: "(탈퇴한 사용자)"}
	}
	return community.Author{UserID: u.UserID, Nickname: u.Nickname, ProfileImageURL: u.ProfileImageURL}
}

func (b *Backend) viewPostLocked(p *post, viewer int64) community.Post {
	out := p.Post
	out.Author = b.authorLocked(p.authorID)
	out.LikeCount = int64(len(p.likes))
	out.CommentCount = int64(len(b.comments[p.PostID]))
	out.IsLiked = p.likes[viewer]
	return out
}

// viewer resolves the session cookie. Without a cookie the request is
// UNAUTHORIZED; an unknown or expired session is INVALID_SESSION.
func (b *Backend) viewer(r *http.Request) (int64, *apiError) {
	ck, err := r.Cookie(SessionCookie)
	if err != nil || ck.Value == "" {
		return 0, fail(http.StatusUnauthorized, envelope.CodeUnauthorized, "login required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.sessions[ck.Value]
	if _, ok := b.users[id]; !ok {
		return 0, fail(http.StatusUnauthorized, envelope.CodeInvalidSession, "session expired")
	}
	return id, nil
}

func decodeBody(r *http.Request, v any) *apiError {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fail(http.StatusBadRequest, envelope.CodeBadRequest, "malformed json")
	}
	return nil
}

func validation(details envelope.Details) *apiError {
	if len(details) == 0 {
		return nil
	}
	return &apiError{status: http.StatusBadRequest, code: envelope.CodeValidationError, message: "validation failed", details: details}
}

func pathID(r *http.Request, name string) (int64, *apiError) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fail(http.StatusBadRequest, envelope.CodeInvalidInput, "bad "+name)
	}
	return id, nil
}

func (b *Backend) login(r *http.Request, w http.ResponseWriter) (int, envelope.Envelope, *apiError) {
	var in community.Credentials
	if e := decodeBody(r, &in); e != nil {
		return 0, envelope.Envelope{}, e
	}
	if ck, err := r.Cookie(SessionCookie); err == nil {
		b.mu.Lock()
		_, active := b.users[b.sessions[ck.Value]]
		b.mu.Unlock()
		if active {
			return 0, envelope.Envelope{}, fail(http.StatusConflict, envelope.CodeAlreadyLogin, "already logged in")
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if strings.EqualFold(u.Email, in.Email) {
			if u.password != in.Password {
				break
			}
			sid := uuid.NewString()
			b.sessions[sid] = u.UserID
			http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: sid, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
			return http.StatusOK, envelope.OK(envelope.CodeLoginSuccess, u.User), nil
		}
	}
	return 0, envelope.Envelope{}, fail(http.StatusUnauthorized, envelope.CodeInvalidCredentials, "invalid credentials")
}

func (b *Backend) logout(r *http.Request, w http.ResponseWriter) (int, envelope.Envelope, *apiError) {
	if _, e := b.viewer(r); e != nil {
		return 0, envelope.Envelope{}, e
	}
	ck, _ := r.Cookie(SessionCookie)
	b.mu.Lock()
	delete(b.sessions, ck.Value)
	b.mu.Unlock()
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	return http.StatusOK, envelope.OK(envelope.CodeLogoutSuccess, nil), nil
}

func (b *Backend) emailTakenLocked(email string, except int64) bool {
	for _, u := range b.users {
		if u.UserID != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (b *Backend) nicknameTakenLocked(nickname string, except int64) bool {
	for _, u := range b.users {
		if u.UserID != except && u.Nickname == nickname {
			return true
		}
	}
	return false
}

func (b *Backend) signup(r *http.Request, _ http.ResponseWriter) (int, envelope.Envelope, *apiError) {
	var in community.SignupInput
	if e := decodeBody(r, &in); e != nil {
		return 0, envelope.Envelope{}, e
	}
	details := envelope.Details{}
	if !validate.Email(in.Email) {
		details["email"] = []string{"올바른 이메일 형식이 아닙니다"}
	}
	if !validate.Password(in.Password) {
		details["password"] = []string{"비밀번호 형식이 올바르지 않습니다"}
	}
	if in.Nickname == "" {
		details["nickname"] = []string{"닉네임을 입력해주세요"}
	} else if res := validate.Nickname(in.Nickname); !res.Valid {
		details["nickname"] = []string{strings.TrimPrefix(res.Message, "*")}
	}
	if e := validation(details); e != nil {
		return 0, envelope.Envelope{}, e
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.emailTakenLocked(in.Email, 0) {
		details["email"] = []string{"이미 사용중입니다"}
	}
	if b.nicknameTakenLocked(in.Nickname, 0) {
		details["nickname"] = []string{"이미 사용중입니다"}
	}
	if len(details) > 0 {
		return 0, envelope.Envelope{}, &apiError{status: http.StatusConflict, code: envelope.CodeAlreadyExists, message: "already exists", details: details}
	}
	image := ""
	if in.ProfileImageURL != nil {
		image = *in.ProfileImageURL
	}
	id := b.addUserLocked(in.Email, in.Password, in.Nickname, image)
	return http.StatusCreated, envelope.OK(envelope.CodeSignupSuccess, b.users[id].User), nil
}

func (b *Backend) emailAvailable(r *http.Request, _ http.ResponseWriter) (int, envelope.Envelope, *apiError) {
	email := r.URL.Query().Get("email")
	if !validate.Email(email) {
		return 0, envelope.Envelope{}, fail(http.StatusBadRequest, envelope.CodeInvalidInput, "invalid email")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return http.StatusOK, envelope.OK(envelope.CodeSuccess, community.Availability{Available: !b.emailTakenLocked(email, 0)}), nil
}

func (b *Backend) nicknameAvailable(r *http.Request, _ http.ResponseWriter) (int, envelope.Envelope, *apiError) {
	nickname := r.URL.Query().Get("nickname")
	if nickname == "" || !validate.Nickname(nickname).Valid {
		return 0, envelope.Envelope{}, fail(http.StatusBadRequest, envelope.CodeInvalidInput, "invalid nickname")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return http.StatusOK, envelope.OK(envelope.CodeSuccess, community.Availability{Available: !b.nicknameTakenLocked(nickname, 0)}), nil
}

// uploadImage stores the multipart field and answers with {key: url}.
func (b *Backend) uploadImage(field, key string, needsLogin bool) handlerFunc {
	return func(r *http.Request, w http.ResponseWriter) (int, envelope.Envelope, *apiError) {
		if needsLogin {
			if _, e := b.viewer(r); e != nil {
				return 0, envelope.Envelope{}, e
			}
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxUpload+1<<16)
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return 0, envelope.Envelope{}, fail(http.StatusRequestEntityTooLarge, envelope.CodePayloadTooLarge, "file too large")
			}
			return 0, envelope.Envelope{}, fail(http.StatusBadRequest, envelope.CodeInvalidInput, "multipart form required")
		}
		defer r.MultipartForm.RemoveAll()
		file, hdr, err := r.FormFile(field)
		if err != nil {
			return 0, envelope.Envelope{}, fail(http.StatusBadRequest, envelope.CodeInvalidInput, field+" required")
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return 0, envelope.Envelope{}, fail(http.StatusBadRequest, envelope.CodeInvalidInput, "unreadable file")
		}
		if len(data) > maxUpload {
			return 0, envelope.Envelope{}, fail(http.StatusRequestEntityTooLarge, envelope.CodePayloadTooLarge, "file too large")
		}
		name := uuid.NewString() + strings.ToLower(path.Ext(hdr.Filename))
		b.mu.Lock()
		b.uploads[name] = upload{contentType: hdr.Header.Get("Content-Type"), data: data}
		b.mu.Unlock()
		return http.StatusCreated, envelope.OK(envelope.CodeCreated, map[string]string{key: "/uploads/" + name}), nil
	}
}

func (b *Backend) serveUpload(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	up, ok := b.uploads[r.PathValue("name")]
	b.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	if up.contentType != "" {
		w.Header().Set("Content-Type", up.contentType)
	}
	_, _ = w.Write(up.data)
}

func (b *Backend) me(r *http.Request, _ http.ResponseWriter) (int, envelope.Envelope, *apiError) {
	id, e := b.viewer(r)
	if e != nil {
		return 0, envelope.Envelope{}, e
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return http.StatusOK, envelope.OK(envelope.CodeSuccess, b.users[id].User), nil
}

func (b *Backend) updateMe(r *http.Request, _ http.ResponseWriter) (int, envelope.Envelope, *apiError) {
	id, e := b.viewer(r)
	if e != nil {
		return 0, envelope.Envelope{}, e
	}
	var in community.ProfileUpdate
	if e := decodeBody(r, &in); e != nil {
		return 0, envelope.Envelope{}, e
	}
	if in.Nickname != nil {
		if *in.Nickname == "" {
			return 0, envelope.Envelope{}, validation(envelope.Details{"nickname": {"닉네임을 입력해주세요"}})
		}
		if res := validate.Nickname(*in.Nickname); !res.Valid {
			return 0, envelope.Envelope{}, validation(envelope.Details{"nickname": {strings.TrimPrefix(res.Message, "*")}})
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[id]
	if !ok {
		return 0, envelope.Envelope{}, fail(http.StatusNotFound, envelope.CodeUserNotFound, "user not found")
	}
	if in.Nickname != nil {
		if b.nicknameTakenLocked(*in.Nickname, id) {
			return 0, envelope.Envelope{}, &apiError{status: http.StatusConflict, code: envelope.CodeAlreadyExists, message: "already exists",
				details: envelope.Details{"nickname": {"이미 사용중입니다"}}}
		}
		u.Nickname = *in.Nickname
	}
	if in.ProfileImageURL != nil {
		u.ProfileImageURL = *in.ProfileImageURL
	}
	return http.StatusOK, envelope.OK(envelope.CodeUpdated, u.User), nil
}

func (b *Backend) withdraw(r *http.Request, w http.ResponseWriter) (int, envelope.Envelope, *apiError) {
	id, e := b.viewer(r)
	if e != nil {
		return 0, envelope.Envelope{}, e
	}
	b.mu.Lock()
	delete(b.users, id)
	for sid, uid := range b.sessions {
		if uid == id {
			delete(b.sessions, sid)
		}
	}
	b.mu.Unlock()
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	return http.StatusNoContent, envelope.Envelope{}, nil
}

func (b *Backend) changePassword(r *http.Request, _ http.ResponseWriter) (int, envelope.Envelope, *apiError) {
	id, e := b.viewer(r)
	if e != nil {
		return 0, envelope.Envelope{}, e
	}
	var in struct {
		Password string `json:"password"`
	}
	if e := decodeBody(r, &in); e != nil {
		return 0, envelope.Envelope{}, e
	}
	if !validate.Password(in.Password) {
		return 0, envelope.Envelope{}, validation(envelope.Details{"password": {"비밀번호 형식이 올바르지 않습니다"}})
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[id].password = in.Password
	return http.StatusOK, envelope.OK("PASSWORD_UPDATED", nil), nil
}

func queryInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// optionalViewer resolves the session without requiring one.
func (b *Backend) optionalViewer(r *http.Request) int64 {
	id, _ := b.viewer(r)
	return id
}

func (b *Backend) listPosts(r *http.Request, _ http.ResponseWriter) (int, envelope.Envelope, *apiError) {
	viewer := b.optionalViewer(r)
	page := queryInt(r, "page", 1)
	limit := min(queryInt(r, "limit", community.DefaultPageSize), maxPageSize)

	b.mu.Lock()
	defer b.mu.Unlock()
	all := make([]*post, 0, len(b.posts))
	for _, p := range b.posts {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].PostID > all[j].PostID })

	start := (page - 1) * limit
	end := min(start+limit, len(all))
	out := community.PostPage{Posts: []community.Post{}, Page: page, Limit: limit}
	if start < len(all) {
		for _, p := range all[start:end] {
			v := b.viewPostLocked(p, viewer)
			v.Content = ""
			out.Posts = append(out.Posts, v)
		}
		out.HasNext = end < len(all)
	}
	return http.StatusOK, envelope.OK(envelope.CodeSuccess, out), nil
}

func postInput(r *http.Request) (community.PostInput, *apiError) {
	var in community.PostInput
	if e := decodeBody(r, &in); e != nil {
		return in, e
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	details := envelope.Details{}
	if in.Title == "" {
		details["title"] = []string{"제목을 입력해주세요"}
	}
	if in.Content == "" {
		details["content"] = []string{"내용을 입력해주세요"}
	}
	return in, validation(details)
}

func (b *Backend) createPost(r *http.Request, _ http.ResponseWriter) (int, envelope.Envelope, *apiError) {
	id, e := b.viewer(r)
	if e != nil {
		return 0, envelope.Envelope{}, e
	}
	in, e := postInput(r)
	if e != nil {
		return 0, envelope.Envelope{}, e
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.addPostLocked(id, in)
	return http.StatusCreated, envelope.OK(envelope.CodeCreated, b.viewPostLocked(p, id)), nil
}

// ownPost loads the post and checks the viewer wrote it. Caller holds b.mu.
func (b *Backend) ownPostLocked(postID, viewer int64) (*post, *apiError) {
	p, ok := b.posts[postID]
	if !ok {
		return nil, fail(http.StatusNotFound, envelope.CodePostNotFound, "post not found")
	}
	if p.authorID != viewer {
		return nil, fail(http.StatusForbidden, envelope.CodeForbidden, "not the author")
	}
	return p, nil
}

func (b *Backend) getPost(r *http.Request, _ http.ResponseWriter) (int, envelope.Envelope, *apiError) {
	viewer := b.optionalViewer(r)
	id, e := pathID(r, "id")
	if e != nil {
		return 0, envelope.Envelope{}, e
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.posts[id]
	if !ok {
		return 0, envelope.Envelope{}, fail(http.StatusNotFound, envelope.CodePostNotFound, "post not found")
	}
	p.ViewCount++
	return http.StatusOK, envelope.OK(envelope.CodeSuccess, b.viewPostLocked(p, viewer)), nil
}

func (b *Backend) updatePost(r *http.Request, _ http.ResponseWriter) (int, envelope.Envelope, *apiError) {
	viewer, e := b.viewer(r)
	if e != nil {
		return 0, envelope.Envelope{}, e
	}
	id, e := pathID(r, "id")
	if e != nil {
		return 0, envelope.Envelope{}, e
	}
	in, e := postInput(r)
	if e != nil {
		return 0, envelope.Envelope{}, e
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, e := b.ownPostLocked(id, viewer)
	if e != nil {
		return 0, envelope.Envelope{}, e
	}
	p.Title, p.Content = in.Title, in.Content
	if in.PostImageURL != "" {
		p.PostImageURL = in.PostImageURL
	}
	p.UpdatedAt = b.now()
	return http.StatusOK, envelope.OK(envelope.CodeUpdated, b.viewPostLocked(p, viewer)), nil
}

func (b *Backend) deletePost(r *http.Request, _ http.ResponseWriter) (int, envelope.Envelope, *apiError) {
	viewer, e := b.viewer(r)
	if e != nil {
		return 0, envelope.Envelope{}, e
	}
	id, e := pathID(r, "id")
	if e != nil {
		return 0, envelope.Envelope{}, e
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, e := b.ownPostLocked(id, viewer); e != nil {
		return 0, envelope.Envelope{}, e
	}
	delete(b.posts, id)
	delete(b.comments, id)
	return http.StatusOK, envelope.OK(envelope.CodeDeleted, nil), nil
}

func (b *Backend) setLike(r *http.Request, liked bool) (int, envelope.Envelope, *apiError) {
	viewer, e := b.viewer(r)
	if e != nil {
		return 0, envelope.Envelope{}, e
	}
	id, e := pathID(r, "id")
	if e != nil {
		return 0, envelope.Envelope{}, e
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.posts[id]
	if !ok {
		return 0, envelope.Envelope{}, fail(http.StatusNotFound, envelope.CodePostNotFound, "post not found")
	}
	switch {
	case liked && p.likes[viewer]:
		return 0, envelope.Envelope{}, fail(http.StatusConflict, envelope.CodePostAlreadyLiked, "already liked")
	case !liked && !p.likes[viewer]:
		return 0, envelope.Envelope{}, fail(http.StatusConflict, envelope.CodePostAlreadyUnliked, "not liked")
	}
	status, code := http.StatusOK, envelope.CodeDeleted
	if liked {
		p.likes[viewer] = true
		status, code = http.StatusCreated, envelope.CodeCreated
	} else {
		delete(p.likes, viewer)
	}
	return status, envelope.OK(code, community.Like{LikeCount: int64(len(p.likes)), IsLiked: liked}), nil
}

func (b *Backend) like(r *http.Request, _ http.ResponseWriter) (int, envelope.Envelope, *apiError) {
	return b.setLike(r, true)
}

func (b *Backend) unlike(r *http.Request, _ http.ResponseWriter) (int, envelope.Envelope, *apiError) {
	return b.setLike(r, false)
}

func (b *Backend) listComments(r *http.Request, _ http.ResponseWriter) (int, envelope.Envelope, *apiError) {
	id, e := pathID(r, "id")
	if e != nil {
		return 0, envelope.Envelope{}, e
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.posts[id]; !ok {
		return 0, envelope.Envelope{}, fail(http.StatusNotFound, envelope.CodePostNotFound, "post not found")
	}
	out := make([]community.Comment, 0, len(b.comments[id]))
	for _, c := range b.comments[id] {
		v := c.Comment
		v.Author = b.authorLocked(c.authorID)
		out = append(out, v)
	}
	return http.StatusOK, envelope.OK(envelope.CodeSuccess, out), nil
}

func commentInput(r *http.Request) (community.CommentInput, *apiError) {
	var in community.CommentInput
	if e := decodeBody(r, &in); e != nil {
		return in, e
	}
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" {
		return in, validation(envelope.Details{"content": {"댓글 내용을 입력해주세요."}})
	}
	return in, nil
}

func (b *Backend) createComment(r *http.Request, _ http.ResponseWriter) (int, envelope.Envelope, *apiError) {
	viewer, e := b.viewer(r)
	if e != nil {
		return 0, envelope.Envelope{}, e
	}
	postID, e := pathID(r, "id")
	if e != nil {
		return 0, envelope.Envelope{}, e
	}
	in, e := commentInput(r)
	if e != nil {
		return 0, envelope.Envelope{}, e
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.posts[postID]; !ok {
		return 0, envelope.Envelope{}, fail(http.StatusNotFound, envelope.CodePostNotFound, "post not found")
	}
	c := &comment{
		Comment: community.Comment{
			CommentID: b.id(),
			PostID:    postID,
			Content:   in.Content,
			CreatedAt: b.now(),
		},
		authorID: viewer,
	}
	b.comments[postID] = append(b.comments[postID], c)
	v := c.Comment
	v.Author = b.authorLocked(viewer)
	return http.StatusCreated, envelope.OK(envelope.CodeCreated, v), nil
}

// ownCommentLocked finds the comment and checks the viewer wrote it.
func (b *Backend) ownCommentLocked(postID, commentID, viewer int64) (int, *apiError) {
	if _, ok := b.posts[postID]; !ok {
		return -1, fail(http.StatusNotFound, envelope.CodePostNotFound, "post not found")
	}
	for i, c := range b.comments[postID] {
		if c.CommentID != commentID {
			continue
		}
		if c.authorID != viewer {
			return -1, fail(http.StatusForbidden, envelope.CodeForbidden, "not the author")
		}
		return i, nil
	}
	return -1, fail(http.StatusNotFound, envelope.CodeCommentNotFound, "comment not found")
}

func (b *Backend) commentTarget(r *http.Request) (viewer, postID, commentID int64, e *apiError) {
	if viewer, e = b.viewer(r); e != nil {
		return
	}
	if postID, e = pathID(r, "id"); e != nil {
		return
	}
	commentID, e = pathID(r, "commentId")
	return
}

func (b *Backend) updateComment(r *http.Request, _ http.ResponseWriter) (int, envelope.Envelope, *apiError) {
	viewer, postID, commentID, e := b.commentTarget(r)
	if e != nil {
		return 0, envelope.Envelope{}, e
	}
	in, e := commentInput(r)
	if e != nil {
		return 0, envelope.Envelope{}, e
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	i, e := b.ownCommentLocked(postID, commentID, viewer)
	if e != nil {
		return 0, envelope.Envelope{}, e
	}
	c := b.comments[postID][i]
	c.Content = in.Content
	v := c.Comment
	v.Author = b.authorLocked(viewer)
	return http.StatusOK, envelope.OK(envelope.CodeUpdated, v), nil
}

func (b *Backend) deleteComment(r *http.Request, _ http.ResponseWriter) (int, envelope.Envelope, *apiError) {
	viewer, postID, commentID, e := b.commentTarget(r)
	if e != nil {
		return 0, envelope.Envelope{}, e
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	i, e := b.ownCommentLocked(postID, commentID, viewer)
	if e != nil {
		return 0, envelope.Envelope{}, e
	}
	list := b.comments[postID]
	b.comments[postID] = append(list[:i:i], list[i+1:]...)
	return http.StatusNoContent, envelope.Envelope{}, nil
}

// Package community is the typed API of the forum backend. Every method
// returns a Result on success and a *envelope.Failure as the error otherwise,
// so callers can hand the error straight to feedback.Handler.
package community

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/godeps/community-sdk-go/pkg/client"
	"github.com/godeps/community-sdk-go/pkg/envelope"
	"github.com/godeps/community-sdk-go/pkg/session"
)

// Result is a decoded success. Code is the backend result code, used to pick
// the success message.
type Result[T any] struct {
	Code  string
	Value T
	// Raw is the untouched outcome.
	Raw envelope.Success
}

// Service binds a client to the session store kept in sync by the auth and
// user calls.
type Service struct {
	client *client.Client
	store  session.Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a Service. A nil store keeps the session in memory.
func New(c *client.Client, store session.Store, opts ...Option) *Service {
	if store == nil {
		store = session.NewMemoryStore()
	}
	s := &Service{client: c, store: store, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Service) Client() *client.Client { return s.client }

func (s *Service) Store() session.Store { return s.store }

// ImageURL resolves an image reference from a payload against the base URL.
func (s *Service) ImageURL(ref string) string { return s.client.ResolveURL(ref) }

// decode turns an outcome into a typed result. A payload that does not fit T
// is reported as a failure without a status.
func decode[T any](out envelope.Outcome) (Result[T], error) {
	switch o := out.(type) {
	case envelope.Success:
		v, err := envelope.As[T](o)
		if err != nil {
			return Result[T]{}, envelope.TransportFailure(err)
		}
		return Result[T]{Code: o.Code, Value: v, Raw: o}, nil
	case *envelope.Failure:
		return Result[T]{}, o
	case nil:
		return Result[T]{}, envelope.TransportFailure(fmt.Errorf("community: empty outcome"))
	default:
		return Result[T]{}, envelope.TransportFailure(fmt.Errorf("community: unexpected outcome %T", out))
	}
}

func do[T any](ctx context.Context, s *Service, call client.Call) (Result[T], error) {
	return decode[T](s.client.Do(ctx, call))
}

func (s *Service) saveSession(ctx context.Context, u User) {
	sess := session.Session{
		UserID:          u.UserID,
		Email:           u.Email,
		Nickname:        u.Nickname,
		ProfileImageURL: u.ProfileImageURL,
	}
	if err := s.store.Save(ctx, sess); err != nil {
		s.logger.Warn("community: session not saved", "user_id", u.UserID, "error", err)
	}
}

func (s *Service) clearSession(ctx context.Context) {
	if err := s.store.Clear(ctx); err != nil {
		s.logger.Warn("community: session not cleared", "error", err)
	}
	if c, ok := s.client.Jar().(interface{ Clear() error }); ok {
		if err := c.Clear(); err != nil {
			s.logger.Warn("community: cookies not cleared", "error", err)
		}
	}
}

// Login authenticates and stores the returned user as the session.
func (s *Service) Login(ctx context.Context, cred Credentials) (Result[User], error) {
	res, err := do[User](ctx, s, client.Call{Method: http.MethodPost, Route: RouteLogin, Body: cred})
	if err != nil {
		return res, err
	}
	s.saveSession(ctx, res.Value)
	return res, nil
}

// Logout ends the session on the backend. The local session is cleared even
// when the backend call fails.
func (s *Service) Logout(ctx context.Context) (Result[struct{}], error) {
	res, err := do[struct{}](ctx, s, client.Call{Method: http.MethodPost, Route: RouteLogout})
	s.clearSession(ctx)
	return res, err
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (Result[User], error) {
	return do[User](ctx, s, client.Call{Method: http.MethodPost, Route: RouteSignup, Body: in})
}

func (s *Service) EmailAvailable(ctx context.Context, email string) (Result[Availability], error) {
	return do[Availability](ctx, s, client.Call{
		Method: http.MethodGet,
		Route:  RouteEmailAvailable,
		Query:  url.Values{"email": {email}},
	})
}

func (s *Service) NicknameAvailable(ctx context.Context, nickname string) (Result[Availability], error) {
	return do[Availability](ctx, s, client.Call{
		Method: http.MethodGet,
		Route:  RouteNicknameAvailable,
		Query:  url.Values{"nickname": {nickname}},
	})
}

// UploadProfileImage uploads an avatar before signup or a profile update.
func (s *Service) UploadProfileImage(ctx context.Context, f client.File) (Result[ProfileImage], error) {
	return decode[ProfileImage](s.client.Upload(ctx, RouteProfileImage, FieldProfileImage, f))
}

func (s *Service) Me(ctx context.Context) (Result[User], error) {
	return do[User](ctx, s, client.Call{Method: http.MethodGet, Route: RouteMe})
}

// UpdateProfile applies in and overwrites the session with the updated user.
func (s *Service) UpdateProfile(ctx context.Context, in ProfileUpdate) (Result[User], error) {
	res, err := do[User](ctx, s, client.Call{Method: http.MethodPatch, Route: RouteMe, Body: in})
	if err != nil {
		return res, err
	}
	u := res.Value
	if u.UserID == 0 {
		// backend answered without a body; patch the stored record instead
		cur, lerr := s.store.Load(ctx)
		if lerr != nil || cur == nil {
			return res, nil
		}
		u = User{UserID: cur.UserID, Email: cur.Email, Nickname: cur.Nickname, ProfileImageURL: cur.ProfileImageURL}
		if in.Nickname != nil {
			u.Nickname = *in.Nickname
		}
		if in.ProfileImageURL != nil {
			u.ProfileImageURL = *in.ProfileImageURL
		}
	}
	s.saveSession(ctx, u)
	return res, nil
}

func (s *Service) ChangePassword(ctx context.Context, password string) (Result[struct{}], error) {
	return do[struct{}](ctx, s, client.Call{
		Method: http.MethodPatch,
		Route:  RoutePassword,
		Body:   map[string]string{"password": password},
	})
}

// Withdraw deletes the account and, on success, the local session.
func (s *Service) Withdraw(ctx context.Context) (Result[struct{}], error) {
	res, err := do[struct{}](ctx, s, client.Call{Method: http.MethodDelete, Route: RouteMe})
	if err != nil {
		return res, err
	}
	s.clearSession(ctx)
	return res, nil
}

// ListPosts loads page (1-based) of the post list. Non-positive arguments
// fall back to page 1 and DefaultPageSize.
func (s *Service) ListPosts(ctx context.Context, page, limit int) (Result[PostPage], error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	res, err := do[PostPage](ctx, s, client.Call{
		Method: http.MethodGet,
		Route:  RoutePosts,
		Query:  url.Values{"page": {strconv.Itoa(page)}, "limit": {strconv.Itoa(limit)}},
	})
	if err == nil {
		if res.Value.Page == 0 {
			res.Value.Page = page
		}
		if res.Value.Limit == 0 {
			res.Value.Limit = limit
		}
	}
	return res, err
}

func postCall(method, route string, body any, args ...any) client.Call {
	return client.Call{Method: method, Route: route, Target: client.Expand(route, args...), Body: body}
}

func (s *Service) GetPost(ctx context.Context, id int64) (Result[Post], error) {
	return do[Post](ctx, s, postCall(http.MethodGet, RoutePost, nil, id))
}

func (s *Service) CreatePost(ctx context.Context, in PostInput) (Result[Post], error) {
	return do[Post](ctx, s, client.Call{Method: http.MethodPost, Route: RoutePosts, Body: in})
}

func (s *Service) UpdatePost(ctx context.Context, id int64, in PostInput) (Result[Post], error) {
	return do[Post](ctx, s, postCall(http.MethodPatch, RoutePost, in, id))
}

func (s *Service) DeletePost(ctx context.Context, id int64) (Result[struct{}], error) {
	return do[struct{}](ctx, s, postCall(http.MethodDelete, RoutePost, nil, id))
}

func (s *Service) UploadPostImage(ctx context.Context, f client.File) (Result[PostImage], error) {
	return decode[PostImage](s.client.Upload(ctx, RoutePostImage, FieldPostImage, f))
}

func (s *Service) LikePost(ctx context.Context, id int64) (Result[Like], error) {
	return do[Like](ctx, s, postCall(http.MethodPost, RouteLikes, nil, id))
}

func (s *Service) UnlikePost(ctx context.Context, id int64) (Result[Like], error) {
	return do[Like](ctx, s, postCall(http.MethodDelete, RouteLikes, nil, id))
}

func (s *Service) ListComments(ctx context.Context, postID int64) (Result[[]Comment], error) {
	return do[[]Comment](ctx, s, postCall(http.MethodGet, RouteComments, nil, postID))
}

func (s *Service) CreateComment(ctx context.Context, postID int64, content string) (Result[Comment], error) {
	return do[Comment](ctx, s, postCall(http.MethodPost, RouteComments, CommentInput{Content: content}, postID))
}

func (s *Service) UpdateComment(ctx context.Context, postID, commentID int64, content string) (Result[Comment], error) {
	return do[Comment](ctx, s, postCall(http.MethodPatch, RouteComment, CommentInput{Content: content}, postID, commentID))
}

func (s *Service) DeleteComment(ctx context.Context, postID, commentID int64) (Result[struct{}], error) {
	return do[struct{}](ctx, s, postCall(http.MethodDelete, RouteComment, nil, postID, commentID))
}

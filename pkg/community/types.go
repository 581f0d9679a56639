package community

import "time"

// Route templates of the backend.
const (
	RouteLogin             = "/v1/auth/login"
	RouteLogout            = "/v1/auth/logout"
	RouteSignup            = "/v1/auth/signup"
	RouteEmailAvailable    = "/v1/auth/emails/availability"
	RouteNicknameAvailable = "/v1/auth/nicknames/availability"
	RouteProfileImage      = "/v1/auth/profile-image"
	RouteMe                = "/v1/users/me"
	RoutePassword          = "/v1/users/password"
	RoutePosts             = "/v1/posts"
	RoutePost              = "/v1/posts/{id}"
	RoutePostImage         = "/v1/posts/image"
	RouteLikes             = "/v1/posts/{id}/likes"
	RouteComments          = "/v1/posts/{id}/comments"
	RouteComment           = "/v1/posts/{id}/comments/{commentId}"
)

// Multipart field names of the upload routes.
const (
	FieldProfileImage = "profileImage"
	FieldPostImage    = "postImage"
)

// DefaultPageSize is the number of posts per page of the list view.
const DefaultPageSize = 10

type User struct {
	UserID          int64  `json:"userId"`
	Email           string `json:"email"`
	Nickname        string `json:"nickname"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

// Author is the public face of a user attached to posts and comments.
type Author struct {
	UserID          int64  `json:"userId,omitempty"`
	Nickname        string `json:"nickname"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

type Post struct {
	PostID       int64     `json:"postId"`
	Title        string    `json:"title"`
	Content      string    `json:"content,omitempty"`
	PostImageURL string    `json:"postImageUrl,omitempty"`
	LikeCount    int64     `json:"likeCount"`
	CommentCount int64     `json:"commentCount"`
	ViewCount    int64     `json:"viewCount"`
	IsLiked      bool      `json:"isLiked"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt,omitzero"`
	Author       Author    `json:"author"`
}

// PostPage is one page of the post list.
type PostPage struct {
	Posts   []Post `json:"posts"`
	Page    int    `json:"page"`
	Limit   int    `json:"limit"`
	HasNext bool   `json:"hasNext"`
}

type Comment struct {
	CommentID int64     `json:"commentId"`
	PostID    int64     `json:"postId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Author    Author    `json:"author"`
}

type Availability struct {
	Available bool `json:"available"`
}

// Like is the like state of a post after a like or unlike.
type Like struct {
	LikeCount int64 `json:"likeCount"`
	IsLiked   bool  `json:"isLiked"`
}

type ProfileImage struct {
	ProfileImageURL string `json:"profileImageUrl"`
}

type PostImage struct {
	PostImageURL string `json:"postImageUrl"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupInput registers a user. A nil ProfileImageURL is sent as null.
type SignupInput struct {
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	Nickname        string  `json:"nickname"`
	ProfileImageURL *string `json:"profileImageUrl"`
}

// ProfileUpdate changes the fields that are non-nil.
type ProfileUpdate struct {
	Nickname        *string `json:"nickname,omitempty"`
	ProfileImageURL *string `json:"profileImageUrl,omitempty"`
}

type PostInput struct {
	Title        string `json:"title"`
	Content      string `json:"content"`
	PostImageURL string `json:"postImageUrl,omitempty"`
}

type CommentInput struct {
	Content string `json:"content"`
}

package messages

import (
	"golang.org/x/text/language"

	"github.com/godeps/community-sdk-go/pkg/envelope"
)

var korean = Catalog{
	Tag: language.Korean,
	Errors: map[string]string{
		envelope.CodeBadRequest:          "잘못된 요청입니다.",
		envelope.CodeUnauthorized:        "로그인이 필요합니다.",
		envelope.CodeForbidden:           "권한이 없습니다.",
		envelope.CodeNotFound:            "요청하신 리소스를 찾을 수 없습니다.",
		envelope.CodeMethodNotAllowed:    "허용되지 않은 요청 메서드입니다.",
		envelope.CodeConflict:            "중복된 데이터이거나 리소스 충돌이 발생했습니다.",
		envelope.CodeTooManyRequest:      "요청이 너무 많습니다. 잠시 후 다시 시도해주세요.",
		envelope.CodeInternalServerError: "서버 내부 오류가 발생했습니다. 잠시 후 다시 시도해주세요.",

		envelope.CodeInvalidInput:       "입력 값이 올바르지 않습니다.",
		envelope.CodeInvalidCredentials: "이메일 또는 비밀번호가 올바르지 않습니다.",
		envelope.CodeValidationError:    "입력 데이터 검증에 실패했습니다.",

		envelope.CodeAlreadyExists: "이미 존재하는 리소스입니다.",
		envelope.CodeAlreadyLogin:  "이미 로그인된 상태입니다.",

		envelope.CodeUserNotFound:    "사용자를 찾을 수 없습니다.",
		envelope.CodePostNotFound:    "게시글을 찾을 수 없습니다.",
		envelope.CodeCommentNotFound: "댓글을 찾을 수 없습니다.",

		envelope.CodePostAlreadyLiked:   "이미 좋아요를 누른 게시글입니다.",
		envelope.CodePostAlreadyUnliked: "좋아요를 누르지 않은 게시글입니다.",
		envelope.CodePayloadTooLarge:    "업로드한 파일의 크기가 너무 큽니다.",
		envelope.CodeRateLimitExceeded:  "요청 빈도가 너무 높습니다. 잠시 후 다시 시도해주세요.",
	},
	Success: map[string]string{
		envelope.CodeSuccess:       "요청이 성공적으로 처리되었습니다.",
		envelope.CodeCreated:       "정상적으로 생성되었습니다.",
		envelope.CodeUpdated:       "정상적으로 수정되었습니다.",
		envelope.CodeDeleted:       "정상적으로 삭제되었습니다.",
		envelope.CodeLoginSuccess:  "성공적으로 로그인되었습니다. 환영합니다!",
		envelope.CodeSignupSuccess: "회원가입이 완료되었습니다. 로그인을 진행해주세요.",
		envelope.CodeLogoutSuccess: "성공적으로 로그아웃되었습니다.",
	},
	Network: "네트워크 오류가 발생했습니다. 서버 연결을 확인해주세요.",
	Unknown: "알 수 없는 오류가 발생했습니다.",
}

var english = Catalog{
	Tag: language.English,
	Errors: map[string]string{
		envelope.CodeBadRequest:          "The request was invalid.",
		envelope.CodeUnauthorized:        "Please log in first.",
		envelope.CodeForbidden:           "You do not have permission.",
		envelope.CodeNotFound:            "The requested resource was not found.",
		envelope.CodeMethodNotAllowed:    "That request method is not allowed.",
		envelope.CodeConflict:            "The data conflicts with an existing resource.",
		envelope.CodeTooManyRequest:      "Too many requests. Please try again shortly.",
		envelope.CodeInternalServerError: "The server hit an internal error. Please try again shortly.",

		envelope.CodeInvalidInput:       "The input is not valid.",
		envelope.CodeInvalidCredentials: "The email or password is incorrect.",
		envelope.CodeValidationError:    "Input validation failed.",

		envelope.CodeAlreadyExists: "That resource already exists.",
		envelope.CodeAlreadyLogin:  "You are already logged in.",

		envelope.CodeUserNotFound:    "User not found.",
		envelope.CodePostNotFound:    "Post not found.",
		envelope.CodeCommentNotFound: "Comment not found.",

		envelope.CodePostAlreadyLiked:   "You already liked this post.",
		envelope.CodePostAlreadyUnliked: "You have not liked this post.",
		envelope.CodePayloadTooLarge:    "The uploaded file is too large.",
		envelope.CodeRateLimitExceeded:  "Request rate too high. Please try again shortly.",
	},
	Success: map[string]string{
		envelope.CodeSuccess:       "Request completed.",
		envelope.CodeCreated:       "Created.",
		envelope.CodeUpdated:       "Updated.",
		envelope.CodeDeleted:       "Deleted.",
		envelope.CodeLoginSuccess:  "Logged in. Welcome!",
		envelope.CodeSignupSuccess: "Sign-up complete. Please log in.",
		envelope.CodeLogoutSuccess: "Logged out.",
	},
	Network: "Network error. Please check the server connection.",
	Unknown: "An unknown error occurred.",
}

var supported = []language.Tag{language.Korean, language.English}

var matcher = language.NewMatcher(supported)

// Korean returns a private copy of the default catalog.
func Korean() Catalog { return korean.clone() }

// English returns a private copy of the English catalog.
func English() Catalog { return english.clone() }

// ForLanguage returns the catalog that best serves tag, falling back to Korean.
func ForLanguage(tag language.Tag) Catalog {
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return Korean()
	}
	return byIndex(idx)
}

// Match parses a locale or Accept-Language style string ("en-US",
// "en;q=0.8, ko") and returns the best catalog. Unparsable input yields Korean.
func Match(locale string) Catalog {
	tags, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(tags) == 0 {
		return Korean()
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Korean()
	}
	return byIndex(idx)
}

func byIndex(idx int) Catalog {
	if supported[idx] == language.English {
		return English()
	}
	return Korean()
}

package form

import (
	"strings"

	"github.com/godeps/community-sdk-go/pkg/validate"
)

const (
	MessageEmailFormat     = "*올바른 이메일 주소 형식을 입력해주세요. (예: example@example.com)"
	MessagePasswordEmpty   = "*비밀번호를 입력해주세요."
	MessagePasswordRule    = "*비밀번호는 8자 이상, 20자 이하이며, 대문자, 소문자, 숫자, 특수문자를 각각 최소 1개 포함해야 합니다."
	MessageLoginPassword   = "* 비밀번호는 8자 이상, 20자 이하이며, 대문자, 소문자, 숫자, 특수문자를 각각 최소 1개 포함해야 합니다."
	MessageConfirmEmpty    = "*비밀번호를 한번더 입력해주세요"
	MessageConfirmMismatch = "*비밀번호가 다릅니다."
	MessageNicknameEmpty   = "*닉네임을 입력해주세요."
	MessageEmailTaken      = "*이미 사용 중인 이메일입니다."
	MessageNicknameTaken   = "*이미 사용 중인 닉네임입니다."
	MessageCheckFailed     = "*중복 확인 중 오류가 발생했습니다."
	MessageEmailAvailable  = "사용 가능한 이메일입니다."
	MessageNickAvailable   = "사용 가능한 닉네임입니다."

	MessageNewPasswordEmpty   = "*비밀번호를 입력해주세요"
	MessageNewConfirmEmpty    = "*비밀번호를 한번 더 입력해주세요"
	MessageNewConfirmMismatch = "*비밀번호와 다릅니다."

	MessagePostIncomplete = "*제목, 내용을 모두 작성해주세요"
	MessageCommentEmpty   = "댓글 내용을 입력해주세요."
)

// Check is the state of a duplicate check against the backend.
type Check int

const (
	Unchecked Check = iota
	Available
	Taken
	CheckFailed
)

// CheckOf folds an availability call into a Check.
func CheckOf(available bool, err error) Check {
	switch {
	case err != nil:
		return CheckFailed
	case available:
		return Available
	default:
		return Taken
	}
}

type Login struct {
	Email    string
	Password string
}

func (in Login) Validate(t Touched) Validation {
	b := newVerdict(t)
	if in.Email == "" || !validate.Email(in.Email) {
		b.fail(FieldEmail, MessageEmailFormat)
	} else {
		b.ok(FieldEmail)
	}
	switch {
	case in.Password == "":
		b.fail(FieldPassword, MessagePasswordEmpty)
	case !validate.Password(in.Password):
		b.fail(FieldPassword, MessageLoginPassword)
	default:
		b.ok(FieldPassword)
	}
	return b.v
}

// Signup is ready only when every field is valid and both duplicate checks
// came back available.
type Signup struct {
	Email         string
	Password      string
	Confirm       string
	Nickname      string
	EmailCheck    Check
	NicknameCheck Check
}

func (in Signup) Validate(t Touched) Validation {
	b := newVerdict(t)

	switch {
	case in.Email == "" || !validate.Email(in.Email):
		b.fail(FieldEmail, MessageEmailFormat)
	default:
		checked(b, FieldEmail, in.EmailCheck, MessageEmailAvailable, MessageEmailTaken)
	}

	passwordValid(b, in.Password, MessagePasswordEmpty, MessagePasswordRule)

	switch {
	case in.Confirm == "":
		b.fail(FieldConfirm, MessageConfirmEmpty)
	case in.Confirm != in.Password:
		b.fail(FieldConfirm, MessageConfirmMismatch)
	default:
		b.ok(FieldConfirm)
	}

	res := validate.Nickname(in.Nickname)
	switch {
	case in.Nickname == "":
		b.fail(FieldNickname, MessageNicknameEmpty)
	case !res.Valid:
		b.fail(FieldNickname, res.Message)
	default:
		checked(b, FieldNickname, in.NicknameCheck, MessageNickAvailable, MessageNicknameTaken)
	}
	return b.v
}

// checked renders the duplicate-check state of a syntactically valid field.
// Check results show even on untouched fields.
func checked(b *verdict, field string, c Check, available, taken string) {
	switch c {
	case Available:
		b.show(field, available)
	case Taken:
		b.v.Ready = false
		b.show(field, taken)
	case CheckFailed:
		b.v.Ready = false
		b.show(field, MessageCheckFailed)
	default:
		b.v.Ready = false
		b.ok(field)
	}
}

func passwordValid(b *verdict, pw, empty, rule string) {
	switch {
	case pw == "":
		b.fail(FieldPassword, empty)
	case !validate.Password(pw):
		b.fail(FieldPassword, rule)
	default:
		b.ok(FieldPassword)
	}
}

type PasswordChange struct {
	Password string
	Confirm  string
}

func (in PasswordChange) Validate(t Touched) Validation {
	b := newVerdict(t)
	passwordValid(b, in.Password, MessageNewPasswordEmpty, MessagePasswordRule)
	switch {
	case in.Confirm == "":
		b.fail(FieldConfirm, MessageNewConfirmEmpty)
	case in.Confirm != in.Password:
		b.fail(FieldConfirm, MessageNewConfirmMismatch)
	default:
		b.ok(FieldConfirm)
	}
	return b.v
}

type Profile struct {
	Nickname string
}

func (in Profile) Validate(t Touched) Validation {
	b := newVerdict(t)
	if in.Nickname == "" {
		b.fail(FieldNickname, MessageNicknameEmpty)
		return b.v
	}
	if res := validate.Nickname(in.Nickname); !res.Valid {
		b.fail(FieldNickname, res.Message)
		return b.v
	}
	b.ok(FieldNickname)
	return b.v
}

// Post needs a non-blank title and content. The complaint is form-level.
type Post struct {
	Title   string
	Content string
}

func (in Post) Validate(Touched) Validation {
	v := Validation{Helpers: map[string]string{}, Ready: true}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Content) == "" {
		v.Ready = false
		v.Message = MessagePostIncomplete
	}
	return v
}

type Comment struct {
	Content string
}

func (in Comment) Validate(Touched) Validation {
	if strings.TrimSpace(in.Content) == "" {
		return Validation{Helpers: map[string]string{}, Message: MessageCommentEmpty}
	}
	return Validation{Helpers: map[string]string{}, Ready: true}
}

// Package validate holds the field syntax checks shared by the signup, login
// and profile flows. Every function is pure and safe for concurrent use.
package validate

import (
	"regexp"
	"strings"
	"unicode/utf16"
)

// MaxNicknameLength is counted in UTF-16 code units, matching how the web
// client measured input length.
const MaxNicknameLength = 10

const (
	MessageNicknameSpace  = "*띄어쓰기를 없애주세요"
	MessageNicknameLength = "*닉네임은 최대 10자 까지 작성 가능합니다."
)

// notSpaceOrAt matches one character that is neither "@" nor whitespace as
// browsers define it, which includes NBSP, the line separators and the
// ideographic space produced by CJK input methods.
const notSpaceOrAt = `[^\t\n\v\f\r \x{00a0}\x{1680}\x{2000}-\x{200a}\x{2028}\x{2029}\x{202f}\x{205f}\x{3000}\x{feff}@]`

var (
	emailRe = regexp.MustCompile(`^` + notSpaceOrAt + `+@` + notSpaceOrAt + `+\.` + notSpaceOrAt + `+$`)

	passwordCharsRe = regexp.MustCompile(`^[A-Za-z0-9@$!%*?&]{8,20}$`)
	lowerRe         = regexp.MustCompile(`[a-z]`)
	upperRe         = regexp.MustCompile(`[A-Z]`)
	digitRe         = regexp.MustCompile(`[0-9]`)
	specialRe       = regexp.MustCompile(`[@$!%*?&]`)
)

// NicknameResult reports whether a nickname is acceptable and, if not, the
// helper text to show next to the input.
type NicknameResult struct {
	Valid   bool
	Message string
}

// Email reports whether s looks like local@domain.tld.
func Email(s string) bool {
	return emailRe.MatchString(s)
}

// Password reports whether s is 8-20 characters from [A-Za-z0-9@$!%*?&] and
// contains at least one lowercase letter, uppercase letter, digit and special
// character.
func Password(s string) bool {
	if !passwordCharsRe.MatchString(s) {
		return false
	}
	return lowerRe.MatchString(s) && upperRe.MatchString(s) && digitRe.MatchString(s) && specialRe.MatchString(s)
}

// Nickname rejects nicknames containing a space or longer than
// MaxNicknameLength.
func Nickname(s string) NicknameResult {
	if strings.Contains(s, " ") {
		return NicknameResult{Message: MessageNicknameSpace}
	}
	if utf16Len(s) > MaxNicknameLength {
		return NicknameResult{Message: MessageNicknameLength}
	}
	return NicknameResult{Valid: true}
}

func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}

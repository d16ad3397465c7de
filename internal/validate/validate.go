// Package validate holds the input rules shared by every auth endpoint.
//
// The password rule here is the same predicate list the frontend strength
// indicator renders, so a password the UI accepts is never rejected here.
package validate

import (
	"strings"
	"unicode/utf16"
)

const (
	minPhoneDigits = 8
	maxPhoneDigits = 15
	codeLength     = 6

	// MinPasswordLength is measured with PasswordLength.
	MinPasswordLength = 8

	// PasswordSymbols is the set of characters that satisfy the symbol rule.
	PasswordSymbols = `!@#$%^&*(),.?":{}|<>`
)

const (
	MsgPhoneRequired     = "Telefone é obrigatório"
	MsgPhoneInvalid      = "Formato de telefone inválido"
	MsgCodeRequired      = "Código é obrigatório"
	MsgCodeInvalid       = "Código deve ter 6 dígitos"
	MsgPasswordRequired  = "Senha é obrigatória"
	MsgPasswordLength    = "Senha deve ter no mínimo 8 caracteres"
	MsgPasswordDigit     = "Senha deve conter pelo menos 1 número"
	MsgPasswordSymbol    = "Senha deve conter pelo menos 1 símbolo especial"
	MsgPasswordUppercase = "Senha deve conter pelo menos 1 letra maiúscula"
)

// FieldError names the offending field and a message that is safe to show.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Message }

// NormalizePhone trims surrounding whitespace and a single leading '+'.
// Any other non-digit character is left in place for ValidatePhone to reject.
func NormalizePhone(raw string) string {
	return strings.TrimPrefix(strings.TrimSpace(raw), "+")
}

// ValidatePhone normalizes raw and accepts 8 to 15 ASCII digits.
func ValidatePhone(raw string) (string, error) {
	phone := NormalizePhone(raw)
	if phone == "" {
		return "", &FieldError{Field: "phoneNumber", Message: MsgPhoneRequired}
	}
	if len(phone) < minPhoneDigits || len(phone) > maxPhoneDigits || !allDigits(phone) {
		return "", &FieldError{Field: "phoneNumber", Message: MsgPhoneInvalid}
	}
	return phone, nil
}

// ValidateCode accepts exactly six ASCII digits.
func ValidateCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", &FieldError{Field: "code", Message: MsgCodeRequired}
	}
	if len(code) != codeLength || !allDigits(code) {
		return "", &FieldError{Field: "code", Message: MsgCodeInvalid}
	}
	return code, nil
}

// ValidatePassword reports the first unmet strength rule, in a fixed order:
// length, digit, symbol, uppercase.
func ValidatePassword(password string) (string, error) {
	if password == "" {
		return "", &FieldError{Field: "password", Message: MsgPasswordRequired}
	}
	for _, req := range PasswordRequirements(password) {
		if !req.Met {
			return "", &FieldError{Field: "password", Message: req.failure}
		}
	}
	return password, nil
}

// Requirement is one password rule and whether a candidate meets it.
type Requirement struct {
	Label   string `json:"label"`
	Met     bool   `json:"met"`
	failure string
}

// PasswordRequirements evaluates every rule independently, in display order.
func PasswordRequirements(password string) []Requirement {
	var digit, symbol, upper bool
	for _, r := range password {
		if r >= '0' && r <= '9' {
			digit = true
		}
		if strings.ContainsRune(PasswordSymbols, r) {
			symbol = true
		}
		if r >= 'A' && r <= 'Z' {
			upper = true
		}
	}
	return []Requirement{
		{Label: "Mínimo 8 caracteres", Met: PasswordLength(password) >= MinPasswordLength, failure: MsgPasswordLength},
		{Label: "Pelo menos 1 número", Met: digit, failure: MsgPasswordDigit},
		{Label: "Pelo menos 1 símbolo especial", Met: symbol, failure: MsgPasswordSymbol},
		{Label: "Pelo menos 1 letra maiúscula", Met: upper, failure: MsgPasswordUppercase},
	}
}

// PasswordLength counts UTF-16 code units, the unit browsers use for string
// length, so a character outside the BMP counts twice.
func PasswordLength(password string) int {
	return len(utf16.Encode([]rune(password)))
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

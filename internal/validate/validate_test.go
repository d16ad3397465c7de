package validate

import (
	"errors"
	"testing"
)

func TestValidatePhone(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantMsg string
	}{
		{in: "+15551234567", want: "15551234567"},
		{in: " +5511987654321 ", want: "5511987654321"},
		{in: "12345678", want: "12345678"},
		{in: "123456789012345", want: "123456789012345"},
		{in: "1234567", wantMsg: MsgPhoneInvalid},
		{in: "1234567890123456", wantMsg: MsgPhoneInvalid},
		{in: "5511abc4321", wantMsg: MsgPhoneInvalid},
		{in: "+55 (11) 98765-4321", wantMsg: MsgPhoneInvalid},
		{in: "1234-5678", wantMsg: MsgPhoneInvalid},
		{in: "(11) 9999 8888", wantMsg: MsgPhoneInvalid},
		{in: "++15551234567", wantMsg: MsgPhoneInvalid},
		{in: "１２３４５６７８", wantMsg: MsgPhoneInvalid},
		{in: "", wantMsg: MsgPhoneRequired},
		{in: " + ", wantMsg: MsgPhoneRequired},
	}
	for _, tc := range cases {
		got, err := ValidatePhone(tc.in)
		if tc.wantMsg == "" {
			if err != nil {
				t.Fatalf("ValidatePhone(%q): unexpected error %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("ValidatePhone(%q) = %q, want %q", tc.in, got, tc.want)
			}
			continue
		}
		var fe *FieldError
		if !errors.As(err, &fe) || fe.Message != tc.wantMsg {
			t.Fatalf("ValidatePhone(%q): expected %q got %v", tc.in, tc.wantMsg, err)
		}
	}
}

func TestValidateCode(t *testing.T) {
	for _, good := range []string{"123456", "000000"} {
		if _, err := ValidateCode(good); err != nil {
			t.Fatalf("code %q rejected: %v", good, err)
		}
	}
	for _, bad := range []string{"12345", "1234567", "12a456", "١٢٣٤٥٦"} {
		if _, err := ValidateCode(bad); err == nil {
			t.Fatalf("code %q accepted", bad)
		}
	}
}

func TestValidatePasswordRuleOrder(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", MsgPasswordRequired},
		{"Ab1!", MsgPasswordLength},
		{"Abcdefgh!", MsgPasswordDigit},
		{"Abcdefg1", MsgPasswordSymbol},
		{"abcdefg1!", MsgPasswordUppercase},
		{"abc", MsgPasswordLength},
		{"Ébcdefg1!", MsgPasswordUppercase},
		{"Çação12!", MsgPasswordUppercase},
		{"Ab1!😀", MsgPasswordLength},
	}
	for _, tc := range cases {
		_, err := ValidatePassword(tc.in)
		var fe *FieldError
		if !errors.As(err, &fe) || fe.Message != tc.want {
			t.Fatalf("ValidatePassword(%q): expected %q got %v", tc.in, tc.want, err)
		}
	}

	for _, ok := range []string{"Str0ng!Pass", "ab1!😀😀X", "Ab1!😀😀", "Ação1234!"} {
		if _, err := ValidatePassword(ok); err != nil {
			t.Fatalf("ValidatePassword(%q) rejected: %v", ok, err)
		}
	}
}

func TestPasswordLengthCountsUTF16Units(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"Abcdefg1!", 9},
		{"Ação", 4},
		{"😀", 2},
		{"ab1!😀😀X", 9},
	}
	for _, tc := range cases {
		if got := PasswordLength(tc.in); got != tc.want {
			t.Fatalf("PasswordLength(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestEverySymbolCounts(t *testing.T) {
	for _, r := range PasswordSymbols {
		pw := "Abcdefg1" + string(r)
		if _, err := ValidatePassword(pw); err != nil {
			t.Fatalf("symbol %q not accepted: %v", r, err)
		}
	}
	if _, err := ValidatePassword("Abcdefg1_"); err == nil {
		t.Fatalf("underscore should not satisfy the symbol rule")
	}
}

// The checklist and the server-side check must never disagree.
func TestRequirementsMatchValidatePassword(t *testing.T) {
	samples := []string{"", "a", "Abcdefgh", "abcdefg1!", "ABCDEFG1!", "Abcdefg1!", "Senha@2024", "12345678", "Ação1234!", "Ébcdefg1!", "Çação12!", "ab1!😀😀X", "Ab1!😀😀", "Ab1!😀"}
	for _, pw := range samples {
		allMet := true
		for _, req := range PasswordRequirements(pw) {
			allMet = allMet && req.Met
		}
		_, err := ValidatePassword(pw)
		if allMet != (err == nil) {
			t.Fatalf("%q: checklist says %v, validator says %v", pw, allMet, err)
		}
	}
}

func TestValidatorStruct(t *testing.T) {
	v := NewValidator()

	if err := v.Struct(VerifyCodeRequest{PhoneNumber: "+15551234567", Code: "123456"}); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	err := v.Struct(VerifyCodeRequest{PhoneNumber: "+15551234567", Code: "12x456"})
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Field != "code" || fe.Message != MsgCodeInvalid {
		t.Fatalf("unexpected error: %v", err)
	}

	err = v.Struct(PhoneRequest{PhoneNumber: "12"})
	if !errors.As(err, &fe) || fe.Field != "phoneNumber" || fe.Message != MsgPhoneInvalid {
		t.Fatalf("unexpected error: %v", err)
	}

	err = v.Struct(SetPasswordRequest{Password: "abcdefg1!"})
	if !errors.As(err, &fe) || fe.Message != MsgPasswordUppercase {
		t.Fatalf("unexpected error: %v", err)
	}

	err = v.Struct(LoginRequest{PhoneNumber: "15551234567"})
	if !errors.As(err, &fe) || fe.Field != "password" || fe.Message != MsgPasswordRequired {
		t.Fatalf("unexpected error: %v", err)
	}
}

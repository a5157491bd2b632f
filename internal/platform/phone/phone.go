package phone

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var e164 = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)

const francePrefix = "+33"

// Number is a phone number in E.164 form.
type Number string

func (n Number) String() string {
	return string(n)
}

// MarshalText implements encoding.TextMarshaler
func (n Number) MarshalText() ([]byte, error) {
	return []byte(n), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (n *Number) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*n = ""
		return nil
	}
	num, err := sanitize(string(text))
	if err != nil {
		return err
	}
	*n = Number(num)
	return nil
}

// Pretty formats a French number as "06 12 34 56 78". Other numbers are
// returned in E.164.
func (n Number) Pretty() string {
	s := string(n)
	if !strings.HasPrefix(s, francePrefix) || len(s) != 12 {
		return s
	}
	national := "0" + s[3:]
	return national[0:2] + " " + national[2:4] + " " + national[4:6] + " " + national[6:8] + " " + national[8:10]
}

// ParseNumber accepts French national numbers ("06 12 34 56 78"), the 0033
// international prefix and any E.164 number, and returns the E.164 form.
func ParseNumber(number string) (Number, error) {
	num, err := sanitize(number)
	if err != nil {
		return "", err
	}
	return Number(num), nil
}

func sanitize(str string) (string, error) {
	str = strings.TrimSpace(str)
	plus := strings.HasPrefix(str, "+")

	digits := make([]byte, 0, len(str))
	for _, r := range str {
		switch {
		case unicode.IsDigit(r):
			digits = append(digits, byte(r))
		case r == ' ' || r == '.' || r == '-' || r == '(' || r == ')' || (r == '+' && len(digits) == 0):
		default:
			return "", fmt.Errorf("%q is not a valid phone number", str)
		}
	}

	var out string
	switch {
	case plus:
		out = "+" + string(digits)
		// "+33 (0)6..." is a common way of writing French numbers.
		if strings.HasPrefix(out, "+330") && len(out) == 13 {
			out = francePrefix + out[4:]
		}
	case len(digits) > 2 && digits[0] == '0' && digits[1] == '0':
		out = "+" + string(digits[2:])
	case len(digits) == 10 && digits[0] == '0':
		out = francePrefix + string(digits[1:])
	default:
		return "", fmt.Errorf("%q is not a valid phone number", str)
	}

	if !e164.MatchString(out) {
		return "", fmt.Errorf("%q is not a valid phone number", str)
	}
	return out, nil
}

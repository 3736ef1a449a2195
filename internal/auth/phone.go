package auth

import (
	"regexp"
	"strings"
)

var mobilePattern = regexp.MustCompile(`^09\d{9}$`)

// NormalizePhone converts an Iranian mobile number to the 09xxxxxxxxx form.
// It accepts +98, 0098 and 98 prefixes as well as the bare ten digit form,
// with spaces or dashes in between.
func NormalizePhone(raw string) (string, bool) {
	phone := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(raw))

	switch {
	case strings.HasPrefix(phone, "+98"):
		phone = "0" + phone[3:]
	case strings.HasPrefix(phone, "0098"):
		phone = "0" + phone[4:]
	case strings.HasPrefix(phone, "98") && len(phone) == 12:
		phone = "0" + phone[2:]
	case strings.HasPrefix(phone, "9") && len(phone) == 10:
		phone = "0" + phone
	}

	if !mobilePattern.MatchString(phone) {
		return "", false
	}
	return phone, true
}

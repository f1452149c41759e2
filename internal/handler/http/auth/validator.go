package auth

import (
	"fmt"
	"os"
	"strings"
)

// weakPasswordList holds passwords rejected outright, along with any
// password that merely prefixes one of them without adding real length.
var weakPasswordList = []string{
	"admin", "password", "123456", "secret", "admin123", "password123",
	"123456789", "12345678", "qwerty", "abc123", "letmein", "welcome",
	"monkey", "1234567890", "password1", "admin1", "test", "test123",
	"default", "root",
}

// minPasswordLength applies to the admin credential.
const minPasswordLength = 12

// ValidateAdminCredentials checks ADMIN_USER/ADMIN_USER_PASSWORD at
// startup: both set, password at least 12 chars, not numeric or keyboard
// runs, not on (or trivially derived from) the weak list. Error messages
// name the rule broken without echoing the password.
func ValidateAdminCredentials() error {
	user := os.Getenv("ADMIN_USER")
	pass := os.Getenv("ADMIN_USER_PASSWORD")

	if user == "" {
		return fmt.Errorf("admin credentials validation failed: ADMIN_USER must not be empty")
	}
	if pass == "" {
		return fmt.Errorf("admin credentials validation failed: ADMIN_USER_PASSWORD must not be empty")
	}
	if len(pass) < minPasswordLength {
		return fmt.Errorf("admin credentials validation failed: ADMIN_USER_PASSWORD must be at least %d characters (current length: %d)", minPasswordLength, len(pass))
	}
	// Pattern checks run before the list so "111111111111" reports as a
	// numeric pattern, not as a "1234..."-prefixed weak password.
	if isSimpleNumericPattern(pass) {
		return fmt.Errorf("admin credentials validation failed: ADMIN_USER_PASSWORD must not be a simple numeric pattern")
	}
	if isKeyboardPattern(pass) {
		return fmt.Errorf("admin credentials validation failed: ADMIN_USER_PASSWORD must not be a keyboard pattern")
	}

	lowerPass := strings.ToLower(pass)
	for _, weak := range weakPasswordList {
		if lowerPass == weak {
			return fmt.Errorf("admin credentials validation failed: ADMIN_USER_PASSWORD must not be a weak password")
		}
		// "admin1234567890" is still weak; a long enough suffix earns a
		// pass.
		if strings.HasPrefix(lowerPass, weak) && len(pass) < minPasswordLength+5 {
			return fmt.Errorf("admin credentials validation failed: ADMIN_USER_PASSWORD must not be based on common weak passwords")
		}
	}
	return nil
}

// isSimpleNumericPattern reports repeated characters and strictly
// ascending/descending digit runs (with 9→0 wraparound).
func isSimpleNumericPattern(pass string) bool {
	if len(pass) < minPasswordLength {
		return false
	}
	if isRepeatedChar(pass) {
		return true
	}
	for _, ch := range pass {
		if ch < '0' || ch > '9' {
			return false
		}
	}

	isAscending, isDescending := true, true
	for i := 1; i < len(pass); i++ {
		diff := int(pass[i]) - int(pass[i-1])
		if diff != 1 && diff != -9 {
			isAscending = false
		}
		if diff != -1 && diff != 9 {
			isDescending = false
		}
	}
	return isAscending || isDescending
}

func isRepeatedChar(pass string) bool {
	if len(pass) == 0 {
		return false
	}
	for i := 1; i < len(pass); i++ {
		if pass[i] != pass[0] {
			return false
		}
	}
	return true
}

var keyboardPatterns = []string{
	"qwertyuiop", "asdfghjkl", "zxcvbnm", "qwerty", "asdfgh", "zxcvb",
}

// isKeyboardPattern reports keyboard rows in either direction anywhere in
// the password.
func isKeyboardPattern(pass string) bool {
	lowerPass := strings.ToLower(pass)
	for _, pattern := range keyboardPatterns {
		if strings.Contains(lowerPass, pattern) || strings.Contains(lowerPass, reverse(pattern)) {
			return true
		}
	}
	return false
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

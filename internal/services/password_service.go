package services

import (
	"fmt"
	"strings"

	"github.com/tillworks/tillguard/internal/models"
)

// Common weak passwords rejected outright regardless of score
var commonPasswords = map[string]bool{
	"password":     true,
	"12345678":     true,
	"qwerty":       true,
	"abc123":       true,
	"password123":  true,
	"password123!": true,
	"123456":       true,
	"admin":        true,
	"letmein":      true,
	"welcome":      true,
	"monkey":       true,
	"dragon":       true,
	"master":       true,
	"123123":       true,
	"passw0rd":     true,
	"shadow":       true,
	"sunshine":     true,
	"princess":     true,
	"starwars":     true,
	"football":     true,
	"trustno1":     true,
}

// Adjacent-key substrings checked case-insensitively. Order is fixed so
// error output is deterministic; evaluation stops at the first match.
var keyboardPatterns = []string{
	"qwerty",
	"azerty",
	"asdfgh",
	"asdf",
	"zxcvbn",
	"zxcv",
	"qazwsx",
	"123456",
	"654321",
	"1q2w3e",
}

// Score contributions per rule
const (
	scoreMinLength    = 20
	scoreCharClass    = 15
	scoreLengthBonus  = 10
	scoreUniqueBonus  = 10
	penaltyCommon     = 50
	penaltyRun        = 10
	penaltyUnique     = 10
	penaltyIdentity   = 20
	penaltyKeyboard   = 15
	validScoreFloor   = 60
	uniqueBonusFloor  = 8
	suggestUniqueBase = 6
)

// PasswordService evaluates candidate passwords against the configured
// policy. Evaluation is a pure function of the candidate and the optional
// identity hints; the service holds no mutable state.
type PasswordService struct {
	policy models.PasswordPolicy
}

// NewPasswordService creates a new PasswordService
func NewPasswordService(policy models.PasswordPolicy) *PasswordService {
	return &PasswordService{policy: policy}
}

// Policy returns the active policy.
func (s *PasswordService) Policy() models.PasswordPolicy {
	return s.policy
}

// Evaluate scores a candidate password. It never fails; every outcome,
// including an empty candidate, is reported through the returned struct.
// Rules are independent and additive, so the order below only determines
// the order of the errors slice, not the final score.
func (s *PasswordService) Evaluate(password string, hints *models.IdentityHints) models.PasswordEvaluation {
	var (
		score  int
		errs   []string
		lower  = strings.ToLower(password)
		length = len([]rune(password))
	)

	if length < s.policy.MinLength {
		errs = append(errs, fmt.Sprintf("must be at least %d characters", s.policy.MinLength))
	} else {
		score += scoreMinLength
	}

	if length > s.policy.MaxLength {
		errs = append(errs, fmt.Sprintf("must be at most %d characters", s.policy.MaxLength))
	}

	hasUpper, hasLower, hasDigit, hasSpecial := scanCharClasses(password, s.policy.SpecialChars)

	if s.policy.RequireUppercase {
		if hasUpper {
			score += scoreCharClass
		} else {
			errs = append(errs, "must contain at least one uppercase letter")
		}
	}
	if s.policy.RequireLowercase {
		if hasLower {
			score += scoreCharClass
		} else {
			errs = append(errs, "must contain at least one lowercase letter")
		}
	}
	if s.policy.RequireDigit {
		if hasDigit {
			score += scoreCharClass
		} else {
			errs = append(errs, "must contain at least one digit")
		}
	}
	specialMissing := false
	if s.policy.RequireSpecial {
		if hasSpecial {
			score += scoreCharClass
		} else {
			specialMissing = true
			errs = append(errs, "must contain at least one special character")
		}
	}

	if commonPasswords[lower] {
		errs = append(errs, "is too common, please choose a more unique password")
		score -= penaltyCommon
	}

	if longestRun(password) > s.policy.MaxConsecutiveChars {
		errs = append(errs, fmt.Sprintf("must not contain more than %d repeated or sequential characters", s.policy.MaxConsecutiveChars))
		score -= penaltyRun
	}

	unique := countUniqueChars(lower)
	if unique < s.policy.MinUniqueChars {
		errs = append(errs, fmt.Sprintf("must contain at least %d different characters", s.policy.MinUniqueChars))
		score -= penaltyUnique
	} else if unique >= uniqueBonusFloor {
		score += scoreUniqueBonus
	}

	if hints != nil {
		if hint := firstLeakedHint(lower, hints); hint != "" {
			errs = append(errs, "must not contain your name or email address")
			score -= penaltyIdentity
		}
	}

	for _, pattern := range keyboardPatterns {
		if strings.Contains(lower, pattern) {
			errs = append(errs, "must not contain keyboard patterns like "+pattern)
			score -= penaltyKeyboard
			break
		}
	}

	if length >= 12 {
		score += scoreLengthBonus
	}
	if length >= 16 {
		score += scoreLengthBonus
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	eval := models.PasswordEvaluation{
		Score:       score,
		IsValid:     len(errs) == 0 && score >= validScoreFloor,
		Errors:      errs,
		Suggestions: nil,
	}

	if score < validScoreFloor {
		eval.Suggestions = buildSuggestions(length, unique, specialMissing)
	}

	return eval
}

// scanCharClasses reports which required character classes appear in the
// candidate. Only characters in specialChars count toward the special class.
func scanCharClasses(password, specialChars string) (hasUpper, hasLower, hasDigit, hasSpecial bool) {
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(specialChars, r):
			hasSpecial = true
		}
	}
	return
}

// longestRun returns the length of the longest run of identical or
// arithmetically sequential characters (constant delta of 0, +1, or -1).
// "aaaa", "abcd" and "9876" all form runs of 4.
func longestRun(password string) int {
	runes := []rune(password)
	if len(runes) == 0 {
		return 0
	}

	longest, same, asc, desc := 1, 1, 1, 1
	for i := 1; i < len(runes); i++ {
		delta := runes[i] - runes[i-1]

		if delta == 0 {
			same++
		} else {
			same = 1
		}
		if delta == 1 {
			asc++
		} else {
			asc = 1
		}
		if delta == -1 {
			desc++
		} else {
			desc = 1
		}

		longest = max(longest, same, asc, desc)
	}
	return longest
}

// countUniqueChars counts distinct characters; the input is lowercased by
// the caller so the count is case-insensitive.
func countUniqueChars(lower string) int {
	seen := make(map[rune]struct{}, len(lower))
	for _, r := range lower {
		seen[r] = struct{}{}
	}
	return len(seen)
}

// firstLeakedHint returns the first non-empty hint that appears in the
// lowercased candidate, or "" if none do.
func firstLeakedHint(lower string, hints *models.IdentityHints) string {
	for _, hint := range []string{hints.FirstName, hints.LastName, hints.EmailLocalPart} {
		hint = strings.ToLower(strings.TrimSpace(hint))
		if hint != "" && strings.Contains(lower, hint) {
			return hint
		}
	}
	return ""
}

func buildSuggestions(length, unique int, specialMissing bool) []string {
	var suggestions []string
	if length < 12 {
		suggestions = append(suggestions, "use at least 12 characters for a stronger password")
	}
	if specialMissing {
		suggestions = append(suggestions, "add a special character such as ! or #")
	}
	if unique < suggestUniqueBase {
		suggestions = append(suggestions, "use a wider variety of characters")
	}
	suggestions = append(suggestions, "consider a passphrase of several unrelated words")
	return suggestions
}

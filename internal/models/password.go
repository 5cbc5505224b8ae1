package models

// PasswordPolicy defines the rules enforced when evaluating a candidate
// password. The policy is fixed at process start and never mutated.
type PasswordPolicy struct {
	MinLength           int
	MaxLength           int
	RequireUppercase    bool
	RequireLowercase    bool
	RequireDigit        bool
	RequireSpecial      bool
	SpecialChars        string // characters counted as "special"
	MaxConsecutiveChars int    // longest allowed identical/sequential run
	MinUniqueChars      int    // case-insensitive distinct character floor
}

// DefaultPasswordPolicy returns the policy used in production.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:           8,
		MaxLength:           128,
		RequireUppercase:    true,
		RequireLowercase:    true,
		RequireDigit:        true,
		RequireSpecial:      true,
		SpecialChars:        "!@#$%^&*()_+-=[]{}|;:,.<>?",
		MaxConsecutiveChars: 3,
		MinUniqueChars:      4,
	}
}

// IdentityHints are optional fragments of the account's identity used to
// reject passwords that embed the user's own name or mailbox.
type IdentityHints struct {
	FirstName      string
	LastName       string
	EmailLocalPart string
}

// PasswordEvaluation is the structured result of evaluating one candidate
// password. It is created fresh per call and is safe to serialize directly
// to the password-change form.
type PasswordEvaluation struct {
	Score       int      `json:"score"` // clamped to [0,100]
	IsValid     bool     `json:"is_valid"`
	Errors      []string `json:"errors"`
	Suggestions []string `json:"suggestions"`
}

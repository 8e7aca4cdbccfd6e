package service

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Form field names, shared by validation messages and the HTML form.
const (
	FieldFullName        = "full_name"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirm_password"
)

const (
	MsgFullNameRequired = "Full name is required."
	MsgEmailInvalid     = "Valid email is required."
	MsgEmailTaken       = "Email already registered."
	MsgPasswordWeak     = "Password must be ≥8 chars, include uppercase and digit."
	MsgPasswordTooLong  = "Password must be at most 72 bytes."
	MsgPasswordMismatch = "Passwords do not match."
)

const minPasswordLength = 8

// Word characters and digits are Unicode-aware: RE2's \w and \d only cover
// ASCII, so letters, numbers and decimal digits are spelled out as classes.
// Uppercase stays A-Z.
var (
	emailPattern = regexp.MustCompile(`^[\p{L}\p{N}_.-]+@[\p{L}\p{N}_.-]+\.[\p{L}\p{N}_]+$`)
	upperPattern = regexp.MustCompile(`[A-Z]`)
	digitPattern = regexp.MustCompile(`\p{Nd}`)
)

// RegistrationInput is a submitted registration form.
type RegistrationInput struct {
	FullName        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Normalize trims surrounding whitespace from the name and email.
// Passwords are taken verbatim.
func (in RegistrationInput) Normalize() RegistrationInput {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	return in
}

// ValidEmail reports whether email has the local-part@domain.tld shape.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// StrongPassword reports whether password has at least eight characters,
// an uppercase ASCII letter and a digit.
func StrongPassword(password string) bool {
	return utf8.RuneCountInString(password) >= minPasswordLength &&
		upperPattern.MatchString(password) &&
		digitPattern.MatchString(password)
}

// ValidateRegistration applies every field rule that needs no storage and
// returns all violations keyed by field name. The input is expected to be
// normalized. An empty map means the input is acceptable.
func ValidateRegistration(in RegistrationInput) map[string]string {
	errs := make(map[string]string)

	if in.FullName == "" {
		errs[FieldFullName] = MsgFullNameRequired
	}
	if !ValidEmail(in.Email) {
		errs[FieldEmail] = MsgEmailInvalid
	}
	if !StrongPassword(in.Password) {
		errs[FieldPassword] = MsgPasswordWeak
	}
	if in.Password != in.ConfirmPassword {
		errs[FieldConfirmPassword] = MsgPasswordMismatch
	}

	return errs
}

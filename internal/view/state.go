package view

import "github.com/a-h/templ"

// RegisterState is everything the registration form shows: the values to
// pre-fill, per-field errors keyed by form field name, and the success
// message from the last submission.
type RegisterState struct {
	FullName string
	Email    string
	Errors   map[string]string
	Success  string
}

// CardID is the element id patched in place on enhanced submissions.
const CardID = "register-card"

// scriptAttrs builds the script tag's src, dropping URLs with unsafe schemes.
func scriptAttrs(scriptURL string) templ.Attributes {
	return templ.Attributes{"src": string(templ.URL(scriptURL))}
}

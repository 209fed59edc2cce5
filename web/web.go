// Package web holds the embedded HTML pages served by the login flow.
package web

import (
	"embed"
	"html"
	"strings"
)

//go:embed static/*.html
var content embed.FS

// userPlaceholder is the marker in home.html replaced with the
// authenticated user's identifier.
const userPlaceholder = "USER_ID"

var (
	homeTemplate  = mustRead("static/home.html")
	loginPage     = mustRead("static/login.html")
	challengePage = mustRead("static/challenge.html")
)

func mustRead(name string) string {
	b, err := content.ReadFile(name)
	if err != nil {
		panic("web: missing embedded page " + name)
	}
	return string(b)
}

// Home renders the home page personalized to the given user identifier.
// The identifier is HTML-escaped before substitution.
func Home(user string) string {
	return strings.ReplaceAll(homeTemplate, userPlaceholder, html.EscapeString(user))
}

// Login returns the static login form.
func Login() string {
	return loginPage
}

// Challenge returns the static "check your prompt" page shown after a
// sign-in link has been dispatched.
func Challenge() string {
	return challengePage
}

package api

import (
	"html"
	"net/http"
)

func writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

// writeError renders a short plain error page. The message is escaped, so it
// may contain text echoed from upstream errors.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeHTML(w, status, html.EscapeString(msg))
}

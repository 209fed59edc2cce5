package api

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jmcleod/magiclink/approveapi"
	"github.com/jmcleod/magiclink/internal/util"
	"github.com/jmcleod/magiclink/session"
	"github.com/jmcleod/magiclink/web"
)

const (
	// challengeTTL bounds how long a pending challenge stays verifiable,
	// matching the 24-hour expiry stated in the prompt message.
	challengeTTL = 24 * time.Hour

	promptTitle       = "Magic sign-in link"
	promptApproveText = "Sign-in"
	promptBody        = "Click the link below to sign in to your account. " +
		"This link will expire in 24 hours."
)

// Home handles GET /. Authenticated sessions get the personalized home page;
// everyone else is redirected to the login form.
func (a *API) Home(w http.ResponseWriter, r *http.Request) {
	sess := a.sessions.Load(r)
	user, ok := session.Get[string](sess, sessionKeyAuthenticatedUser)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusTemporaryRedirect)
		return
	}
	writeHTML(w, http.StatusOK, web.Home(user))
}

// LoginPage handles GET /login.
func (a *API) LoginPage(w http.ResponseWriter, r *http.Request) {
	writeHTML(w, http.StatusOK, web.Login())
}

// Login handles POST /login. It issues a fresh challenge, stores it in the
// session, and asks the approval service to deliver a prompt whose
// approve-redirect URL carries the challenge back to /verify_login.
//
// The session write is not rolled back when the prompt dispatch fails: the
// pending challenge is unreachable without the redirect URL that was never
// delivered.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form submission")
		return
	}
	user := util.NormalizeIdentifier(r.PostFormValue("user"))
	if user == "" {
		writeError(w, http.StatusBadRequest, "user is required")
		return
	}

	challenge, err := util.Token()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate challenge")
		return
	}

	sess := a.sessions.Load(r)
	err = sess.Set(sessionKeyPending, LoginChallenge{
		User:      user,
		Challenge: challenge,
		IssuedAt:  time.Now().UTC(),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update session")
		return
	}
	// Commit the cookie up front so both the success and the failure
	// response carry the pending state.
	if err := a.sessions.Save(w, sess); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save session")
		return
	}

	a.audit.logEvent(AuditLoginRequested, r, user)

	_, err = a.prompts.CreatePrompt(r.Context(), approveapi.CreatePromptRequest{
		User:               user,
		Body:               promptBody,
		Title:              promptTitle,
		ApproveText:        promptApproveText,
		ApproveRedirectURL: fmt.Sprintf("%s/verify_login?c=%s", a.webURL, challenge),
		Metadata: &approveapi.PromptMetadata{
			Time:      time.Now().UTC().Format(time.RFC1123),
			IPAddress: clientIP(r),
		},
	})
	if err != nil {
		a.audit.logFailure(AuditPromptFailed, r, user, err.Error())
		writeError(w, http.StatusBadRequest, "approval error: "+err.Error())
		return
	}

	writeHTML(w, http.StatusOK, web.Challenge())
}

// VerifyLogin handles GET /verify_login?c=<challenge>, the approve-redirect
// callback. A matching challenge promotes the pending login to an
// authenticated session and clears the pending record so the link cannot be
// replayed against the same session.
func (a *API) VerifyLogin(w http.ResponseWriter, r *http.Request) {
	sess := a.sessions.Load(r)

	pending, ok := session.Get[LoginChallenge](sess, sessionKeyPending)
	if !ok {
		a.audit.logFailure(AuditInvalidSession, r, "", "no pending challenge")
		writeError(w, http.StatusBadRequest, "Invalid session")
		return
	}
	if !pending.IssuedAt.IsZero() && time.Since(pending.IssuedAt) > challengeTTL {
		a.audit.logFailure(AuditChallengeExpired, r, pending.User,
			"challenge older than "+challengeTTL.String())
		writeError(w, http.StatusBadRequest, "Invalid session")
		return
	}

	supplied := r.URL.Query().Get("c")
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(pending.Challenge)) != 1 {
		a.audit.logFailure(AuditChallengeMismatch, r, pending.User, "challenge mismatch")
		writeError(w, http.StatusUnauthorized, "Invalid challenge")
		return
	}

	sess.Delete(sessionKeyPending)
	if err := sess.Set(sessionKeyAuthenticatedUser, pending.User); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update session")
		return
	}
	if err := a.sessions.Save(w, sess); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save session")
		return
	}

	a.audit.logEvent(AuditLoginVerified, r, pending.User,
		slog.String("issued_at", pending.IssuedAt.Format(time.RFC3339)))
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

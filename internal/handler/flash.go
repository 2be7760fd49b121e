package handler

import (
	"encoding/base64"
	"net/http"
)

// FLASH MESSAGES:
// A flash is a one-shot message that survives exactly one redirect — "Twitter
// authentication failed", "Email already registered". It rides in a
// short-lived cookie: the failing handler sets it, the next page render pops
// it (reads it and deletes it).
//
// The value is base64url-encoded because cookie values can't carry spaces or
// most punctuation.

const flashCookie = "flash"

// setFlash queues a message for display on the next rendered page.
func setFlash(w http.ResponseWriter, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.URLEncoding.EncodeToString([]byte(message)),
		Path:     "/",
		MaxAge:   300, // 5 minutes — long enough for one redirect
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns the pending flash message (or "") and clears it.
func popFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return ""
	}

	// Delete the cookie — a flash is shown at most once.
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	decoded, err := base64.URLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return ""
	}
	return string(decoded)
}

package main

import "net/http"

// handleMe returns the current user's profile (the password hash never
// serializes).
func (a *App) handleMe(w http.ResponseWriter, r *http.Request) {
	ok(w, http.StatusOK, "", currentUser(r))
}

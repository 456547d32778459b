package handlers

import (
	"net/http"
	"time"
)

// Version is the catalog build version, set at link time
var Version = "dev"

// VersionInfo handles the /version endpoint. Only the version string is exposed.
func VersionInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"version":   Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

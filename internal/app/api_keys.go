package app

import (
	"crypto/subtle"
	"net/http"
)

// APIKeysRequired reports whether requests must carry a key. With no keys
// configured the API is open.
func (app *Application) APIKeysRequired() bool {
	return len(app.Config.ApiKeys) > 0
}

// RequestHasInvalidAPIKey reports whether r must be rejected for its "key"
// query parameter. It is always false for an open API.
func (app *Application) RequestHasInvalidAPIKey(r *http.Request) bool {
	return app.APIKeysRequired() && app.IsInvalidAPIKey(r.URL.Query().Get("key"))
}

// IsInvalidAPIKey reports whether key matches none of the configured keys.
// Every configured key is compared in constant time.
func (app *Application) IsInvalidAPIKey(key string) bool {
	if key == "" {
		return true
	}
	matched := 0
	for _, valid := range app.Config.ApiKeys {
		matched |= subtle.ConstantTimeCompare([]byte(key), []byte(valid))
	}
	return matched == 0
}

package api

import (
	"net/http"

	"github.com/ninja-software/terror/v2"
)

// CheckHandler reports whether the server and its store are healthy
func (api *API) CheckHandler(w http.ResponseWriter, r *http.Request) (int, error) {
	if api.Check != nil {
		err := api.Check(r.Context())
		if err != nil {
			return http.StatusInternalServerError, terror.Error(err, "Server check failed.")
		}
	}
	_, err := w.Write([]byte("ok"))
	if err != nil {
		api.Log.Err(err).Msg("failed to send")
	}
	return http.StatusOK, nil
}

package helpers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ninja-software/terror/v2"
)

// EncodeJSON writes result as json with a 200 status
func EncodeJSON(w http.ResponseWriter, result interface{}) (int, error) {
	return EncodeJSONStatus(w, http.StatusOK, result)
}

// EncodeJSONStatus writes result as json with the given status
func EncodeJSONStatus(w http.ResponseWriter, status int, result interface{}) (int, error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(result)
	if err != nil {
		return http.StatusInternalServerError, terror.Error(err, "")
	}
	return status, nil
}

// DecodeJSON reads a json request body into req
func DecodeJSON(r *http.Request, req interface{}) error {
	err := json.NewDecoder(r.Body).Decode(req)
	if err != nil {
		return terror.Error(err, "Invalid request received.")
	}
	return nil
}

// SearchArgInt returns a URL search argument as an int, nil when absent or invalid
func SearchArgInt(r *http.Request, key string) *int {
	str := r.URL.Query().Get(key)
	if str == "" {
		return nil
	}
	i, err := strconv.Atoi(str)
	if err != nil {
		return nil
	}
	return &i
}

// SearchArgInt64 returns a URL search argument as an int64, nil when absent or invalid
func SearchArgInt64(r *http.Request, key string) *int64 {
	str := r.URL.Query().Get(key)
	if str == "" {
		return nil
	}
	i, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return nil
	}
	return &i
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"kitty-services/balances"
	"kitty-services/kittylog"
	"kitty-services/types"

	"github.com/ninja-software/terror/v2"
)

type ErrorMessage string

const (
	Unauthorised          ErrorMessage = "Unauthorised - Please log in or contact System Administrator"
	Forbidden             ErrorMessage = "Forbidden - You do not have permissions for this, please contact System Administrator"
	InternalErrorTryAgain ErrorMessage = "Internal Error - Please try again in a few minutes or Contact Support"
	InputError            ErrorMessage = "Input Error - Please try again"
)

func (errMsg ErrorMessage) String() string {
	return string(errMsg)
}

// ErrorObject is the json body of every failed request
type ErrorObject struct {
	Message   string `json:"message"`
	ErrorCode string `json:"error_code"`
}

// AccountHeader carries the caller identity, set by the gateway after authentication
const AccountHeader = "X-Account-ID"

var ErrNoAccount = fmt.Errorf("missing account header")

// WithError handles error responses.
func WithError(next func(w http.ResponseWriter, r *http.Request) (int, error)) http.HandlerFunc {
	fn := func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		code, err := next(w, r)
		if err == nil {
			return
		}

		errObj := &ErrorObject{
			Message:   err.Error(),
			ErrorCode: fmt.Sprintf("%d", code),
		}
		var bErr *terror.TError
		if errors.As(err, &bErr) {
			errObj.Message = bErr.Message

			switch bErr.Level {
			case terror.ErrLevelWarn:
				kittylog.L.Warn().Err(err).Str("stack trace", terror.Echo(bErr, false)).Msg("rest error")
			default:
				kittylog.L.Err(err).Str("stack trace", terror.Echo(bErr, false)).Msg("rest error")
			}

			// fall back to generic messages when no friendly message was set
			if bErr.Error() == bErr.Message {
				switch code {
				case http.StatusInternalServerError:
					errObj.Message = InternalErrorTryAgain.String()
				case http.StatusForbidden:
					errObj.Message = Forbidden.String()
				case http.StatusUnauthorized:
					errObj.Message = Unauthorised.String()
				case http.StatusBadRequest:
					errObj.Message = InputError.String()
				}
			}
		} else {
			kittylog.L.Err(err).Str("path", r.URL.Path).Msg("rest error")
		}

		jsonErr, err := json.Marshal(errObj)
		if err != nil {
			http.Error(w, `{"message":"JSON failed, please contact IT.","error_code":"00001"}`, code)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		w.Write(jsonErr)
	}
	return fn
}

// WithAccount reads the caller identity from the account header
func WithAccount(next func(w http.ResponseWriter, r *http.Request, caller types.AccountID) (int, error)) func(w http.ResponseWriter, r *http.Request) (int, error) {
	fn := func(w http.ResponseWriter, r *http.Request) (int, error) {
		header := r.Header.Get(AccountHeader)
		if header == "" {
			return http.StatusUnauthorized, terror.Error(ErrNoAccount, Unauthorised.String())
		}
		caller, err := types.AccountIDFromString(header)
		if err != nil || caller.IsNil() {
			return http.StatusUnauthorized, terror.Error(ErrNoAccount, "Invalid account.")
		}
		return next(w, r, caller)
	}
	return fn
}

var operationErrors = []struct {
	err     error
	code    int
	message string
}{
	{types.ErrInvalidKittyIndex, http.StatusNotFound, "Kitty not found."},
	{types.ErrNotOwner, http.StatusForbidden, "You do not own this kitty."},
	{types.ErrCannotBuySelf, http.StatusForbidden, "You cannot buy your own kitty."},
	{types.ErrAlreadyOwned, http.StatusConflict, "The recipient already owns this kitty."},
	{types.ErrNoPriceSet, http.StatusConflict, "This kitty is not for sale."},
	{types.ErrCountOverflow, http.StatusConflict, "No more kitties can be created."},
	{types.ErrSameParentIndex, http.StatusBadRequest, "A kitty cannot be bred with itself."},
	{types.ErrInvalidPrice, http.StatusBadRequest, "Price must not be negative."},
	{balances.ErrInvalidAmount, http.StatusBadRequest, "Amount must not be negative."},
	{types.ErrInsufficientFunds, http.StatusPaymentRequired, "Not enough funds."},
}

// operationError maps a registry error to a status and friendly message
func operationError(err error) (int, error) {
	for _, oe := range operationErrors {
		if errors.Is(err, oe.err) {
			return oe.code, terror.Warn(err, oe.message)
		}
	}
	return http.StatusInternalServerError, terror.Error(err, "Issue processing request, try again or contact support.")
}

package api

import (
	"context"
	"fmt"
	"net/http"

	"kitty-services/helpers"
	"kitty-services/types"

	"github.com/go-chi/chi/v5"
	"github.com/ninja-software/terror/v2"
	"github.com/shopspring/decimal"
)

func kittyIDParam(r *http.Request) (types.KittyIndex, error) {
	id, err := types.ParseKittyIndex(chi.URLParam(r, "kitty_id"))
	if err != nil {
		return 0, terror.Warn(err, "Invalid kitty id.")
	}
	return id, nil
}

func accountIDParam(r *http.Request) (types.AccountID, error) {
	id, err := types.AccountIDFromString(chi.URLParam(r, "account_id"))
	if err != nil {
		return id, terror.Warn(err, "Invalid account id.")
	}
	return id, nil
}

// publish forwards evt to the sink. The operation has already committed, so
// a failing sink is logged and not reported to the caller.
func (api *API) publish(ctx context.Context, evt *types.Event) {
	if api.Sink == nil {
		return
	}
	if err := api.Sink.Publish(ctx, evt); err != nil {
		api.Log.Err(err).Str("kind", string(evt.Kind)).Uint32("kitty_id", uint32(evt.KittyID)).Msg("publish kitty event")
	}
}

func (api *API) applied(w http.ResponseWriter, r *http.Request, status int, evt *types.Event, err error) (int, error) {
	if err != nil {
		return operationError(err)
	}
	api.publish(r.Context(), evt)
	return helpers.EncodeJSONStatus(w, status, evt)
}

func (api *API) KittyCreateHandler(w http.ResponseWriter, r *http.Request, caller types.AccountID) (int, error) {
	evt, err := api.Registry.Create(r.Context(), caller)
	return api.applied(w, r, http.StatusCreated, evt, err)
}

type BreedRequest struct {
	Parent1 types.KittyIndex `json:"parent_1"`
	Parent2 types.KittyIndex `json:"parent_2"`
}

func (api *API) KittyBreedHandler(w http.ResponseWriter, r *http.Request, caller types.AccountID) (int, error) {
	req := &BreedRequest{}
	if err := helpers.DecodeJSON(r, req); err != nil {
		return http.StatusBadRequest, err
	}
	evt, err := api.Registry.Breed(r.Context(), caller, req.Parent1, req.Parent2)
	return api.applied(w, r, http.StatusCreated, evt, err)
}

type TransferRequest struct {
	To types.AccountID `json:"to"`
}

func (api *API) KittyTransferHandler(w http.ResponseWriter, r *http.Request, caller types.AccountID) (int, error) {
	id, err := kittyIDParam(r)
	if err != nil {
		return http.StatusBadRequest, err
	}
	req := &TransferRequest{}
	if err := helpers.DecodeJSON(r, req); err != nil {
		return http.StatusBadRequest, err
	}
	if req.To.IsNil() {
		return http.StatusBadRequest, terror.Warn(fmt.Errorf("transfer recipient missing"), "Recipient is required.")
	}
	evt, err := api.Registry.Transfer(r.Context(), caller, req.To, id)
	return api.applied(w, r, http.StatusOK, evt, err)
}

// ListRequest sets the asking price; a null price takes the kitty off the market
type ListRequest struct {
	Price decimal.NullDecimal `json:"price"`
}

func (api *API) KittyListHandler(w http.ResponseWriter, r *http.Request, caller types.AccountID) (int, error) {
	id, err := kittyIDParam(r)
	if err != nil {
		return http.StatusBadRequest, err
	}
	req := &ListRequest{}
	if err := helpers.DecodeJSON(r, req); err != nil {
		return http.StatusBadRequest, err
	}
	evt, err := api.Registry.List(r.Context(), caller, id, req.Price)
	return api.applied(w, r, http.StatusOK, evt, err)
}

func (api *API) KittyBuyHandler(w http.ResponseWriter, r *http.Request, caller types.AccountID) (int, error) {
	id, err := kittyIDParam(r)
	if err != nil {
		return http.StatusBadRequest, err
	}
	evt, err := api.Registry.Buy(r.Context(), caller, id)
	return api.applied(w, r, http.StatusOK, evt, err)
}

func (api *API) KittyGetHandler(w http.ResponseWriter, r *http.Request) (int, error) {
	id, err := kittyIDParam(r)
	if err != nil {
		return http.StatusBadRequest, err
	}
	kitty, err := api.Registry.Kitty(r.Context(), id)
	if err != nil {
		return operationError(err)
	}
	return helpers.EncodeJSON(w, kitty)
}

type KittiesCountResponse struct {
	Count types.KittyIndex `json:"count"`
}

func (api *API) KittiesCountHandler(w http.ResponseWriter, r *http.Request) (int, error) {
	count, err := api.Registry.KittiesCount(r.Context())
	if err != nil {
		return operationError(err)
	}
	return helpers.EncodeJSON(w, &KittiesCountResponse{Count: count})
}

func (api *API) AccountKittiesHandler(w http.ResponseWriter, r *http.Request) (int, error) {
	id, err := accountIDParam(r)
	if err != nil {
		return http.StatusBadRequest, err
	}
	kitties, err := api.Registry.KittiesOwnedBy(r.Context(), id)
	if err != nil {
		return operationError(err)
	}
	return helpers.EncodeJSON(w, kitties)
}

func (api *API) AccountBalanceHandler(w http.ResponseWriter, r *http.Request) (int, error) {
	id, err := accountIDParam(r)
	if err != nil {
		return http.StatusBadRequest, err
	}
	balance, err := api.Registry.Balance(r.Context(), id)
	if err != nil {
		return operationError(err)
	}
	return helpers.EncodeJSON(w, balance)
}

var ErrNoEventLog = fmt.Errorf("event log not configured")

func (api *API) EventsHandler(w http.ResponseWriter, r *http.Request) (int, error) {
	if api.Events == nil {
		return http.StatusNotFound, terror.Warn(ErrNoEventLog, "Event history is not available.")
	}
	after := int64(0)
	if a := helpers.SearchArgInt64(r, "after"); a != nil {
		after = *a
	}
	limit := 100
	if l := helpers.SearchArgInt(r, "limit"); l != nil && *l > 0 && *l <= 1000 {
		limit = *l
	}
	events, err := api.Events.Events(r.Context(), after, limit)
	if err != nil {
		return http.StatusInternalServerError, terror.Error(err, "Could not load events.")
	}
	return helpers.EncodeJSON(w, events)
}

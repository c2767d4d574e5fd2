package api

import (
	"context"
	"encoding/json"

	"kitty-services/notify"
	"kitty-services/types"

	"github.com/ninja-software/terror/v2"
	"github.com/ninja-syndicate/ws"
)

// KittyEventsSubscribeHandler replies with the current kitty count, later
// pushes add the event that changed it
func (api *API) KittyEventsSubscribeHandler(ctx context.Context, key string, payload []byte, reply ws.ReplyFunc) error {
	count, err := api.Registry.KittiesCount(ctx)
	if err != nil {
		return terror.Error(err, "Issue loading kitties, try again or contact support.")
	}
	reply(&notify.KittyEventsUpdate{Count: count})
	return nil
}

type KittySubscribeRequest struct {
	Payload struct {
		KittyID types.KittyIndex `json:"kitty_id"`
	} `json:"payload"`
}

// KittySubscribeHandler replies with the current state of a kitty
func (api *API) KittySubscribeHandler(ctx context.Context, key string, payload []byte, reply ws.ReplyFunc) error {
	req := &KittySubscribeRequest{}
	err := json.Unmarshal(payload, req)
	if err != nil {
		return terror.Error(err, "Invalid request received.")
	}
	kitty, err := api.Registry.Kitty(ctx, req.Payload.KittyID)
	if err != nil {
		_, err = operationError(err)
		return err
	}
	reply(kitty)
	return nil
}

type AccountSubscribeRequest struct {
	Payload struct {
		AccountID types.AccountID `json:"account_id"`
	} `json:"payload"`
}

// AccountKittiesSubscribeHandler replies with the kitties an account owns
func (api *API) AccountKittiesSubscribeHandler(ctx context.Context, key string, payload []byte, reply ws.ReplyFunc) error {
	req := &AccountSubscribeRequest{}
	err := json.Unmarshal(payload, req)
	if err != nil {
		return terror.Error(err, "Invalid request received.")
	}
	kitties, err := api.Registry.KittiesOwnedBy(ctx, req.Payload.AccountID)
	if err != nil {
		return terror.Error(err, "Issue loading kitties, try again or contact support.")
	}
	reply(kitties)
	return nil
}

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"kitty-services/api"
	"kitty-services/balances"
	"kitty-services/genome"
	"kitty-services/memstore"
	"kitty-services/notify"
	"kitty-services/registry"
	"kitty-services/types"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	alice  = types.AccountID(uuid.Must(uuid.FromString("00000000-0000-0000-0000-000000000001")))
	bob    = types.AccountID(uuid.Must(uuid.FromString("00000000-0000-0000-0000-000000000002")))
	nobody = types.AccountID(uuid.Must(uuid.FromString("00000000-0000-0000-0000-000000000099")))
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	sink    *notify.MemorySink
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	config := types.DefaultConfig()
	config.ReserveAmount = decimal.NewFromInt(1_000)
	reg := registry.New(memstore.New(), &genome.FixedEntropy{Seed: []byte("parent-hash"), Index: 1}, config)
	ctx := context.Background()
	if err := reg.Endow(ctx, alice, decimal.NewFromInt(10_000)); err != nil {
		t.Fatal(err)
	}
	if err := reg.Endow(ctx, bob, decimal.NewFromInt(20_000)); err != nil {
		t.Fatal(err)
	}

	log := zerolog.Nop()
	sink := notify.NewMemorySink()
	_, handler := api.NewAPI(&log, ":0", reg, sink, sink, nil, "development")
	return &testServer{t: t, handler: handler, sink: sink}
}

func (s *testServer) do(method, path string, caller *types.AccountID, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	buf := &bytes.Buffer{}
	if body != nil {
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			s.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, buf)
	if caller != nil {
		req.Header.Set(api.AccountHeader, caller.String())
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("got status %d, want %d: %s", rec.Code, want, rec.Body.String())
	}
}

func TestCreateRequiresAccount(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/kitties/", nil, nil)
	expectStatus(t, rec, http.StatusUnauthorized)

	errObj := &api.ErrorObject{}
	decode(t, rec, errObj)
	if errObj.ErrorCode != "401" {
		t.Errorf("error code %q", errObj.ErrorCode)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/kitties/", nil)
	req.Header.Set(api.AccountHeader, "not-an-account")
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestCreateAndGet(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/kitties/", &alice, nil)
	expectStatus(t, rec, http.StatusCreated)
	evt := &types.Event{}
	decode(t, rec, evt)
	if evt.Kind != types.EventKittyCreated || evt.Account != alice || evt.KittyID != 0 {
		t.Fatalf("unexpected event %+v", evt)
	}

	rec = s.do(http.MethodGet, "/api/kitties/0", nil, nil)
	expectStatus(t, rec, http.StatusOK)
	kitty := &types.KittyView{}
	decode(t, rec, kitty)
	if kitty.Owner != alice || kitty.Price.Valid {
		t.Errorf("unexpected kitty %+v", kitty)
	}

	rec = s.do(http.MethodGet, "/api/kitties/", nil, nil)
	expectStatus(t, rec, http.StatusOK)
	count := &api.KittiesCountResponse{}
	decode(t, rec, count)
	if count.Count != 1 {
		t.Errorf("count %d", count.Count)
	}

	rec = s.do(http.MethodGet, "/api/accounts/"+alice.String()+"/balance", nil, nil)
	expectStatus(t, rec, http.StatusOK)
	balance := &balances.Account{}
	decode(t, rec, balance)
	if !balance.Free.Equal(decimal.NewFromInt(9_000)) || !balance.Reserved.Equal(decimal.NewFromInt(1_000)) {
		t.Errorf("balance %+v", balance)
	}
}

func TestGetUnknownKitty(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/kitties/7", nil, nil)
	expectStatus(t, rec, http.StatusNotFound)
	errObj := &api.ErrorObject{}
	decode(t, rec, errObj)
	if errObj.Message != "Kitty not found." {
		t.Errorf("message %q", errObj.Message)
	}

	rec = s.do(http.MethodGet, "/api/kitties/abc", nil, nil)
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestBreed(t *testing.T) {
	s := newTestServer(t)
	expectStatus(t, s.do(http.MethodPost, "/api/kitties/", &alice, nil), http.StatusCreated)
	expectStatus(t, s.do(http.MethodPost, "/api/kitties/", &alice, nil), http.StatusCreated)

	rec := s.do(http.MethodPost, "/api/kitties/breed", &alice, &api.BreedRequest{Parent1: 0, Parent2: 1})
	expectStatus(t, rec, http.StatusCreated)
	evt := &types.Event{}
	decode(t, rec, evt)
	if evt.KittyID != 2 {
		t.Errorf("bred kitty %d", evt.KittyID)
	}

	rec = s.do(http.MethodPost, "/api/kitties/breed", &alice, &api.BreedRequest{Parent1: 1, Parent2: 1})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = s.do(http.MethodPost, "/api/kitties/breed", &alice, &api.BreedRequest{Parent1: 0, Parent2: 9})
	expectStatus(t, rec, http.StatusNotFound)
}

func TestListAndBuy(t *testing.T) {
	s := newTestServer(t)
	expectStatus(t, s.do(http.MethodPost, "/api/kitties/", &alice, nil), http.StatusCreated)

	price := &api.ListRequest{Price: decimal.NewNullDecimal(decimal.NewFromInt(8_000))}

	rec := s.do(http.MethodPost, "/api/kitties/0/buy", &bob, nil)
	expectStatus(t, rec, http.StatusConflict)

	rec = s.do(http.MethodPost, "/api/kitties/0/sale", &bob, price)
	expectStatus(t, rec, http.StatusForbidden)
	errObj := &api.ErrorObject{}
	decode(t, rec, errObj)
	if errObj.Message != "You do not own this kitty." {
		t.Errorf("message %q", errObj.Message)
	}

	rec = s.do(http.MethodPost, "/api/kitties/0/sale", &alice, &api.ListRequest{Price: decimal.NewNullDecimal(decimal.NewFromInt(-1))})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = s.do(http.MethodPost, "/api/kitties/0/sale", &alice, price)
	expectStatus(t, rec, http.StatusOK)

	expectStatus(t, s.do(http.MethodPost, "/api/kitties/0/buy", &alice, nil), http.StatusForbidden)
	expectStatus(t, s.do(http.MethodPost, "/api/kitties/0/buy", &nobody, nil), http.StatusPaymentRequired)

	rec = s.do(http.MethodPost, "/api/kitties/0/buy", &bob, nil)
	expectStatus(t, rec, http.StatusOK)
	evt := &types.Event{}
	decode(t, rec, evt)
	if evt.Kind != types.EventKittySold || evt.Account != bob || !evt.Price.Decimal.Equal(decimal.NewFromInt(8_000)) {
		t.Errorf("unexpected event %+v", evt)
	}

	rec = s.do(http.MethodGet, "/api/accounts/"+bob.String()+"/balance", nil, nil)
	expectStatus(t, rec, http.StatusOK)
	balance := &balances.Account{}
	decode(t, rec, balance)
	if !balance.Free.Equal(decimal.NewFromInt(11_000)) || !balance.Reserved.Equal(decimal.NewFromInt(1_000)) {
		t.Errorf("bob balance %+v", balance)
	}

	rec = s.do(http.MethodGet, "/api/accounts/"+bob.String()+"/kitties", nil, nil)
	expectStatus(t, rec, http.StatusOK)
	var kitties []*types.KittyView
	decode(t, rec, &kitties)
	if len(kitties) != 1 || kitties[0].ID != 0 || kitties[0].Price.Valid {
		t.Errorf("bob kitties %+v", kitties)
	}

	// create, list and buy were published, the failed attempts were not
	rec = s.do(http.MethodGet, "/api/events?after=1", nil, nil)
	expectStatus(t, rec, http.StatusOK)
	var events []*types.LoggedEvent
	decode(t, rec, &events)
	if len(events) != 2 || events[0].Kind != types.EventKittyListed || events[1].Kind != types.EventKittySold {
		t.Errorf("events %+v", events)
	}
}

func TestTransfer(t *testing.T) {
	s := newTestServer(t)
	expectStatus(t, s.do(http.MethodPost, "/api/kitties/", &alice, nil), http.StatusCreated)

	expectStatus(t, s.do(http.MethodPost, "/api/kitties/0/transfer", &alice, &api.TransferRequest{To: alice}), http.StatusConflict)
	expectStatus(t, s.do(http.MethodPost, "/api/kitties/0/transfer", &bob, &api.TransferRequest{To: bob}), http.StatusForbidden)
	expectStatus(t, s.do(http.MethodPost, "/api/kitties/0/transfer", &alice, &api.TransferRequest{}), http.StatusBadRequest)
	expectStatus(t, s.do(http.MethodPost, "/api/kitties/0/transfer", &alice, &api.TransferRequest{To: nobody}), http.StatusPaymentRequired)

	rec := s.do(http.MethodPost, "/api/kitties/0/transfer", &alice, &api.TransferRequest{To: bob})
	expectStatus(t, rec, http.StatusOK)
	evt := &types.Event{}
	decode(t, rec, evt)
	if evt.Kind != types.EventKittyTransferred || evt.To == nil || *evt.To != bob {
		t.Errorf("unexpected event %+v", evt)
	}

	rec = s.do(http.MethodGet, "/api/kitties/0", nil, nil)
	kitty := &types.KittyView{}
	decode(t, rec, kitty)
	if kitty.Owner != bob {
		t.Errorf("owner %s", kitty.Owner)
	}
}

func TestCheck(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/api/check", nil, nil)
	expectStatus(t, rec, http.StatusOK)
	if rec.Body.String() != "ok" {
		t.Errorf("body %q", rec.Body.String())
	}
}

package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"numa-sim/internal/accounts"
	"numa-sim/internal/auth"
	"numa-sim/internal/clock"
	"numa-sim/internal/ledger"
	"numa-sim/internal/marketdata"
	"numa-sim/internal/membership"
	"numa-sim/internal/pioneer"
	"numa-sim/internal/positions"
	"numa-sim/internal/staking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const internalToken = "test-internal-token"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	clk := clock.NewManual(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	ledgerSvc := ledger.NewService(nil, clk)
	accountsSvc := accounts.NewService(ledgerSvc, accounts.DefaultGrant(), clk)
	authSvc := auth.NewService(accountsSvc, "numa-sim", []byte("test-secret"), time.Hour)
	feed := marketdata.NewFeed(1)
	posSvc := positions.NewService(ledgerSvc, feed, nil, clk)
	bus := marketdata.NewBus()

	hash, err := bcrypt.GenerateFromPassword([]byte(internalToken), bcrypt.MinCost)
	require.NoError(t, err)

	return NewRouter(RouterDeps{
		AuthHandler:       auth.NewHandler(authSvc),
		AccountsHandler:   accounts.NewHandler(accountsSvc),
		LedgerHandler:     ledger.NewHandler(ledgerSvc),
		PositionHandler:   positions.NewHandler(posSvc),
		StakingHandler:    staking.NewHandler(staking.NewService(ledgerSvc, clk)),
		PioneerHandler:    pioneer.NewHandler(pioneer.NewService(ledgerSvc, nil, clk)),
		MembershipHandler: membership.NewHandler(membership.NewService(ledgerSvc, clk)),
		MarketHandler:     marketdata.NewHandler(feed),
		AuthService:       authSvc,
		InternalTokenHash: string(hash),
		WSHandler:         NewWSHandler(bus, authSvc, ledgerSvc, posSvc, "*"),
	})
}

func verifyAndToken(t *testing.T, router http.Handler) (string, string) {
	t.Helper()
	body := `{"nullifier_hash":"0xabc","merkle_root":"0x123","proof":"0xdead"}`
	req := httptest.NewRequest("POST", "/v1/auth/verify", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Token   string `json:"token"`
		Account struct {
			ID          string `json:"id"`
			BalanceNuma string `json:"balance_numa"`
			BalanceWld  string `json:"balance_wld"`
		} `json:"account"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token, resp.Account.ID
}

func TestVerifyIssuesTokenAndGrant(t *testing.T) {
	router := newTestRouter(t)
	token, _ := verifyAndToken(t, router)

	req := httptest.NewRequest("GET", "/v1/account", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var acc struct {
		BalanceNuma string `json:"balance_numa"`
		BalanceWld  string `json:"balance_wld"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &acc))
	assert.Equal(t, "100", acc.BalanceNuma)
	assert.Equal(t, "100", acc.BalanceWld)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/v1/account", "/v1/positions", "/v1/staking"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestOpenAndClosePositionOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	token, _ := verifyAndToken(t, router)

	body := `{"pair":"WLD-USD","side":"long","amount":"10","leverage":2}`
	req := httptest.NewRequest("POST", "/v1/positions", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var pos struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pos))

	req = httptest.NewRequest("POST", "/v1/positions/"+pos.ID+"/close", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// closing twice conflicts
	req = httptest.NewRequest("POST", "/v1/positions/"+pos.ID+"/close", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPublicEndpoints(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{
		"/health",
		"/v1/market/pairs",
		"/v1/market/quote/WLD-USD",
		"/v1/membership/catalog",
		"/v1/pioneer/leaderboard",
	} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestInternalEndpointsRequireTokenHashMatch(t *testing.T) {
	router := newTestRouter(t)
	_, referrerID := verifyAndToken(t, router)

	body := `{"nullifier_hash":"0xother","merkle_root":"0x123","proof":"0xdead"}`
	req := httptest.NewRequest("POST", "/v1/auth/verify", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var second struct {
		Account struct {
			ID string `json:"id"`
		} `json:"account"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))

	payload := `{"referrer_id":"` + referrerID + `","referred_id":"` + second.Account.ID + `","reward":"5"}`

	req = httptest.NewRequest("POST", "/v1/internal/referrals", strings.NewReader(payload))
	req.Header.Set("X-Internal-Token", "wrong")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest("POST", "/v1/internal/referrals", strings.NewReader(payload))
	req.Header.Set("X-Internal-Token", internalToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestStakingClaimOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	token, _ := verifyAndToken(t, router)

	req := httptest.NewRequest("POST", "/v1/staking/claim", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// a second claim inside the window conflicts
	req = httptest.NewRequest("POST", "/v1/staking/claim", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

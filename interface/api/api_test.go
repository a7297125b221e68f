package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"ethpool/domain"
	"ethpool/infrastructure/boltdb"
	"ethpool/interface/repository"
	"ethpool/usecase"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	deployer = common.HexToAddress("0x00000000000000000000000000000000000000d0")
	alice    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob      = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func newTestServer(t *testing.T) (*httptest.Server, *usecase.PoolInteractor) {
	t.Helper()
	ctx := context.Background()

	db, err := boltdb.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	ledger := repository.NewBoltLedger(db)
	t.Cleanup(func() { _ = ledger.Close() })

	team := usecase.NewTeamInteractor(ledger)
	require.NoError(t, team.Seed(ctx, deployer))
	pool := usecase.NewPoolInteractor(ledger, team, usecase.NewPayoutInteractor(ledger), usecase.MultiEmitter{})
	audit := usecase.NewAuditInteractor(ledger)

	server := httptest.NewServer(NewServer(pool, team, audit).Handler())
	t.Cleanup(server.Close)
	return server, pool
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()
	require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	return res.StatusCode
}

func TestGetPool(t *testing.T) {
	server, pool := newTestServer(t)
	ctx := context.Background()

	oneEth := uint256.MustFromDecimal("1000000000000000000")
	require.NoError(t, pool.Deposit(ctx, alice, oneEth))
	require.NoError(t, pool.Receive(ctx, deployer, uint256.MustFromDecimal("500000000000000000")))

	var res PoolResponse
	status := getJSON(t, server.URL+"/pool", &res)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "1000000000000000000", res.TotalPrincipal.Wei)
	assert.Equal(t, "1.5 ETH", res.Custody.Eth)
	assert.Equal(t, "500000000000000000", res.AccPerShare)
	assert.Equal(t, 1, res.TeamMembers)
	assert.Nil(t, res.LastAudit)
}

func TestGetAccount(t *testing.T) {
	server, pool := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, pool.Deposit(ctx, alice, uint256.NewInt(1)))
	require.NoError(t, pool.Deposit(ctx, bob, uint256.NewInt(2)))
	require.NoError(t, pool.Receive(ctx, deployer, uint256.NewInt(3)))

	var res AccountResponse
	status := getJSON(t, server.URL+"/accounts/"+bob.Hex(), &res)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, bob.Hex(), res.Address)
	assert.Equal(t, "2", res.Principal.Wei)
	assert.Equal(t, "2", res.Pending.Wei)
	assert.Equal(t, "4", res.Balance.Wei)

	var failure errorResponse
	status = getJSON(t, server.URL+"/accounts/not-an-address", &failure)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, failure.Error)
}

func TestGetTeam(t *testing.T) {
	server, _ := newTestServer(t)

	var members []string
	status := getJSON(t, server.URL+"/team", &members)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{deployer.Hex()}, members)

	var member MemberResponse
	getJSON(t, server.URL+"/team/"+deployer.Hex(), &member)
	assert.True(t, member.Member)

	getJSON(t, server.URL+"/team/"+alice.Hex(), &member)
	assert.False(t, member.Member)
}

func TestMetrics(t *testing.T) {
	server, _ := newTestServer(t)

	res, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func send(t *testing.T, method string, url string, caller *common.Address, body interface{}, out interface{}) int {
	t.Helper()

	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req, err := http.NewRequest(method, url, &payload)
	require.NoError(t, err)
	if caller != nil {
		req.Header.Set(CallerHeader, caller.Hex())
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	return res.StatusCode
}

func TestDepositRewardWithdraw(t *testing.T) {
	server, _ := newTestServer(t)

	var account AccountResponse
	status := send(t, http.MethodPost, server.URL+"/deposits", &alice, AmountRequest{Wei: "1000"}, &account)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, alice.Hex(), account.Address)
	assert.Equal(t, "1000", account.Principal.Wei)

	var pool PoolResponse
	status = send(t, http.MethodPost, server.URL+"/rewards", &deployer, AmountRequest{Wei: "500"}, &pool)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "1500", pool.Custody.Wei)

	var withdrawal WithdrawalResponse
	status = send(t, http.MethodPost, server.URL+"/withdrawals", &alice, nil, &withdrawal)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "1500", withdrawal.Payout.Wei)

	var failure errorResponse
	status = send(t, http.MethodPost, server.URL+"/withdrawals", &alice, nil, &failure)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, domain.ErrorNoDeposit.Error(), failure.Error)
}

func TestWriteRejections(t *testing.T) {
	server, _ := newTestServer(t)

	tests := []struct {
		name    string
		method  string
		path    string
		caller  *common.Address
		body    interface{}
		status  int
		message string
	}{
		{"missing caller", http.MethodPost, "/deposits", nil, AmountRequest{Wei: "1"}, http.StatusBadRequest, domain.ErrorInvalidCaller.Error()},
		{"zero deposit", http.MethodPost, "/deposits", &alice, AmountRequest{Wei: "0"}, http.StatusBadRequest, domain.ErrorInvalidAmount.Error()},
		{"malformed amount", http.MethodPost, "/deposits", &alice, AmountRequest{Wei: "1.5"}, http.StatusBadRequest, domain.ErrorInvalidAmountFormat.Error()},
		{"reward by non member", http.MethodPost, "/rewards", &alice, AmountRequest{Wei: "1"}, http.StatusForbidden, domain.ErrorUnauthorized.Error()},
		{"reward without deposits", http.MethodPost, "/rewards", &deployer, AmountRequest{Wei: "1"}, http.StatusConflict, domain.ErrorNoDepositsToReward.Error()},
		{"add member by non member", http.MethodPost, "/team", &alice, MemberRequest{Address: bob.Hex()}, http.StatusForbidden, domain.ErrorUnauthorized.Error()},
		{"remove member by non member", http.MethodDelete, "/team/" + deployer.Hex(), &alice, nil, http.StatusForbidden, domain.ErrorUnauthorized.Error()},
		{"add invalid member", http.MethodPost, "/team", &deployer, MemberRequest{Address: "bob"}, http.StatusBadRequest, domain.ErrorInvalidAddress.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var failure errorResponse
			status := send(t, tt.method, server.URL+tt.path, tt.caller, tt.body, &failure)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.message, failure.Error)
		})
	}
}

func TestTeamWrites(t *testing.T) {
	server, _ := newTestServer(t)

	var member MemberResponse
	status := send(t, http.MethodPost, server.URL+"/team", &deployer, MemberRequest{Address: alice.Hex()}, &member)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, member.Member)

	status = send(t, http.MethodDelete, server.URL+"/team/"+deployer.Hex(), &alice, nil, &member)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, member.Member)

	var members []string
	getJSON(t, server.URL+"/team", &members)
	assert.Equal(t, []string{alice.Hex()}, members)
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"ledger/internal/journal"
	"ledger/internal/repository/memory"
	"ledger/internal/sequence"
	"ledger/internal/service"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

type ServerTestSuite struct {
	suite.Suite
	server *Server
}

func newTestServer() *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ids := sequence.NewDefault()
	store := memory.NewStore(logger)
	ledger := service.NewLedgerService(store, ids, journal.New(ids, logger, journal.NewStoreSink(store)), service.DefaultRetryPolicy, logger)
	return NewServer(ledger, store, logger)
}

func (suite *ServerTestSuite) SetupTest() {
	suite.server = newTestServer()
}

func (suite *ServerTestSuite) do(method, path, body string) (int, envelope, http.Header) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	suite.server.GetRouter().ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env, rec.Header()
}

func (suite *ServerTestSuite) decode(raw json.RawMessage, v interface{}) {
	suite.Require().NoError(json.Unmarshal(raw, v))
}

func (suite *ServerTestSuite) TestLedgerFlow() {
	status, env, _ := suite.do("POST", "/accounts", `{"name":"Alice","initial_balance":"5000"}`)
	suite.Require().Equal(http.StatusCreated, status)
	var alice map[string]interface{}
	suite.decode(env.Data, &alice)
	suite.Equal(float64(1001), alice["account_id"])
	suite.Equal("5000.00", alice["balance"])

	status, _, _ = suite.do("POST", "/accounts", `{"name":"Bob","initial_balance":"3000"}`)
	suite.Require().Equal(http.StatusCreated, status)

	status, env, _ = suite.do("POST", "/accounts/1001/deposits", `{"amount":"2000"}`)
	suite.Require().Equal(http.StatusCreated, status)
	var deposit map[string]interface{}
	suite.decode(env.Data, &deposit)
	suite.Equal(float64(5001), deposit["transaction_id"])
	suite.Equal("DEPOSIT", deposit["type"])

	status, _, _ = suite.do("POST", "/accounts/1002/withdrawals", `{"amount":"500"}`)
	suite.Require().Equal(http.StatusCreated, status)

	status, env, _ = suite.do("POST", "/accounts/1002/withdrawals", `{"amount":"4000"}`)
	suite.Equal(http.StatusUnprocessableEntity, status)
	suite.Require().NotNil(env.Error)
	suite.Equal("insufficient_balance", env.Error.Code)

	status, env, _ = suite.do("POST", "/transfers", `{"from_account_id":1001,"to_account_id":1002,"amount":"1000"}`)
	suite.Require().Equal(http.StatusCreated, status)
	var transfer map[string]interface{}
	suite.decode(env.Data, &transfer)
	suite.Equal(float64(1002), transfer["target_account_id"])

	status, env, _ = suite.do("GET", "/accounts", "")
	suite.Require().Equal(http.StatusOK, status)
	var accounts []map[string]interface{}
	suite.decode(env.Data, &accounts)
	suite.Require().Len(accounts, 2)
	suite.Equal("6000.00", accounts[0]["balance"])
	suite.Equal("3500.00", accounts[1]["balance"])

	status, env, _ = suite.do("GET", "/accounts/1002/transactions", "")
	suite.Require().Equal(http.StatusOK, status)
	var history []map[string]interface{}
	suite.decode(env.Data, &history)
	suite.Len(history, 2)

	status, env, _ = suite.do("GET", "/transactions", "")
	suite.Require().Equal(http.StatusOK, status)
	var all []map[string]interface{}
	suite.decode(env.Data, &all)
	suite.Len(all, 3)

	status, env, _ = suite.do("GET", "/error-logs", "")
	suite.Require().Equal(http.StatusOK, status)
	var logs []map[string]interface{}
	suite.decode(env.Data, &logs)
	suite.Require().Len(logs, 1)
	suite.Equal("Insufficient balance for account 1002", logs[0]["message"])
	suite.Equal("WITHDRAW", logs[0]["procedure_name"])
}

func (suite *ServerTestSuite) TestErrorStatuses() {
	suite.do("POST", "/accounts", `{"name":"Carol","initial_balance":"10"}`)

	cases := []struct {
		method, path, body string
		status             int
		code               string
	}{
		{"GET", "/accounts/abc", "", http.StatusBadRequest, "invalid_input"},
		{"GET", "/accounts/4242", "", http.StatusNotFound, "account_not_found"},
		{"POST", "/accounts", `{"name":""}`, http.StatusBadRequest, "invalid_input"},
		{"POST", "/accounts", `{"name":"X","initial_balance":"-1"}`, http.StatusBadRequest, "invalid_amount"},
		{"POST", "/accounts", `not json`, http.StatusBadRequest, "invalid_input"},
		{"POST", "/accounts/1001/deposits", `{"amount":"0"}`, http.StatusBadRequest, "invalid_amount"},
		{"POST", "/accounts/1001/deposits", `{"amount":"ten"}`, http.StatusBadRequest, "invalid_amount"},
		{"POST", "/accounts/4242/deposits", `{"amount":"1"}`, http.StatusNotFound, "account_not_found"},
		{"POST", "/transfers", `{"from_account_id":1001,"to_account_id":1001,"amount":"1"}`, http.StatusBadRequest, "same_account_transfer"},
		{"POST", "/transfers", `{"from_account_id":"x","to_account_id":1001,"amount":"1"}`, http.StatusBadRequest, "invalid_input"},
	}

	for _, tc := range cases {
		status, env, _ := suite.do(tc.method, tc.path, tc.body)
		suite.Equal(tc.status, status, "%s %s", tc.method, tc.path)
		if suite.NotNil(env.Error, "%s %s", tc.method, tc.path) {
			suite.Equal(tc.code, env.Error.Code, "%s %s", tc.method, tc.path)
		}
	}
}

func (suite *ServerTestSuite) TestRequestID() {
	_, _, header := suite.do("GET", "/accounts", "")
	suite.NotEmpty(header.Get(requestIDHeader))

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(requestIDHeader, "8c1c6f38-59f6-4b1f-9a7c-6a4a8d2c1f00")
	rec := httptest.NewRecorder()
	suite.server.GetRouter().ServeHTTP(rec, req)
	suite.Equal("8c1c6f38-59f6-4b1f-9a7c-6a4a8d2c1f00", rec.Header().Get(requestIDHeader))
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func TestStartServesHealth(t *testing.T) {
	srv := newTestServer()

	port, err := srv.Start("0")
	require.NoError(t, err)
	assert.NotEqual(t, "0", port)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, srv.Stop(ctx))
	}()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(srv.GetBaseURL() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(body, []byte(`"healthy"`)))
}

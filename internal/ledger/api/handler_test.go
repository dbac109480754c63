package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xxz807/docbank/backend/internal/ledger/adapter/repo"
	"github.com/xxz807/docbank/backend/internal/ledger/api"
	"github.com/xxz807/docbank/backend/internal/ledger/service"
	"github.com/xxz807/docbank/backend/internal/platform/docstore"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	store := docstore.NewMemoryStore()
	svc := service.NewLedgerService(repo.NewAccountRepo(store), repo.NewTransactionLog(store), zap.NewNop(), service.DefaultRetryBudget)
	h := api.NewLedgerHandler(svc)

	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(b)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createAccount(t *testing.T, r *gin.Engine, opening string) {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/v1/accounts", gin.H{
		"owner_name":      "naomi",
		"account_number":  123456,
		"card_id":         1029384756,
		"opening_balance": opening,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestCreateAccountEndpoint(t *testing.T) {
	r := setupRouter()

	w := doJSON(t, r, http.MethodPost, "/api/v1/accounts", gin.H{
		"owner_name":      "naomi",
		"account_number":  123456,
		"card_id":         1029384756,
		"opening_balance": "300.00",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Message string `json:"message"`
		Account struct {
			Balance   string `json:"balance"`
			OwnerName string `json:"owner_name"`
		} `json:"account"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "account 123456 created for naomi", resp.Message)
	assert.Equal(t, "300.00", resp.Account.Balance)
	assert.Equal(t, "naomi", resp.Account.OwnerName)

	// 身份冲突
	w = doJSON(t, r, http.MethodPost, "/api/v1/accounts", gin.H{
		"owner_name":     "someone else",
		"account_number": 123456,
		"card_id":        1029384756,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// 负数开户余额由核心拒绝
	w = doJSON(t, r, http.MethodPost, "/api/v1/accounts", gin.H{
		"owner_name":      "naomi",
		"account_number":  7,
		"card_id":         8,
		"opening_balance": "-10.00",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 缺字段
	w = doJSON(t, r, http.MethodPost, "/api/v1/accounts", gin.H{"owner_name": "naomi"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDepositAndWithdraw(t *testing.T) {
	r := setupRouter()
	createAccount(t, r, "300.00")

	w := doJSON(t, r, http.MethodPost, "/api/v1/accounts/123456/1029384756/deposit", gin.H{"amount": "100.00"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"balance":"400.00"}`, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/api/v1/accounts/123456/1029384756/withdraw", gin.H{"amount": "50.00"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"balance":"350.00"}`, w.Body.String())

	// 余额不足
	w = doJSON(t, r, http.MethodPost, "/api/v1/accounts/123456/1029384756/withdraw", gin.H{"amount": "1000.00"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// 金额解析失败
	w = doJSON(t, r, http.MethodPost, "/api/v1/accounts/123456/1029384756/deposit", gin.H{"amount": "abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(t, r, http.MethodPost, "/api/v1/accounts/123456/1029384756/deposit", gin.H{"amount": "1.005"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 非正金额由核心拒绝
	w = doJSON(t, r, http.MethodPost, "/api/v1/accounts/123456/1029384756/deposit", gin.H{"amount": "-5.00"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/accounts/123456/1029384756", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"balance":"350.00"`)
}

func TestUnknownAccount(t *testing.T) {
	r := setupRouter()

	w := doJSON(t, r, http.MethodPost, "/api/v1/accounts/1/2/deposit", gin.H{"amount": "10.00"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/accounts/1/2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/accounts/1/2/statement", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 身份必须是数字
	w = doJSON(t, r, http.MethodGet, "/api/v1/accounts/abc/2", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatementEndpoint(t *testing.T) {
	r := setupRouter()
	createAccount(t, r, "")

	// 新账户：空账单
	w := doJSON(t, r, http.MethodGet, "/api/v1/accounts/123456/1029384756/statement", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Statement []string `json:"statement"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Statement)

	w = doJSON(t, r, http.MethodPost, "/api/v1/accounts/123456/1029384756/deposit", gin.H{"amount": "100.00"})
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodPost, "/api/v1/accounts/123456/1029384756/withdraw", gin.H{"amount": "30.00"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/accounts/123456/1029384756/statement", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Statement, 2)
	assert.True(t, strings.HasPrefix(resp.Statement[0], "Deposit 10000 -> balance 10000 @ "), "got %q", resp.Statement[0])
	assert.True(t, strings.HasPrefix(resp.Statement[1], "Withdrawal 3000 -> balance 7000 @ "), "got %q", resp.Statement[1])

	// as_of 必须是 RFC3339
	w = doJSON(t, r, http.MethodGet, "/api/v1/accounts/123456/1029384756/statement?as_of=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

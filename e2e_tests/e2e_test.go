//go:build e2e

// End-to-end flow against a running API seeded with the DEV migrations
// (cmd/migrator/test_data) and the default rent reserve policy.
package e2etests

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/fastprodman/vaultd/internal/vault"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	timeout   = 5 * time.Second
	waitReady = 20 * time.Second

	authority = "0101010101010101010101010101010101010101010101010101010101010101"
	depositor = "0202020202020202020202020202020202020202020202020202020202020202"
	poor      = "0303030303030303030303030303030303030303030303030303030303030303"
)

var httpClient = &http.Client{Timeout: timeout}

func baseURL() string {
	if u := os.Getenv("VAULTD_E2E_URL"); u != "" {
		return u
	}

	return "http://localhost:8080"
}

func TestE2E_VaultFlow(t *testing.T) {
	waitUntilReady(t)

	code, body := call(t, http.MethodPost, "/vaults", authority, nil)
	require.Contains(t, []int{http.StatusCreated, http.StatusConflict}, code, body)

	// The vault id is derived from the authority, so a rerun finds the same vault.
	auth, err := vault.ParseIdentity(authority)
	require.NoError(t, err)

	vaultPath := "/vaults/" + vault.DeriveID(auth).String()

	code, body = call(t, http.MethodPost, vaultPath+"/unlock", authority, nil)
	require.Equal(t, http.StatusOK, code, body)

	before := vaultBalance(t, vaultPath)

	t.Run("deposit_then_withdraw", func(t *testing.T) {
		code, body := call(t, http.MethodPost, vaultPath+"/deposit", depositor, map[string]string{
			"amount": "1000", "requestId": uuid.NewString(),
		})
		require.Equal(t, http.StatusOK, code, body)
		assert.Equal(t, before+1000, vaultBalance(t, vaultPath))

		code, body = call(t, http.MethodPost, vaultPath+"/withdraw", authority, map[string]string{"amount": "400"})
		require.Equal(t, http.StatusOK, code, body)
		assert.Equal(t, before+600, vaultBalance(t, vaultPath))
	})

	t.Run("duplicate_request_applied_once", func(t *testing.T) {
		start := vaultBalance(t, vaultPath)
		payload := map[string]string{"amount": "5", "requestId": uuid.NewString()}

		code, _ := call(t, http.MethodPost, vaultPath+"/deposit", depositor, payload)
		require.Equal(t, http.StatusOK, code)

		code, _ = call(t, http.MethodPost, vaultPath+"/deposit", depositor, payload)
		require.Equal(t, http.StatusConflict, code)

		assert.Equal(t, start+5, vaultBalance(t, vaultPath))
	})

	t.Run("stranger_cannot_withdraw", func(t *testing.T) {
		code, _ := call(t, http.MethodPost, vaultPath+"/withdraw", depositor, map[string]string{"amount": "1"})
		assert.Equal(t, http.StatusForbidden, code)
	})

	t.Run("poor_depositor_rejected", func(t *testing.T) {
		code, _ := call(t, http.MethodPost, vaultPath+"/deposit", poor, map[string]string{"amount": "100"})
		assert.Equal(t, http.StatusConflict, code)
	})

	t.Run("locked_vault_rejects_both", func(t *testing.T) {
		code, _ := call(t, http.MethodPost, vaultPath+"/lock", authority, nil)
		require.Equal(t, http.StatusOK, code)

		code, _ = call(t, http.MethodPost, vaultPath+"/deposit", depositor, map[string]string{"amount": "1"})
		assert.Equal(t, http.StatusLocked, code)

		code, _ = call(t, http.MethodPost, vaultPath+"/withdraw", authority, map[string]string{"amount": "1"})
		assert.Equal(t, http.StatusLocked, code)

		code, _ = call(t, http.MethodPost, vaultPath+"/unlock", authority, nil)
		require.Equal(t, http.StatusOK, code)
	})
}

/* -------------------- helpers -------------------- */

func call(t *testing.T, method, path, actor string, payload any) (int, string) {
	t.Helper()

	var body io.Reader = http.NoBody

	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)

		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, baseURL()+path, body)
	require.NoError(t, err)

	req.Header.Set("Content-Type", "application/json")

	if actor != "" {
		req.Header.Set("X-Actor-ID", actor)
	}

	resp, err := httpClient.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)

	return resp.StatusCode, string(b)
}

func vaultBalance(t *testing.T, vaultPath string) uint64 {
	t.Helper()

	code, body := call(t, http.MethodGet, vaultPath, "", nil)
	require.Equal(t, http.StatusOK, code, body)

	var payload struct {
		Balance string `json:"balance"`
	}

	require.NoError(t, json.Unmarshal([]byte(body), &payload))

	u, err := strconv.ParseUint(payload.Balance, 10, 64)
	require.NoError(t, err)

	return u
}

func waitUntilReady(t *testing.T) {
	t.Helper()

	deadline := time.Now().Add(waitReady)

	for time.Now().Before(deadline) {
		resp, err := httpClient.Get(baseURL() + "/healthz")
		if err == nil {
			resp.Body.Close()

			if resp.StatusCode == http.StatusOK {
				return
			}
		}

		time.Sleep(300 * time.Millisecond)
	}

	t.Fatalf("API not ready at %s after %s", baseURL(), waitReady)
}

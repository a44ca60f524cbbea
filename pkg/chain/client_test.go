package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sponsorworks/attribution/pkg/logger"
)

func testServer(t *testing.T, handler func(method string, params []any) (any, *rpcError)) *Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, rpcErr := handler(req.Method, req.Params)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)

	client, err := New(Config{
		Logger:      logger.NewTest(),
		Endpoint:    srv.URL,
		CallTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return client
}

func TestChain_GetVestingDelegations(t *testing.T) {
	t.Parallel()

	t.Run("decodes delegations with chain timestamps", func(t *testing.T) {
		t.Parallel()

		client := testServer(t, func(method string, params []any) (any, *rpcError) {
			require.Equal(t, methodGetVestingDelegations, method)
			require.Equal(t, []any{"alice", "", float64(1000)}, params)
			return []map[string]any{
				{
					"delegator":           "alice",
					"delegatee":           "platform",
					"vesting_shares":      "12345.678901 VESTS",
					"min_delegation_time": "2021-01-05T00:00:00",
				},
			}, nil
		})

		delegations, err := client.GetVestingDelegations(context.Background(), "alice", "", 1000)
		require.NoError(t, err)
		require.Len(t, delegations, 1)
		require.Equal(t, "platform", delegations[0].Delegatee)
		require.Equal(t, time.Date(2021, 1, 5, 0, 0, 0, 0, time.UTC), delegations[0].MinDelegationTime.Time)

		vests, err := delegations[0].Vests()
		require.NoError(t, err)
		require.Equal(t, float64(12345), vests, "fractional part is truncated")
	})

	t.Run("surfaces rpc errors", func(t *testing.T) {
		t.Parallel()

		client := testServer(t, func(method string, params []any) (any, *rpcError) {
			return nil, &rpcError{Code: -32000, Message: "account not found"}
		})

		_, err := client.GetVestingDelegations(context.Background(), "nobody", "", 1000)
		require.Error(t, err)
		require.Contains(t, err.Error(), "account not found")
	})
}

func TestChain_GetWitnessByAccount(t *testing.T) {
	t.Parallel()

	t.Run("returns witness when present", func(t *testing.T) {
		t.Parallel()

		client := testServer(t, func(method string, params []any) (any, *rpcError) {
			require.Equal(t, methodGetWitnessByAccount, method)
			return map[string]any{"owner": "alice", "url": "https://example.com"}, nil
		})

		witness, err := client.GetWitnessByAccount(context.Background(), "alice")
		require.NoError(t, err)
		require.NotNil(t, witness)
		require.Equal(t, "alice", witness.Owner)
	})

	t.Run("returns nil for non-witness accounts", func(t *testing.T) {
		t.Parallel()

		client := testServer(t, func(method string, params []any) (any, *rpcError) {
			return nil, nil
		})

		witness, err := client.GetWitnessByAccount(context.Background(), "bob")
		require.NoError(t, err)
		require.Nil(t, witness)
	})
}

func TestChain_CallTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	client, err := New(Config{
		Logger:      logger.NewTest(),
		Endpoint:    srv.URL,
		CallTimeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = client.GetWitnessByAccount(context.Background(), "alice")
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestChain_Vests(t *testing.T) {
	t.Parallel()

	t.Run("accepts bare integers", func(t *testing.T) {
		t.Parallel()
		vests, err := Delegation{VestingShares: "300 VESTS"}.Vests()
		require.NoError(t, err)
		require.Equal(t, float64(300), vests)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		t.Parallel()
		_, err := Delegation{VestingShares: "not-a-number"}.Vests()
		require.Error(t, err)
	})
}

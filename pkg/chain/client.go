package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sponsorworks/attribution/pkg/metrics"
)

const (
	methodGetVestingDelegations = "condenser_api.get_vesting_delegations"
	methodGetWitnessByAccount   = "condenser_api.get_witness_by_account"

	// Timestamps on the chain API carry no zone suffix and are UTC.
	chainTimeLayout = "2006-01-02T15:04:05"
)

// ErrBadStatus is returned when the chain endpoint answers with a non-200 status.
var ErrBadStatus = errors.New("unexpected http status from chain endpoint")

type Config struct {
	Logger      *slog.Logger
	Endpoint    string
	CallTimeout time.Duration
	HTTPClient  *http.Client // optional, defaults to http.DefaultClient
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Endpoint == "" {
		return errors.New("chain endpoint is required")
	}
	if cfg.CallTimeout <= 0 {
		return errors.New("call timeout must be greater than 0")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return nil
}

// Client talks JSON-RPC 2.0 to a condenser-style chain API.
type Client struct {
	log *slog.Logger
	cfg Config
}

func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		log: cfg.Logger,
		cfg: cfg,
	}, nil
}

// Delegation is one outbound vesting delegation as reported by the chain.
type Delegation struct {
	Delegator         string    `json:"delegator"`
	Delegatee         string    `json:"delegatee"`
	VestingShares     string    `json:"vesting_shares"` // e.g. "12345.678901 VESTS"
	MinDelegationTime ChainTime `json:"min_delegation_time"`
}

// Vests returns the delegated share amount. The fractional part is
// truncated to match how downstream accounting has always read this field.
func (d Delegation) Vests() (float64, error) {
	s := strings.TrimSuffix(d.VestingShares, " VESTS")
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed vesting shares %q: %w", d.VestingShares, err)
	}
	return float64(n), nil
}

// Witness is the subset of witness state the engine cares about.
type Witness struct {
	Owner string `json:"owner"`
	URL   string `json:"url"`
}

// ChainTime unmarshals the chain's zone-less UTC timestamps.
type ChainTime struct {
	time.Time
}

func (t *ChainTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseInLocation(chainTimeLayout, s, time.UTC)
	if err != nil {
		return fmt.Errorf("malformed chain timestamp %q: %w", s, err)
	}
	t.Time = parsed
	return nil
}

// GetVestingDelegations returns the account's outbound delegations starting
// at the given delegatee account name ("" for the beginning), up to limit.
func (c *Client) GetVestingDelegations(ctx context.Context, account, from string, limit int) ([]Delegation, error) {
	var delegations []Delegation
	err := c.call(ctx, methodGetVestingDelegations, []any{account, from, limit}, &delegations)
	if err != nil {
		return nil, fmt.Errorf("get vesting delegations for %s: %w", account, err)
	}
	return delegations, nil
}

// GetWitnessByAccount returns the account's witness record, or nil when the
// account is not a witness.
func (c *Client) GetWitnessByAccount(ctx context.Context, account string) (*Witness, error) {
	var witness *Witness
	err := c.call(ctx, methodGetWitnessByAccount, []any{account}, &witness)
	if err != nil {
		return nil, fmt.Errorf("get witness for %s: %w", account, err)
	}
	return witness, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		metrics.ChainRequestsTotal.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ChainRequestsTotal.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		metrics.ChainRequestsTotal.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if rpcResp.Error != nil {
		metrics.ChainRequestsTotal.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		metrics.ChainRequestsTotal.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("failed to decode result: %w", err)
	}

	metrics.ChainRequestsTotal.WithLabelValues(method, "success").Inc()
	c.log.Debug("chain: rpc call completed", "method", method, "duration", time.Since(start).String())
	return nil
}

package head

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"hydra-launchpad/internal/domain"
)

// NodeClient implements Client against a set of channel nodes listening on
// per-channel ports of one host. Build endpoints are plain HTTP; status and
// confirmations come from each channel's websocket feed.
type NodeClient struct {
	host     string
	scheme   string // "http" or "https"
	client   *http.Client
	wsConfig WSConfig
	logger   *log.Logger

	conns   map[int]*channelConn
	connsMu sync.Mutex
	closed  atomic.Bool
}

// NodeOption configures NodeClient.
type NodeOption func(*NodeClient)

// WithHTTPClient sets a custom http.Client for the build endpoints.
func WithHTTPClient(client *http.Client) NodeOption {
	return func(c *NodeClient) {
		c.client = client
	}
}

// WithWSConfig sets the websocket configuration for channel connections.
func WithWSConfig(config WSConfig) NodeOption {
	return func(c *NodeClient) {
		c.wsConfig = config
	}
}

// WithTLS switches the client to https/wss endpoints.
func WithTLS() NodeOption {
	return func(c *NodeClient) {
		c.scheme = "https"
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *log.Logger) NodeOption {
	return func(c *NodeClient) {
		c.logger = logger
	}
}

// NewNodeClient creates a client for the channel nodes on the given host.
func NewNodeClient(host string, opts ...NodeOption) *NodeClient {
	c := &NodeClient{
		host:     host,
		scheme:   "http",
		client:   &http.Client{Timeout: 30 * time.Second},
		wsConfig: DefaultWSConfig(),
		logger:   log.New(io.Discard, "", 0),
		conns:    make(map[int]*channelConn),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Client = (*NodeClient)(nil)

// channel returns the websocket connection for a channel, dialing lazily.
func (c *NodeClient) channel(ctx context.Context, channelID int) (*channelConn, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("client closed")
	}

	c.connsMu.Lock()
	defer c.connsMu.Unlock()

	if conn, ok := c.conns[channelID]; ok {
		return conn, nil
	}

	wsScheme := "ws"
	if c.scheme == "https" {
		wsScheme = "wss"
	}
	endpoint := fmt.Sprintf("%s://%s:%d", wsScheme, c.host, channelID)

	conn, err := dialChannel(ctx, endpoint, c.wsConfig, c.logger)
	if err != nil {
		return nil, fmt.Errorf("dial channel %d: %w", channelID, err)
	}

	c.conns[channelID] = conn
	return conn, nil
}

// baseURL returns the HTTP base URL of a channel node.
func (c *NodeClient) baseURL(channelID int) string {
	return fmt.Sprintf("%s://%s:%d", c.scheme, c.host, channelID)
}

// postJSON posts a JSON body to a channel endpoint and decodes the response.
func (c *NodeClient) postJSON(ctx context.Context, channelID int, path string, body, result interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL(channelID)+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// getJSON fetches a channel endpoint and decodes the response.
func (c *NodeClient) getJSON(ctx context.Context, channelID int, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL(channelID)+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}

// Status reports the channel's current lifecycle status.
func (c *NodeClient) Status(ctx context.Context, channelID int) (domain.HeadStatus, error) {
	conn, err := c.channel(ctx, channelID)
	if err != nil {
		return "", err
	}
	return conn.Status(ctx)
}

// GetChannelBalance retrieves an address's channel-internal allocations.
func (c *NodeClient) GetChannelBalance(ctx context.Context, address string, channelID int) ([]Allocation, error) {
	var result []Allocation
	path := "/balance?address=" + url.QueryEscape(address)
	if err := c.getJSON(ctx, channelID, path, &result); err != nil {
		return nil, fmt.Errorf("get channel balance: %w", err)
	}
	return result, nil
}

// buildResult is the response of the build endpoints.
type buildResult struct {
	TxBytes string `json:"txBytes"` // base64 encoded
}

func (r *buildResult) decode() ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(r.TxBytes)
	if err != nil {
		return nil, fmt.Errorf("decode tx bytes: %w", err)
	}
	return raw, nil
}

// BuildCommitTransaction builds the unsigned commit transaction.
func (c *NodeClient) BuildCommitTransaction(ctx context.Context, spec *CommitSpec) ([]byte, error) {
	var result buildResult
	if err := c.postJSON(ctx, spec.ChannelID, "/commit", spec, &result); err != nil {
		return nil, fmt.Errorf("build commit tx: %w", err)
	}
	return result.decode()
}

// BuildSplitTransaction builds the unsigned split transaction.
func (c *NodeClient) BuildSplitTransaction(ctx context.Context, spec *SplitSpec) ([]byte, error) {
	var result buildResult
	if err := c.postJSON(ctx, spec.ChannelID, "/split", spec, &result); err != nil {
		return nil, fmt.Errorf("build split tx: %w", err)
	}
	return result.decode()
}

// BuildDecommitTransaction builds the unsigned decommit transaction.
func (c *NodeClient) BuildDecommitTransaction(ctx context.Context, spec *DecommitSpec) ([]byte, error) {
	var result buildResult
	if err := c.postJSON(ctx, spec.ChannelID, "/decommit", spec, &result); err != nil {
		return nil, fmt.Errorf("build decommit tx: %w", err)
	}
	return result.decode()
}

// BuildTransferTransaction builds the unsigned trade settlement transaction.
func (c *NodeClient) BuildTransferTransaction(ctx context.Context, spec *TransferSpec) ([]byte, error) {
	var result buildResult
	if err := c.postJSON(ctx, spec.ChannelID, "/transfer", spec, &result); err != nil {
		return nil, fmt.Errorf("build transfer tx: %w", err)
	}
	return result.decode()
}

// submitRequest is the body of the submit endpoint.
type submitRequest struct {
	Transactions []string `json:"transactions"` // base64 encoded, applied in order
}

// submitResult is the response of the submit endpoint.
type submitResult struct {
	TxRef string `json:"txRef"` // reference of the last applied transaction
}

// SubmitSigned sends signed transactions to the channel in order.
func (c *NodeClient) SubmitSigned(ctx context.Context, channelID int, signed ...[]byte) (string, error) {
	if len(signed) == 0 {
		return "", fmt.Errorf("no transactions to submit")
	}

	req := submitRequest{Transactions: make([]string, len(signed))}
	for i, tx := range signed {
		req.Transactions[i] = base64.StdEncoding.EncodeToString(tx)
	}

	var result submitResult
	if err := c.postJSON(ctx, channelID, "/submit", req, &result); err != nil {
		return "", fmt.Errorf("submit signed: %w", err)
	}
	return result.TxRef, nil
}

// AwaitTxConfirmation blocks until the channel confirms the transaction.
func (c *NodeClient) AwaitTxConfirmation(ctx context.Context, channelID int, txRef string) error {
	conn, err := c.channel(ctx, channelID)
	if err != nil {
		return err
	}
	return conn.AwaitTx(ctx, txRef)
}

// Close releases all channel connections.
func (c *NodeClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	c.connsMu.Lock()
	defer c.connsMu.Unlock()

	for id, conn := range c.conns {
		conn.Close()
		delete(c.conns, id)
	}
	return nil
}

// Package main provides the launchpad service: token minting, bridging
// between L1 and settlement heads, and bonding-curve trading, exposed over
// an HTTP API with Prometheus metrics.
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"hydra-launchpad/internal/bridge"
	"hydra-launchpad/internal/curve"
	"hydra-launchpad/internal/domain"
	"hydra-launchpad/internal/head"
	"hydra-launchpad/internal/ledger"
	"hydra-launchpad/internal/metadata"
	"hydra-launchpad/internal/mint"
	"hydra-launchpad/internal/observability"
	"hydra-launchpad/internal/selection"
	"hydra-launchpad/internal/storage"
	chstore "hydra-launchpad/internal/storage/clickhouse"
	"hydra-launchpad/internal/storage/memory"
	"hydra-launchpad/internal/storage/migrations"
	pgstore "hydra-launchpad/internal/storage/postgres"
	"hydra-launchpad/internal/trading"
)

// allStores holds all storage implementations.
type allStores struct {
	tokenStore    storage.TokenStore
	poolStore     storage.PoolStore
	tradeStore    storage.TradeStore
	recoveryStore storage.SplitRecoveryStore
	tickStore     storage.TradeTickStore
}

// Server wires the coordinators behind the HTTP API. Unsigned transactions
// handed to callers for signing are parked in pending maps keyed by a
// request id until the signed counterpart comes back.
type Server struct {
	stores   *allStores
	minter   *mint.Coordinator
	commits  *bridge.CommitCoordinator
	decomms  *bridge.DecommitCoordinator
	trader   *trading.Coordinator
	contents metadata.ContentStore
	logger   *log.Logger

	mu               sync.Mutex
	pendingMints     map[string]*mint.Plan
	pendingCommits   map[string]*domain.SignRequest
	pendingDecommits map[string]*domain.TwoPhaseSignRequest
	nextRequestID    int
	started          time.Time
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	ledgerEndpoint := flag.String("ledger-endpoint", os.Getenv("LEDGER_RPC_ENDPOINT"), "Ledger service JSON-RPC endpoint")
	headHost := flag.String("head-host", os.Getenv("HEAD_HOST"), "Head service host (channels addressed by port)")
	contentEndpoint := flag.String("content-endpoint", os.Getenv("CONTENT_STORE_ENDPOINT"), "Content store pinning endpoint")
	contentAPIKey := flag.String("content-api-key", os.Getenv("CONTENT_STORE_API_KEY"), "Content store API key")
	poolAddress := flag.String("pool-address", os.Getenv("POOL_SCRIPT_ADDRESS"), "Pool script address receiving minted bundles")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	dataAPIEndpoint := flag.String("data-api-endpoint", os.Getenv("DATA_API_ENDPOINT"), "Data API trade registration endpoint (optional)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	listenAddr := flag.String("listen-addr", ":8080", "API HTTP address")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if *ledgerEndpoint == "" {
		logger.Fatal("--ledger-endpoint is required")
	}
	if *headHost == "" {
		logger.Fatal("--head-host is required")
	}
	if *poolAddress == "" {
		logger.Fatal("--pool-address is required")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	ledgerClient := ledger.NewHTTPClient(*ledgerEndpoint)
	headClient := head.NewNodeClient(*headHost,
		head.WithLogger(log.New(os.Stdout, "[head] ", log.LstdFlags)))
	defer headClient.Close()

	var contentStore metadata.ContentStore
	if *contentEndpoint != "" {
		contentStore = metadata.NewHTTPClient(*contentEndpoint, metadata.WithAPIKey(*contentAPIKey))
	}

	var reporter trading.Reporter
	if *dataAPIEndpoint != "" {
		reporter = &httpReporter{
			endpoint: *dataAPIEndpoint,
			client:   &http.Client{Timeout: 10 * time.Second},
			logger:   logger,
		}
	}

	server := &Server{
		stores: stores,
		minter: mint.NewCoordinator(ledgerClient, stores.tokenStore, stores.poolStore,
			*poolAddress, log.New(os.Stdout, "[mint] ", log.LstdFlags)),
		commits: bridge.NewCommitCoordinator(ledgerClient, headClient, stores.tokenStore,
			stores.poolStore, log.New(os.Stdout, "[bridge] ", log.LstdFlags)),
		decomms: bridge.NewDecommitCoordinator(headClient, stores.tokenStore, stores.poolStore,
			stores.recoveryStore, log.New(os.Stdout, "[bridge] ", log.LstdFlags)),
		trader: trading.NewCoordinator(stores.tokenStore, stores.poolStore, stores.tradeStore,
			stores.tickStore, headClient, reporter, log.New(os.Stdout, "[trading] ", log.LstdFlags)),
		contents:         contentStore,
		logger:           logger,
		pendingMints:     make(map[string]*mint.Plan),
		pendingCommits:   make(map[string]*domain.SignRequest),
		pendingDecommits: make(map[string]*domain.TwoPhaseSignRequest),
		started:          time.Now(),
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	go server.startMetricsServer(*metricsAddr)

	if err := server.serveAPI(ctx, *listenAddr); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// createStores creates all required stores, applying migrations for the
// database-backed setup.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			tokenStore:    memory.NewTokenStore(),
			poolStore:     memory.NewPoolStore(),
			tradeStore:    memory.NewTradeStore(),
			recoveryStore: memory.NewSplitRecoveryStore(),
			tickStore:     memory.NewTradeTickStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}

	stores := &allStores{
		tokenStore:    pgstore.NewTokenStore(pool),
		poolStore:     pgstore.NewPoolStore(pool),
		tradeStore:    pgstore.NewTradeStore(pool),
		recoveryStore: pgstore.NewSplitRecoveryStore(pool),
		tickStore:     chstore.NewTradeTickStore(chConn),
	}
	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

// serveAPI runs the API HTTP server until ctx is cancelled.
func (s *Server) serveAPI(ctx context.Context, addr string) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/status", s.handleStatus)

	mux.HandleFunc("/tokens", s.handleTokens)
	mux.HandleFunc("/tokens/mint", s.handleMint)
	mux.HandleFunc("/tokens/mint/confirm", s.handleMintConfirm)
	mux.HandleFunc("/pools", s.handlePools)
	mux.HandleFunc("/trades", s.handleTrades)

	mux.HandleFunc("/bridge/commit", s.handleCommit)
	mux.HandleFunc("/bridge/commit/submit", s.handleCommitSubmit)
	mux.HandleFunc("/bridge/decommit", s.handleDecommit)
	mux.HandleFunc("/bridge/decommit/submit", s.handleDecommitSubmit)
	mux.HandleFunc("/bridge/decommit/retry", s.handleDecommitRetry)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Printf("API listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return ctx.Err()
}

// startMetricsServer starts the HTTP server for health/metrics.
func (s *Server) startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())

	s.logger.Printf("Metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("Metrics server error: %v", err)
	}
}

// requestID issues a process-unique id for a pending sign request.
// Caller must hold s.mu.
func (s *Server) requestID() string {
	s.nextRequestID++
	return fmt.Sprintf("req-%d", s.nextRequestID)
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status           string `json:"status"`
	Uptime           string `json:"uptime"`
	PendingMints     int    `json:"pending_mints"`
	PendingCommits   int    `json:"pending_commits"`
	PendingDecommits int    `json:"pending_decommits"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:           "running",
		Uptime:           time.Since(s.started).String(),
		PendingMints:     len(s.pendingMints),
		PendingCommits:   len(s.pendingCommits),
		PendingDecommits: len(s.pendingDecommits),
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

// MintRequest is the JSON body of POST /tokens/mint. The logo may be given
// inline; it is pinned to the content store and its id threaded into the
// token metadata.
type MintRequest struct {
	OwnerAddress         string  `json:"ownerAddress"`
	OwnerVerificationKey string  `json:"ownerVerificationKey"` // hex
	Name                 string  `json:"name"`
	Ticker               string  `json:"ticker"`
	TotalSupply          int64   `json:"totalSupply"`
	Decimals             int     `json:"decimals"`
	Slope                float64 `json:"slope"`
	Description          string  `json:"description,omitempty"`
	Website              string  `json:"website,omitempty"`
	Twitter              string  `json:"twitter,omitempty"`
	Telegram             string  `json:"telegram,omitempty"`
	LogoBase64           string  `json:"logoBase64,omitempty"`
	ContentID            string  `json:"contentId,omitempty"`
}

// MintResponse returns the plan for the caller to sign.
type MintResponse struct {
	RequestID  string           `json:"requestId"`
	PolicyID   string           `json:"policyId"`
	AssetName  string           `json:"assetName"`
	AssetID    string           `json:"assetId"`
	Datum      domain.PoolDatum `json:"datum"`
	UnsignedTx string           `json:"unsignedTx"` // base64
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req MintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	vkey, err := hex.DecodeString(req.OwnerVerificationKey)
	if err != nil {
		http.Error(w, "invalid verification key hex", http.StatusBadRequest)
		return
	}

	contentID := req.ContentID
	if contentID == "" && req.LogoBase64 != "" {
		if s.contents == nil {
			http.Error(w, "content store not configured", http.StatusServiceUnavailable)
			return
		}
		blob, err := base64.StdEncoding.DecodeString(req.LogoBase64)
		if err != nil {
			http.Error(w, "invalid logo base64", http.StatusBadRequest)
			return
		}
		contentID, err = s.contents.Pin(r.Context(), req.Ticker+"-logo", blob)
		if err != nil {
			s.writeError(w, fmt.Errorf("pin logo: %w", err))
			return
		}
	}

	plan, err := s.minter.Mint(r.Context(), &mint.Params{
		OwnerAddress:         req.OwnerAddress,
		OwnerVerificationKey: vkey,
		Name:                 req.Name,
		Ticker:               req.Ticker,
		TotalSupply:          req.TotalSupply,
		Decimals:             req.Decimals,
		Slope:                req.Slope,
		ContentID:            contentID,
		Description:          req.Description,
		Website:              req.Website,
		Twitter:              req.Twitter,
		Telegram:             req.Telegram,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.mu.Lock()
	id := s.requestID()
	s.pendingMints[id] = plan
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, MintResponse{
		RequestID:  id,
		PolicyID:   plan.PolicyID,
		AssetName:  plan.AssetName,
		AssetID:    plan.AssetID,
		Datum:      plan.Datum,
		UnsignedTx: base64.StdEncoding.EncodeToString(plan.UnsignedTx),
	})
}

// MintConfirmRequest is the JSON body of POST /tokens/mint/confirm.
type MintConfirmRequest struct {
	RequestID string `json:"requestId"`
	SignedTx  string `json:"signedTx"` // base64
}

func (s *Server) handleMintConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req MintConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	plan, ok := s.pendingMints[req.RequestID]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "unknown request id", http.StatusNotFound)
		return
	}
	signed, err := base64.StdEncoding.DecodeString(req.SignedTx)
	if err != nil {
		http.Error(w, "invalid signed tx base64", http.StatusBadRequest)
		return
	}

	txRef, err := s.minter.Submit(r.Context(), signed)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.minter.ConfirmMint(r.Context(), plan, txRef); err != nil {
		s.writeError(w, err)
		return
	}

	s.mu.Lock()
	delete(s.pendingMints, req.RequestID)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"txRef": txRef, "assetId": plan.AssetID})
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := s.stores.tokenStore.List(r.Context(), 100)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (s *Server) handlePools(w http.ResponseWriter, r *http.Request) {
	assetID := r.URL.Query().Get("asset")
	if assetID == "" {
		pools, err := s.stores.poolStore.List(r.Context(), 100)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, pools)
		return
	}

	pool, err := s.stores.poolStore.GetByAssetID(r.Context(), assetID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	token, err := s.stores.tokenStore.GetByAssetID(r.Context(), assetID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"pool":      pool,
		"price":     curve.CurrentPrice(pool),
		"marketCap": curve.MarketCap(pool),
		"progress":  curve.Progress(pool, token.TotalSupply),
	})
}

// TradeRequest is the JSON body of POST /trades. For pools assigned to a
// head, signerUrl names a wallet-bridge endpoint that receives the unsigned
// channel transaction and returns it signed.
type TradeRequest struct {
	AssetID        string `json:"assetId"`
	Side           string `json:"side"`
	Amount         int64  `json:"amount"`
	TraderAddress  string `json:"traderAddress"`
	MaxSlippageBps int64  `json:"maxSlippageBps"`
	SignerURL      string `json:"signerUrl,omitempty"`
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		assetID := r.URL.Query().Get("asset")
		if assetID == "" {
			http.Error(w, "asset query parameter required", http.StatusBadRequest)
			return
		}
		trades, err := s.stores.tradeStore.GetByAssetID(r.Context(), assetID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, trades)
	case http.MethodPost:
		var req TradeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
			return
		}

		var signer trading.Signer
		if req.SignerURL != "" {
			signer = remoteSigner(r.Context(), req.SignerURL)
		}

		result, err := s.trader.Trade(r.Context(), req.AssetID, domain.TradeSide(req.Side),
			req.Amount, req.TraderAddress, req.MaxSlippageBps, signer)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// BridgeRequest is the JSON body of the commit and decommit endpoints.
// AdaAmount -1 on a decommit requests the full withdrawable balance.
type BridgeRequest struct {
	Address      string           `json:"address"`
	AdaAmount    int64            `json:"adaAmount"`
	TokenAmounts map[string]int64 `json:"tokenAmounts,omitempty"`
	ChannelID    int              `json:"channelId"`
}

// SignResponse returns one unsigned transaction for the caller to sign.
type SignResponse struct {
	RequestID  string `json:"requestId"`
	UnsignedTx string `json:"unsignedTx"` // base64
}

// TwoPhaseSignResponse returns both unsigned decommit transactions in
// base64, the split absent on a phase-2 retry.
type TwoPhaseSignResponse struct {
	RequestID    string `json:"requestId"`
	AllocationID string `json:"allocationId"`
	SplitTx      string `json:"splitTx,omitempty"`
	DecommitTx   string `json:"decommitTx"`
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req BridgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	signReq, err := s.commits.Commit(r.Context(), req.Address, req.AdaAmount, req.TokenAmounts, req.ChannelID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.mu.Lock()
	id := s.requestID()
	s.pendingCommits[id] = signReq
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, SignResponse{
		RequestID:  id,
		UnsignedTx: base64.StdEncoding.EncodeToString(signReq.UnsignedTx),
	})
}

// SubmitRequest is the JSON body of the signed-transaction endpoints.
// SignedTx carries a single base64 transaction (commit, or decommit retry);
// SignedTxs carries the split/decommit pair of a fresh decommit.
type SubmitRequest struct {
	RequestID string   `json:"requestId"`
	SignedTx  string   `json:"signedTx,omitempty"`
	SignedTxs []string `json:"signedTxs,omitempty"`
}

func (s *Server) handleCommitSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	signReq, ok := s.pendingCommits[req.RequestID]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "unknown request id", http.StatusNotFound)
		return
	}
	signed, err := base64.StdEncoding.DecodeString(req.SignedTx)
	if err != nil {
		http.Error(w, "invalid signed tx base64", http.StatusBadRequest)
		return
	}

	txRef, err := s.commits.SubmitSigned(r.Context(), signReq, signed)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.mu.Lock()
	delete(s.pendingCommits, req.RequestID)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"txRef": txRef})
}

func (s *Server) handleDecommit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req BridgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	signReq, err := s.decomms.Decommit(r.Context(), req.Address, req.AdaAmount, req.TokenAmounts, req.ChannelID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.mu.Lock()
	id := s.requestID()
	s.pendingDecommits[id] = signReq
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, TwoPhaseSignResponse{
		RequestID:    id,
		AllocationID: signReq.AllocationID,
		SplitTx:      base64.StdEncoding.EncodeToString(signReq.SplitTx),
		DecommitTx:   base64.StdEncoding.EncodeToString(signReq.DecommitTx),
	})
}

func (s *Server) handleDecommitSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	signReq, ok := s.pendingDecommits[req.RequestID]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "unknown request id", http.StatusNotFound)
		return
	}

	// A fresh decommit submits the signed pair; a retry submits phase 2 only.
	switch {
	case len(req.SignedTxs) == 2 && signReq.SplitTx != nil:
		signedSplit, err := base64.StdEncoding.DecodeString(req.SignedTxs[0])
		if err != nil {
			http.Error(w, "invalid signed split base64", http.StatusBadRequest)
			return
		}
		signedDecommit, err := base64.StdEncoding.DecodeString(req.SignedTxs[1])
		if err != nil {
			http.Error(w, "invalid signed decommit base64", http.StatusBadRequest)
			return
		}
		if err := s.decomms.SubmitSigned(r.Context(), signReq, signedSplit, signedDecommit); err != nil {
			s.writeError(w, err)
			return
		}
	case req.SignedTx != "" && signReq.SplitTx == nil:
		signedDecommit, err := base64.StdEncoding.DecodeString(req.SignedTx)
		if err != nil {
			http.Error(w, "invalid signed tx base64", http.StatusBadRequest)
			return
		}
		if err := s.decomms.SubmitRetry(r.Context(), signReq, signedDecommit); err != nil {
			s.writeError(w, err)
			return
		}
	default:
		http.Error(w, "signed transactions do not match the pending request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	delete(s.pendingDecommits, req.RequestID)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"allocationId": signReq.AllocationID})
}

// DecommitRetryRequest is the JSON body of POST /bridge/decommit/retry.
type DecommitRetryRequest struct {
	Address   string `json:"address"`
	ChannelID int    `json:"channelId"`
}

func (s *Server) handleDecommitRetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req DecommitRetryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	signReq, err := s.decomms.RetryDecommit(r.Context(), req.Address, req.ChannelID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.mu.Lock()
	id := s.requestID()
	s.pendingDecommits[id] = signReq
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, TwoPhaseSignResponse{
		RequestID:    id,
		AllocationID: signReq.AllocationID,
		DecommitTx:   base64.StdEncoding.EncodeToString(signReq.DecommitTx),
	})
}

// writeError maps coordinator errors to HTTP statuses, preserving the
// structured message.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var insuffErr *selection.InsufficientFundsError
	switch {
	case errors.As(err, &insuffErr),
		errors.Is(err, mint.ErrNoReferenceInput),
		errors.Is(err, mint.ErrNoCollateral),
		errors.Is(err, mint.ErrInvalidParams),
		errors.Is(err, bridge.ErrNothingRequested),
		errors.Is(err, bridge.ErrInvalidRequest),
		errors.Is(err, trading.ErrSlippageExceeded),
		errors.Is(err, trading.ErrSignerRequired),
		errors.Is(err, curve.ErrInsufficientSupply),
		errors.Is(err, curve.ErrCurveExhausted):
		status = http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, bridge.ErrPartialBridgeFailure),
		errors.Is(err, bridge.ErrNoPendingDecommit),
		errors.Is(err, bridge.ErrSplitNotConfirmed),
		errors.Is(err, ledger.ErrStaleInputs):
		status = http.StatusConflict
	case errors.Is(err, head.ErrChannelUnavailable):
		status = http.StatusServiceUnavailable
	}

	s.logger.Printf("request failed: %v", err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// remoteSigner returns a Signer that forwards the unsigned transaction to a
// wallet-bridge endpoint and reads it back signed.
func remoteSigner(ctx context.Context, url string) trading.Signer {
	client := &http.Client{Timeout: 60 * time.Second}
	return func(unsigned []byte) ([]byte, error) {
		body, err := json.Marshal(map[string]string{
			"unsignedTx": base64.StdEncoding.EncodeToString(unsigned),
		})
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("call signer: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("signer returned status %d", resp.StatusCode)
		}

		var result struct {
			SignedTx string `json:"signedTx"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("decode signer response: %w", err)
		}
		return base64.StdEncoding.DecodeString(result.SignedTx)
	}
}

// httpReporter registers committed trades with the data API.
type httpReporter struct {
	endpoint string
	client   *http.Client
	logger   *log.Logger
}

func (r *httpReporter) ReportTrade(ctx context.Context, trade *domain.Trade, pool *domain.Pool) error {
	body, err := json.Marshal(map[string]interface{}{
		"trade": trade,
		"pool":  pool,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("register trade: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("data API returned status %d", resp.StatusCode)
	}
	return nil
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

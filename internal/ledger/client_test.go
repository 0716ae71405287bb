package ledger

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPClient_GetSpendableUnits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		if req.Method != "getSpendableUnits" {
			t.Errorf("expected method getSpendableUnits, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": []map[string]interface{}{
				{
					"txHash":      "aa11",
					"outputIndex": 0,
					"address":     "addr1",
					"lovelace":    int64(5_000_000),
					"assets":      map[string]int64{},
				},
				{
					"txHash":      "bb22",
					"outputIndex": 1,
					"address":     "addr1",
					"lovelace":    int64(3_000_000),
					"assets":      map[string]int64{"policytokena": 100},
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	units, err := client.GetSpendableUnits(ctx, "addr1")
	if err != nil {
		t.Fatalf("GetSpendableUnits: %v", err)
	}

	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}

	if units[0].Ref.TxHash != "aa11" || units[0].Ref.OutputIndex != 0 {
		t.Errorf("unexpected first ref: %s", units[0].Ref)
	}

	if units[0].Value.Lovelace != 5_000_000 {
		t.Errorf("expected 5000000 lovelace, got %d", units[0].Value.Lovelace)
	}

	if !units[0].IsPureADA() {
		t.Error("expected first unit to be pure ADA")
	}

	if units[1].Value.Assets["policytokena"] != 100 {
		t.Errorf("expected 100 policytokena, got %d", units[1].Value.Assets["policytokena"])
	}
}

func TestHTTPClient_BuildUnsignedTransaction(t *testing.T) {
	raw := []byte("unsigned-tx-body")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "buildUnsignedTransaction" {
			t.Errorf("expected method buildUnsignedTransaction, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"txBytes": base64.StdEncoding.EncodeToString(raw),
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	got, err := client.BuildUnsignedTransaction(ctx, &TxSpec{ChangeAddress: "addr1"})
	if err != nil {
		t.Fatalf("BuildUnsignedTransaction: %v", err)
	}

	if string(got) != string(raw) {
		t.Errorf("expected %q, got %q", raw, got)
	}
}

func TestHTTPClient_Submit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "submitTransaction" {
			t.Errorf("expected method submitTransaction, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  map[string]interface{}{"txRef": "deadbeef"},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	txRef, err := client.Submit(ctx, []byte("signed"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if txRef != "deadbeef" {
		t.Errorf("expected txRef deadbeef, got %s", txRef)
	}
}

func TestHTTPClient_Submit_StaleInputs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error": map[string]interface{}{
				"code":    -32000,
				"message": "submit failed: BadInputsUTxO [aa11#0]",
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	_, err := client.Submit(ctx, []byte("signed"))
	if !errors.Is(err, ErrStaleInputs) {
		t.Fatalf("expected ErrStaleInputs, got %v", err)
	}
}

func TestHTTPClient_AwaitConfirmation(t *testing.T) {
	var polls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "getTransactionStatus" {
			t.Errorf("expected method getTransactionStatus, got %s", req.Method)
		}

		count := polls.Add(1)
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  map[string]interface{}{"confirmed": count >= 3},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithConfirmationPoll(5*time.Millisecond))
	ctx := context.Background()

	if err := client.AwaitConfirmation(ctx, "deadbeef"); err != nil {
		t.Fatalf("AwaitConfirmation: %v", err)
	}

	if polls.Load() != 3 {
		t.Errorf("expected 3 polls, got %d", polls.Load())
	}
}

func TestHTTPClient_AwaitConfirmation_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  map[string]interface{}{"confirmed": false},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithConfirmationPoll(5*time.Millisecond))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := client.AwaitConfirmation(ctx, "deadbeef")
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestHTTPClient_Retry(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := attempts.Add(1)
		if count < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  []map[string]interface{}{},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(3),
		WithRetryDelay(10*time.Millisecond),
	)
	ctx := context.Background()

	_, err := client.GetSpendableUnits(ctx, "addr1")
	if err != nil {
		t.Fatalf("GetSpendableUnits: %v", err)
	}

	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestHTTPClient_RPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error": map[string]interface{}{
				"code":    -32600,
				"message": "Invalid Request",
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	_, err := client.GetSpendableUnits(ctx, "addr1")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	rpcErr, ok := err.(*rpcError)
	if !ok {
		t.Fatalf("expected rpcError, got %T", err)
	}

	if rpcErr.Code != -32600 {
		t.Errorf("expected code -32600, got %d", rpcErr.Code)
	}
}

// Copyright 2024 The tlscan Authors
// This file is part of the tlscan library.
//
// The tlscan library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The tlscan library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the tlscan library. If not, see <http://www.gnu.org/licenses/>.

// Package rpcclient is a thin JSON-RPC 2.0 client over HTTP, built on
// valyala/fasthttp, with a retry-with-backoff middleware wrapping
// every call. It implements component C3: the minimum operation set
// the inspectors need, nothing more. The client itself does not bound
// concurrency — callers (the inspectors, via their semaphore) do.
package rpcclient

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/valyala/fasthttp"
)

// Client is a JSON-RPC 2.0 client for one remote node endpoint. It is
// safe for concurrent use.
type Client struct {
	endpoint   string
	httpClient *fasthttp.Client
	timeout    time.Duration
	maxRetries uint64
	nextID     uint64
	onRetry    func()
	onFailure  func()
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithTimeout overrides the per-call timeout (default matches
// params.BatchRequestTimeout).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithMaxRetries overrides the retry cap (default matches
// params.MaxRPCRetries).
func WithMaxRetries(n uint64) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithRetryObserver registers a callback invoked once for every
// attempt that fails with a transient error, for metrics.
func WithRetryObserver(fn func()) Option {
	return func(c *Client) { c.onRetry = fn }
}

// WithFailureObserver registers a callback invoked once per call that
// ultimately returns an error after exhausting retries (or failing
// permanently), for metrics.
func WithFailureObserver(fn func()) Option {
	return func(c *Client) { c.onFailure = fn }
}

// Dial builds a Client for endpoint. It performs no network I/O itself
// (fasthttp dials lazily on first request).
func Dial(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: &fasthttp.Client{},
		timeout:    500 * time.Second,
		maxRetries: 5,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// call executes one JSON-RPC method call with retry/backoff and
// decodes the result into out (a pointer), per the retry policy in
// spec.md §4.3/§7: transient network errors and 5xx/429 responses are
// retried with exponential backoff up to maxRetries; 4xx (other than
// 429), malformed JSON and in-band RPC errors are not retried.
func (c *Client) call(ctx context.Context, out interface{}, method string, params ...interface{}) error {
	id := atomic.AddUint64(&c.nextID, 1)
	reqBody, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("rpcclient: encode request: %w", err)
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)

	var raw rpcResponse
	op := func() error {
		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)

		req.SetRequestURI(c.endpoint)
		req.Header.SetMethod(fasthttp.MethodPost)
		req.Header.SetContentType("application/json")
		req.SetBody(reqBody)

		if err := c.httpClient.DoTimeout(req, resp, c.timeout); err != nil {
			if c.onRetry != nil {
				c.onRetry()
			}
			return fmt.Errorf("%w: %v", ErrTransient, err)
		}

		status := resp.StatusCode()
		switch {
		case status == fasthttp.StatusTooManyRequests || status >= 500:
			if c.onRetry != nil {
				c.onRetry()
			}
			return fmt.Errorf("%w: status %d", ErrTransient, status)
		case status >= 400:
			return backoff.Permanent(&HTTPError{StatusCode: status, Body: string(resp.Body())})
		}

		var decoded rpcResponse
		if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
			return backoff.Permanent(fmt.Errorf("rpcclient: decode response: %w", err))
		}
		raw = decoded
		return nil
	}

	if err := backoff.Retry(op, bo); err != nil {
		if c.onFailure != nil {
			c.onFailure()
		}
		return unwrapPermanent(err)
	}
	if raw.Error != nil {
		if c.onFailure != nil {
			c.onFailure()
		}
		return raw.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw.Result, out); err != nil {
		return fmt.Errorf("rpcclient: decode result: %w", err)
	}
	return nil
}

func unwrapPermanent(err error) error {
	if perr, ok := err.(*backoff.PermanentError); ok {
		return perr.Err
	}
	return err
}

// GetBlockByNumber fetches a block, optionally with full transaction
// objects.
func (c *Client) GetBlockByNumber(ctx context.Context, number uint64, fullTx bool) (*Block, error) {
	var b Block
	if err := c.call(ctx, &b, "eth_getBlockByNumber", hexUint64(number), fullTx); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetTransactionReceipt fetches the receipt for txHash.
func (c *Client) GetTransactionReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	var r Receipt
	if err := c.call(ctx, &r, "eth_getTransactionReceipt", txHash); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetCode fetches the deployed bytecode at address, pinned to
// blockNumber, as a 0x-prefixed hex string.
func (c *Client) GetCode(ctx context.Context, address string, blockNumber uint64) (string, error) {
	var code string
	if err := c.call(ctx, &code, "eth_getCode", address, hexUint64(blockNumber)); err != nil {
		return "", err
	}
	return code, nil
}

// GetTransactionCount fetches address's transaction count (nonce) as
// of blockNumber.
func (c *Client) GetTransactionCount(ctx context.Context, address string, blockNumber uint64) (uint64, error) {
	var q Quantity
	if err := c.call(ctx, &q, "eth_getTransactionCount", address, hexUint64(blockNumber)); err != nil {
		return 0, err
	}
	return q.Uint64(), nil
}

// GetBalance fetches address's current native-token balance, in wei.
func (c *Client) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	var q Quantity
	if err := c.call(ctx, &q, "eth_getBalance", address, "latest"); err != nil {
		return nil, err
	}
	if q.Big == nil {
		return big.NewInt(0), nil
	}
	return q.Big, nil
}

// FeeHistory fetches blockCount base fees ending at newestBlock.
func (c *Client) FeeHistory(ctx context.Context, blockCount uint64, newestBlock uint64, rewardPercentiles []float64) (*FeeHistory, error) {
	var fh FeeHistory
	if err := c.call(ctx, &fh, "eth_feeHistory", hexUint64(blockCount), hexUint64(newestBlock), rewardPercentiles); err != nil {
		return nil, err
	}
	if len(fh.BaseFeePerGas) == 0 {
		return nil, ErrEmptyFeeHistory
	}
	return &fh, nil
}

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

package rpcclient

import (
	"errors"
	"fmt"
)

// ErrTransient marks a transport-level failure the retry middleware
// considers safe to retry: connection errors, timeouts, and 5xx/429
// HTTP responses.
var ErrTransient = errors.New("rpcclient: transient transport error")

// HTTPError is a non-retryable HTTP status (4xx other than 429).
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("rpcclient: unexpected HTTP status %d: %s", e.StatusCode, e.Body)
}

// RPCError is an in-band JSON-RPC error object returned by the node.
// It is always treated as permanent for the call that produced it.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpcclient: RPC error %d: %s", e.Code, e.Message)
}

// ErrEmptyFeeHistory is a data-invariant violation: the node answered
// with no baseFeePerGas entries for a range that should have had some.
var ErrEmptyFeeHistory = errors.New("rpcclient: fee history returned no base fees")

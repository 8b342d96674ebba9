// SPDX-License-Identifier: MPL-2.0

package disposables

import (
	"context"
	"net"
)

// DialFirst tries each candidate endpoint in order, returning the first
// successful connection. If every candidate fails, it returns a ConnectError
// carrying every (endpoint, cause) pair — per §4.5 "try each candidate,
// succeed on any, report all errors if none". Test code connecting directly
// to a published service port (rather than the supervisor's control port)
// can reuse this helper too.
func DialFirst(ctx context.Context, network string, endpoints []string) (net.Conn, error) {
	var d net.Dialer
	var attempts []ConnectAttempt
	for _, endpoint := range endpoints {
		conn, err := d.DialContext(ctx, network, endpoint)
		if err == nil {
			return conn, nil
		}
		attempts = append(attempts, ConnectAttempt{Endpoint: endpoint, Cause: err})
	}
	return nil, &ConnectError{Attempts: attempts}
}

// Reconnection supervision for chain RPC endpoints, grounded on
// degeri-dcrlnd's dependency on github.com/decred/dcrd/connmgr/v3 (used
// there to manage the wallet's outbound P2P peers). The coordinator has no
// P2P layer, but connmgr's outbound-connection manager is otherwise exactly
// the "maintain one permanent outbound connection, retry with backoff on
// drop" primitive a chain RPC client needs, so it is repurposed here rather
// than hand-rolled.
package chainadapter

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/decred/dcrd/connmgr/v3"
)

// defaultRetryDuration is connmgr's backoff floor between reconnect
// attempts; connmgr itself grows this exponentially on repeated failures.
const defaultRetryDuration = 5 * time.Second

// Supervisor keeps exactly one outbound TCP connection to a chain RPC
// endpoint alive, redialing with exponential backoff whenever it drops.
type Supervisor struct {
	cm *connmgr.ConnManager
}

// NewSupervisor builds a Supervisor for addr ("host:port"). onUp is called
// with the new net.Conn each time a connection is (re)established; onDown
// is called when it drops. Neither callback blocks connmgr's internal
// goroutines for long: they should hand off to the owning adapter and
// return.
func NewSupervisor(addr string, onUp func(net.Conn), onDown func()) (*Supervisor, error) {
	resolved, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("chainadapter: resolve %s: %w", addr, err)
	}

	cfg := &connmgr.Config{
		TargetOutbound: 1,
		RetryDuration:  defaultRetryDuration,
		GetNewAddress: func() (net.Addr, error) {
			return resolved, nil
		},
		Dial: func(net.Addr) (net.Conn, error) {
			return net.DialTimeout("tcp", addr, defaultRetryDuration)
		},
		OnConnection: func(_ *connmgr.ConnReq, conn net.Conn) {
			onUp(conn)
		},
		OnDisconnection: func(_ *connmgr.ConnReq) {
			onDown()
		},
	}

	cm, err := connmgr.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("chainadapter: new conn manager: %w", err)
	}
	return &Supervisor{cm: cm}, nil
}

// Run starts the supervisor and blocks until ctx is cancelled, then stops
// it and releases the connection.
func (s *Supervisor) Run(ctx context.Context) {
	s.cm.Start()
	<-ctx.Done()
	s.cm.Stop()
}

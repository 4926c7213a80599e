// Package nodeclient provides access to the monitored node's admin JSON-RPC
// surface.
package nodeclient

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/p2p"
	"github.com/ethereum/go-ethereum/rpc"
)

// Client talks to a single go-ethereum style node over its admin RPC
// endpoint. All calls are synchronous request/response.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to the node's RPC endpoint. The endpoint must expose the
// admin and net namespaces.
func Dial(ctx context.Context, endpoint string) (*Client, error) {
	c, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	return &Client{rpc: c}, nil
}

// Close shuts the underlying connection down.
func (c *Client) Close() {
	c.rpc.Close()
}

// Peers returns the node's current peer list.
func (c *Client) Peers(ctx context.Context) ([]p2p.PeerInfo, error) {
	var peers []p2p.PeerInfo
	if err := c.rpc.CallContext(ctx, &peers, "admin_peers"); err != nil {
		return nil, fmt.Errorf("admin_peers: %w", err)
	}
	return peers, nil
}

// NodeInfo returns the node's self reported metadata.
func (c *Client) NodeInfo(ctx context.Context) (*p2p.NodeInfo, error) {
	var info p2p.NodeInfo
	if err := c.rpc.CallContext(ctx, &info, "admin_nodeInfo"); err != nil {
		return nil, fmt.Errorf("admin_nodeInfo: %w", err)
	}
	return &info, nil
}

// PeerCount returns the node's own reported peer count.
func (c *Client) PeerCount(ctx context.Context) (int, error) {
	var count hexutil.Uint64
	if err := c.rpc.CallContext(ctx, &count, "net_peerCount"); err != nil {
		return 0, fmt.Errorf("net_peerCount: %w", err)
	}
	return int(count), nil
}

// AddPeer instructs the node to dial the given enode URL. The node reports
// whether the peer was accepted for dialing.
func (c *Client) AddPeer(ctx context.Context, enodeURL string) (bool, error) {
	var ok bool
	if err := c.rpc.CallContext(ctx, &ok, "admin_addPeer", enodeURL); err != nil {
		return false, fmt.Errorf("admin_addPeer: %w", err)
	}
	return ok, nil
}

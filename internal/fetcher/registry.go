package fetcher

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"paca-stakes/internal/network"
)

// Registry maps chain ids to their clients.
type Registry struct {
	clients map[network.ID]*ChainClient
	ids     []network.ID
}

// NewRegistry wraps prebuilt clients, keeping the order of chains.
func NewRegistry(clients ...*ChainClient) *Registry {
	r := &Registry{clients: make(map[network.ID]*ChainClient, len(clients))}
	for _, c := range clients {
		id := c.Chain().ID
		if _, dup := r.clients[id]; !dup {
			r.ids = append(r.ids, id)
		}
		r.clients[id] = c
	}
	return r
}

// DialOptions configure NewEVMRegistry.
type DialOptions struct {
	Timeout      time.Duration
	LogFromBlock uint64
	Client       ClientOptions
}

// NewEVMRegistry builds an EVMContract-backed client for every configured chain.
func NewEVMRegistry(networks *network.Registry, opts DialOptions, logger zerolog.Logger) *Registry {
	clients := make([]*ChainClient, 0, len(networks.IDs()))
	for _, cfg := range networks.All() {
		contract := NewEVMContract(EVMOptions{Chain: cfg, Timeout: opts.Timeout, LogFromBlock: opts.LogFromBlock}, logger)
		clients = append(clients, NewChainClient(cfg, contract, opts.Client, logger))
	}
	return NewRegistry(clients...)
}

// IDs returns the chains in registry order.
func (r *Registry) IDs() []network.ID {
	return append([]network.ID(nil), r.ids...)
}

// Client returns the client for id.
func (r *Registry) Client(id network.ID) (*ChainClient, error) {
	c, ok := r.clients[id]
	if !ok {
		return nil, fmt.Errorf("no client for chain %q", id)
	}
	return c, nil
}

// Close releases every underlying RPC connection.
func (r *Registry) Close() {
	for _, c := range r.clients {
		if closer, ok := c.contract.(interface{ Close() }); ok {
			closer.Close()
		}
	}
}

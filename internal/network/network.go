package network

import (
	"fmt"
	"sort"
	"strings"
)

// ID identifies one deployment of the staking contract.
type ID string

// Supported chains. The set is closed; configuration may only override these.
const (
	BSC   ID = "bsc"
	Base  ID = "base"
	Sonic ID = "sonic"
)

// Config is the static descriptor of a chain deployment.
type Config struct {
	ID              ID       `json:"id"`
	Name            string   `json:"name"`
	ChainID         uint64   `json:"chainId"`
	RPCURL          string   `json:"rpcUrl"`
	FallbackRPCURLs []string `json:"fallbackRpcUrls,omitempty"`
	Contract        string   `json:"contract"`
	Token           string   `json:"token"`
	Decimals        int32    `json:"decimals"`
}

// RPCURLs returns the primary endpoint followed by its fallbacks.
func (c Config) RPCURLs() []string {
	urls := make([]string, 0, 1+len(c.FallbackRPCURLs))
	if c.RPCURL != "" {
		urls = append(urls, c.RPCURL)
	}
	return append(urls, c.FallbackRPCURLs...)
}

var builtins = map[ID]Config{
	BSC: {
		ID:       BSC,
		Name:     "BSC",
		ChainID:  56,
		RPCURL:   "https://bsc-dataseed.binance.org/",
		Contract: "0x3fF44D639a4982A4436f6d737430141aBE68b4E1",
		Token:    "USDT",
		Decimals: 18,
	},
	Base: {
		ID:       Base,
		Name:     "BASE",
		ChainID:  8453,
		RPCURL:   "https://base.llamarpc.com",
		Contract: "0xDf2027318D27c4eD1C047B4d6247A7a705bb407b",
		Token:    "USDC",
		Decimals: 6,
	},
	Sonic: {
		ID:       Sonic,
		Name:     "SONIC",
		ChainID:  146,
		RPCURL:   "https://rpc.soniclabs.com",
		Contract: "0xa26F8128Ecb2FF2FC5618498758cC82Cf1FDad5F",
		Token:    "USDC",
		Decimals: 6,
	},
}

// order is the display order of the built-in chains.
var order = []ID{BSC, Base, Sonic}

// ParseID validates a chain identifier against the supported set.
func ParseID(s string) (ID, error) {
	id := ID(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := builtins[id]; !ok {
		return "", fmt.Errorf("unsupported chain %q", s)
	}
	return id, nil
}

// Override adjusts a built-in chain from configuration.
type Override struct {
	ID              string   `mapstructure:"id"`
	RPCURL          string   `mapstructure:"rpc_url"`
	FallbackRPCURLs []string `mapstructure:"fallback_rpc_urls"`
	Contract        string   `mapstructure:"contract"`
	Disabled        bool     `mapstructure:"disabled"`
}

// Registry is the immutable set of configured chains.
type Registry struct {
	byID map[ID]Config
	ids  []ID
}

// NewRegistry builds a registry from the built-in chains and optional overrides.
func NewRegistry(overrides []Override) (*Registry, error) {
	byID := make(map[ID]Config, len(builtins))
	for id, cfg := range builtins {
		byID[id] = cfg
	}

	for _, o := range overrides {
		id, err := ParseID(o.ID)
		if err != nil {
			return nil, err
		}
		if o.Disabled {
			delete(byID, id)
			continue
		}
		cfg := byID[id]
		if cfg.ID == "" {
			cfg = builtins[id]
		}
		if o.RPCURL != "" {
			cfg.RPCURL = o.RPCURL
		}
		if len(o.FallbackRPCURLs) > 0 {
			cfg.FallbackRPCURLs = append([]string(nil), o.FallbackRPCURLs...)
		}
		if o.Contract != "" {
			cfg.Contract = o.Contract
		}
		byID[id] = cfg
	}

	if len(byID) == 0 {
		return nil, fmt.Errorf("no chains enabled")
	}

	ids := make([]ID, 0, len(byID))
	for _, id := range order {
		if _, ok := byID[id]; ok {
			ids = append(ids, id)
		}
	}
	return &Registry{byID: byID, ids: ids}, nil
}

// MustDefault returns the registry of built-in chains.
func MustDefault() *Registry {
	r, err := NewRegistry(nil)
	if err != nil {
		panic(err)
	}
	return r
}

// IDs returns configured chain ids in display order.
func (r *Registry) IDs() []ID {
	return append([]ID(nil), r.ids...)
}

// All returns configured chains in display order.
func (r *Registry) All() []Config {
	out := make([]Config, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.byID[id])
	}
	return out
}

// Lookup returns the chain descriptor for id.
func (r *Registry) Lookup(id ID) (Config, bool) {
	cfg, ok := r.byID[id]
	return cfg, ok
}

// Resolve parses s and checks it is enabled in this registry.
func (r *Registry) Resolve(s string) (Config, error) {
	id, err := ParseID(s)
	if err != nil {
		return Config{}, err
	}
	cfg, ok := r.byID[id]
	if !ok {
		return Config{}, fmt.Errorf("chain %q is disabled", s)
	}
	return cfg, nil
}

// Sorted returns ids sorted lexically; used where a stable key order matters.
func Sorted(ids []ID) []ID {
	out := append([]ID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

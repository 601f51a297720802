// Package deployment holds the immutable per-network configuration of the
// analytics engine: which contracts to follow, which tokens are trusted, and
// which pools anchor USD pricing.
package deployment

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Manifest is the YAML form of a deployment.
type Manifest struct {
	Name        string `yaml:"name"`
	Network     string `yaml:"network"`
	Description string `yaml:"description,omitempty"`
	StartBlock  uint64 `yaml:"startBlock"`

	Factory        string   `yaml:"factory"`
	ReferenceAsset string   `yaml:"referenceAsset"`
	AnchorPair     string   `yaml:"anchorPair"`
	StablePairs    []string `yaml:"stablePairs"`

	Whitelist []string `yaml:"whitelist"`
	USDStable []string `yaml:"usdStable"`

	MinimumUSDThreshold       string `yaml:"minimumUsdThreshold"`
	MinimumLiquidityPositions int    `yaml:"minimumLiquidityPositions"`
	BootstrapLiquidity        string `yaml:"bootstrapLiquidity"`
	DefaultFee                string `yaml:"defaultFee"`

	NativeToken NativeToken `yaml:"nativeToken"`
}

// NativeToken describes the chain's native coin as it appears in pools.
type NativeToken struct {
	Address         string `yaml:"address"`
	Symbol          string `yaml:"symbol"`
	Name            string `yaml:"name"`
	Decimals        int32  `yaml:"decimals"`
	BalanceContract string `yaml:"balanceContract"` // reports the native balance held by a pool
}

// ErrInvalidManifest is returned when a manifest is invalid
type ErrInvalidManifest struct {
	Field  string
	Reason string
}

func (e ErrInvalidManifest) Error() string {
	return "invalid manifest field " + e.Field + ": " + e.Reason
}

// Load reads, validates and freezes a manifest file.
func Load(path string) (*Deployment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes and freezes a manifest document.
func Parse(data []byte) (*Deployment, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return m.Build()
}

// Validate checks required fields.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return ErrInvalidManifest{Field: "name", Reason: "name is required"}
	}
	required := map[string]string{
		"factory":        m.Factory,
		"referenceAsset": m.ReferenceAsset,
		"anchorPair":     m.AnchorPair,
	}
	for _, field := range []string{"factory", "referenceAsset", "anchorPair"} {
		if !isAddress(required[field]) {
			return ErrInvalidManifest{Field: field, Reason: "a 20-byte hex address is required"}
		}
	}
	for i, addr := range m.StablePairs {
		if !isAddress(addr) {
			return ErrInvalidManifest{Field: fmt.Sprintf("stablePairs[%d]", i), Reason: "invalid address"}
		}
	}
	for i, addr := range m.Whitelist {
		if !isAddress(addr) {
			return ErrInvalidManifest{Field: fmt.Sprintf("whitelist[%d]", i), Reason: "invalid address"}
		}
	}
	for i, addr := range m.USDStable {
		if !isAddress(addr) {
			return ErrInvalidManifest{Field: fmt.Sprintf("usdStable[%d]", i), Reason: "invalid address"}
		}
	}
	if m.MinimumLiquidityPositions < 0 {
		return ErrInvalidManifest{Field: "minimumLiquidityPositions", Reason: "must not be negative"}
	}
	if m.NativeToken.Address != "" && !isAddress(m.NativeToken.BalanceContract) {
		return ErrInvalidManifest{Field: "nativeToken.balanceContract", Reason: "required when a native token is configured"}
	}
	return nil
}

// Build validates the manifest and returns the frozen Deployment.
func (m *Manifest) Build() (*Deployment, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	threshold := decimal.NewFromInt(200000)
	if m.MinimumUSDThreshold != "" {
		v, err := decimal.NewFromString(m.MinimumUSDThreshold)
		if err != nil {
			return nil, ErrInvalidManifest{Field: "minimumUsdThreshold", Reason: err.Error()}
		}
		threshold = v
	}

	bootstrap, err := parseInt("bootstrapLiquidity", m.BootstrapLiquidity, big.NewInt(1000))
	if err != nil {
		return nil, err
	}
	fee, err := parseInt("defaultFee", m.DefaultFee, big.NewInt(3e15))
	if err != nil {
		return nil, err
	}

	positions := m.MinimumLiquidityPositions
	if positions == 0 {
		positions = 5
	}

	d := &Deployment{
		name:                      m.Name,
		network:                   m.Network,
		startBlock:                m.StartBlock,
		factory:                   lower(m.Factory),
		referenceAsset:            lower(m.ReferenceAsset),
		anchorPair:                lower(m.AnchorPair),
		stablePairs:               lowerAll(m.StablePairs),
		whitelist:                 toSet(m.Whitelist),
		usdStable:                 toSet(m.USDStable),
		minimumUSDThreshold:       threshold,
		minimumLiquidityPositions: positions,
		bootstrapLiquidity:        bootstrap,
		defaultFee:                fee,
	}
	if m.NativeToken.Address != "" {
		n := m.NativeToken
		n.Address = lower(n.Address)
		n.BalanceContract = lower(n.BalanceContract)
		if n.Decimals == 0 {
			n.Decimals = 18
		}
		d.native = &n
	}
	return d, nil
}

func parseInt(field, s string, fallback *big.Int) (*big.Int, error) {
	if s == "" {
		return fallback, nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, ErrInvalidManifest{Field: field, Reason: "must be a non-negative integer"}
	}
	return v, nil
}

func isAddress(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, c := range s[2:] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

func lower(s string) string { return strings.ToLower(s) }

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = lower(s)
	}
	return out
}

func toSet(in []string) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for _, s := range in {
		out[lower(s)] = struct{}{}
	}
	return out
}

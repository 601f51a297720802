package deployment

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadKCCManifest(t *testing.T) {
	d, err := Load("../../manifests/emiswap-kcc.yaml")
	require.NoError(t, err)

	assert.Equal(t, "emiswap-kcc", d.Name())
	assert.Equal(t, "0x945316f2964ef5c6c84921b435a528dd1790e93a", d.Factory())
	assert.Equal(t, "0x4446fc4eb47f2f6586f9faab68b3498f86c07521", d.ReferenceAsset())
	assert.Equal(t, "0xaca93dc131fd962e82b09aa7a66d193b8ccbb860", d.AnchorPair())
	assert.Len(t, d.StablePairs(), 3)

	assert.True(t, d.IsWhitelisted("0x0039f574ee5cc39bdd162e9a88e3eb1f111baf48"))
	assert.True(t, d.IsUSDStable("0x6b175474e89094c44da98b954eedeac495271d0f"))
	assert.False(t, d.IsUSDStable("0x4446fc4eb47f2f6586f9faab68b3498f86c07521"))

	assert.Equal(t, "200000", d.MinimumUSDThreshold().String())
	assert.Equal(t, 5, d.MinimumLiquidityPositions())
	assert.Equal(t, 0, d.BootstrapLiquidity().Cmp(big.NewInt(1000)))
	assert.Equal(t, "3000000000000000", d.DefaultFee().String())

	native, ok := d.Native()
	require.True(t, ok)
	assert.Equal(t, "0xa92462214637371cb3d6e0d5a8180e656157c845", native.BalanceContract)
	assert.True(t, d.IsNative("0x0000000000000000000000000000000000000000"))
}

func TestParseDefaultsAndLowercase(t *testing.T) {
	d, err := Parse([]byte(`
name: test
factory: "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
referenceAsset: "0x1111111111111111111111111111111111111111"
anchorPair: "0x2222222222222222222222222222222222222222"
whitelist: ["0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"]
`))
	require.NoError(t, err)

	assert.Equal(t, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", d.Factory())
	assert.True(t, d.IsWhitelisted("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"))
	assert.Equal(t, 5, d.MinimumLiquidityPositions())
	assert.Equal(t, "200000", d.MinimumUSDThreshold().String())
	assert.Equal(t, "1000", d.BootstrapLiquidity().String())

	_, ok := d.Native()
	assert.False(t, ok)
}

func TestDeploymentIsImmutable(t *testing.T) {
	d, err := Load("../../manifests/emiswap-kcc.yaml")
	require.NoError(t, err)

	d.BootstrapLiquidity().SetInt64(1)
	pairs := d.StablePairs()
	pairs[0] = "0xchanged"

	assert.Equal(t, "1000", d.BootstrapLiquidity().String())
	assert.NotEqual(t, "0xchanged", d.StablePairs()[0])
}

func TestValidate(t *testing.T) {
	valid := func() Manifest {
		return Manifest{
			Name:           "ok",
			Factory:        "0x945316f2964ef5c6c84921b435a528dd1790e93a",
			ReferenceAsset: "0x4446fc4eb47f2f6586f9faab68b3498f86c07521",
			AnchorPair:     "0xaca93dc131fd962e82b09aa7a66d193b8ccbb860",
		}
	}

	tests := []struct {
		name   string
		mutate func(*Manifest)
		field  string
	}{
		{"missing name", func(m *Manifest) { m.Name = "" }, "name"},
		{"bad factory", func(m *Manifest) { m.Factory = "0x123" }, "factory"},
		{"missing anchor", func(m *Manifest) { m.AnchorPair = "" }, "anchorPair"},
		{"bad whitelist entry", func(m *Manifest) { m.Whitelist = []string{"nope"} }, "whitelist[0]"},
		{"native without balance contract", func(m *Manifest) {
			m.NativeToken = NativeToken{Address: "0x0000000000000000000000000000000000000000"}
		}, "nativeToken.balanceContract"},
		{"bad fee", func(m *Manifest) { m.DefaultFee = "-1" }, "defaultFee"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid()
			tt.mutate(&m)
			_, err := m.Build()
			require.Error(t, err)

			var invalid ErrInvalidManifest
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, tt.field, invalid.Field)
		})
	}

	m := valid()
	_, err := m.Build()
	assert.NoError(t, err)
}

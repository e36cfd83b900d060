package imm_test

import (
	"testing"

	"github.com/basic-arm/codegen/imm"
	"github.com/stretchr/testify/require"
)

func TestIsEncodable(t *testing.T) {
	tests := []struct {
		name    string
		v       uint32
		want    imm.Encoded
		wantOK  bool
	}{
		{"173 fits directly", 173, 173, true},
		{"257 needs two instructions", 257, 0, false},
		{"19968 rotates to 0xC4E", 19968, 0xC4E, true},
		{"0xFF0000FF is not encodable", 0xFF0000FF, 0, false},
		{"0xC0000034 rotates to 0x1D3", 0xC0000034, 0x1D3, true},
		{"zero is trivially encodable", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := imm.IsEncodable(tt.v)
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				require.Equal(t, tt.want, got)
			}
		})
	}
}

func TestIsEncodableRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 173, 19968, 0xC0000034, 0xFF, 0xFF000000, 4096, 0x80000000}
	for _, v := range values {
		if enc, ok := imm.IsEncodable(v); ok {
			require.Equal(t, v, imm.Decode(enc), "round trip for %#x", v)
		}
	}
}

func TestEncodeLvl2(t *testing.T) {
	t.Run("257 splits into 1 and 256", func(t *testing.T) {
		e1, e2, ok := imm.EncodeLvl2(257)
		require.True(t, ok)
		require.Equal(t, uint32(257), imm.Decode(e1)+imm.Decode(e2))
	})

	t.Run("65535 splits into two byte-aligned terms", func(t *testing.T) {
		e1, e2, ok := imm.EncodeLvl2(65535)
		require.True(t, ok)
		require.Equal(t, uint32(65535), imm.Decode(e1)+imm.Decode(e2))
	})

	t.Run("0x1FFFF has no two-instruction decomposition", func(t *testing.T) {
		_, _, ok := imm.EncodeLvl2(0x1FFFF)
		require.False(t, ok)
	})

	t.Run("completeness property holds broadly", func(t *testing.T) {
		for _, v := range []uint32{300, 1000, 0xABCD, 0x10001, 0x30003} {
			if _, ok := imm.IsEncodable(v); ok {
				continue // only non-singly-encodable values are in scope
			}
			e1, e2, ok := imm.EncodeLvl2(v)
			if !ok {
				continue // some values genuinely have no two-instruction form
			}
			require.Equal(t, v, imm.Decode(e1)+imm.Decode(e2))
		}
	})
}

func TestNearest(t *testing.T) {
	t.Run("already encodable returns its own encoded form", func(t *testing.T) {
		got, err := imm.Nearest(173)
		require.NoError(t, err)
		want, ok := imm.IsEncodable(173)
		require.True(t, ok)
		require.Equal(t, want, got)
		require.Equal(t, uint32(173), imm.Decode(got))
	})

	t.Run("257 rounds up to 260, encoded as 0xF41", func(t *testing.T) {
		got, err := imm.Nearest(257)
		require.NoError(t, err)
		require.Equal(t, imm.Encoded(0xF41), got)
		require.Equal(t, uint32(260), imm.Decode(got))
	})

	t.Run("0xFE010000 rounds up to 0xFF000000, encoded as 0x4FF", func(t *testing.T) {
		got, err := imm.Nearest(0xFE010000)
		require.NoError(t, err)
		require.Equal(t, imm.Encoded(0x4FF), got)
		require.Equal(t, uint32(0xFF000000), imm.Decode(got))
	})

	t.Run("0xFFFFFFF0 cannot be rounded", func(t *testing.T) {
		_, err := imm.Nearest(0xFFFFFFF0)
		require.Error(t, err)
	})

	t.Run("monotonicity: nothing strictly between n and Nearest(n) is encodable", func(t *testing.T) {
		for _, n := range []uint32{257, 1000, 70000} {
			enc, err := imm.Nearest(n)
			require.NoError(t, err)
			nearest := imm.Decode(enc)
			require.GreaterOrEqual(t, nearest, n)
			for m := n; m < nearest; m++ {
				_, ok := imm.IsEncodable(m)
				require.False(t, ok, "expected %d to not be encodable (n=%d nearest=%d)", m, n, nearest)
			}
		}
	})
}

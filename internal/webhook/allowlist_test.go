package webhook

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestIsIPInCIDR(t *testing.T) {
	tests := []struct {
		ip, cidr string
		want     bool
	}{
		{"103.255.238.9", "103.255.238.0/24", true},
		{"103.255.239.9", "103.255.238.0/24", false},
		{"10.1.2.3", "10.0.0.0/8", true},
		{"11.0.0.1", "10.0.0.0/8", false},
		{"1.2.3.4", "0.0.0.0/0", true},
		{"1.2.3.4", "1.2.3.4/32", true},
		{"1.2.3.5", "1.2.3.4/32", false},
		{"::ffff:10.0.0.1", "10.0.0.0/8", true},
		{"2001:db8::1", "2001:db8::/32", true},
		{"2001:db9::1", "2001:db8::/32", false},
		{"10.0.0.1", "2001:db8::/32", false},
		{"2001:db8::1", "10.0.0.0/8", false},
	}
	for _, tt := range tests {
		t.Run(tt.ip+" in "+tt.cidr, func(t *testing.T) {
			got, err := IsIPInCIDR(tt.ip, tt.cidr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsIPInCIDR_Errors(t *testing.T) {
	for _, tt := range []struct{ ip, cidr string }{
		{"not-an-ip", "10.0.0.0/8"},
		{"10.0.0.1", "10.0.0.0"},
		{"10.0.0.1", "10.0.0.0/33"},
		{"10.0.0.1", "10.0.0.0/-1"},
		{"10.0.0.1", "10.0.0.0/x"},
		{"10.0.0.1", "garbage/8"},
		{"::1", "::/129"},
	} {
		_, err := IsIPInCIDR(tt.ip, tt.cidr)
		assert.Error(t, err, "%s in %s", tt.ip, tt.cidr)
	}
}

func ipv4String(v uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// samePrefix compares the leading bits one at a time.
func samePrefix(a, b uint32, bits int) bool {
	for i := 0; i < bits; i++ {
		shift := 31 - i
		if (a>>shift)&1 != (b>>shift)&1 {
			return false
		}
	}
	return true
}

func TestIsIPInCIDR_MatchesBitwiseReference(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for bits := 0; bits <= 32; bits++ {
		for i := 0; i < 200; i++ {
			network := r.Uint32()
			ip := r.Uint32()
			if i%2 == 0 {
				// force a share of matches: keep the network prefix, randomise the host part
				ip = network ^ (r.Uint32() & ^ipv4Mask(bits))
			}
			got, err := IsIPInCIDR(ipv4String(ip), fmt.Sprintf("%s/%d", ipv4String(network), bits))
			require.NoError(t, err)
			require.Equal(t, samePrefix(ip, network, bits), got, "ip=%s network=%s/%d", ipv4String(ip), ipv4String(network), bits)
		}
	}
}

func TestAllowList(t *testing.T) {
	al := NewAllowList([]string{
		" 103.255.238.9 ",
		"172.236.138.0/24",
		"",
		"not-an-ip",
		"10.0.0.0/99",
		"2001:db8::/48",
	}, discardLogger())

	assert.Equal(t, 3, al.Len())
	assert.True(t, al.Allows("103.255.238.9"))
	assert.True(t, al.Allows("::ffff:103.255.238.9"))
	assert.True(t, al.Allows("172.236.138.77"))
	assert.True(t, al.Allows("2001:db8:0:1::5"))
	assert.False(t, al.Allows("103.255.238.10"))
	assert.False(t, al.Allows("10.0.0.1"))
	assert.False(t, al.Allows("garbage"))
}

func TestAllowList_EmptyDeniesAll(t *testing.T) {
	al := NewAllowList(nil, discardLogger())
	assert.Zero(t, al.Len())
	assert.False(t, al.Allows("127.0.0.1"))
}

package webhook

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"cdn header wins", map[string]string{HeaderCDNClientIP: "1.1.1.1", HeaderForwardedFor: "2.2.2.2", HeaderRealIP: "3.3.3.3"}, "1.1.1.1"},
		{"first forwarded entry", map[string]string{HeaderForwardedFor: " 2.2.2.2 , 9.9.9.9", HeaderRealIP: "3.3.3.3"}, "2.2.2.2"},
		{"real ip fallback", map[string]string{HeaderRealIP: "3.3.3.3"}, "3.3.3.3"},
		{"empty forwarded falls through", map[string]string{HeaderForwardedFor: " ,4.4.4.4", HeaderRealIP: "3.3.3.3"}, "3.3.3.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}
			got, err := ClientIP(h)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClientIP_Unresolvable(t *testing.T) {
	_, err := ClientIP(http.Header{})
	assert.ErrorIs(t, err, ErrClientIPUnresolvable)
}

package discovery

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvertiser_StartStop(t *testing.T) {
	adv, err := NewAdvertiser(Config{
		InstanceName: "test-interactions",
		Port:         18789,
		Meta:         Metadata{AppID: "123", Version: "test"},
	})
	require.NoError(t, err)
	require.NotNil(t, adv)
	assert.Equal(t, "/interactions", adv.cfg.Meta.Path)

	if err := adv.Start(); err != nil {
		t.Skipf("mdns unavailable in this environment: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, adv.Stop())
	require.NoError(t, adv.Stop())
}

func TestAdvertiser_ConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "valid", cfg: Config{InstanceName: "valid", Port: 8080}},
		{name: "missing port", cfg: Config{InstanceName: "no-port"}, wantErr: true},
		{name: "missing name", cfg: Config{Port: 8080}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAdvertiser(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMetadata_TXTRoundTrip(t *testing.T) {
	m := Metadata{Path: "/discord", AppID: "42", Version: "1.2.3"}
	assert.Equal(t, m, parseTXT(m.TXT()))
	assert.NotContains(t, Metadata{Path: "/x"}.TXT(), "app=")
	assert.Equal(t, Metadata{Path: "/x"}, parseTXT([]string{"path=/x", "junk", "other=1"}))
}

func TestFromEntry(t *testing.T) {
	ep := fromEntry(&mdns.ServiceEntry{
		Name:       `dev\ box._interactions._tcp.local.`,
		Host:       "devbox.local.",
		AddrV4:     net.ParseIP("192.168.1.20"),
		Port:       8080,
		InfoFields: []string{"path=/interactions", "app=42", "version=dev"},
	})
	assert.Equal(t, "dev box", ep.Instance)
	assert.Equal(t, "42", ep.Meta.AppID)
	assert.Equal(t, "http://192.168.1.20:8080/interactions", ep.URL())

	ep.Addr = nil
	assert.Equal(t, "http://devbox.local:8080/interactions", ep.URL())
}

func TestBrowse_ExpiredContext(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := Browse(ctx, time.Second)
	assert.Error(t, err)
}

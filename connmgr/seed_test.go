// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/astram-project/astramd/wire"
)

func TestSeedFromRegistryParsesNodeList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/nodes", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"address":"203.0.113.7","port":8335,"version":"1.0","height":100,"last_seen":0},
			{"address":"not-an-ip","port":8335,"version":"1.0","height":100,"last_seen":0}
		]`))
	}))
	defer srv.Close()

	done := make(chan []*wire.NetAddress, 1)
	SeedFromRegistry(srv.URL, 10, 0, srv.Client(), func(addrs []*wire.NetAddress) {
		done <- addrs
	})

	select {
	case addrs := <-done:
		require.Len(t, addrs, 1)
		require.Equal(t, "203.0.113.7", addrs[0].IP.String())
		require.WithinDuration(t, time.Now().Add(-3*24*time.Hour), addrs[0].Timestamp, 5*24*time.Hour)
	case <-time.After(2 * time.Second):
		t.Fatal("seed callback not invoked")
	}
}

func TestSeedFromRegistryIgnoresEmptyURL(t *testing.T) {
	called := false
	SeedFromRegistry("", 10, 0, nil, func(addrs []*wire.NetAddress) {
		called = true
	})
	time.Sleep(20 * time.Millisecond)
	require.False(t, called)
}

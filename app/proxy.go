// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package app

import (
	"net"

	"github.com/flokiorg/go-socks/socks"

	"github.com/astram-project/astramd/config"
)

// proxyDialer returns a connmgr.Config.Dial func that routes outbound
// connections through cfg.Proxy when set, or nil to fall back to
// connmgr's own direct-dial default.
func proxyDialer(cfg *config.Config) func(addr string) (net.Conn, error) {
	if cfg.Proxy == "" {
		return nil
	}
	proxy := &socks.Proxy{
		Addr:     cfg.Proxy,
		Username: cfg.ProxyUser,
		Password: cfg.ProxyPass,
	}
	return func(addr string) (net.Conn, error) {
		return proxy.Dial("tcp", addr)
	}
}

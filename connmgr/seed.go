// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/astram-project/astramd/wire"
)

// secondsIn3Days and secondsIn4Days pick a randomized "last seen"
// timestamp for bootstrapped addresses, 3 to 7 days in the past, so a
// freshly seeded address doesn't look more reliable than an address
// the node has actually observed recently.
const (
	secondsIn3Days = 24 * 60 * 60 * 3
	secondsIn4Days = 24 * 60 * 60 * 4
)

// registryNode mirrors one element of the JSON array the DNS registry
// interface returns from GET /nodes.
type registryNode struct {
	Address string `json:"address"`
	Port    uint16 `json:"port"`
	Version string `json:"version"`
	Height  int64  `json:"height"`
	LastSeen int64 `json:"last_seen"`
}

// OnSeed is invoked with the addresses a registry lookup produced.
type OnSeed func(addrs []*wire.NetAddress)

// SeedFromRegistry queries the advisory DNS registry named by
// registryURL (GET /nodes?limit&min_height) and hands the resulting
// addresses to seedFn. Runs in its own goroutine so a slow or
// unreachable registry never blocks startup; the registry is advisory,
// never a trust root, so a failure here is logged and otherwise
// ignored.
func SeedFromRegistry(registryURL string, limit int, minHeight int64, client *http.Client, seedFn OnSeed) {
	if registryURL == "" {
		return
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	go func() {
		url := fmt.Sprintf("%s/nodes?limit=%d&min_height=%d", registryURL, limit, minHeight)
		resp, err := client.Get(url)
		if err != nil {
			log.Infof("registry seeding failed querying %s: %v", registryURL, err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			log.Infof("registry seeding got status %d from %s", resp.StatusCode, registryURL)
			return
		}

		var nodes []registryNode
		if err := json.NewDecoder(resp.Body).Decode(&nodes); err != nil {
			log.Infof("registry seeding: malformed response from %s: %v", registryURL, err)
			return
		}
		if len(nodes) == 0 {
			return
		}

		randSrc := rand.New(rand.NewSource(time.Now().UnixNano()))
		addresses := make([]*wire.NetAddress, 0, len(nodes))
		for _, n := range nodes {
			ip := net.ParseIP(n.Address)
			if ip == nil {
				continue
			}
			seenAgo := time.Duration(secondsIn3Days+randSrc.Intn(secondsIn4Days)) * time.Second
			addresses = append(addresses, &wire.NetAddress{
				Timestamp: time.Now().Add(-seenAgo),
				Services:  wire.SFNodeNetwork,
				IP:        ip,
				Port:      n.Port,
			})
		}

		log.Infof("%d addresses found from registry %s", len(addresses), registryURL)
		seedFn(addresses)
	}()
}

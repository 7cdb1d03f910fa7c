// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import "github.com/astram-project/astramd/chaincfg"

// BlockSubsidy returns the coinbase reward, in base units, for a block
// at the given height: params.BaseSubsidy halved every
// SubsidyHalvingInterval blocks, floored at params.MinSubsidy so the
// reward settles into a perpetual small-inflation tail rather than
// reaching zero.
func BlockSubsidy(height int64, params *chaincfg.Params) uint64 {
	if params.SubsidyHalvingInterval <= 0 {
		return params.BaseSubsidy
	}

	halvings := uint(height / params.SubsidyHalvingInterval)
	if halvings >= 64 {
		return params.MinSubsidy
	}

	subsidy := params.BaseSubsidy >> halvings
	if subsidy < params.MinSubsidy {
		return params.MinSubsidy
	}
	return subsidy
}

// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"testing"
	"time"

	"github.com/astram-project/astramd/chaincfg"
	"github.com/astram-project/astramd/wire"
	"github.com/stretchr/testify/require"
)

func TestCheckHeaderSanity(t *testing.T) {
	p := &chaincfg.Params{
		MaxHeaderDifficulty: 32,
		GenesisTimestamp:    time.Unix(1738800000, 0),
	}
	now := p.GenesisTimestamp.Add(24 * time.Hour)

	valid := &wire.BlockHeader{Difficulty: 5, Timestamp: now}
	require.NoError(t, CheckHeaderSanity(valid, p, now))

	tooEarly := &wire.BlockHeader{Difficulty: 5, Timestamp: p.GenesisTimestamp.Add(-time.Second)}
	require.Error(t, CheckHeaderSanity(tooEarly, p, now))

	tooLate := &wire.BlockHeader{Difficulty: 5, Timestamp: now.Add(MaxTimeOffset + time.Second)}
	require.Error(t, CheckHeaderSanity(tooLate, p, now))

	badDifficulty := &wire.BlockHeader{Difficulty: 0, Timestamp: now}
	require.Error(t, CheckHeaderSanity(badDifficulty, p, now))
}

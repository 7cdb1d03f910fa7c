// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstore

import "errors"

// ErrOrphanBlock is returned by ProcessBlock when a block's parent is
// not yet known; the block has been queued in the orphan pool pending
// its parent's arrival.
var ErrOrphanBlock = errors.New("chainstore: parent block not found, queued as orphan")

// ErrDuplicateBlock is returned by ProcessBlock for a block already
// present in the block index; the call leaves the store unchanged, so
// a block announced by two peers is harmless to process twice.
var ErrDuplicateBlock = errors.New("chainstore: block already known")

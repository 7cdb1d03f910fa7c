// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import "github.com/astram-project/astramd/alog"

var log alog.Logger = alog.Disabled

// UseLogger sets the subsystem logger used by this package.
func UseLogger(logger alog.Logger) {
	log = logger
}

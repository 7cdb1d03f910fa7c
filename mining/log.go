// Copyright (c) 2016 The btcsuite developers
// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import "github.com/astram-project/astramd/alog"

// log is a logger that is initialized with no output filters. This
// means the package will not perform any logging by default until the
// caller requests it.
var log alog.Logger = alog.Disabled

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger alog.Logger) {
	log = logger
}

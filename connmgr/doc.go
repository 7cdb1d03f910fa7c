// Copyright (c) 2016 The btcsuite developers
// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package connmgr implements a generic Astram network connection manager.

# Connection Manager Overview

Connection Manager handles all the general connection concerns such as
maintaining a set number of outbound connections, sourcing peers from
the address manager and the DNS registry, banning, and gating inbound
connections against subnet-diversity limits.
*/
package connmgr

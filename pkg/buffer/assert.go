// Copyright 2025 OpenMediaKit Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package buffer

import "sync/atomic"

// Invariant checks catch programming errors that mean memory safety is
// already compromised: freeing a handle with outstanding maps, releasing
// storage more often than it was retained. They are off by default and
// enabled by tests (and debug deployments); the invariants must hold by
// construction either way.
var assertsEnabled atomic.Bool

func EnableAsserts() {
	assertsEnabled.Store(true)
}

func DisableAsserts() {
	assertsEnabled.Store(false)
}

func AssertsEnabled() bool {
	return assertsEnabled.Load()
}

// Assert panics with msg when asserts are enabled and cond is false.
func Assert(cond bool, msg string) {
	if assertsEnabled.Load() && !cond {
		panic(msg)
	}
}

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

// Shared is the reference-counted physical storage one or more handles point
// into. It is freed exactly once, when the count transitions from 1 to 0;
// its lifetime is that of the longest-lived handle referencing it. The count
// is the only field safe to touch from several threads.
type Shared struct {
	data []byte
	refs atomic.Int32
}

// Reset arms a fresh or recycled Shared with storage and one reference.
func (s *Shared) Reset(data []byte) {
	s.data = data
	s.refs.Store(1)
}

// Data returns the physical storage.
func (s *Shared) Data() []byte {
	return s.data
}

// Clear drops the storage pointer after the physical allocation has been
// freed, so a pooled Shared does not pin dead memory.
func (s *Shared) Clear() {
	s.data = nil
}

// Retain acquires one more reference. It cannot fail.
func (s *Shared) Retain() {
	s.refs.Add(1)
}

// Single reports whether exactly one handle references the storage. This is
// the copy-on-write gate: write access is granted only while Single.
func (s *Shared) Single() bool {
	return s.refs.Load() == 1
}

// Release drops one reference and reports whether this call observed the
// transition to zero; the caller then owns freeing the physical storage.
func (s *Shared) Release() bool {
	refs := s.refs.Add(-1)
	Assert(refs >= 0, "shared storage released more times than retained")
	return refs == 0
}

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

package mberr

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	ctx := context.Background()

	err := NewOOM(ctx)
	require.Equal(t, ErrOOM, err.ErrorCode())
	require.True(t, IsOOM(err))
	require.False(t, IsNotSupported(err))

	err = NewOutOfRange(ctx, 12, 8)
	require.True(t, IsOutOfRange(err))
	require.Contains(t, err.Error(), "12")

	err = NewNotSupported(ctx, "command %d on shape %s", 3, "block")
	require.True(t, IsNotSupported(err))

	err = NewBufferShared(ctx)
	require.True(t, IsBufferShared(err))
}

func TestErrorWrapping(t *testing.T) {
	ctx := context.Background()
	inner := NewBufferShared(ctx)
	wrapped := fmt.Errorf("map plane: %w", inner)
	require.True(t, IsBufferShared(wrapped))
}

func TestUnknownCodePanics(t *testing.T) {
	require.Panics(t, func() {
		newError(context.Background(), 65000)
	})
}

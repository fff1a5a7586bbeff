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
	"errors"
	"fmt"
)

const (
	Ok uint16 = 0

	// Group 1: internal errors
	ErrInternal uint16 = 10101
	ErrOOM      uint16 = 10102

	// Group 2: invalid input
	ErrInvalidArg   uint16 = 10201
	ErrOutOfRange   uint16 = 10202
	ErrNotSupported uint16 = 10203
	ErrNoSuchPlane  uint16 = 10204
	ErrNoSuchFormat uint16 = 10205

	// Group 3: unexpected state
	ErrBufferShared uint16 = 10301
	ErrBufferSealed uint16 = 10302
	ErrResizeBudget uint16 = 10303
)

type errorMsgItem struct {
	errorMsgOrFormat string
}

var errorMsgRefer = map[uint16]errorMsgItem{
	ErrInternal:     {"internal error: %s"},
	ErrOOM:          {"out of memory"},
	ErrInvalidArg:   {"invalid argument %s: %s"},
	ErrOutOfRange:   {"offset %d out of range of buffer sized %d"},
	ErrNotSupported: {"not supported: %s"},
	ErrNoSuchPlane:  {"no plane with chroma %q"},
	ErrNoSuchFormat: {"no picture format %q"},
	ErrBufferShared: {"buffer storage is shared, write access denied"},
	ErrBufferSealed: {"manager already allocated buffers, plane list is sealed"},
	ErrResizeBudget: {"resize beyond reserved margins: %s"},
}

// Error is the failure value returned by every fallible buffer operation.
// All failures are deterministic functions of current state and arguments;
// there are no transient errors in this layer.
type Error struct {
	code    uint16
	message string
}

func newError(_ context.Context, code uint16, args ...any) *Error {
	item, has := errorMsgRefer[code]
	if !has {
		panic(fmt.Sprintf("unknown error code: %d", code))
	}
	if len(args) == 0 {
		return &Error{code: code, message: item.errorMsgOrFormat}
	}
	return &Error{
		code:    code,
		message: fmt.Sprintf(item.errorMsgOrFormat, args...),
	}
}

func (e *Error) Error() string {
	return e.message
}

func (e *Error) ErrorCode() uint16 {
	return e.code
}

func NewInternal(ctx context.Context, msg string, args ...any) *Error {
	return newError(ctx, ErrInternal, fmt.Sprintf(msg, args...))
}

func NewOOM(ctx context.Context) *Error {
	return newError(ctx, ErrOOM)
}

func NewInvalidArg(ctx context.Context, arg string, val any) *Error {
	return newError(ctx, ErrInvalidArg, arg, fmt.Sprintf("%v", val))
}

func NewOutOfRange(ctx context.Context, offset, size int) *Error {
	return newError(ctx, ErrOutOfRange, offset, size)
}

func NewNotSupported(ctx context.Context, msg string, args ...any) *Error {
	return newError(ctx, ErrNotSupported, fmt.Sprintf(msg, args...))
}

func NewNoSuchPlane(ctx context.Context, chroma string) *Error {
	return newError(ctx, ErrNoSuchPlane, chroma)
}

func NewNoSuchFormat(ctx context.Context, code string) *Error {
	return newError(ctx, ErrNoSuchFormat, code)
}

func NewBufferShared(ctx context.Context) *Error {
	return newError(ctx, ErrBufferShared)
}

func NewBufferSealed(ctx context.Context) *Error {
	return newError(ctx, ErrBufferSealed)
}

func NewResizeBudget(ctx context.Context, msg string, args ...any) *Error {
	return newError(ctx, ErrResizeBudget, fmt.Sprintf(msg, args...))
}

func code(err error, c uint16) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.code == c
}

func IsOOM(err error) bool {
	return code(err, ErrOOM)
}

func IsOutOfRange(err error) bool {
	return code(err, ErrOutOfRange)
}

func IsNotSupported(err error) bool {
	return code(err, ErrNotSupported)
}

func IsBufferShared(err error) bool {
	return code(err, ErrBufferShared)
}

func IsResizeBudget(err error) bool {
	return code(err, ErrResizeBudget)
}

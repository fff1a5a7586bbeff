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

package pic

import (
	"context"

	"github.com/openmediakit/membuf/pkg/common/mberr"
	"github.com/openmediakit/membuf/pkg/common/mem"
)

// Format describes one well-known pixel format as a macropixel width plus an
// ordered plane list.
type Format struct {
	Macropixel int
	Planes     []Plane
}

// formats maps fourcc-style tags to plane layouts. Several tags alias the
// same layout.
var formats = map[string]Format{}

func registerFormat(f Format, tags ...string) {
	for _, tag := range tags {
		formats[tag] = f
	}
}

func init() {
	registerFormat(Format{Macropixel: 1, Planes: []Plane{
		{Chroma: "y8", HSub: 1, VSub: 1, MacropixelSize: 1},
		{Chroma: "u8", HSub: 2, VSub: 2, MacropixelSize: 1},
		{Chroma: "v8", HSub: 2, VSub: 2, MacropixelSize: 1},
	}}, "I420", "IYUV")
	registerFormat(Format{Macropixel: 1, Planes: []Plane{
		{Chroma: "y8", HSub: 1, VSub: 1, MacropixelSize: 1},
		{Chroma: "v8", HSub: 2, VSub: 2, MacropixelSize: 1},
		{Chroma: "u8", HSub: 2, VSub: 2, MacropixelSize: 1},
	}}, "YV12")
	registerFormat(Format{Macropixel: 1, Planes: []Plane{
		{Chroma: "y8", HSub: 1, VSub: 1, MacropixelSize: 1},
		{Chroma: "v8", HSub: 2, VSub: 1, MacropixelSize: 1},
		{Chroma: "u8", HSub: 2, VSub: 1, MacropixelSize: 1},
	}}, "YV16")
	registerFormat(Format{Macropixel: 2, Planes: []Plane{
		{Chroma: "y8u8y8v8", HSub: 1, VSub: 1, MacropixelSize: 4},
	}}, "YUY2", "YUVY", "YUNV", "V422")
	registerFormat(Format{Macropixel: 2, Planes: []Plane{
		{Chroma: "u8y8v8y8", HSub: 1, VSub: 1, MacropixelSize: 4},
	}}, "UYVY")
	registerFormat(Format{Macropixel: 2, Planes: []Plane{
		{Chroma: "y8v8y8u8", HSub: 1, VSub: 1, MacropixelSize: 4},
	}}, "YVYU")
	registerFormat(Format{Macropixel: 1, Planes: []Plane{
		{Chroma: "a8y8u8v8", HSub: 1, VSub: 1, MacropixelSize: 4},
	}}, "AYUV")
	registerFormat(Format{Macropixel: 1, Planes: []Plane{
		{Chroma: "u10y10v10", HSub: 1, VSub: 1, MacropixelSize: 4},
	}}, "V410")
	registerFormat(Format{Macropixel: 1, Planes: []Plane{
		{Chroma: "r8g8b8a8", HSub: 1, VSub: 1, MacropixelSize: 4},
	}}, "RGBA")
}

// LookupFormat returns the plane layout registered for tag.
func LookupFormat(tag string) (Format, error) {
	f, ok := formats[tag]
	if !ok {
		return Format{}, mberr.NewNoSuchFormat(context.Background(), tag)
	}
	return f, nil
}

// NewManagerFromFormat builds a manager preloaded with the plane layout of a
// well-known pixel format. The Macropixel field of opts is taken from the
// format.
func NewManagerFromFormat(tag string, opts ManagerOptions, allocator mem.Allocator) (*Manager, error) {
	f, err := LookupFormat(tag)
	if err != nil {
		return nil, err
	}
	opts.Macropixel = f.Macropixel
	m, err := NewManager(opts, allocator)
	if err != nil {
		return nil, err
	}
	for _, p := range f.Planes {
		if err := m.AddPlane(p.Chroma, p.HSub, p.VSub, p.MacropixelSize); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Copyright 2023 The robomesh authors. All rights reserved.

package meshcat

import (
	"encoding/base64"
	"os"

	"github.com/google/uuid"
)

// Material is a lowered lambert material.
type Material struct {
	UUID         string  `msgpack:"uuid"`
	Type         string  `msgpack:"type"`
	Color        uint32  `msgpack:"color"`
	Opacity      float64 `msgpack:"opacity"`
	Transparent  bool    `msgpack:"transparent"`
	Wireframe    bool    `msgpack:"wireframe"`
	VertexColors bool    `msgpack:"vertexColors"`
	Map          string  `msgpack:"map,omitempty"`
}

// NewLambert creates a lambert material from RGB channels
// in [0, 1] and an opacity in [0, 1]. Opacity below 1
// marks the material transparent.
func NewLambert(r, g, b, opacity float64) *Material {
	return &Material{
		UUID:        uuid.NewString(),
		Type:        "MeshLambertMaterial",
		Color:       PackColor(r, g, b),
		Opacity:     opacity,
		Transparent: opacity < 1,
	}
}

// PackColor packs RGB channels in [0, 1] into the viewer's
// 0xRRGGBB form. Channels are clamped.
func PackColor(r, g, b float64) uint32 {
	return channel(r)<<16 | channel(g)<<8 | channel(b)
}

func channel(x float64) uint32 {
	switch {
	case x <= 0:
		return 0
	case x >= 1:
		return 255
	}
	return uint32(x*255 + 0.5)
}

// Texture references an Image in the viewer's resource
// tables.
type Texture struct {
	UUID   string `msgpack:"uuid"`
	Type   string `msgpack:"type"`
	Image  string `msgpack:"image"`
	Wrap   [2]int `msgpack:"wrap"`
	Repeat [2]int `msgpack:"repeat"`
}

// Image is an embedded image carried as a data URI.
type Image struct {
	UUID string `msgpack:"uuid"`
	URL  string `msgpack:"url"`
}

// NewPNGTexture embeds the PNG file at path as a repeating
// image texture.
func NewPNGTexture(path string) (*Texture, *Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	img := &Image{
		UUID: uuid.NewString(),
		URL:  "data:image/png;base64," + base64.StdEncoding.EncodeToString(data),
	}
	tex := &Texture{
		UUID:   uuid.NewString(),
		Type:   "Texture",
		Image:  img.UUID,
		Wrap:   [2]int{1001, 1001},
		Repeat: [2]int{1, 1},
	}
	return tex, img, nil
}

// Copyright 2023 The robomesh authors. All rights reserved.

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/robomesh/robomesh"
	"github.com/robomesh/robomesh/linear"
)

// config is the YAML configuration file. Flags override
// its fields.
type config struct {
	Address   string `yaml:"address"`
	ViewerDir string `yaml:"viewer_dir"`
	MeshDir   string `yaml:"mesh_dir"`

	Camera struct {
		// Pos positions the camera; empty keeps the
		// viewer's default orbit.
		Pos  []float64 `yaml:"pos"`
		Zoom float64   `yaml:"zoom"`
	} `yaml:"camera"`
}

// load reads path into c on top of the defaults. An empty
// path keeps the defaults.
func (c *config) load(path string) error {
	c.Address = "127.0.0.1:7010"
	c.Camera.Zoom = 1
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	if p := c.Camera.Pos; len(p) != 0 && len(p) != 3 {
		return fmt.Errorf("config %s: camera pos wants 3 values, has %d", path, len(p))
	}
	return nil
}

func (c *config) applyCamera(s *robomesh.Scene) {
	if len(c.Camera.Pos) == 3 {
		s.SetCameraPos(&linear.V3{c.Camera.Pos[0], c.Camera.Pos[1], c.Camera.Pos[2]})
	}
	s.SetCameraZoom(c.Camera.Zoom)
}

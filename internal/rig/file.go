package rig

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pelletier/go-toml/v2"

	"posekit/internal/fileutil"
	"posekit/internal/pose"
	"posekit/internal/viewport"
)

type sceneFile struct {
	CurrentFrame float64         `toml:"current_frame"`
	Selection    []string        `toml:"selection"`
	Viewport     *viewport.State `toml:"viewport,omitempty"`
	Nodes        []nodeFile      `toml:"nodes"`
	Keys         []keyFile       `toml:"keys,omitempty"`
}

type nodeFile struct {
	Name       string             `toml:"name"`
	Control    bool               `toml:"control"`
	Locked     bool               `toml:"locked,omitempty"`
	Matrix     []float64          `toml:"matrix,omitempty"`
	Attributes map[string]float64 `toml:"attributes,omitempty"`
}

type keyFile struct {
	Control   string  `toml:"control"`
	Attribute string  `toml:"attribute"`
	Frame     float64 `toml:"frame"`
	Value     float64 `toml:"value"`
}

// LoadScene reads a TOML scene file.
func LoadScene(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	var file sceneFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse scene %s: %w", path, err)
	}

	scene := NewScene()
	if file.CurrentFrame != 0 {
		scene.frame = file.CurrentFrame
	}
	if file.Viewport != nil {
		scene.view = *file.Viewport
	}
	for _, nf := range file.Nodes {
		node := Node{Name: nf.Name, Control: nf.Control, Locked: nf.Locked, Attributes: nf.Attributes}
		switch len(nf.Matrix) {
		case 0:
		case pose.MatrixSize:
			copy(node.Matrix[:], nf.Matrix)
		default:
			return nil, fmt.Errorf("scene %s: node %q: matrix must have %d elements, got %d",
				path, nf.Name, pose.MatrixSize, len(nf.Matrix))
		}
		if err := scene.AddNode(node); err != nil {
			return nil, fmt.Errorf("scene %s: %w", path, err)
		}
	}
	if err := scene.Select(file.Selection...); err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}
	for _, kf := range file.Keys {
		if _, ok := scene.nodes[kf.Control]; !ok {
			return nil, fmt.Errorf("scene %s: key on unknown node %q", path, kf.Control)
		}
		scene.keys = append(scene.keys, Key(kf))
	}
	return scene, nil
}

// SaveScene writes s to path atomically.
func SaveScene(path string, s *Scene) error {
	if s == nil {
		return errors.New("scene is nil")
	}
	view := s.view
	file := sceneFile{
		CurrentFrame: s.frame,
		Selection:    s.Selection(),
		Viewport:     &view,
	}
	for _, name := range s.order {
		n := s.nodes[name]
		nf := nodeFile{Name: n.Name, Control: n.Control, Locked: n.Locked}
		if n.Matrix != mgl64.Ident4() {
			nf.Matrix = append([]float64(nil), n.Matrix[:]...)
		}
		if len(n.Attributes) > 0 {
			nf.Attributes = n.Attributes
		}
		file.Nodes = append(file.Nodes, nf)
	}
	for _, k := range s.keys {
		file.Keys = append(file.Keys, keyFile(k))
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode scene: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write scene: %w", err)
	}
	return nil
}

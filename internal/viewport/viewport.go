package viewport

import (
	"errors"
	"fmt"
	"strings"
)

// Color is an RGB triple in the 0..1 range.
type Color [3]float64

// Flags enumerates the object classes and overlays a viewport can draw.
type Flags struct {
	NurbsCurves        bool `toml:"nurbs_curves"`
	NurbsSurfaces      bool `toml:"nurbs_surfaces"`
	Polymeshes         bool `toml:"polymeshes"`
	SubdivSurfaces     bool `toml:"subdiv_surfaces"`
	Planes             bool `toml:"planes"`
	Lights             bool `toml:"lights"`
	Cameras            bool `toml:"cameras"`
	ControlVertices    bool `toml:"control_vertices"`
	Hulls              bool `toml:"hulls"`
	Joints             bool `toml:"joints"`
	IKHandles          bool `toml:"ik_handles"`
	Deformers          bool `toml:"deformers"`
	Dynamics           bool `toml:"dynamics"`
	Fluids             bool `toml:"fluids"`
	HairSystems        bool `toml:"hair_systems"`
	Follicles          bool `toml:"follicles"`
	NCloths            bool `toml:"ncloths"`
	NParticles         bool `toml:"nparticles"`
	NRigids            bool `toml:"nrigids"`
	DynamicConstraints bool `toml:"dynamic_constraints"`
	Locators           bool `toml:"locators"`
	Manipulators       bool `toml:"manipulators"`
	Dimensions         bool `toml:"dimensions"`
	Handles            bool `toml:"handles"`
	Pivots             bool `toml:"pivots"`
	Textures           bool `toml:"textures"`
	Strokes            bool `toml:"strokes"`
	PluginShapes       bool `toml:"plugin_shapes"`
	Grid               bool `toml:"grid"`
	DisplayTextures    bool `toml:"display_textures"`
}

// RenderGlobals holds the hardware renderer settings touched by a capture.
type RenderGlobals struct {
	SSAOEnable        bool `toml:"ssao_enable"`
	MultiSampleEnable bool `toml:"multi_sample_enable"`
	MultiSampleCount  int  `toml:"multi_sample_count"`
}

// Background is either a solid color or a top/bottom gradient.
type Background struct {
	Gradient bool  `toml:"gradient"`
	Solid    Color `toml:"solid"`
	Top      Color `toml:"top"`
	Bottom   Color `toml:"bottom"`
}

// State is a complete, self-contained copy of the viewport settings.
type State struct {
	ActiveView string        `toml:"active_view"`
	Background Background    `toml:"background"`
	Flags      Flags         `toml:"flags"`
	Render     RenderGlobals `toml:"render"`
}

// Editor reads and writes viewport state on the host.
type Editor interface {
	CaptureState() (State, error)
	ApplyState(State) error
}

// Playblaster renders the given view to a single image file.
type Playblaster interface {
	Playblast(view, path, format string) error
}

// ThumbnailBackground is the neutral grey used behind pose thumbnails.
var ThumbnailBackground = Color{0.295, 0.295, 0.295}

// ThumbnailState derives the capture settings from the current state: only
// geometry, plugin shapes, the grid and textures stay visible, the
// background becomes a flat grey and anti-aliasing is forced on.
func ThumbnailState(current State) State {
	return State{
		ActiveView: current.ActiveView,
		Background: Background{Solid: ThumbnailBackground},
		Flags: Flags{
			Polymeshes:      true,
			PluginShapes:    true,
			Grid:            true,
			DisplayTextures: true,
		},
		Render: RenderGlobals{
			SSAOEnable:        true,
			MultiSampleEnable: true,
			MultiSampleCount:  8,
		},
	}
}

// WithState applies state for the duration of fn and then reapplies the
// state captured beforehand, even when fn fails.
func WithState(ed Editor, state State, fn func(saved State) error) (err error) {
	saved, err := ed.CaptureState()
	if err != nil {
		return fmt.Errorf("capture viewport state: %w", err)
	}
	defer func() {
		if restoreErr := ed.ApplyState(saved); restoreErr != nil {
			err = errors.Join(err, fmt.Errorf("restore viewport state: %w", restoreErr))
		}
	}()

	if err := ed.ApplyState(state); err != nil {
		return fmt.Errorf("apply viewport state: %w", err)
	}
	return fn(saved)
}

// CaptureThumbnail renders the active view to path using the thumbnail
// preset and leaves the viewport exactly as it found it.
func CaptureThumbnail(ed Editor, pb Playblaster, path, format string) error {
	format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	if format == "" {
		format = "png"
	}
	current, err := ed.CaptureState()
	if err != nil {
		return fmt.Errorf("capture viewport state: %w", err)
	}
	if strings.TrimSpace(current.ActiveView) == "" {
		return errors.New("no active view to capture")
	}
	return WithState(ed, ThumbnailState(current), func(saved State) error {
		if err := pb.Playblast(saved.ActiveView, path, format); err != nil {
			return fmt.Errorf("playblast %s: %w", path, err)
		}
		return nil
	})
}

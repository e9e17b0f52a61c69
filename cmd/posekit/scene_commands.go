package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/spf13/cobra"

	"posekit/internal/rig"
	"posekit/internal/xform"
)

func newSceneCommand(ctx *commandContext) *cobra.Command {
	sceneCmd := &cobra.Command{
		Use:   "scene",
		Short: "Inspect and edit the scene file",
	}

	sceneCmd.AddCommand(newSceneShowCommand(ctx))
	sceneCmd.AddCommand(newSceneAddCommand(ctx))
	sceneCmd.AddCommand(newSceneSelectCommand(ctx))

	return sceneCmd
}

func newSceneShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List controls with their local transforms",
		RunE: func(cmd *cobra.Command, args []string) error {
			scene, path, err := ctx.loadScene()
			if err != nil {
				return err
			}
			selected := make(map[string]bool)
			for _, id := range scene.Selection() {
				selected[id] = true
			}

			rows := make([][]string, 0)
			for _, id := range scene.Nodes() {
				node, _ := scene.Node(id)
				if !node.Control {
					continue
				}
				translate, rotate, scale := "-", "-", "-"
				if c, err := xform.Decompose(node.Matrix); err == nil {
					translate = formatVec(c.Translation)
					rotate = formatVec(xform.EulerXYZ(c.Rotation))
					scale = formatVec(c.Scale)
				}
				mark := ""
				if selected[id] {
					mark = "*"
				}
				rows = append(rows, []string{id, mark, translate, rotate, scale, yesNo(node.Locked)})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scene %s (frame %s, %d keys)\n", path, formatFloat(scene.CurrentFrame()), len(scene.Keys()))
			if len(rows) == 0 {
				fmt.Fprintln(out, "No controls")
				return nil
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"Control", "Sel", "Translate", "Rotate", "Scale", "Locked"},
				rows, nil))
			return nil
		},
	}
}

func newSceneAddCommand(ctx *commandContext) *cobra.Command {
	var (
		translate []float64
		rotate    []float64
		scale     []float64
		locked    bool
	)

	cmd := &cobra.Command{
		Use:   "add CONTROL",
		Short: "Add a control, or reset an existing one, with the given transform",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scene, path, err := ctx.loadScene()
			if err != nil {
				return err
			}
			c := xform.Identity()
			if c.Translation, err = vec3Flag("translate", translate, 0); err != nil {
				return err
			}
			euler, err := vec3Flag("rotate", rotate, 0)
			if err != nil {
				return err
			}
			c.Rotation = xform.QuatFromEulerXYZ(euler)
			if c.Scale, err = vec3Flag("scale", scale, 1); err != nil {
				return err
			}

			id := strings.TrimSpace(args[0])
			if scene.ControlExists(id) {
				if err := scene.SetLocalTransform(id, c.Matrix()); err != nil {
					return err
				}
			} else if err := scene.AddNode(rig.Node{Name: id, Control: true, Locked: locked, Matrix: c.Matrix()}); err != nil {
				return err
			}
			if err := rig.SaveScene(path, scene); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Control %s set\n", id)
			return nil
		},
	}

	cmd.Flags().Float64SliceVar(&translate, "translate", nil, "Translation x,y,z")
	cmd.Flags().Float64SliceVar(&rotate, "rotate", nil, "Rotation x,y,z in degrees (XYZ order)")
	cmd.Flags().Float64SliceVar(&scale, "scale", nil, "Scale x,y,z or one uniform value")
	cmd.Flags().BoolVar(&locked, "locked", false, "Lock a new control against writes")
	return cmd
}

func newSceneSelectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "select [CONTROL...]",
		Short: "Replace the selection (no arguments clears it)",
		RunE: func(cmd *cobra.Command, args []string) error {
			scene, path, err := ctx.loadScene()
			if err != nil {
				return err
			}
			if err := scene.Select(args...); err != nil {
				return err
			}
			if err := rig.SaveScene(path, scene); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d controls selected\n", len(scene.Selection()))
			return nil
		},
	}
}

func vec3Flag(name string, values []float64, fill float64) (mgl64.Vec3, error) {
	switch len(values) {
	case 0:
		return mgl64.Vec3{fill, fill, fill}, nil
	case 1:
		if name == "scale" {
			return mgl64.Vec3{values[0], values[0], values[0]}, nil
		}
	case 3:
		return mgl64.Vec3{values[0], values[1], values[2]}, nil
	}
	return mgl64.Vec3{}, fmt.Errorf("--%s needs three comma-separated values", name)
}

func formatVec(v mgl64.Vec3) string {
	return formatFloat(v[0]) + ", " + formatFloat(v[1]) + ", " + formatFloat(v[2])
}

// formatFloat prints up to three decimals without trailing zeros.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', 3, 64)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	if s == "-0" {
		return "0"
	}
	return s
}

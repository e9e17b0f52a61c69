package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"posekit/internal/capture"
	"posekit/internal/library"
	"posekit/internal/viewport"
)

func newCaptureCommand(ctx *commandContext) *cobra.Command {
	var (
		character  string
		selected   bool
		attributes bool
		thumbnail  bool
	)

	cmd := &cobra.Command{
		Use:   "capture NAME",
		Short: "Save the current rig pose to the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.loggerFor(cmd)
			if err != nil {
				return err
			}
			scene, _, err := ctx.loadScene()
			if err != nil {
				return err
			}

			store := capture.New(scene, capture.WithLogger(logger))
			snap, err := store.CaptureControls(selected, attributes)
			if err != nil {
				return fmt.Errorf("capture: %w", err)
			}

			name := strings.TrimSpace(args[0])
			return ctx.withCatalog(cmd, func(catalog *library.Catalog) error {
				info, err := catalog.Save(cmd.Context(), character, name, snap)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Captured %d controls to %s\n", snap.Len(), info.Path)
				if !thumbnail {
					return nil
				}
				format := cfg.Library.ThumbnailFormat
				image := library.ThumbnailPath(info.Path, format)
				if err := viewport.CaptureThumbnail(scene, scene, image, format); err != nil {
					return fmt.Errorf("thumbnail: %w", err)
				}
				fmt.Fprintf(out, "Thumbnail written to %s\n", image)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&character, "character", "C", "", "Character folder as group/character")
	cmd.Flags().BoolVar(&selected, "selected", false, "Capture only selected controls")
	cmd.Flags().BoolVar(&attributes, "attributes", false, "Capture keyable attributes instead of matrices")
	cmd.Flags().BoolVar(&thumbnail, "thumbnail", false, "Playblast a thumbnail next to the pose")
	_ = cmd.MarkFlagRequired("character")
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"posekit/internal/blend"
	"posekit/internal/capture"
	"posekit/internal/library"
	"posekit/internal/rig"
)

func newBlendCommand(ctx *commandContext) *cobra.Command {
	var (
		character string
		factors   []int
		selected  bool
	)

	cmd := &cobra.Command{
		Use:   "blend NAME --factor N [--factor N...]",
		Short: "Blend the rig toward a library pose",
		Long: "Captures the current rig as the blend source, then moves every control toward\n" +
			"the library pose by each factor (0-100) in order. The final factor is kept.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(factors) == 0 {
				return fmt.Errorf("at least one --factor is required")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.loggerFor(cmd)
			if err != nil {
				return err
			}
			scene, scenePath, err := ctx.loadScene()
			if err != nil {
				return err
			}
			selectedOnly := selected || cfg.Blend.SelectedOnly

			engine := blend.NewEngine(scene,
				blend.WithViewport(scene),
				blend.WithTolerance(cfg.Blend.Tolerance),
				blend.WithSelectedOnly(selectedOnly),
				blend.WithLogger(logger),
			)
			previewer := blend.NewPreviewer(engine, capture.New(scene, capture.WithLogger(logger)),
				blend.WithSelectedSource(selectedOnly),
				blend.WithPreviewLogger(logger),
			)
			defer previewer.Close()

			err = ctx.withCatalog(cmd, func(catalog *library.Catalog) error {
				path, err := catalog.Resolve(character, args[0])
				if err != nil {
					return err
				}
				_, err = previewer.Select(path)
				return err
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			session := previewer.Session()
			fmt.Fprintf(out, "Blending toward %s (session %s)\n", session.Label(), session.ID())
			for _, f := range factors {
				report, err := previewer.SetFactor(blend.Factor(f))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "factor %3d: %d blended, %d unchanged, %d skipped, %d failed\n",
					int(session.Factor()), len(report.Blended), len(report.Unchanged),
					len(report.Absent)+len(report.Missing)+len(report.Unselected)+len(report.NotBlendable),
					len(report.Failed))
			}
			return rig.SaveScene(scenePath, scene)
		},
	}

	cmd.Flags().StringVarP(&character, "character", "C", "", "Character folder as group/character")
	cmd.Flags().IntSliceVarP(&factors, "factor", "f", nil, "Blend factor between 0 and 100 (repeatable)")
	cmd.Flags().BoolVar(&selected, "selected", false, "Blend only selected controls")
	_ = cmd.MarkFlagRequired("character")
	return cmd
}

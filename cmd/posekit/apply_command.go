package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"posekit/internal/capture"
	"posekit/internal/library"
	"posekit/internal/rig"
)

func newApplyCommand(ctx *commandContext) *cobra.Command {
	var (
		character        string
		selected         bool
		excludeProtected bool
		key              bool
		namespace        string
	)

	cmd := &cobra.Command{
		Use:   "apply NAME",
		Short: "Write a library pose onto the rig",
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
			scene, scenePath, err := ctx.loadScene()
			if err != nil {
				return err
			}

			opts := capture.ApplyOptions{
				Key:       cfg.Apply.KeyOnApply,
				Namespace: strings.TrimSpace(namespace),
			}
			if cmd.Flags().Changed("key") {
				opts.Key = key
			}
			if excludeProtected || cfg.Apply.ExcludeProtected {
				opts.Exclude = cfg.Apply.ProtectedControls
			}
			if selected {
				targets, err := scene.ListControls(true)
				if err != nil {
					return err
				}
				if len(targets) == 0 {
					return fmt.Errorf("--selected given but nothing is selected")
				}
				opts.Targets = targets
			}

			var report capture.ApplyReport
			err = ctx.withCatalog(cmd, func(catalog *library.Catalog) error {
				snap, err := catalog.Load(character, args[0])
				if err != nil {
					return err
				}
				store := capture.New(scene,
					capture.WithKeyframer(scene),
					capture.WithViewport(scene),
					capture.WithLogger(logger),
				)
				report, err = store.Apply(snap, opts)
				return err
			})
			if err != nil {
				return err
			}
			if err := rig.SaveScene(scenePath, scene); err != nil {
				return err
			}

			printApplyReport(cmd, report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&character, "character", "C", "", "Character folder as group/character")
	cmd.Flags().BoolVar(&selected, "selected", false, "Apply only to selected controls")
	cmd.Flags().BoolVar(&excludeProtected, "exclude-protected", false, "Skip controls listed in apply.protected_controls")
	cmd.Flags().BoolVar(&key, "key", false, "Set keyframes on written attributes (default from apply.key_on_apply)")
	cmd.Flags().StringVar(&namespace, "namespace", "", "Resolve controls in this namespace")
	_ = cmd.MarkFlagRequired("character")
	return cmd
}

func printApplyReport(cmd *cobra.Command, report capture.ApplyReport) {
	out := cmd.OutOrStdout()
	ns := report.Namespace
	if ns == "" {
		ns = "(root)"
	}
	fmt.Fprintf(out, "Applied %d controls in namespace %s\n", len(report.Applied), ns)
	rows := [][]string{
		{"applied", strconv.Itoa(len(report.Applied)), strings.Join(report.Applied, ", ")},
		{"missing", strconv.Itoa(len(report.Missing)), strings.Join(report.Missing, ", ")},
		{"excluded", strconv.Itoa(len(report.Excluded)), strings.Join(report.Excluded, ", ")},
		{"untargeted", strconv.Itoa(len(report.Untargeted)), strings.Join(report.Untargeted, ", ")},
		{"failed", strconv.Itoa(len(report.Failed)), strings.Join(report.Failed, ", ")},
		{"keys", strconv.Itoa(report.Keys), ""},
	}
	fmt.Fprintln(out, renderTable(out, []string{"Result", "Count", "Controls"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}))
}

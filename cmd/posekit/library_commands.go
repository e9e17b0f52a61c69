package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"posekit/internal/library"
)

func newLibraryCommand(ctx *commandContext) *cobra.Command {
	libraryCmd := &cobra.Command{
		Use:   "library",
		Short: "Browse and maintain the pose library",
	}

	libraryCmd.AddCommand(newLibraryInitCommand(ctx))
	libraryCmd.AddCommand(newLibraryTreeCommand(ctx))
	libraryCmd.AddCommand(newLibraryListCommand(ctx))
	libraryCmd.AddCommand(newLibraryInfoCommand(ctx))
	libraryCmd.AddCommand(newLibraryRenameCommand(ctx))
	libraryCmd.AddCommand(newLibraryDeleteCommand(ctx))
	libraryCmd.AddCommand(newLibraryCopyCommand(ctx))
	libraryCmd.AddCommand(newLibraryFavouriteCommand(ctx))
	libraryCmd.AddCommand(newLibraryReindexCommand(ctx))
	libraryCmd.AddCommand(newLibraryCleanCommand(ctx))
	libraryCmd.AddCommand(newLibraryWatchCommand(ctx))

	return libraryCmd
}

func newLibraryInitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the folders listed in library.structure",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withCatalog(cmd, func(catalog *library.Catalog) error {
				created, err := catalog.CreateStructure(cfg.Library.Structure)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, dir := range created {
					fmt.Fprintf(out, "Created %s\n", dir)
				}
				fmt.Fprintf(out, "Library ready at %s (%d folders created)\n", catalog.Root(), len(created))
				return nil
			})
		},
	}
}

func newLibraryTreeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Show group and character folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(cmd, func(catalog *library.Catalog) error {
				groups, err := catalog.Tree()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(groups) == 0 {
					fmt.Fprintln(out, "Library is empty; run 'posekit library init'")
					return nil
				}
				for _, group := range groups {
					fmt.Fprintln(out, group.Name)
					for _, character := range group.Characters {
						fmt.Fprintf(out, "  %s/%s\n", group.Name, character)
					}
				}
				return nil
			})
		},
	}
}

func newLibraryListCommand(ctx *commandContext) *cobra.Command {
	var (
		sortKey    string
		descending bool
		favourites bool
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "list [CHARACTER]",
		Short: "List poses of a character folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			order := library.DefaultSortOrder(cfg)
			if cmd.Flags().Changed("sort") {
				key, err := library.ParseSortKey(sortKey)
				if err != nil {
					return err
				}
				order.Key = key
			}
			if cmd.Flags().Changed("desc") {
				order.Descending = descending
			}

			return ctx.withCatalog(cmd, func(catalog *library.Catalog) error {
				var poses []library.PoseInfo
				switch {
				case favourites:
					poses, err = catalog.Favourites(cmd.Context())
					if err == nil {
						library.SortPoses(poses, order)
					}
				case len(args) == 1:
					poses, err = catalog.List(cmd.Context(), args[0], order)
				default:
					return errors.New("CHARACTER is required unless --favourites is given")
				}
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, poseViews(poses))
				}
				out := cmd.OutOrStdout()
				if len(poses) == 0 {
					fmt.Fprintln(out, "No poses found")
					return nil
				}
				fmt.Fprintln(out, renderPoseTable(out, poses, favourites))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&sortKey, "sort", "", "Sort by name, created or modified (default from library.default_sort)")
	cmd.Flags().BoolVar(&descending, "desc", false, "Reverse the sort order")
	cmd.Flags().BoolVar(&favourites, "favourites", false, "List favourite poses across all characters")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newLibraryInfoCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "info CHARACTER NAME",
		Short: "Show details of one pose",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(cmd, func(catalog *library.Catalog) error {
				path, err := catalog.Resolve(args[0], args[1])
				if err != nil {
					return err
				}
				info, err := catalog.Info(cmd.Context(), path)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, newPoseView(info))
				}
				image := info.Image
				if image == "" {
					image = "-"
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Name:      %s\n", info.Name)
				fmt.Fprintf(out, "Character: %s\n", info.Character)
				fmt.Fprintf(out, "Type:      %s\n", info.Type)
				fmt.Fprintf(out, "Controls:  %d\n", info.Controls)
				fmt.Fprintf(out, "Size:      %s\n", info.SizeLabel())
				fmt.Fprintf(out, "Created:   %s\n", info.CreatedLabel())
				fmt.Fprintf(out, "Modified:  %s\n", info.ModifiedLabel())
				fmt.Fprintf(out, "Favourite: %s\n", yesNo(info.Favourite))
				fmt.Fprintf(out, "Path:      %s\n", info.Path)
				fmt.Fprintf(out, "Image:     %s\n", image)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newLibraryRenameCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rename CHARACTER NAME NEW_NAME",
		Short: "Rename a pose and its thumbnails",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(cmd, func(catalog *library.Catalog) error {
				path, err := catalog.Resolve(args[0], args[1])
				if err != nil {
					return err
				}
				newPath, err := catalog.Rename(cmd.Context(), path, strings.TrimSpace(args[2]))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %s\n", filepath.Base(path), filepath.Base(newPath))
				return nil
			})
		},
	}
}

func newLibraryDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete CHARACTER NAME",
		Short: "Delete a pose and its thumbnails",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(cmd, func(catalog *library.Catalog) error {
				path, err := catalog.Resolve(args[0], args[1])
				if err != nil {
					return err
				}
				if err := catalog.Delete(cmd.Context(), path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", path)
				return nil
			})
		},
	}
}

func newLibraryCopyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "copy CHARACTER NAME TARGET_CHARACTER",
		Short: "Copy a pose into another character folder",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(cmd, func(catalog *library.Catalog) error {
				path, err := catalog.Resolve(args[0], args[1])
				if err != nil {
					return err
				}
				target, err := catalog.Copy(cmd.Context(), path, args[2])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Copied to %s\n", target)
				return nil
			})
		},
	}
}

func newLibraryFavouriteCommand(ctx *commandContext) *cobra.Command {
	var off bool

	cmd := &cobra.Command{
		Use:   "favourite CHARACTER NAME",
		Short: "Mark a pose as a favourite",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(cmd, func(catalog *library.Catalog) error {
				path, err := catalog.Resolve(args[0], args[1])
				if err != nil {
					return err
				}
				if err := catalog.SetFavourite(cmd.Context(), path, !off); err != nil {
					return err
				}
				state := "marked as favourite"
				if off {
					state = "no longer a favourite"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", args[1], state)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&off, "off", false, "Remove the favourite mark")
	return cmd
}

func newLibraryReindexCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the catalog index from the files on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(cmd, func(catalog *library.Catalog) error {
				stats, err := catalog.Reindex(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d poses, removed %d stale entries, %d failed\n",
					stats.Indexed, stats.Removed, stats.Failed)
				return nil
			})
		},
	}
}

func newLibraryCleanCommand(ctx *commandContext) *cobra.Command {
	var (
		maxAge time.Duration
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove orphaned thumbnails and abandoned temporary files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(cmd, func(catalog *library.Catalog) error {
				result, err := catalog.Clean(cmd.Context(), library.CleanOptions{TempMaxAge: maxAge, DryRun: dryRun})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				verb := "Removed"
				if dryRun {
					verb = "Would remove"
				}
				for _, path := range result.Orphans {
					fmt.Fprintf(out, "%s orphaned thumbnail %s\n", verb, path)
				}
				for _, path := range result.TempFiles {
					fmt.Fprintf(out, "%s temporary file %s\n", verb, path)
				}
				for _, failure := range result.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "failed %s: %v\n", failure.Path, failure.Error)
				}
				fmt.Fprintf(out, "%s %d files\n", verb, result.Removed())
				if len(result.Errors) > 0 {
					return fmt.Errorf("%d files could not be removed", len(result.Errors))
				}
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&maxAge, "max-age", library.DefaultTempMaxAge, "Minimum age of temporary files to remove")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only report what would be removed")
	return cmd
}

func newLibraryWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the catalog index updated until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return ctx.withCatalog(cmd, func(catalog *library.Catalog) error {
				if _, err := catalog.Reindex(runCtx); err != nil {
					return err
				}
				debounce := time.Duration(cfg.Library.WatchDebounceMS) * time.Millisecond
				watcher, err := library.NewWatcher(catalog, debounce)
				if err != nil {
					return err
				}
				go reportFlushes(runCtx, cmd, watcher)
				fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl+C to stop)\n", catalog.Root())
				return watcher.Run(runCtx)
			})
		},
	}
}

func reportFlushes(ctx context.Context, cmd *cobra.Command, watcher *library.Watcher) {
	out := cmd.OutOrStdout()
	for {
		select {
		case <-ctx.Done():
			return
		case result := <-watcher.Flushed():
			for _, path := range result.Indexed {
				fmt.Fprintf(out, "indexed %s\n", path)
			}
			for _, path := range result.Removed {
				fmt.Fprintf(out, "removed %s\n", path)
			}
			for _, path := range result.Failed {
				fmt.Fprintf(out, "failed  %s\n", path)
			}
		}
	}
}

func renderPoseTable(out io.Writer, poses []library.PoseInfo, withCharacter bool) string {
	headers := []string{"Name", "Type", "Controls", "Size", "Created", "Modified", "Fav"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft, alignLeft}
	if withCharacter {
		headers = append([]string{"Character"}, headers...)
		aligns = append([]columnAlignment{alignLeft}, aligns...)
	}
	rows := make([][]string, 0, len(poses))
	for _, p := range poses {
		fav := ""
		if p.Favourite {
			fav = "*"
		}
		row := []string{
			p.Name,
			string(p.Type),
			strconv.Itoa(p.Controls),
			p.SizeLabel(),
			p.CreatedLabel(),
			p.Modified.Local().Format(library.DisplayTimeLayout),
			fav,
		}
		if withCharacter {
			row = append([]string{p.Character}, row...)
		}
		rows = append(rows, row)
	}
	return renderTable(out, headers, rows, aligns)
}

type poseView struct {
	Name      string    `json:"name"`
	Character string    `json:"character"`
	Type      string    `json:"type"`
	Path      string    `json:"path"`
	Image     string    `json:"image,omitempty"`
	Controls  int       `json:"controls"`
	SizeBytes int64     `json:"size_bytes"`
	Created   time.Time `json:"created"`
	Modified  time.Time `json:"modified"`
	Favourite bool      `json:"favourite"`
}

func newPoseView(p library.PoseInfo) poseView {
	return poseView{
		Name:      p.Name,
		Character: p.Character,
		Type:      string(p.Type),
		Path:      p.Path,
		Image:     p.Image,
		Controls:  p.Controls,
		SizeBytes: p.Size,
		Created:   p.Created,
		Modified:  p.Modified,
		Favourite: p.Favourite,
	}
}

func poseViews(poses []library.PoseInfo) []poseView {
	views := make([]poseView, 0, len(poses))
	for _, p := range poses {
		views = append(views, newPoseView(p))
	}
	return views
}

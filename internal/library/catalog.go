package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"

	"posekit/internal/config"
	"posekit/internal/fileutil"
	"posekit/internal/logging"
	"posekit/internal/pose"
	"posekit/internal/textutil"
)

var (
	ErrPoseNotFound = errors.New("pose not found")
	ErrPoseExists   = errors.New("pose already exists")
	ErrInvalidName  = errors.New("invalid name")
	ErrNoIndex      = errors.New("catalog index is not open")
)

// suggestThreshold is the minimum similarity for Suggest to offer a name.
const suggestThreshold = 0.5

// Catalog is the pose library rooted at one directory.
type Catalog struct {
	root       string
	extensions []string
	index      *Index
	logger     *slog.Logger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithImageExtensions sets the thumbnail extensions probed next to a pose.
func WithImageExtensions(exts []string) Option {
	return func(c *Catalog) {
		c.extensions = append([]string(nil), exts...)
	}
}

// WithIndex attaches the SQLite index. Without one, favourites are
// unavailable and creation times fall back to file modification times.
func WithIndex(index *Index) Option {
	return func(c *Catalog) {
		c.index = index
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// New returns a catalog rooted at root.
func New(root string, opts ...Option) *Catalog {
	c := &Catalog{
		root:       filepath.Clean(root),
		extensions: config.Default().Library.ImageExtensions,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "library")
	return c
}

// NewFromConfig builds a catalog from the library section of cfg.
func NewFromConfig(cfg *config.Config, index *Index, logger *slog.Logger) *Catalog {
	return New(cfg.Paths.LibraryDir,
		WithImageExtensions(cfg.Library.ImageExtensions),
		WithIndex(index),
		WithLogger(logger),
	)
}

// Root returns the library directory.
func (c *Catalog) Root() string { return c.root }

// Index returns the attached index, or nil.
func (c *Catalog) Index() *Index { return c.index }

// Group is one top-level folder and the character folders inside it.
type Group struct {
	Name       string
	Characters []string
}

// CreateStructure makes the group and character folders named in
// structure. Existing folders are left alone.
func (c *Catalog) CreateStructure(structure map[string][]string) ([]string, error) {
	groups := make([]string, 0, len(structure))
	for group := range structure {
		groups = append(groups, group)
	}
	sort.Strings(groups)

	var created []string
	mkdir := func(dir string) error {
		if _, err := os.Stat(dir); err == nil {
			return nil
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return pose.Wrap(pose.ErrIO, dir, "create folder", err)
		}
		created = append(created, dir)
		return nil
	}

	if err := mkdir(c.root); err != nil {
		return created, err
	}
	for _, group := range groups {
		if !textutil.IsSafeFileName(group) {
			return created, fmt.Errorf("%w: group %q", ErrInvalidName, group)
		}
		if err := mkdir(filepath.Join(c.root, group)); err != nil {
			return created, err
		}
		for _, character := range structure[group] {
			if !textutil.IsSafeFileName(character) {
				return created, fmt.Errorf("%w: character %q", ErrInvalidName, character)
			}
			if err := mkdir(filepath.Join(c.root, group, character)); err != nil {
				return created, err
			}
		}
	}
	return created, nil
}

// Tree lists the group and character folders under the root. Hidden
// entries and plain files are skipped.
func (c *Catalog) Tree() ([]Group, error) {
	groupDirs, err := listDirs(c.root)
	if err != nil {
		return nil, pose.Wrap(pose.ErrIO, c.root, "read library", err)
	}
	groups := make([]Group, 0, len(groupDirs))
	for _, name := range groupDirs {
		characters, err := listDirs(filepath.Join(c.root, name))
		if err != nil {
			return nil, pose.Wrap(pose.ErrIO, name, "read group", err)
		}
		groups = append(groups, Group{Name: name, Characters: characters})
	}
	return groups, nil
}

func listDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// CharacterDir resolves a "group/character" reference to its folder. The
// folder must exist.
func (c *Catalog) CharacterDir(character string) (string, error) {
	group, name, ok := strings.Cut(filepath.ToSlash(strings.TrimSpace(character)), "/")
	if !ok || !textutil.IsSafeFileName(group) || !textutil.IsSafeFileName(name) {
		return "", fmt.Errorf("%w: character %q must be group/character", ErrInvalidName, character)
	}
	dir := filepath.Join(c.root, group, name)
	info, err := os.Stat(dir)
	if err != nil {
		return "", pose.Wrap(pose.ErrIO, character, "character folder", err)
	}
	if !info.IsDir() {
		return "", pose.Wrap(pose.ErrIO, character, "character folder is not a directory", nil)
	}
	return dir, nil
}

// PosePath returns the file path for a pose in a character folder.
func (c *Catalog) PosePath(character, name string) (string, error) {
	if !textutil.IsSafeFileName(name) {
		return "", fmt.Errorf("%w: pose %q (try %q)", ErrInvalidName, name, textutil.SanitizeFileName(name))
	}
	dir, err := c.CharacterDir(character)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name+pose.FileExtension), nil
}

// characterOf returns the "group/character" reference for a pose path.
func (c *Catalog) characterOf(path string) (string, error) {
	rel, err := filepath.Rel(c.root, filepath.Dir(path))
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if strings.Count(rel, "/") != 1 || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %s is not inside a character folder", ErrInvalidName, path)
	}
	return rel, nil
}

// Save writes snap as a new or replacement pose and indexes it.
func (c *Catalog) Save(ctx context.Context, character, name string, snap *pose.Snapshot) (PoseInfo, error) {
	path, err := c.PosePath(character, name)
	if err != nil {
		return PoseInfo{}, err
	}
	if err := pose.WriteFile(path, snap); err != nil {
		return PoseInfo{}, err
	}
	c.logger.Info("pose saved",
		logging.String(logging.FieldPose, path),
		logging.Int("controls", snap.Len()),
	)
	if err := c.indexFile(ctx, path, snap.Len()); err != nil {
		c.warnIndex(path, err)
	}
	return c.Info(ctx, path)
}

// Load reads a pose by character and name.
func (c *Catalog) Load(character, name string) (*pose.Snapshot, error) {
	path, err := c.PosePath(character, name)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, c.notFound(character, name)
	}
	return pose.ReadFile(path)
}

// Resolve finds the pose file for a name in a character folder.
func (c *Catalog) Resolve(character, name string) (string, error) {
	path, err := c.PosePath(character, name)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", c.notFound(character, name)
		}
		return "", pose.Wrap(pose.ErrIO, path, "stat", err)
	}
	return path, nil
}

func (c *Catalog) notFound(character, name string) error {
	if suggestions := c.Suggest(character, name); len(suggestions) > 0 {
		return fmt.Errorf("%w: %s/%s (did you mean %s?)", ErrPoseNotFound, character, name, strings.Join(suggestions, ", "))
	}
	return fmt.Errorf("%w: %s/%s", ErrPoseNotFound, character, name)
}

// Suggest returns up to three pose names in character that resemble name.
func (c *Catalog) Suggest(character, name string) []string {
	dir, err := c.CharacterDir(character)
	if err != nil {
		return nil
	}
	paths, err := poseFiles(dir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(paths))
	for _, path := range paths {
		names = append(names, PoseName(path))
	}
	var out []string
	for _, match := range textutil.Rank(name, names, suggestThreshold) {
		if len(out) == 3 {
			break
		}
		out = append(out, match.Name)
	}
	return out
}

// List returns the poses of one character folder in the requested order.
// Files that cannot be described are logged and skipped.
func (c *Catalog) List(ctx context.Context, character string, order SortOrder) ([]PoseInfo, error) {
	dir, err := c.CharacterDir(character)
	if err != nil {
		return nil, err
	}
	paths, err := poseFiles(dir)
	if err != nil {
		return nil, pose.Wrap(pose.ErrIO, dir, "list poses", err)
	}
	poses := make([]PoseInfo, 0, len(paths))
	for _, path := range paths {
		info, err := c.Info(ctx, path)
		if err != nil {
			logging.WarnWithContext(c.logger, "pose could not be described; skipped", "pose_info_failed",
				logging.String(logging.FieldPose, path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "pose is missing from the listing"),
			)
			continue
		}
		poses = append(poses, info)
	}
	SortPoses(poses, order)
	return poses, nil
}

func poseFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && IsPoseFile(entry.Name()) {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	return paths, nil
}

// Info describes one pose file. Index data is used when present; otherwise
// the file is read to count its controls.
func (c *Catalog) Info(ctx context.Context, path string) (PoseInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return PoseInfo{}, fmt.Errorf("%w: %s", ErrPoseNotFound, path)
		}
		return PoseInfo{}, pose.Wrap(pose.ErrIO, path, "stat", err)
	}
	character, err := c.characterOf(path)
	if err != nil {
		return PoseInfo{}, err
	}
	name := PoseName(path)
	info := PoseInfo{
		Name:      name,
		Character: character,
		Type:      ClassifyPose(name),
		Path:      path,
		Image:     ImageFor(path, c.extensions),
		Created:   stat.ModTime(),
		Modified:  stat.ModTime(),
		Size:      stat.Size(),
	}

	if c.index != nil {
		entry, err := c.index.Get(ctx, path)
		switch {
		case err == nil && entry.ModifiedAt.Equal(stat.ModTime()):
			info.Created = entry.CreatedAt
			info.Controls = entry.ControlCount
			info.Favourite = entry.Favourite
			return info, nil
		case err == nil:
			info.Created = entry.CreatedAt
			info.Favourite = entry.Favourite
		case !errors.Is(err, ErrNotIndexed):
			return PoseInfo{}, err
		}
	}

	snap, err := pose.ReadFile(path)
	if err != nil {
		return PoseInfo{}, err
	}
	info.Controls = snap.Len()
	return info, nil
}

// Rename gives a pose a new name in the same folder, moving its thumbnails
// with it. An existing pose with the new name is never replaced.
func (c *Catalog) Rename(ctx context.Context, path, newName string) (string, error) {
	if !textutil.IsSafeFileName(newName) {
		return "", fmt.Errorf("%w: pose %q", ErrInvalidName, newName)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", ErrPoseNotFound, path)
	}
	dir := filepath.Dir(path)
	newPath := filepath.Join(dir, newName+pose.FileExtension)
	if newPath == path {
		return path, nil
	}

	if err := c.moveFiles(path, newPath); err != nil {
		return "", err
	}

	if c.index != nil {
		err := c.index.Rename(ctx, path, newPath, newName, ClassifyPose(newName))
		if errors.Is(err, ErrNotIndexed) {
			err = c.indexFile(ctx, newPath, -1)
		}
		if err != nil {
			c.warnIndex(newPath, err)
		}
	}
	c.logger.Info("pose renamed",
		logging.String(logging.FieldPose, newPath),
		logging.String("previous", path),
	)
	return newPath, nil
}

func (c *Catalog) moveFiles(path, newPath string) error {
	unlock, err := lockDir(filepath.Dir(path))
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := os.Stat(newPath); err == nil {
		return fmt.Errorf("%w: %s", ErrPoseExists, newPath)
	}
	if err := os.Rename(path, newPath); err != nil {
		return pose.Wrap(pose.ErrIO, path, "rename", err)
	}
	for _, image := range imageCandidates(path, c.extensions) {
		if _, err := os.Stat(image); err != nil {
			continue
		}
		target := strings.TrimSuffix(newPath, pose.FileExtension) + filepath.Ext(image)
		if err := os.Rename(image, target); err != nil {
			logging.WarnWithContext(c.logger, "thumbnail could not be renamed", "thumbnail_rename_failed",
				logging.String(logging.FieldPose, image),
				logging.Error(err),
				logging.String(logging.FieldImpact, "pose keeps its old thumbnail name"),
			)
		}
	}
	return nil
}

// Delete removes a pose and its thumbnails.
func (c *Catalog) Delete(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", ErrPoseNotFound, path)
	}
	unlock, err := lockDir(filepath.Dir(path))
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.Remove(path); err != nil {
		return pose.Wrap(pose.ErrIO, path, "delete", err)
	}
	for _, image := range imageCandidates(path, c.extensions) {
		if err := os.Remove(image); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logging.WarnWithContext(c.logger, "thumbnail could not be deleted", "thumbnail_delete_failed",
				logging.String(logging.FieldPose, image),
				logging.Error(err),
			)
		}
	}
	if c.index != nil {
		if err := c.index.Remove(ctx, path); err != nil {
			c.warnIndex(path, err)
		}
	}
	c.logger.Info("pose deleted", logging.String(logging.FieldPose, path))
	return nil
}

// Copy duplicates a pose and its thumbnails into another character folder.
// The copy is verified and never replaces an existing pose.
func (c *Catalog) Copy(ctx context.Context, path, character string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", ErrPoseNotFound, path)
	}
	target, err := c.PosePath(character, PoseName(path))
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(target); err == nil {
		return "", fmt.Errorf("%w: %s", ErrPoseExists, target)
	}

	if err := c.copyFiles(path, target); err != nil {
		return "", err
	}
	if err := c.indexFile(ctx, target, -1); err != nil {
		c.warnIndex(target, err)
	}
	c.logger.Info("pose copied",
		logging.String(logging.FieldPose, target),
		logging.String("source", path),
	)
	return target, nil
}

func (c *Catalog) copyFiles(path, target string) error {
	unlock, err := lockDir(filepath.Dir(target))
	if err != nil {
		return err
	}
	defer unlock()

	if err := fileutil.CopyFileVerified(path, target); err != nil {
		return pose.Wrap(pose.ErrIO, path, "copy", err)
	}
	for _, image := range imageCandidates(path, c.extensions) {
		if _, err := os.Stat(image); err != nil {
			continue
		}
		dst := strings.TrimSuffix(target, pose.FileExtension) + filepath.Ext(image)
		if err := fileutil.CopyFileVerified(image, dst); err != nil {
			logging.WarnWithContext(c.logger, "thumbnail could not be copied", "thumbnail_copy_failed",
				logging.String(logging.FieldPose, image),
				logging.Error(err),
			)
		}
	}
	return nil
}

// SetFavourite flags a pose as a favourite, indexing it first if needed.
func (c *Catalog) SetFavourite(ctx context.Context, path string, on bool) error {
	if c.index == nil {
		return ErrNoIndex
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", ErrPoseNotFound, path)
	}
	err := c.index.SetFavourite(ctx, path, on)
	if errors.Is(err, ErrNotIndexed) {
		if err := c.indexFile(ctx, path, -1); err != nil {
			return err
		}
		err = c.index.SetFavourite(ctx, path, on)
	}
	return err
}

// Favourites lists favourite poses that still exist, by name.
func (c *Catalog) Favourites(ctx context.Context) ([]PoseInfo, error) {
	if c.index == nil {
		return nil, ErrNoIndex
	}
	entries, err := c.index.Favourites(ctx)
	if err != nil {
		return nil, err
	}
	poses := make([]PoseInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := c.Info(ctx, entry.Path)
		if err != nil {
			continue
		}
		poses = append(poses, info)
	}
	SortPoses(poses, SortOrder{Key: config.SortName})
	return poses, nil
}

// ReindexStats summarizes a Reindex run.
type ReindexStats struct {
	Indexed int
	Removed int
	Failed  int
}

// Reindex walks the library, records every readable pose and forgets
// entries whose files are gone. Unreadable poses are logged and counted.
func (c *Catalog) Reindex(ctx context.Context) (ReindexStats, error) {
	var stats ReindexStats
	if c.index == nil {
		return stats, ErrNoIndex
	}

	seen := make(map[string]bool)
	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != c.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !IsPoseFile(path) {
			return nil
		}
		if _, err := c.characterOf(path); err != nil {
			return nil
		}
		if err := c.indexFile(ctx, path, -1); err != nil {
			stats.Failed++
			logging.WarnWithContext(c.logger, "pose could not be indexed", "pose_index_failed",
				logging.String(logging.FieldPose, path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "pose is missing from the index"),
				logging.String(logging.FieldErrorHint, "fix or delete the pose file"),
			)
			return nil
		}
		seen[path] = true
		stats.Indexed++
		return nil
	})
	if err != nil {
		return stats, pose.Wrap(pose.ErrIO, c.root, "walk library", err)
	}

	removed, err := c.index.Prune(ctx, seen)
	stats.Removed = removed
	if err != nil {
		return stats, err
	}
	c.logger.Info("library reindexed",
		logging.Int("indexed", stats.Indexed),
		logging.Int("removed", stats.Removed),
		logging.Int("failed", stats.Failed),
	)
	return stats, nil
}

// indexFile records path in the index. A negative control count makes it
// read the file to count controls.
func (c *Catalog) indexFile(ctx context.Context, path string, controls int) error {
	if c.index == nil {
		return nil
	}
	stat, err := os.Stat(path)
	if err != nil {
		return pose.Wrap(pose.ErrIO, path, "stat", err)
	}
	character, err := c.characterOf(path)
	if err != nil {
		return err
	}
	if controls < 0 {
		snap, err := pose.ReadFile(path)
		if err != nil {
			return err
		}
		controls = snap.Len()
	}
	name := PoseName(path)
	return c.index.Upsert(ctx, Entry{
		Path:         path,
		Character:    character,
		Name:         name,
		Type:         ClassifyPose(name),
		ControlCount: controls,
		SizeBytes:    stat.Size(),
		ModifiedAt:   stat.ModTime(),
	})
}

func (c *Catalog) warnIndex(path string, err error) {
	logging.WarnWithContext(c.logger, "catalog index update failed", "index_update_failed",
		logging.String(logging.FieldPose, path),
		logging.Error(err),
		logging.String(logging.FieldImpact, "index is stale until the next reindex"),
		logging.String(logging.FieldErrorHint, "run 'posekit library reindex'"),
	)
}

func lockDir(dir string) (func(), error) {
	lock := flock.New(filepath.Join(dir, pose.LockFileName))
	if err := lock.Lock(); err != nil {
		return nil, pose.Wrap(pose.ErrIO, dir, "acquire write lock", err)
	}
	return func() { _ = lock.Unlock() }, nil
}

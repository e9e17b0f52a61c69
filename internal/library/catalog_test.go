package library_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"posekit/internal/config"
	"posekit/internal/library"
	"posekit/internal/pose"
	"posekit/internal/testsupport"
)

const hero = "Heroes/Ada"

func newCatalog(t *testing.T, indexed bool) (*config.Config, *library.Catalog) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	var index *library.Index
	if indexed {
		index = testsupport.MustOpenIndex(t, cfg)
	}
	catalog := library.NewFromConfig(cfg, index, nil)
	if _, err := catalog.CreateStructure(map[string][]string{
		"Heroes":   {"Ada", "Brom"},
		"Villains": {"Cyr"},
	}); err != nil {
		t.Fatalf("CreateStructure: %v", err)
	}
	return cfg, catalog
}

func samplePose(t *testing.T, controls ...string) *pose.Snapshot {
	t.Helper()

	values := make(map[string]mgl64.Mat4, len(controls))
	for i, name := range controls {
		values[name] = mgl64.Translate3D(float64(i), 0, 0)
	}
	return testsupport.MatrixPose(t, "", values)
}

func savePose(t *testing.T, catalog *library.Catalog, character, name string, controls ...string) string {
	t.Helper()

	info, err := catalog.Save(context.Background(), character, name, samplePose(t, controls...))
	if err != nil {
		t.Fatalf("Save %s: %v", name, err)
	}
	return info.Path
}

func names(poses []library.PoseInfo) []string {
	out := make([]string, 0, len(poses))
	for _, p := range poses {
		out = append(out, p.Name)
	}
	return out
}

func TestCreateStructureAndTree(t *testing.T) {
	_, catalog := newCatalog(t, false)

	created, err := catalog.CreateStructure(map[string][]string{"Heroes": {"Ada", "Dee"}})
	if err != nil {
		t.Fatalf("CreateStructure: %v", err)
	}
	if len(created) != 1 || filepath.Base(created[0]) != "Dee" {
		t.Fatalf("created = %v, want only Dee", created)
	}
	if err := os.MkdirAll(filepath.Join(catalog.Root(), ".trash", "x"), 0o755); err != nil {
		t.Fatal(err)
	}
	testsupport.WriteFile(t, filepath.Join(catalog.Root(), "README"), 10)

	tree, err := catalog.Tree()
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	got := make([]string, 0)
	for _, group := range tree {
		got = append(got, group.Name+":"+strings.Join(group.Characters, ","))
	}
	want := "Heroes:Ada,Brom,Dee Villains:Cyr"
	if strings.Join(got, " ") != want {
		t.Fatalf("Tree = %q, want %q", strings.Join(got, " "), want)
	}
}

func TestCreateStructureRejectsUnsafeNames(t *testing.T) {
	_, catalog := newCatalog(t, false)

	_, err := catalog.CreateStructure(map[string][]string{"Heroes": {"../escape"}})
	if !errors.Is(err, library.ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestCharacterDirValidation(t *testing.T) {
	_, catalog := newCatalog(t, false)

	for _, ref := range []string{"Ada", "Heroes/../Villains", "Heroes/Ada/extra", "/Ada"} {
		if _, err := catalog.CharacterDir(ref); err == nil {
			t.Errorf("CharacterDir(%q) succeeded, want error", ref)
		}
	}
	if _, err := catalog.CharacterDir("Heroes/Nobody"); !errors.Is(err, pose.ErrIO) {
		t.Errorf("missing folder: expected ErrIO, got %v", err)
	}
	if _, err := catalog.PosePath(hero, "bad/name"); !errors.Is(err, library.ErrInvalidName) {
		t.Errorf("PosePath with slash: expected ErrInvalidName, got %v", err)
	}
}

func TestSaveLoadAndInfo(t *testing.T) {
	_, catalog := newCatalog(t, true)
	ctx := context.Background()

	path := savePose(t, catalog, hero, "HandFist", "thumb_01", "index_01")
	testsupport.WriteFile(t, strings.TrimSuffix(path, ".pose")+".png", 64)

	info, err := catalog.Info(ctx, path)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Name != "HandFist" || info.Character != hero || info.Type != library.PoseHand {
		t.Fatalf("unexpected info: %+v", info)
	}
	if info.Controls != 2 {
		t.Fatalf("Controls = %d, want 2", info.Controls)
	}
	if filepath.Ext(info.Image) != ".png" {
		t.Fatalf("Image = %q, want png thumbnail", info.Image)
	}
	if info.Size <= 0 || info.SizeLabel() == "" || info.CreatedLabel() == "-" {
		t.Fatalf("labels not populated: %+v", info)
	}

	snap, err := catalog.Load(hero, "HandFist")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.Len() != 2 {
		t.Fatalf("loaded %d controls, want 2", snap.Len())
	}
}

func TestLoadMissingSuggestsNames(t *testing.T) {
	_, catalog := newCatalog(t, false)
	savePose(t, catalog, hero, "HandFist01", "a")
	savePose(t, catalog, hero, "BodyIdle", "a")

	_, err := catalog.Load(hero, "handfist")
	if !errors.Is(err, library.ErrPoseNotFound) {
		t.Fatalf("expected ErrPoseNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "HandFist01") {
		t.Fatalf("error %q does not suggest HandFist01", err)
	}
	if strings.Contains(err.Error(), "BodyIdle") {
		t.Fatalf("error %q suggests an unrelated pose", err)
	}
}

func TestListSortsByName(t *testing.T) {
	_, catalog := newCatalog(t, false)
	for _, name := range []string{"walk10", "Walk2", "idle", "Walk1"} {
		savePose(t, catalog, hero, name, "a")
	}
	testsupport.WriteFile(t, filepath.Join(catalog.Root(), "Heroes", "Ada", "notes.txt"), 5)

	ctx := context.Background()
	poses, err := catalog.List(ctx, hero, library.SortOrder{Key: config.SortName})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := strings.Join(names(poses), " "); got != "idle Walk1 Walk2 walk10" {
		t.Fatalf("ascending = %q", got)
	}

	poses, err = catalog.List(ctx, hero, library.SortOrder{Key: config.SortName, Descending: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := strings.Join(names(poses), " "); got != "walk10 Walk2 Walk1 idle" {
		t.Fatalf("descending = %q", got)
	}
}

func TestListSortsByTime(t *testing.T) {
	_, catalog := newCatalog(t, false)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"Charlie", "Alpha", "Bravo"} {
		path := savePose(t, catalog, hero, name, "a")
		stamp := base.Add(time.Duration(i) * time.Hour)
		if err := os.Chtimes(path, stamp, stamp); err != nil {
			t.Fatal(err)
		}
	}

	ctx := context.Background()
	for _, key := range []string{config.SortCreated, config.SortModified} {
		poses, err := catalog.List(ctx, hero, library.SortOrder{Key: key})
		if err != nil {
			t.Fatalf("List %s: %v", key, err)
		}
		if got := strings.Join(names(poses), " "); got != "Charlie Alpha Bravo" {
			t.Fatalf("%s ascending = %q", key, got)
		}
		poses, err = catalog.List(ctx, hero, library.SortOrder{Key: key, Descending: true})
		if err != nil {
			t.Fatalf("List %s: %v", key, err)
		}
		if got := strings.Join(names(poses), " "); got != "Bravo Alpha Charlie" {
			t.Fatalf("%s descending = %q", key, got)
		}
	}
}

func TestListSkipsUnreadablePoses(t *testing.T) {
	_, catalog := newCatalog(t, false)
	savePose(t, catalog, hero, "Good", "a")
	bad := filepath.Join(catalog.Root(), "Heroes", "Ada", "Broken.pose")
	if err := os.WriteFile(bad, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	poses, err := catalog.List(context.Background(), hero, library.SortOrder{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := strings.Join(names(poses), " "); got != "Good" {
		t.Fatalf("List = %q, want only Good", got)
	}
}

func TestRenameMovesThumbnailsAndRefusesExisting(t *testing.T) {
	_, catalog := newCatalog(t, true)
	ctx := context.Background()

	path := savePose(t, catalog, hero, "Wave", "a")
	thumb := strings.TrimSuffix(path, ".pose") + ".jpg"
	testsupport.WriteFile(t, thumb, 16)
	savePose(t, catalog, hero, "Taken", "a")

	if _, err := catalog.Rename(ctx, path, "Taken"); !errors.Is(err, library.ErrPoseExists) {
		t.Fatalf("rename onto existing: expected ErrPoseExists, got %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("source touched by refused rename: %v", err)
	}

	if err := catalog.SetFavourite(ctx, path, true); err != nil {
		t.Fatalf("SetFavourite: %v", err)
	}
	newPath, err := catalog.Rename(ctx, path, "FaceWave")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("old pose still present: %v", err)
	}
	if _, err := os.Stat(strings.TrimSuffix(newPath, ".pose") + ".jpg"); err != nil {
		t.Fatalf("thumbnail not moved: %v", err)
	}

	info, err := catalog.Info(ctx, newPath)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if !info.Favourite || info.Type != library.PoseFace {
		t.Fatalf("index history lost on rename: %+v", info)
	}
}

func TestDeleteRemovesPoseThumbnailAndIndexEntry(t *testing.T) {
	_, catalog := newCatalog(t, true)
	ctx := context.Background()

	path := savePose(t, catalog, hero, "Crouch", "a")
	thumb := strings.TrimSuffix(path, ".pose") + ".png"
	testsupport.WriteFile(t, thumb, 16)

	if err := catalog.Delete(ctx, path); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	for _, p := range []string{path, thumb} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("%s still exists: %v", p, err)
		}
	}
	if _, err := catalog.Index().Get(ctx, path); !errors.Is(err, library.ErrNotIndexed) {
		t.Fatalf("index entry survived delete: %v", err)
	}
	if err := catalog.Delete(ctx, path); !errors.Is(err, library.ErrPoseNotFound) {
		t.Fatalf("second delete: expected ErrPoseNotFound, got %v", err)
	}
}

func TestCopyToAnotherCharacter(t *testing.T) {
	_, catalog := newCatalog(t, true)
	ctx := context.Background()

	path := savePose(t, catalog, hero, "Salute", "a", "b", "c")
	testsupport.WriteFile(t, strings.TrimSuffix(path, ".pose")+".png", 32)

	target, err := catalog.Copy(ctx, path, "Villains/Cyr")
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if want := filepath.Join(catalog.Root(), "Villains", "Cyr", "Salute.pose"); target != want {
		t.Fatalf("target = %q, want %q", target, want)
	}
	if _, err := os.Stat(strings.TrimSuffix(target, ".pose") + ".png"); err != nil {
		t.Fatalf("thumbnail not copied: %v", err)
	}
	entry, err := catalog.Index().Get(ctx, target)
	if err != nil {
		t.Fatalf("copied pose not indexed: %v", err)
	}
	if entry.ControlCount != 3 || entry.Character != "Villains/Cyr" {
		t.Fatalf("unexpected index entry: %+v", entry)
	}
	if _, err := catalog.Copy(ctx, path, "Villains/Cyr"); !errors.Is(err, library.ErrPoseExists) {
		t.Fatalf("second copy: expected ErrPoseExists, got %v", err)
	}
}

func TestFavouritesRequireIndex(t *testing.T) {
	_, catalog := newCatalog(t, false)
	path := savePose(t, catalog, hero, "Wave", "a")

	if err := catalog.SetFavourite(context.Background(), path, true); !errors.Is(err, library.ErrNoIndex) {
		t.Fatalf("expected ErrNoIndex, got %v", err)
	}
}

func TestFavouritesListing(t *testing.T) {
	_, catalog := newCatalog(t, true)
	ctx := context.Background()

	a := savePose(t, catalog, hero, "Zed", "a")
	b := savePose(t, catalog, "Villains/Cyr", "Alpha", "a")
	savePose(t, catalog, hero, "Plain", "a")
	for _, p := range []string{a, b} {
		if err := catalog.SetFavourite(ctx, p, true); err != nil {
			t.Fatalf("SetFavourite: %v", err)
		}
	}

	favs, err := catalog.Favourites(ctx)
	if err != nil {
		t.Fatalf("Favourites: %v", err)
	}
	if got := strings.Join(names(favs), " "); got != "Alpha Zed" {
		t.Fatalf("Favourites = %q", got)
	}

	if err := catalog.SetFavourite(ctx, a, false); err != nil {
		t.Fatalf("unset favourite: %v", err)
	}
	favs, err = catalog.Favourites(ctx)
	if err != nil {
		t.Fatalf("Favourites: %v", err)
	}
	if got := strings.Join(names(favs), " "); got != "Alpha" {
		t.Fatalf("Favourites after unset = %q", got)
	}
}

func TestReindex(t *testing.T) {
	_, catalog := newCatalog(t, true)
	ctx := context.Background()

	gone := savePose(t, catalog, hero, "Gone", "a")
	if err := os.Remove(gone); err != nil {
		t.Fatal(err)
	}
	external := filepath.Join(catalog.Root(), "Heroes", "Brom", "External.pose")
	testsupport.WritePose(t, external, samplePose(t, "a", "b"))
	broken := filepath.Join(catalog.Root(), "Heroes", "Brom", "Broken.pose")
	if err := os.WriteFile(broken, []byte(`{"arm": "bad"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	testsupport.WritePose(t, filepath.Join(catalog.Root(), "Loose.pose"), samplePose(t, "a"))

	stats, err := catalog.Reindex(ctx)
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if stats.Indexed != 1 || stats.Removed != 1 || stats.Failed != 1 {
		t.Fatalf("stats = %+v, want 1 indexed, 1 removed, 1 failed", stats)
	}
	entry, err := catalog.Index().Get(ctx, external)
	if err != nil {
		t.Fatalf("external pose not indexed: %v", err)
	}
	if entry.ControlCount != 2 || entry.Character != "Heroes/Brom" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestClassifyPose(t *testing.T) {
	tests := map[string]library.PoseType{
		"HandFist":  library.PoseHand,
		"FaceSmile": library.PoseFace,
		"handFist":  library.PoseBody,
		"Idle":      library.PoseBody,
	}
	for name, want := range tests {
		if got := library.ClassifyPose(name); got != want {
			t.Errorf("ClassifyPose(%q) = %s, want %s", name, got, want)
		}
	}
}

func TestThumbnailPathAndImageFor(t *testing.T) {
	dir := t.TempDir()
	posePath := filepath.Join(dir, "Wave.pose")

	if got := library.ThumbnailPath(posePath, "JPG"); got != filepath.Join(dir, "Wave.jpg") {
		t.Fatalf("ThumbnailPath = %q", got)
	}
	if got := library.ImageFor(posePath, []string{".png"}); got != "" {
		t.Fatalf("ImageFor without image = %q", got)
	}
	testsupport.WriteFile(t, filepath.Join(dir, "Wave.gif"), 4)
	testsupport.WriteFile(t, filepath.Join(dir, "Wave.png"), 4)
	if got := library.ImageFor(posePath, []string{".gif", ".png"}); filepath.Base(got) != "Wave.gif" {
		t.Fatalf("ImageFor = %q, want first configured extension", got)
	}
}

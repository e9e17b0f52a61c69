package library

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"posekit/internal/pose"
)

// PoseType groups poses by the body part they drive.
type PoseType string

const (
	PoseHand PoseType = "Hand"
	PoseFace PoseType = "Face"
	PoseBody PoseType = "Body"
)

// ClassifyPose derives the pose type from its name prefix.
func ClassifyPose(name string) PoseType {
	switch {
	case strings.HasPrefix(name, string(PoseHand)):
		return PoseHand
	case strings.HasPrefix(name, string(PoseFace)):
		return PoseFace
	default:
		return PoseBody
	}
}

// DisplayTimeLayout is the timestamp layout used in pose listings.
const DisplayTimeLayout = "01-02-2006 03:04 PM"

// PoseInfo describes one pose file in the catalog.
type PoseInfo struct {
	Name      string
	Character string
	Type      PoseType
	Path      string
	Image     string
	Created   time.Time
	Modified  time.Time
	Size      int64
	Controls  int
	Favourite bool
}

// SizeLabel renders the file size for display.
func (p PoseInfo) SizeLabel() string {
	return humanize.IBytes(uint64(max(p.Size, 0)))
}

// CreatedLabel renders the creation time for display.
func (p PoseInfo) CreatedLabel() string {
	return formatDisplayTime(p.Created)
}

// ModifiedLabel renders the modification time with its relative age.
func (p PoseInfo) ModifiedLabel() string {
	if p.Modified.IsZero() {
		return "-"
	}
	return formatDisplayTime(p.Modified) + " (" + humanize.Time(p.Modified) + ")"
}

func formatDisplayTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(DisplayTimeLayout)
}

// PoseName returns the pose name for a pose file path.
func PoseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), pose.FileExtension)
}

// IsPoseFile reports whether path names a pose file.
func IsPoseFile(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, pose.FileExtension) && len(base) > len(pose.FileExtension) && !strings.HasPrefix(base, ".")
}

// ImageFor returns the first existing image next to posePath, trying
// extensions in order, or "" when the pose has no thumbnail.
func ImageFor(posePath string, extensions []string) string {
	for _, candidate := range imageCandidates(posePath, extensions) {
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate
		}
	}
	return ""
}

// ThumbnailPath returns where the thumbnail for posePath is written in the
// given image format.
func ThumbnailPath(posePath, format string) string {
	format = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
	if format == "" {
		format = "png"
	}
	return strings.TrimSuffix(posePath, pose.FileExtension) + "." + format
}

func imageCandidates(posePath string, extensions []string) []string {
	stem := strings.TrimSuffix(posePath, pose.FileExtension)
	out := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		out = append(out, stem+ext)
	}
	return out
}

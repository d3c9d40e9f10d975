package pipeline

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/linuxmatters/accentprep/internal/audio"
	"github.com/linuxmatters/accentprep/internal/features"
)

// CleanedExt is the extension of every cleaned and segmented waveform
const CleanedExt = ".wav"

// Workspace groups the three output roots of a full run
type Workspace struct {
	Cleaned  string
	Segments string
	Features string
}

// NewWorkspace lays the output roots out under one directory
func NewWorkspace(root string) Workspace {
	return Workspace{
		Cleaned:  filepath.Join(root, "cleaned"),
		Segments: filepath.Join(root, "segments"),
		Features: filepath.Join(root, "features"),
	}
}

// Stem returns the file name up to its first dot: "talk.final.mp3" → "talk".
// Names starting with a dot fall back to trimming the last extension.
func Stem(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i > 0 {
		return base[:i]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// DefaultLabel derives the accent label from a directory name
func DefaultLabel(dir string) string {
	return filepath.Base(filepath.Clean(dir))
}

// ValidateLabel rejects labels that would escape or collapse the per-label directory
func ValidateLabel(label string) error {
	switch {
	case label == "", label == ".", label == "..":
		return fmt.Errorf("invalid label %q", label)
	case strings.ContainsAny(label, `/\`):
		return fmt.Errorf("label %q must not contain path separators", label)
	}
	return nil
}

// segmentInfix joins a stem and a clip index in artifact names
const segmentInfix = "_segment_"

// SegmentName is the shared base name of a clip's waveform and feature table
func SegmentName(stem string, index int) string {
	return fmt.Sprintf("%s%s%d", stem, segmentInfix, index)
}

// CleanedPath is where the cleaned waveform of an input file is written
func CleanedPath(cleanedDir, input string) string {
	return filepath.Join(cleanedDir, Stem(input)+CleanedExt)
}

// SegmentPath is where clip index of stem is written under the label directory
func SegmentPath(segmentsRoot, label, stem string, index int) string {
	return filepath.Join(segmentsRoot, label, SegmentName(stem, index)+CleanedExt)
}

// FeaturePath is where the feature table of clip index of stem is written
func FeaturePath(featuresRoot, label, stem string, index int) string {
	return filepath.Join(featuresRoot, label, SegmentName(stem, index)+features.TableExt)
}

// removeStaleSegments deletes the clips and tables of stem numbered keep or
// higher from the label directories. Other stems and hidden files are left alone.
func removeStaleSegments(segmentsRoot, featuresRoot, label, stem string, keep int) error {
	dirs := []struct{ dir, ext string }{
		{filepath.Join(segmentsRoot, label), CleanedExt},
		{filepath.Join(featuresRoot, label), features.TableExt},
	}
	prefix := stem + segmentInfix

	for _, d := range dirs {
		entries, err := os.ReadDir(d.dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return &IOError{Op: "list", Path: d.dir, Err: err}
		}
		for _, e := range entries {
			index, ok := segmentIndex(e.Name(), prefix, d.ext)
			if !ok || index < keep {
				continue
			}
			path := filepath.Join(d.dir, e.Name())
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return &IOError{Op: "remove", Path: path, Err: err}
			}
		}
	}
	return nil
}

// segmentIndex parses the clip index out of prefix<digits>ext
func segmentIndex(name, prefix, ext string) (int, bool) {
	rest, ok := strings.CutPrefix(name, prefix)
	if !ok {
		return 0, false
	}
	digits, ok := strings.CutSuffix(rest, ext)
	if !ok || digits == "" || strings.Trim(digits, "0123456789") != "" {
		return 0, false
	}
	index, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return index, true
}

// listFiles returns the regular, non-hidden files in dir accepted by keep, in name order
func listFiles(dir string, keep func(string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &IOError{Op: "list", Path: dir, Err: err}
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || !keep(name) {
			continue
		}
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, path)
	}
	return files, nil
}

// ListAudioFiles returns the decodable recordings in dir
func ListAudioFiles(dir string) ([]string, error) {
	return listFiles(dir, audio.IsAudioFile)
}

// ListCleanedFiles returns the cleaned waveforms in dir
func ListCleanedFiles(dir string) ([]string, error) {
	return listFiles(dir, func(name string) bool {
		return strings.EqualFold(filepath.Ext(name), CleanedExt)
	})
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &IOError{Op: "mkdir", Path: dir, Err: err}
	}
	return nil
}

// writeAtomic writes path through a hidden temporary file in the same directory
// and renames it into place. The temporary file is removed on every failure path,
// so a reader never sees a partial artifact.
func writeAtomic(path string, write func(io.WriteSeeker) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &IOError{Op: "create", Path: path, Err: err}
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	if err := write(tmp); err != nil {
		tmp.Close()
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return &IOError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

func writeWAVAtomic(path string, w audio.Waveform) error {
	return writeAtomic(path, func(ws io.WriteSeeker) error {
		return audio.EncodeWAV(ws, w)
	})
}

func writeTableAtomic(path string, m features.Matrix) error {
	return writeAtomic(path, func(ws io.WriteSeeker) error {
		return features.WriteTable(ws, m)
	})
}

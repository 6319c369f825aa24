package emotion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// DirFrameSource replays the JPEG files of a directory in name order,
// wrapping around at the end. It stands in for a webcam.
type DirFrameSource struct {
	dir string

	mu   sync.Mutex
	next int
}

// NewDirFrameSource creates a source over dir.
func NewDirFrameSource(dir string) *DirFrameSource {
	return &DirFrameSource{dir: dir}
}

func (d *DirFrameSource) files() ([]string, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".jpg" || ext == ".jpeg" {
			out = append(out, filepath.Join(d.dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// Check verifies that the directory holds at least one frame.
func (d *DirFrameSource) Check(_ context.Context) error {
	files, err := d.files()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no jpeg frames in %s", d.dir)
	}
	return nil
}

// Snapshot returns the next frame.
func (d *DirFrameSource) Snapshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	files, err := d.files()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no jpeg frames in %s", d.dir)
	}

	d.mu.Lock()
	path := files[d.next%len(files)]
	d.next++
	d.mu.Unlock()

	return os.ReadFile(path)
}

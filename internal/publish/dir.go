// Package publish writes rendered reports into a directory tree that is
// served as the public report site.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/marc-delays/tracker/internal/delay"
)

const indexFile = "README.md"

// ErrInvalidName is returned for a train ID or date that cannot be used as a file name
var ErrInvalidName = errors.New("invalid file name")

// checkName rejects values that would leave the publish root when joined into a path
func checkName(name string) error {
	if name == "" || name == "." || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Dir publishes into a local directory, typically a checkout of the site
type Dir struct {
	root string
	mu   sync.Mutex // guards README.md read-modify-write
}

// NewDir creates the publish root if needed
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(filepath.Join(root, "data"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create publish dir: %w", err)
	}
	return &Dir{root: root}, nil
}

// ReportName is the file name of a train's report
func ReportName(trainID string) string {
	return "train_" + trainID + ".md"
}

// IndexEntry is the README line linking a train's report
func IndexEntry(trainID string) string {
	return fmt.Sprintf("* [Train %s](%s)", trainID, ReportName(trainID))
}

// PublishReport writes the report of a train, replacing any previous one.
// created is true when the train had no report before.
func (d *Dir) PublishReport(ctx context.Context, trainID, markdown string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := checkName(trainID); err != nil {
		return false, err
	}

	path := filepath.Join(d.root, ReportName(trainID))
	_, err := os.Stat(path)
	created := errors.Is(err, fs.ErrNotExist)
	if err != nil && !created {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := writeFileAtomic(path, []byte(markdown)); err != nil {
		return false, err
	}

	if created {
		log.Printf("Publish: created report for train %s", trainID)
	}
	return created, nil
}

// AddToIndex adds a train to the README table of contents. Entries are
// deduplicated and kept sorted; other README lines stay above the entries.
func (d *Dir) AddToIndex(ctx context.Context, trainID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkName(trainID); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	path := filepath.Join(d.root, indexFile)
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read index: %w", err)
	}

	entry := IndexEntry(trainID)
	var header, entries []string
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if strings.HasPrefix(line, "* [Train ") {
			entries = append(entries, line)
		} else if line != "" || len(header) > 0 {
			header = append(header, line)
		}
	}

	if slices.Contains(entries, entry) {
		return nil
	}
	entries = append(entries, entry)
	slices.Sort(entries)

	lines := header
	if len(lines) > 0 && lines[len(lines)-1] != "" {
		lines = append(lines, "")
	}
	lines = append(lines, entries...)

	if err := writeFileAtomic(path, []byte(strings.Join(lines, "\n")+"\n")); err != nil {
		return err
	}
	log.Printf("Publish: added train %s to index", trainID)
	return nil
}

// ArchiveArrivals stores the raw arrival report of a train as data/<date>_<train>
func (d *Dir) ArchiveArrivals(ctx context.Context, serviceDate, trainID string, report delay.ArrivalReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkName(trainID); err != nil {
		return err
	}
	if _, err := time.Parse("2006-01-02", serviceDate); err != nil {
		return fmt.Errorf("%w: service date %q", ErrInvalidName, serviceDate)
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode arrivals: %w", err)
	}
	return writeFileAtomic(filepath.Join(d.root, "data", serviceDate+"_"+trainID), data)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".publish-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to rename %s: %w", path, err)
	}
	return nil
}

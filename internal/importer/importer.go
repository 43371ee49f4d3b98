// Package importer reads elevator load exports and books each scale ticket
// as a transfer from harvested to delivered grain.
package importer

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidLoads is returned for a load file that is empty or lacks the
// columns needed to build tickets.
var ErrInvalidLoads = errors.New("invalid load file")

// Load is one scale ticket, with the net units of all its rows summed.
type Load struct {
	Ticket          string
	TareTime        time.Time
	CropDescription string
	Crop            string // "" when the description maps to no known crop
	NetUnits        decimal.Decimal
}

// Parser converts an elevator CSV export into Loads.
type Parser interface {
	Parse(r io.Reader) ([]Load, error)
	Format() string
}

// Registry maps export format names to parsers, case-insensitively.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes a load file waiting in a drop directory.
type FileInfo struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds p under its format. A second parser for the same format panics.
func (r *Registry) Register(p Parser) {
	format := strings.ToLower(p.Format())
	if _, dup := r.parsers[format]; dup {
		panic("duplicate parser format: " + format)
	}
	r.parsers[format] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// Formats lists the registered formats in sorted order.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.parsers))
	for f := range r.parsers {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&ElevatorParser{})
	return r
}

// Matches reports whether name is a load file: a .csv (any case) whose name
// starts with prefix. Partial downloads such as "x.csv.crdownload" never match.
func Matches(name, prefix string) bool {
	return strings.HasPrefix(name, prefix) && strings.EqualFold(filepath.Ext(name), ".csv")
}

// Scan lists the load files in dir, oldest first so tickets are booked in
// the order they were downloaded. A missing dir yields no files.
func Scan(dir, prefix string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading drop dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || !Matches(e.Name(), prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name:    e.Name(),
			Path:    filepath.Join(dir, e.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.SliceStable(files, func(i, j int) bool {
		if !files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].ModTime.Before(files[j].ModTime)
		}
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// MarkProcessed moves the file at path into processedDir and returns its new
// path. The elevator reuses export names, so a name already taken in
// processedDir gets a " (n)" suffix.
func MarkProcessed(path, processedDir string) (string, error) {
	if err := os.MkdirAll(processedDir, 0o755); err != nil {
		return "", fmt.Errorf("creating processed dir: %w", err)
	}
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	dst := filepath.Join(processedDir, name)
	for n := 2; ; n++ {
		if _, err := os.Stat(dst); errors.Is(err, fs.ErrNotExist) {
			break
		}
		dst = filepath.Join(processedDir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
	}
	if err := os.Rename(path, dst); err != nil {
		return "", fmt.Errorf("moving %s to processed: %w", name, err)
	}
	return dst, nil
}

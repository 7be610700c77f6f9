// Package history tracks posted article URLs in a line-oriented file so
// runs never repost a URL even when platform feeds are unavailable.
package history

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/Eric-Ness/NewsAnalysisBSkyPoster/internal/ports"
)

// File is a URL history backed by one URL per line. When the file grows
// past maxEntries, the oldest cleanup entries are dropped.
type File struct {
	path       string
	maxEntries int
	cleanup    int
}

var _ ports.URLHistory = (*File)(nil)

// NewFile wires the history file location and retention limits.
func NewFile(path string, maxEntries, cleanup int) *File {
	return &File{path: path, maxEntries: maxEntries, cleanup: cleanup}
}

// Contains reports whether the URL was already posted.
func (f *File) Contains(url string) bool {
	for _, u := range f.load() {
		if u == url {
			return true
		}
	}
	return false
}

// Add appends the URL and trims the file when it exceeds the maximum.
func (f *File) Add(url string) error {
	urls := f.load()

	for _, u := range urls {
		if u == url {
			return nil
		}
	}
	urls = append(urls, url)

	if f.maxEntries > 0 && len(urls) > f.maxEntries {
		drop := f.cleanup
		if drop <= 0 || drop > len(urls) {
			drop = len(urls) - f.maxEntries
		}
		urls = urls[drop:]
	}

	return f.write(urls)
}

func (f *File) load() []string {
	file, err := os.Open(f.path)
	if err != nil {
		return nil
	}
	defer file.Close()

	var urls []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			urls = append(urls, line)
		}
	}
	return urls
}

func (f *File) write(urls []string) error {
	out, err := os.Create(f.path)
	if err != nil {
		return fmt.Errorf("write url history: %w", err)
	}

	for _, u := range urls {
		if _, err := fmt.Fprintln(out, u); err != nil {
			_ = out.Close()
			return fmt.Errorf("write url history entry: %w", err)
		}
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("close url history: %w", err)
	}
	return nil
}

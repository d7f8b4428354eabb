package importer

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/keepsake-app/keepsake/internal/storage"
)

// Result is the summary produced by a completed import run.
type Result struct {
	FilesFound      int           `json:"files_found"`
	FilesSkipped    int           `json:"files_skipped"`
	FilesFailed     int           `json:"files_failed"`
	MemoriesCreated int           `json:"memories_created"`
	Errors          []string      `json:"errors,omitempty"`
	Duration        time.Duration `json:"duration_ms"`
}

// Importer walks a Markdown directory and creates memories from the notes
// it finds.
type Importer struct {
	store storage.MemoryStore
}

// New creates an importer that stores memories in the given store.
func New(store storage.MemoryStore) *Importer {
	return &Importer{store: store}
}

// Run imports every Markdown file under dirPath. Unreadable or empty files
// are skipped, parse failures are counted, and both are reported in the
// result without aborting the run.
func (imp *Importer) Run(ctx context.Context, dirPath string) (*Result, error) {
	info, err := os.Stat(dirPath)
	if err != nil {
		return nil, fmt.Errorf("cannot access directory %q: %w", dirPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%q is not a directory", dirPath)
	}

	start := time.Now()
	result := &Result{}

	files, err := collectMarkdownFiles(dirPath)
	if err != nil {
		return nil, fmt.Errorf("walk %q: %w", dirPath, err)
	}
	result.FilesFound = len(files)

	for _, absPath := range files {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, "context cancelled")
			break
		}

		rel, _ := filepath.Rel(dirPath, absPath)

		data, err := os.ReadFile(absPath)
		if err != nil {
			log.Printf("import: skip %s: read error: %v", rel, err)
			result.FilesSkipped++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: read error: %v", rel, err))
			continue
		}

		if len(strings.TrimSpace(string(data))) == 0 {
			result.FilesSkipped++
			continue
		}

		parsed, err := ParseNote(data, rel)
		if err != nil {
			log.Printf("import: skip %s: parse error: %v", rel, err)
			result.FilesFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: parse error: %v", rel, err))
			continue
		}

		if _, err := imp.store.Add(ctx, parsed.Memory()); err != nil {
			log.Printf("import: store %s: %v", rel, err)
			result.FilesFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: store error: %v", rel, err))
			continue
		}
		result.MemoriesCreated++
	}

	result.Duration = time.Since(start)
	return result, nil
}

// collectMarkdownFiles gathers every .md file under root, skipping hidden
// directories.
func collectMarkdownFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".md") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

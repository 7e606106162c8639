// Package importer loads session export files into the local
// store and keeps an import directory in sync as files change.
//
// An export file is either {"sessions": [...], "turns": [...]},
// where each turn names its session in "sessionId", or a bare
// array of session payloads.
package importer

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/wesm/interviewlens/internal/store"
)

// Result reports what importing one file did.
type Result struct {
	Path    string             `json:"path"`
	Skipped bool               `json:"skipped"` // unchanged since last import
	Written store.ImportResult `json:"written"`
}

// Totals aggregates the results of a directory import.
type Totals struct {
	Files     int `json:"files"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
	Sessions  int `json:"sessions"`
	Turns     int `json:"turns"`
}

func (t *Totals) add(r Result) {
	t.Files++
	if r.Skipped {
		t.Unchanged++
		return
	}
	t.Sessions += r.Written.Sessions
	t.Turns += r.Written.Turns
}

// Importer writes export files into a store.
type Importer struct {
	db *store.DB
}

// New creates an importer writing to db.
func New(db *store.DB) *Importer {
	return &Importer{db: db}
}

// ComputeHash returns the hex SHA-256 of r's contents.
func ComputeHash(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// ImportFile loads one export file. A file whose content hash
// matches its last import is skipped.
func (im *Importer) ImportFile(path string) (Result, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Result{}, fmt.Errorf("resolving %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Result{}, fmt.Errorf("stat %s: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return Result{}, fmt.Errorf("reading %s: %w", path, err)
	}
	hash, err := ComputeHash(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("hashing %s: %w", path, err)
	}

	res := Result{Path: abs}
	if prev, _, ok := im.db.ImportedFile(abs); ok && prev == hash {
		res.Skipped = true
		return res, nil
	}

	batch, err := ParseExport(data)
	if err != nil {
		return Result{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	batch.Path = abs
	batch.Hash = hash
	batch.Mtime = info.ModTime().UnixNano()

	res.Written, err = im.db.Import(batch)
	if err != nil {
		return Result{}, fmt.Errorf("importing %s: %w", path, err)
	}
	return res, nil
}

// ParseExport splits an export file into raw session and turn
// payloads.
func ParseExport(data []byte) (store.Batch, error) {
	if !gjson.ValidBytes(data) {
		return store.Batch{}, fmt.Errorf("invalid JSON")
	}
	root := gjson.ParseBytes(data)

	var b store.Batch
	switch {
	case root.IsArray():
		b.Sessions = rawItems(root)
	case root.IsObject():
		b.Sessions = rawItems(root.Get("sessions"))
		b.Turns = rawItems(root.Get("turns"))
	default:
		return store.Batch{}, fmt.Errorf(
			"expected an object or array, got %s", root.Type,
		)
	}
	return b, nil
}

func rawItems(arr gjson.Result) []json.RawMessage {
	var out []json.RawMessage
	arr.ForEach(func(_, v gjson.Result) bool {
		out = append(out, json.RawMessage(v.Raw))
		return true
	})
	return out
}

// IsExportFile reports whether path looks like an export file.
func IsExportFile(path string) bool {
	base := filepath.Base(path)
	return strings.EqualFold(filepath.Ext(base), ".json") &&
		!strings.HasPrefix(base, ".")
}

// ImportDir imports every export file under dir. Files that fail
// are logged and counted; they do not stop the walk.
func (im *Importer) ImportDir(dir string) (Totals, error) {
	if _, err := os.Stat(dir); err != nil {
		return Totals{}, fmt.Errorf("import dir: %w", err)
	}
	var paths []string
	err := filepath.WalkDir(dir,
		func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // skip inaccessible entries
			}
			if !d.IsDir() && IsExportFile(path) {
				paths = append(paths, path)
			}
			return nil
		})
	if err != nil {
		return Totals{}, fmt.Errorf("walking %s: %w", dir, err)
	}
	return im.ImportPaths(paths), nil
}

// ImportPaths imports the given files, ignoring paths that are
// not export files or no longer exist. It is the watcher's
// change callback.
func (im *Importer) ImportPaths(paths []string) Totals {
	var t Totals
	for _, p := range paths {
		if !IsExportFile(p) {
			continue
		}
		if info, err := os.Stat(p); err != nil || info.IsDir() {
			continue
		}
		r, err := im.ImportFile(p)
		if err != nil {
			log.Printf("import: %v", err)
			t.Failed++
			continue
		}
		t.add(r)
	}
	if t.Sessions > 0 || t.Turns > 0 {
		log.Printf("import: %d session(s), %d turn(s) from %d file(s)",
			t.Sessions, t.Turns, t.Files-t.Unchanged)
	}
	return t
}

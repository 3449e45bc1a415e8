// Package sidecar persists page annotation sets as JSON companion files
// colocated with their source PDF. The sidecar for /notes/paper.pdf is
// /notes/paper.pdf.annotations.json; its absence is the valid
// "no annotations" state.
package sidecar

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"pdfink/internal/annotation"
	"pdfink/internal/storage"
)

// Suffix is appended to the source document path to name its sidecar.
const Suffix = ".annotations.json"

// FormatVersion tags the sidecar schema. Version 2 stores stroke
// coordinates as normalized page fractions; version 1 files (absolute
// surface pixels) are still readable but their coordinates pass through
// unscaled.
const FormatVersion = "2"

// Document is the persisted unit: format version, source document path,
// and the full page annotation set.
type Document struct {
	Version         string                         `json:"version"`
	PDFPath         string                         `json:"pdfPath"`
	PageAnnotations map[string][]annotation.Stroke `json:"pageAnnotations"`
}

// Store reads and writes sidecar files through a storage.FS.
type Store struct {
	fs  storage.FS
	log *slog.Logger
}

// NewStore creates a store. A nil logger disables logging.
func NewStore(fs storage.FS, log *slog.Logger) *Store {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Store{fs: fs, log: log}
}

// PathFor returns the sidecar path for a document path.
func PathFor(docPath string) string {
	return docPath + Suffix
}

// Save writes the full annotation set for the document, replacing any
// previous sidecar. An empty set deletes the sidecar instead of writing
// an empty file. Strokes without points are rejected before anything
// touches the disk.
func (st *Store) Save(docPath string, set annotation.PageSet) error {
	path := PathFor(docPath)

	if set.Empty() {
		if err := st.fs.Delete(path); err != nil {
			return fmt.Errorf("sidecar: %w", err)
		}
		st.log.Debug("sidecar removed", "path", path)
		return nil
	}

	if err := set.Validate(); err != nil {
		return fmt.Errorf("sidecar: %w", err)
	}

	doc := Document{
		Version:         FormatVersion,
		PDFPath:         docPath,
		PageAnnotations: make(map[string][]annotation.Stroke, len(set)),
	}
	for _, page := range set.Pages() {
		doc.PageAnnotations[strconv.Itoa(page)] = set.Page(page)
	}

	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return fmt.Errorf("sidecar: marshal: %w", err)
	}
	if err := st.fs.WriteText(path, string(data)); err != nil {
		return fmt.Errorf("sidecar: %w", err)
	}
	st.log.Debug("sidecar saved", "path", path, "pages", len(set), "strokes", set.TotalStrokes())
	return nil
}

// Load returns the annotation set previously saved for the document.
// A missing sidecar yields an empty set. A sidecar that fails to parse is
// logged and treated identically to a missing one: annotations that cannot
// be read are annotations that do not exist.
func (st *Store) Load(docPath string) annotation.PageSet {
	path := PathFor(docPath)
	set := annotation.NewPageSet()

	if !st.fs.Exists(path) {
		return set
	}

	text, err := st.fs.ReadText(path)
	if err != nil {
		st.log.Warn("sidecar unreadable, treating as empty", "path", path, "error", err)
		return set
	}

	var doc Document
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		st.log.Warn("sidecar parse failed, treating as empty", "path", path, "error", err)
		return set
	}

	for key, strokes := range doc.PageAnnotations {
		page, err := strconv.Atoi(key)
		if err != nil || page < 1 {
			st.log.Warn("sidecar has invalid page key, skipping", "path", path, "key", key)
			continue
		}
		valid := strokes[:0:0]
		for _, s := range strokes {
			if s.Validate() == nil {
				valid = append(valid, s)
			}
		}
		set.SetPage(page, valid)
	}
	return set
}

// ListSidecars returns every sidecar file the store can see.
func (st *Store) ListSidecars() ([]string, error) {
	paths, err := st.fs.List(".json")
	if err != nil {
		return nil, fmt.Errorf("sidecar: %w", err)
	}
	var out []string
	for _, p := range paths {
		if len(p) > len(Suffix) && p[len(p)-len(Suffix):] == Suffix {
			out = append(out, p)
		}
	}
	return out, nil
}

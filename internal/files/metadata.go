// Package files implements the file manager: enumeration of outgoing
// paths, insertion-ordered input/output tracking, and rolling
// speed/ETA estimation.
package files

import (
	"path/filepath"
	"strings"
)

// MetaData describes one file or directory entry on the wire.
type MetaData struct {
	IsDir         bool   `json:"is_dir"`
	Path          string `json:"path"`
	BasePath      string `json:"base_path,omitempty"`
	Name          string `json:"name"`
	Extension     string `json:"extension"`
	Size          uint64 `json:"size"`
	ProgressBytes uint64 `json:"progress_bytes"`
}

// NewMetaData builds a MetaData for path, normalising it to forward-slash
// form and deriving name/extension from its final component.
func NewMetaData(path string, size uint64, basePath string, isDir bool) MetaData {
	p := normalizePath(path)
	name := filepath.Base(p)
	if name == "." || name == "/" {
		name = ""
	}
	return MetaData{
		IsDir:     isDir,
		Path:      p,
		BasePath:  normalizePath(basePath),
		Name:      name,
		Extension: strings.TrimPrefix(filepath.Ext(name), "."),
		Size:      size,
	}
}

func normalizePath(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// DestinationPath returns the effective path the receiver should write to:
// if BasePath is set, BasePath's last path component joined with Path
// stripped of the BasePath prefix; otherwise the bare Name.
func (m MetaData) DestinationPath() string {
	if m.BasePath == "" {
		return m.Name
	}
	parent := filepath.Base(m.BasePath)
	rest := strings.TrimPrefix(m.Path, m.BasePath)
	rest = strings.TrimPrefix(rest, "/")
	return filepath.ToSlash(filepath.Join(parent, rest))
}

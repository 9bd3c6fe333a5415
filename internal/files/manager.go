package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
)

var nextOutputFileID atomic.Uint32

func newOutputFileID() uint32 {
	return nextOutputFileID.Add(1) - 1
}

// ProgressFile is implemented by both OutputFile and InputFile so the
// aggregate speed/ETA/completion helpers work over either.
type ProgressFile interface {
	Progress() float64
	Finished() bool
	Speed() float64
	Meta() MetaData
}

// OutputFile is an item enqueued for sending.
type OutputFile struct {
	ID           uint32
	MetaData     MetaData
	ProgressVal  float64
	FinishedVal  bool
	SpeedCounter SpeedCounter
}

func (f *OutputFile) Progress() float64 { return f.ProgressVal }
func (f *OutputFile) Finished() bool    { return f.FinishedVal }
func (f *OutputFile) Meta() MetaData    { return f.MetaData }
func (f *OutputFile) Speed() float64 {
	v, ok := f.SpeedCounter.Speed()
	if !ok {
		return 0
	}
	return v
}

// InputFile is an item being received; its ID is assigned by the sender.
type InputFile struct {
	ID           uint32
	MetaData     MetaData
	ProgressVal  float64
	SpeedCounter SpeedCounter
}

func (f *InputFile) Progress() float64 { return f.ProgressVal }
func (f *InputFile) Finished() bool    { return f.ProgressVal >= 1.0 }
func (f *InputFile) Meta() MetaData    { return f.MetaData }
func (f *InputFile) Speed() float64 {
	v, ok := f.SpeedCounter.Speed()
	if !ok {
		return 0
	}
	return v
}

// orderedMap is a minimal insertion-ordered map keyed by uint32, the Go
// analogue of the original's IndexMap.
type orderedMap[V any] struct {
	keys   []uint32
	values map[uint32]V
}

func newOrderedMap[V any]() orderedMap[V] {
	return orderedMap[V]{values: make(map[uint32]V)}
}

func (m *orderedMap[V]) Insert(k uint32, v V) {
	if _, exists := m.values[k]; !exists {
		m.keys = append(m.keys, k)
	}
	m.values[k] = v
}

func (m *orderedMap[V]) Get(k uint32) (V, bool) {
	v, ok := m.values[k]
	return v, ok
}

func (m *orderedMap[V]) Each(fn func(k uint32, v V)) {
	for _, k := range m.keys {
		fn(k, m.values[k])
	}
}

func (m *orderedMap[V]) Len() int { return len(m.keys) }

// Manager tracks the outgoing work queue and both input/output maps.
type Manager struct {
	IgnoreEmpty bool

	outputQueue []*OutputFile
	outputMap   orderedMap[*OutputFile]
	inputMap    orderedMap[*InputFile]
}

// NewManager constructs an empty Manager.
func NewManager(ignoreEmpty bool) *Manager {
	return &Manager{
		IgnoreEmpty: ignoreEmpty,
		outputMap:   newOrderedMap[*OutputFile](),
		inputMap:    newOrderedMap[*InputFile](),
	}
}

// AddOutputFiles enumerates paths (files or directories) and appends the
// resulting OutputFile entries to the queue and output map. Directories are
// walked recursively; empty directories are additionally enqueued as
// is_dir entries unless IgnoreEmpty is set.
func (m *Manager) AddOutputFiles(paths []string) error {
	var newFiles []*OutputFile

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("files: stat %s: %w", path, err)
		}

		if !info.IsDir() {
			of, err := newOutputFile(path, "", false)
			if err != nil {
				return err
			}
			newFiles = append(newFiles, of)
			continue
		}

		var emptyDirs []string
		var regularFiles []string

		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if !m.IgnoreEmpty && dirIsEmpty(p) {
					emptyDirs = append(emptyDirs, p)
				}
				return nil
			}
			regularFiles = append(regularFiles, p)
			return nil
		})
		if err != nil {
			return fmt.Errorf("files: walk %s: %w", path, err)
		}

		for _, p := range emptyDirs {
			of, err := newOutputFile(p, path, true)
			if err != nil {
				return err
			}
			newFiles = append(newFiles, of)
		}
		for _, p := range regularFiles {
			of, err := newOutputFile(p, path, false)
			if err != nil {
				return err
			}
			newFiles = append(newFiles, of)
		}
	}

	m.outputQueue = append(m.outputQueue, newFiles...)
	for _, f := range newFiles {
		m.outputMap.Insert(f.ID, f)
	}
	return nil
}

func dirIsEmpty(path string) bool {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false
	}
	return len(entries) == 0
}

func newOutputFile(path, basePath string, isDir bool) (*OutputFile, error) {
	var size uint64
	if !isDir {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("files: stat %s: %w", path, err)
		}
		size = uint64(info.Size())
	}

	var base string
	if basePath != "" {
		base = basePath
	}

	return &OutputFile{
		ID:       newOutputFileID(),
		MetaData: NewMetaData(path, size, base, isDir),
	}, nil
}

// NextOutputFile pops the next queued OutputFile, or nil if the queue is
// empty.
func (m *Manager) NextOutputFile() *OutputFile {
	if len(m.outputQueue) == 0 {
		return nil
	}
	f := m.outputQueue[0]
	m.outputQueue = m.outputQueue[1:]
	return f
}

// SetOutputFinished marks an output file complete.
func (m *Manager) SetOutputFinished(id uint32) {
	if f, ok := m.outputMap.Get(id); ok {
		f.FinishedVal = true
	}
}

// InsertInputFile registers a newly announced InputFile.
func (m *Manager) InsertInputFile(f *InputFile) {
	m.inputMap.Insert(f.ID, f)
}

// OutputFile looks up a tracked output file by id.
func (m *Manager) OutputFile(id uint32) (*OutputFile, bool) { return m.outputMap.Get(id) }

// InputFile looks up a tracked input file by id.
func (m *Manager) InputFile(id uint32) (*InputFile, bool) { return m.inputMap.Get(id) }

// AddOutputReport folds a speed sample into the named output file's
// rolling counter.
func (m *Manager) AddOutputReport(r SpeedReport) {
	if f, ok := m.outputMap.Get(r.FileID); ok {
		f.SpeedCounter.Add(r)
	}
}

// AddInputReport folds a speed sample into the named input file's rolling
// counter.
func (m *Manager) AddInputReport(r SpeedReport) {
	if f, ok := m.inputMap.Get(r.FileID); ok {
		f.SpeedCounter.Add(r)
	}
}

// EstimateSeconds returns the aggregate ETA, in seconds, across all
// unfinished non-directory files tracked in files.
func EstimateSeconds[P ProgressFile](allFiles []P) float64 {
	var totalBits float64
	for _, f := range allFiles {
		meta := f.Meta()
		if !meta.IsDir && !f.Finished() {
			totalBits += float64(meta.Size) * 8 * (1 - f.Progress())
		}
	}
	if totalBits <= 0 {
		return 0
	}
	speed := AverageSpeed(allFiles)
	if speed <= 0 {
		return 0
	}
	return (totalBits / 1_000_000) / speed
}

// AverageSpeed averages the non-zero per-file speeds across allFiles.
func AverageSpeed[P ProgressFile](allFiles []P) float64 {
	var sum float64
	var count int
	for _, f := range allFiles {
		if s := f.Speed(); s > 0 {
			sum += s
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// Completion reports whether every tracked file is finished. An empty set
// is defined as incomplete, matching the original's edge case.
func Completion[P ProgressFile](allFiles []P) bool {
	if len(allFiles) == 0 {
		return false
	}
	for _, f := range allFiles {
		if !f.Finished() {
			return false
		}
	}
	return true
}

// OutputFiles returns a snapshot slice of all tracked output files, in
// insertion order.
func (m *Manager) OutputFiles() []*OutputFile {
	out := make([]*OutputFile, 0, m.outputMap.Len())
	m.outputMap.Each(func(_ uint32, v *OutputFile) { out = append(out, v) })
	return out
}

// InputFiles returns a snapshot slice of all tracked input files, in
// insertion order.
func (m *Manager) InputFiles() []*InputFile {
	out := make([]*InputFile, 0, m.inputMap.Len())
	m.inputMap.Each(func(_ uint32, v *InputFile) { out = append(out, v) })
	return out
}

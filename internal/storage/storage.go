package storage

// Storage is the output root a dataset run writes into.
type Storage struct {
	BaseDir string
}

// New creates a new Storage instance with the provided base directory.
func New(baseDir string) *Storage {
	return &Storage{BaseDir: baseDir}
}

// PathFor returns the output path mirroring rel under the base directory with
// its extension replaced by ext.
func (s *Storage) PathFor(rel, ext string) (string, error) {
	return MirrorPath(s.BaseDir, rel, ext)
}

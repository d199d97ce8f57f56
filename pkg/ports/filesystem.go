package ports

// FileSystem abstracts where artifacts are written.
type FileSystem interface {
	// ReadFile reads the entire contents of a file.
	ReadFile(path string) ([]byte, error)

	// WriteFile writes data to a file, creating it and its parents if necessary.
	// The write is all-or-nothing from the caller's perspective.
	WriteFile(path string, data []byte) error

	// MkdirAll creates a directory and all parent directories.
	MkdirAll(path string) error

	// Remove deletes a file or empty directory.
	Remove(path string) error

	// Join joins path elements using the separator of this filesystem.
	Join(elem ...string) string
}

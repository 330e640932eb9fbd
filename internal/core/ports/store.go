package ports

// JournalStore reads and rewrites the journal text file.
type JournalStore interface {
	// Read returns the current journal content. A missing file is an
	// empty journal, not an error.
	Read() (string, error)

	// Write replaces the journal content, keeping a backup of the old
	// content when it actually changes.
	Write(content string) error
}

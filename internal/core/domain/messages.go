package domain

import "fmt"

// Messages is a lazily allocated list of diagnostic strings attached to
// a posting or a day. The nil zero value is ready to use.
type Messages []string

// Add appends a formatted message.
func (m *Messages) Add(format string, args ...any) {
	*m = append(*m, fmt.Sprintf(format, args...))
}

// Empty reports whether no messages were recorded.
func (m Messages) Empty() bool { return len(m) == 0 }

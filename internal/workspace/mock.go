package workspace

import "sort"

// Mock is an in-memory Workspace implementation for testing.
type Mock struct {
	// Files holds content by path
	Files map[string]string
	// Err can be set to make methods return an error
	Err error
}

// NewMock creates a new Mock workspace for testing.
func NewMock() *Mock {
	return &Mock{Files: make(map[string]string)}
}

// Verify that *Mock implements Workspace at compile time
var _ Workspace = (*Mock)(nil)

// AddFile puts a file into the mock working tree.
func (m *Mock) AddFile(path, content string) {
	m.Files[path] = content
}

func (m *Mock) ReadFile(path string) (string, bool, error) {
	if m.Err != nil {
		return "", false, m.Err
	}
	content, ok := m.Files[path]
	return content, ok, nil
}

func (m *Mock) WriteFile(path, content string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Files[path] = content
	return nil
}

func (m *Mock) RemoveFile(path string) error {
	if m.Err != nil {
		return m.Err
	}
	delete(m.Files, path)
	return nil
}

func (m *Mock) ListFiles() ([]string, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	files := make([]string, 0, len(m.Files))
	for path := range m.Files {
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}

package api

import (
	"github.com/sxyu/watplot/internal/service"
)

// FileInfo contains information about a file for the API response.
type FileInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Format string `json:"format"`
}

// FileRegistry holds view services for all configured files.
type FileRegistry struct {
	services    map[string]*service.ViewService
	defaultFile string
	fileOrder   []string
}

// NewFileRegistry creates a new file registry.
func NewFileRegistry(defaultFile string) *FileRegistry {
	return &FileRegistry{
		services:    make(map[string]*service.ViewService),
		defaultFile: defaultFile,
	}
}

// Register adds a view service for a file. The first registered file is the
// default unless one was named.
func (r *FileRegistry) Register(fileID string, svc *service.ViewService) {
	if _, ok := r.services[fileID]; !ok {
		r.fileOrder = append(r.fileOrder, fileID)
	}
	r.services[fileID] = svc
	if r.defaultFile == "" {
		r.defaultFile = fileID
	}
}

// Get returns the view service for a file, or nil if not found.
func (r *FileRegistry) Get(fileID string) *service.ViewService {
	return r.services[fileID]
}

// DefaultFileID returns the default file ID.
func (r *FileRegistry) DefaultFileID() string {
	return r.defaultFile
}

// Files returns file info for all registered files.
func (r *FileRegistry) Files() []FileInfo {
	infos := make([]FileInfo, 0, len(r.fileOrder))
	for _, id := range r.fileOrder {
		svc := r.services[id]
		infos = append(infos, FileInfo{
			ID:     id,
			Name:   svc.Meta().Name(),
			Format: svc.FormatName(),
		})
	}
	return infos
}

// Close closes every registered file.
func (r *FileRegistry) Close() {
	for _, svc := range r.services {
		svc.Close()
	}
}

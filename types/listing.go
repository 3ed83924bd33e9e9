package types

// FolderEntry is a sub-directory in a listing.
type FolderEntry struct {
	Name    string `json:"name"`
	RelPath string `json:"rel_path"`
}

// FileEntry is a regular file in a listing.
type FileEntry struct {
	Name    string  `json:"name"`
	Size    int64   `json:"size"`
	SizeMB  float64 `json:"size_mb"`
	RelPath string  `json:"rel_path"`
}

// Listing is the content of one directory under the shared root.
type Listing struct {
	CurrentPath string        `json:"current_path"`
	ParentPath  *string       `json:"parent_path"` // nil at the root
	Folders     []FolderEntry `json:"folders"`
	Files       []FileEntry   `json:"files"`
	ConfigID    string        `json:"config_id"`
}

package share

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/moyoez/localshare-go/types"
)

// ErrNotDirectory is returned when the listed path exists but is a file.
var ErrNotDirectory = errors.New("not a directory")

// Lister enumerates one directory under the shared root. absDir has already
// been checked to lie within the root; relDir is the client-facing path used
// to build entry links.
type Lister interface {
	List(absDir, relDir string) (types.Listing, error)
}

// DirLister lists directories through an afero filesystem.
type DirLister struct {
	fs afero.Fs
}

// NewDirLister returns a lister over fs, or over the OS filesystem when fs is nil.
func NewDirLister(fs afero.Fs) *DirLister {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &DirLister{fs: fs}
}

// List returns folders and files of absDir sorted by name. A missing
// directory yields an error satisfying errors.Is(err, os.ErrNotExist).
func (l *DirLister) List(absDir, relDir string) (types.Listing, error) {
	info, err := l.fs.Stat(absDir)
	if err != nil {
		return types.Listing{}, err
	}
	if !info.IsDir() {
		return types.Listing{}, fmt.Errorf("%s: %w", relDir, ErrNotDirectory)
	}
	entries, err := afero.ReadDir(l.fs, absDir)
	if err != nil {
		return types.Listing{}, fmt.Errorf("error reading directory: %w", err)
	}

	listing := types.Listing{
		CurrentPath: relDir,
		Folders:     []types.FolderEntry{},
		Files:       []types.FileEntry{},
	}
	for _, entry := range entries {
		rel := path.Join(relDir, entry.Name())
		mode := entry.Mode()
		switch {
		case entry.IsDir():
			listing.Folders = append(listing.Folders, types.FolderEntry{Name: entry.Name(), RelPath: rel})
		case mode.IsRegular():
			listing.Files = append(listing.Files, types.FileEntry{
				Name:    entry.Name(),
				Size:    entry.Size(),
				SizeMB:  SizeMB(entry.Size()),
				RelPath: rel,
			})
		case mode&os.ModeSymlink != 0:
			// links are listed by their target kind; dangling ones are skipped
			target, err := l.fs.Stat(filepath.Join(absDir, entry.Name()))
			if err != nil {
				continue
			}
			if target.IsDir() {
				listing.Folders = append(listing.Folders, types.FolderEntry{Name: entry.Name(), RelPath: rel})
			} else if target.Mode().IsRegular() {
				listing.Files = append(listing.Files, types.FileEntry{
					Name:    entry.Name(),
					Size:    target.Size(),
					SizeMB:  SizeMB(target.Size()),
					RelPath: rel,
				})
			}
		}
	}
	sort.Slice(listing.Folders, func(i, j int) bool { return listing.Folders[i].Name < listing.Folders[j].Name })
	sort.Slice(listing.Files, func(i, j int) bool { return listing.Files[i].Name < listing.Files[j].Name })
	return listing, nil
}

// SizeMB converts bytes to mebibytes rounded to two decimals.
func SizeMB(size int64) float64 {
	return math.Round(float64(size)/(1024*1024)*100) / 100
}

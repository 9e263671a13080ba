// Package fsutil provides file system utility functions.
package fsutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FindFilesByExtension recursively searches the given root path for all files ending
// with the specified extension. It returns a slice of their full paths. A root
// that does not exist yields no files.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == rootPath && os.IsNotExist(err) {
				return fs.SkipAll
			}
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), extension) {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

// ListDirs returns the immediate subdirectories of rootPath sorted by name.
// Symbolic links are followed; a link whose target is a directory counts as a
// directory, a dangling link is ignored.
func ListDirs(rootPath string) ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(rootPath)
	if err != nil {
		return nil, err
	}

	dirs := make([]fs.DirEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e)
			continue
		}
		if e.Type()&fs.ModeSymlink == 0 {
			continue
		}
		info, err := os.Stat(filepath.Join(rootPath, e.Name()))
		if err != nil {
			continue
		}
		if info.IsDir() {
			dirs = append(dirs, fs.FileInfoToDirEntry(info))
		}
	}
	return dirs, nil
}

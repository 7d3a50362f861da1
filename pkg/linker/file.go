package linker

import "os"

// File couples a name with the raw contents of an input. Parent is set for
// archive members and points at the archive file they were extracted from.
type File struct {
	Name     string
	Contents []byte
	Parent   *File
	Area     *MemoryArea
}

func NewFile(filename string) (*File, error) {
	area, err := OpenFileArea(filename)
	if err != nil {
		return nil, err
	}
	return &File{Name: filename, Contents: area.Bytes(), Area: area}, nil
}

func OpenLibrary(filepath string) *File {
	if _, err := os.Stat(filepath); err != nil {
		return nil
	}
	file, err := NewFile(filepath)
	if err != nil {
		return nil
	}
	return file
}

// FindLibrary resolves a -l namespec against the configured search paths.
// Unless the builder is in static mode, a shared library is preferred over
// an archive in each directory, matching the GNU search order.
func FindLibrary(cfg *Config, name string, static bool) (*File, error) {
	for _, dir := range cfg.LibraryPaths {
		if cfg.Sysroot != "" && len(dir) > 0 && dir[0] == '/' {
			dir = cfg.Sysroot + dir
		}
		if !static {
			if f := OpenLibrary(dir + "/lib" + name + ".so"); f != nil {
				return f, nil
			}
		}
		if f := OpenLibrary(dir + "/lib" + name + ".a"); f != nil {
			return f, nil
		}
	}
	return nil, errorf(ErrInvalidInput, "library not found: -l%s", name)
}

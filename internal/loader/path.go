package loader

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/edsrzf/mmap-go"

	"github.com/daimatz/gojvm/internal/classfile"
	"github.com/daimatz/gojvm/internal/jvmerrors"
)

// PathLoader loads .class files from a classpath directory, one file per
// entry. The underlying file is memory-mapped rather than read fully into a
// buffer, grounded on saferwall-pe's file.go mmap.Map usage (the pack's only
// real mmap dependency) in place of the teacher's io.ReadFull approach.
type PathLoader struct {
	Root string
}

// NewPathLoader returns a loader rooted at the given classpath directory.
func NewPathLoader(root string) *PathLoader {
	return &PathLoader{Root: root}
}

// Load returns the parsed class file for name, or (nil, nil) if no such
// file exists under Root.
func (l *PathLoader) Load(name string) (*classfile.ClassFile, error) {
	path := filepath.Join(l.Root, filepath.FromSlash(name)+".class")

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, jvmerrors.Wrap(jvmerrors.InternalError, err, "opening class file %s", path)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, jvmerrors.Wrap(jvmerrors.InternalError, err, "stat %s", path)
	}
	if stat.Size() == 0 {
		return classfile.Parse(bytes.NewReader(nil))
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, jvmerrors.Wrap(jvmerrors.InternalError, err, "mmap %s", path)
	}
	defer data.Unmap()

	cf, err := classfile.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, jvmerrors.Wrap(jvmerrors.ClassFormatError, err, "parsing %s", path)
	}
	return cf, nil
}

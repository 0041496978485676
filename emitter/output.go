package emitter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/multierr"
)

// Output commits a complete artifact set.
type Output interface {
	WriteArtifacts(arts Artifacts) error
}

// DirOutput writes artifacts under a root directory. Every artifact is
// written to a temporary file first and renamed into place only when all
// of them were written.
type DirOutput struct {
	Root string
	Perm os.FileMode
}

func NewDirOutput(root string) *DirOutput {
	return &DirOutput{Root: root, Perm: 0o644}
}

func (o *DirOutput) WriteArtifacts(arts Artifacts) (err error) {
	type staged struct {
		tmp, dst string
	}
	var files []staged
	defer func() {
		if err == nil {
			return
		}
		for _, f := range files {
			if rmErr := os.Remove(f.tmp); rmErr != nil && !os.IsNotExist(rmErr) {
				err = multierr.Append(err, rmErr)
			}
		}
	}()

	for _, a := range arts {
		dst := filepath.Join(o.Root, filepath.FromSlash(a.Name))
		tmp, err := o.stage(dst, a.Content)
		if err != nil {
			return &GenerationError{Artifact: a.Name, Err: err}
		}
		files = append(files, staged{tmp, dst})
	}

	for i, f := range files {
		if err := os.Rename(f.tmp, f.dst); err != nil {
			err = &GenerationError{Artifact: arts[i].Name, Err: err}
			// уже переименованные артефакты не считаются валидными
			for _, done := range files[:i] {
				err = multierr.Append(err, os.Remove(done.dst))
			}
			files = files[i:]
			return err
		}
	}
	return nil
}

func (o *DirOutput) stage(dst string, content []byte) (string, error) {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create: %w", err)
	}
	_, err = f.Write(content)
	err = multierr.Combine(err, f.Chmod(o.Perm), f.Close())
	if err != nil {
		return "", multierr.Append(fmt.Errorf("write: %w", err), os.Remove(f.Name()))
	}
	return f.Name(), nil
}

// MemOutput keeps artifacts in memory.
type MemOutput struct {
	Files map[string][]byte
}

func NewMemOutput() *MemOutput {
	return &MemOutput{Files: make(map[string][]byte)}
}

func (o *MemOutput) WriteArtifacts(arts Artifacts) error {
	for _, a := range arts {
		o.Files[a.Name] = a.Content
	}
	return nil
}

func (o *MemOutput) Names() []string {
	names := make([]string, 0, len(o.Files))
	for name := range o.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

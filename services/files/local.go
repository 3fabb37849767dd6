package filesvc

import (
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/kalasi/darasa/core"
)

// Storage saves uploaded files and hands back a path the API can serve.
type Storage interface {
	Store(file *multipart.FileHeader) (string, error)
}

type localStorage struct {
	dir string
}

var _ Storage = (*localStorage)(nil)

// NewLocalStorage stores uploads on the local disk under conf.UploadDir,
// each under a fresh uuid-prefixed name to avoid collisions.
func NewLocalStorage(conf *core.Config) (*localStorage, error) {
	dir := conf.UploadDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(conf.WorkDir, dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating upload dir")
	}
	return &localStorage{dir: dir}, nil
}

func (s *localStorage) Store(file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", errors.Wrap(err, "opening upload")
	}
	defer src.Close()

	name := uuid.New().String() + "_" + filepath.Base(file.Filename)
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", errors.Wrap(err, "creating file")
	}
	defer dst.Close()

	if _, err = io.Copy(dst, src); err != nil {
		return "", errors.Wrap(err, "writing file")
	}
	return filepath.Join("uploads", name), nil
}

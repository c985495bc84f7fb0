package model

import (
	"encoding/gob"
	"io"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/regselect/pkg/errors"
)

// ObjectStore はパスをキーにオブジェクトを永続化するストア
type ObjectStore interface {
	// Save は obj を path に保存する
	Save(path string, obj interface{}) error
	// Load は path から into（ポインタ）に読み込む
	Load(path string, into interface{}) error
}

// FileStore は gob エンコードでローカルファイルに保存する ObjectStore
//
// 使用例:
//
//	store := model.NewFileStore()
//	err := store.Save("artifacts/model.pkl", "Random Forest")
type FileStore struct {
	// DirPerm は親ディレクトリ作成時のパーミッション
	DirPerm os.FileMode
}

// NewFileStore は新しい FileStore を作成する
func NewFileStore() *FileStore {
	return &FileStore{DirPerm: 0o755}
}

// Save は親ディレクトリを作成した上で、一時ファイルに書いてから rename する。
// 途中で失敗しても既存の成果物は壊れない。
func (s *FileStore) Save(path string, obj interface{}) error {
	if path == "" {
		return errors.NewValidationError("path", "must not be empty", path)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, s.DirPerm); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	defer os.Remove(tmp.Name())

	if err := SaveModelToWriter(obj, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "failed to move artifact into %s", path)
	}
	return nil
}

// Load は path のファイルを gob デコードする
func (s *FileStore) Load(path string, into interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "failed to open file")
	}
	defer file.Close()

	return LoadModelFromReader(into, file)
}

// SaveModelToWriter はオブジェクトをio.Writerに保存する
func SaveModelToWriter(obj interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(obj); err != nil {
		return errors.Wrap(err, "failed to encode object")
	}
	return nil
}

// LoadModelFromReader はio.Readerからオブジェクトを読み込む
func LoadModelFromReader(into interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(into); err != nil {
		return errors.Wrap(err, "failed to decode object")
	}
	return nil
}

// Package file stores each message as a raw .sbd file in a directory tree per modem:
//
//	<root>/<IMEI>/<YYYY>/<MM>/<YYMMDD>_<HHMMSS>_<id>.sbd
//
// The time is the MO time of session, or the store's clock for MT messages.
package file

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sbd/iridium"
	"sbd/storage"
	"sbd/util/clock"

	"github.com/kr/fs"
	"github.com/pkg/errors"
)

// Ext is the extension of stored messages. Files being written have another one.
const Ext = ".sbd"

type Store struct {
	root string
	clk  clock.C
}

// New creates root if needed.
func New(root string, clk clock.C) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.Wrap(err, "file store")
	}
	return &Store{root: root, clk: clk}, nil
}

func (s *Store) Root() string {
	return s.root
}

// Path is where the message recorded by rec is stored.
func (s *Store) Path(rec *storage.Record) string {
	t := rec.Received.UTC()
	return filepath.Join(s.root,
		rec.IMEI,
		t.Format("2006"),
		t.Format("01"),
		t.Format("060102_150405")+"_"+rec.ID+Ext)
}

// Store writes the message to a temporary file next to its final path and renames it, so
// readers and watchers never see a partial file.
func (s *Store) Store(_ context.Context, id string, m *iridium.Message) error {
	raw, err := m.MarshalBinary()
	if err != nil {
		return err
	}
	path := s.Path(storage.NewRecord(id, m, s.clk))
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "storing %v", id)
	}
	tmp, err := ioutil.TempFile(dir, "."+id+".tmp")
	if err != nil {
		return errors.Wrapf(err, "storing %v", id)
	}
	_, err = tmp.Write(raw)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "storing %v", id)
	}
	return nil
}

// Discover lists the stored messages under root, sorted by path.
func Discover(root string) ([]string, error) {
	var paths []string
	walker := fs.Walk(root)
	for walker.Step() {
		if err := walker.Err(); err != nil {
			return nil, err
		}
		if isMessage(walker.Path(), walker.Stat()) {
			paths = append(paths, walker.Path())
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func isMessage(path string, info os.FileInfo) bool {
	return info != nil && info.Mode().IsRegular() &&
		strings.HasSuffix(path, Ext) && !strings.HasPrefix(filepath.Base(path), ".")
}

// Read decodes the message stored at path.
func Read(path string) (*iridium.Message, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := iridium.Unmarshal(raw)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return m, nil
}

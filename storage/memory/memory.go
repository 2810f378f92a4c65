// Package memory keeps stored messages in a go-memdb database, for the monitor and tests.
package memory

import (
	"context"

	"sbd/iridium"
	"sbd/storage"
	"sbd/util/clock"

	"github.com/hashicorp/go-memdb"
	"github.com/pkg/errors"
)

const tableMessage = "message"

var (
	ErrNotFound = errors.New("message not found")

	schema = &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableMessage: {
				Name: tableMessage,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					"imei": {
						Name:    "imei",
						Indexer: &memdb.StringFieldIndex{Field: "IMEI"},
					},
				},
			},
		},
	}
)

type Store struct {
	memDb *memdb.MemDB
	clk   clock.C
}

func New(clk clock.C) *Store {
	memDb, err := memdb.NewMemDB(schema)
	if err != nil {
		panic(err)
	}
	return &Store{memDb: memDb, clk: clk}
}

func (s *Store) Store(_ context.Context, id string, m *iridium.Message) error {
	txn := s.memDb.Txn(true)
	if existing, err := txn.First(tableMessage, "id", id); err != nil || existing != nil {
		txn.Abort()
		if err == nil {
			err = errors.Errorf("message %v already stored", id)
		}
		return err
	}
	if err := txn.Insert(tableMessage, storage.NewRecord(id, m, s.clk)); err != nil {
		txn.Abort()
		return errors.Wrapf(err, "storing %v", id)
	}
	txn.Commit()
	return nil
}

func (s *Store) Get(id string) (*storage.Record, error) {
	txn := s.memDb.Txn(false)
	defer txn.Abort()
	raw, err := txn.First(tableMessage, "id", id)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	return raw.(*storage.Record), nil
}

// FindByIMEI returns the records of one modem, ordered by session id.
func (s *Store) FindByIMEI(imei string) ([]*storage.Record, error) {
	return s.list("imei", imei)
}

// All returns every record, ordered by session id.
func (s *Store) All() ([]*storage.Record, error) {
	return s.list("id")
}

func (s *Store) list(index string, args ...interface{}) ([]*storage.Record, error) {
	txn := s.memDb.Txn(false)
	defer txn.Abort()
	results, err := txn.Get(tableMessage, index, args...)
	if err != nil {
		return nil, err
	}
	var records []*storage.Record
	for raw := results.Next(); raw != nil; raw = results.Next() {
		records = append(records, raw.(*storage.Record))
	}
	return records, nil
}

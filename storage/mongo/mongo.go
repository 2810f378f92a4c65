// Package mongo stores one document per message in a MongoDB collection.
package mongo

import (
	"context"
	"time"

	"sbd/iridium"
	"sbd/storage"
	"sbd/util/clock"

	"github.com/globalsign/mgo"
	"github.com/globalsign/mgo/bson"
	"github.com/pkg/errors"
)

const collection = "messages"

var ErrNotFound = errors.New("message not found")

type document struct {
	ID        string    `bson:"_id"`
	IMEI      string    `bson:"imei"`
	Direction string    `bson:"direction"`
	Received  time.Time `bson:"received"`
	Raw       []byte    `bson:"raw"`
}

type Store struct {
	sess *mgo.Session
	db   string
	clk  clock.C
}

// Dial connects to url and makes sure the imei index exists.
func Dial(url, db string, clk clock.C) (*Store, error) {
	info, err := mgo.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "mongo url")
	}
	if info.Timeout == 0 {
		info.Timeout = 5 * time.Second
	}
	sess, err := mgo.DialWithInfo(info)
	if err != nil {
		return nil, err
	}
	s := New(sess, db, clk)
	c := sess.DB(db).C(collection)
	if err := c.EnsureIndex(mgo.Index{Key: []string{"imei", "received"}}); err != nil {
		sess.Close()
		return nil, errors.Wrap(err, "mongo index")
	}
	return s, nil
}

func New(sess *mgo.Session, db string, clk clock.C) *Store {
	return &Store{sess: sess, db: db, clk: clk}
}

func (s *Store) Close() {
	s.sess.Close()
}

func (s *Store) Store(_ context.Context, id string, m *iridium.Message) error {
	raw, err := m.MarshalBinary()
	if err != nil {
		return err
	}
	rec := storage.NewRecord(id, m, s.clk)

	sess := s.sess.Copy()
	defer sess.Close()
	err = sess.DB(s.db).C(collection).Insert(document{
		ID:        id,
		IMEI:      rec.IMEI,
		Direction: rec.Direction.String(),
		Received:  rec.Received,
		Raw:       raw,
	})
	return errors.Wrapf(err, "mongo insert %v", id)
}

func (s *Store) Get(id string) (*storage.Record, error) {
	sess := s.sess.Copy()
	defer sess.Close()

	var doc document
	if err := sess.DB(s.db).C(collection).FindId(id).One(&doc); err != nil {
		if err == mgo.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "mongo find %v", id)
	}
	return doc.record()
}

// FindByIMEI returns the records of one modem, oldest first.
func (s *Store) FindByIMEI(imei string) ([]*storage.Record, error) {
	sess := s.sess.Copy()
	defer sess.Close()

	var docs []document
	if err := sess.DB(s.db).C(collection).Find(bson.M{"imei": imei}).Sort("received").All(&docs); err != nil {
		return nil, errors.Wrapf(err, "mongo find imei %v", imei)
	}
	records := make([]*storage.Record, 0, len(docs))
	for _, doc := range docs {
		rec, err := doc.record()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (d document) record() (*storage.Record, error) {
	m, err := iridium.Unmarshal(d.Raw)
	if err != nil {
		return nil, errors.Wrapf(err, "message %v", d.ID)
	}
	return &storage.Record{
		ID:        d.ID,
		IMEI:      d.IMEI,
		Direction: m.Direction(),
		Received:  d.Received.UTC(),
		Message:   m,
	}, nil
}

// Package redis stores messages in Redis hashes and announces them on a channel.
//
// Each message is kept under sbd:message:<id> with the fields imei, direction, raw and
// received; its id is appended to the list sbd:imei:<imei> and published on sbd:messages.
package redis

import (
	"context"
	"strconv"
	"time"

	"sbd/iridium"
	"sbd/log"
	"sbd/storage"
	"sbd/util/clock"

	redigo "github.com/gomodule/redigo/redis"
	"github.com/pkg/errors"
)

const (
	keyPrefixMessage = "sbd:message:"
	keyPrefixIMEI    = "sbd:imei:"
	// Channel receives the id of every stored message.
	Channel = "sbd:messages"
)

var ErrNotFound = errors.New("message not found")

func messageKey(id string) string { return keyPrefixMessage + id }

// IMEIKey is the list holding the ids of one modem's messages, oldest first.
func IMEIKey(imei string) string { return keyPrefixIMEI + imei }

type Store struct {
	pool *redigo.Pool
	clk  clock.C
}

func New(pool *redigo.Pool, clk clock.C) *Store {
	return &Store{pool: pool, clk: clk}
}

// NewPool dials addr on demand, keeping a few idle connections.
func NewPool(addr string) *redigo.Pool {
	return &redigo.Pool{
		MaxIdle:     4,
		IdleTimeout: 4 * time.Minute,
		Dial: func() (redigo.Conn, error) {
			return redigo.Dial("tcp", addr,
				redigo.DialConnectTimeout(5*time.Second),
				redigo.DialReadTimeout(5*time.Second),
				redigo.DialWriteTimeout(5*time.Second))
		},
	}
}

func (s *Store) Store(_ context.Context, id string, m *iridium.Message) error {
	raw, err := m.MarshalBinary()
	if err != nil {
		return err
	}
	rec := storage.NewRecord(id, m, s.clk)

	conn := s.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("HMSET", messageKey(id),
		"imei", rec.IMEI,
		"direction", rec.Direction.String(),
		"raw", raw,
		"received", rec.Received.Unix()); err != nil {
		return errors.Wrapf(err, "redis HMSET %v", id)
	}
	if _, err := conn.Do("RPUSH", IMEIKey(rec.IMEI), id); err != nil {
		return errors.Wrapf(err, "redis RPUSH %v", id)
	}
	if _, err := conn.Do("PUBLISH", Channel, id); err != nil {
		// the message is stored, only the announcement is lost
		log.Warn("redis PUBLISH %v: %v", id, err)
	}
	return nil
}

func (s *Store) Get(id string) (*storage.Record, error) {
	conn := s.pool.Get()
	defer conn.Close()

	values, err := redigo.StringMap(conn.Do("HGETALL", messageKey(id)))
	if err != nil {
		return nil, errors.Wrapf(err, "redis HGETALL %v", id)
	}
	if len(values) == 0 {
		return nil, ErrNotFound
	}
	m, err := iridium.Unmarshal([]byte(values["raw"]))
	if err != nil {
		return nil, errors.Wrapf(err, "message %v", id)
	}
	received, err := strconv.ParseInt(values["received"], 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "message %v received", id)
	}
	return &storage.Record{
		ID:        id,
		IMEI:      values["imei"],
		Direction: m.Direction(),
		Received:  time.Unix(received, 0).UTC(),
		Message:   m,
	}, nil
}

// IDs returns the ids stored for imei, oldest first.
func (s *Store) IDs(imei string) ([]string, error) {
	conn := s.pool.Get()
	defer conn.Close()
	return redigo.Strings(conn.Do("LRANGE", IMEIKey(imei), 0, -1))
}

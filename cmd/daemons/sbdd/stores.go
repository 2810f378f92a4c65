package main

import (
	"sbd/config"
	"sbd/log"
	"sbd/storage"
	"sbd/storage/file"
	"sbd/storage/memory"
	"sbd/storage/mongo"
	"sbd/storage/redis"
	"sbd/util/clock"

	"github.com/pkg/errors"
)

type stores struct {
	store  storage.Store
	memory *memory.Store
	closer []func()
}

func (s *stores) close() {
	for _, c := range s.closer {
		c()
	}
}

// openStores builds the configured stores behind one deduplicating Store.
func openStores(cfg config.Storage) (*stores, error) {
	var (
		clk  = clock.Real{}
		s    = &stores{}
		list []storage.Store
	)
	if cfg.Root != "" {
		fs, err := file.New(cfg.Root, clk)
		if err != nil {
			return nil, err
		}
		log.Info("Storing messages under %v", fs.Root())
		list = append(list, fs)
	}
	if cfg.Memory {
		s.memory = memory.New(clk)
		list = append(list, s.memory)
	}
	if cfg.RedisAddr != "" {
		pool := redis.NewPool(cfg.RedisAddr)
		s.closer = append(s.closer, func() { pool.Close() })
		log.Info("Storing messages in redis at %v", cfg.RedisAddr)
		list = append(list, redis.New(pool, clk))
	}
	if cfg.MongoURL != "" {
		ms, err := mongo.Dial(cfg.MongoURL, cfg.MongoDatabase, clk)
		if err != nil {
			s.close()
			return nil, err
		}
		s.closer = append(s.closer, ms.Close)
		log.Info("Storing messages in mongo database %v", cfg.MongoDatabase)
		list = append(list, ms)
	}

	switch len(list) {
	case 0:
		return nil, errors.New("no storage configured")
	case 1:
		s.store = list[0]
	default:
		s.store = storage.Multi(list...)
	}
	if cfg.DedupSize > 0 {
		d, err := storage.Dedup(s.store, cfg.DedupSize)
		if err != nil {
			s.close()
			return nil, err
		}
		s.store = d
	}
	return s, nil
}

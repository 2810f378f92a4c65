// Package mockstore provides a testify mock of storage.Store.
package mockstore

import (
	"context"

	"sbd/iridium"

	"github.com/stretchr/testify/mock"
)

type Store struct {
	mock.Mock
}

func (s *Store) Store(ctx context.Context, id string, m *iridium.Message) error {
	args := s.Called(ctx, id, m)
	return args.Error(0)
}

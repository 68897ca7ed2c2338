package telegram

import (
	"context"

	tdsession "github.com/gotd/td/session"
	"go.etcd.io/bbolt"
)

var sessionBucket = []byte("sessions")

// boltSessionStorage keeps one MTProto session blob per account inside a
// shared bbolt file, keyed by account id. Implements tdsession.Storage for a
// single account; the manager hands each client its own instance.
type boltSessionStorage struct {
	db        *bbolt.DB
	accountID string
}

var _ tdsession.Storage = (*boltSessionStorage)(nil)

func (s *boltSessionStorage) LoadSession(_ context.Context) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		if b == nil {
			return tdsession.ErrNotFound
		}
		v := b.Get([]byte(s.accountID))
		if v == nil {
			return tdsession.ErrNotFound
		}
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *boltSessionStorage) StoreSession(_ context.Context, data []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(sessionBucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(s.accountID), data)
	})
}

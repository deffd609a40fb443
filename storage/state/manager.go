package state

import (
	"errors"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/Bunniapp/tokenomics-sub000/storage"
)

// Manager exposes the typed key-value surface the reward engines consume,
// RLP-encoding records into the underlying Database. Absent keys report
// found == false rather than an error.
type Manager struct {
	db storage.Database
}

// NewManager constructs a state manager over the given database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// KVGet decodes the stored record for key into out. It returns false with
// no error when the key has never been written.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	raw, err := m.db.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVPut encodes value and stores it under key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.db.Put(key, raw)
}

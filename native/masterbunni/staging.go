package masterbunni

import "github.com/ethereum/go-ethereum/rlp"

// stagedState buffers a single call's writes in memory so a hard failure
// anywhere in the call leaves the backing state untouched. Reads observe
// staged writes before falling through to the backend. Values are staged in
// the same RLP encoding the state manager persists, so a flushed record is
// byte-identical to one written directly.
type stagedState struct {
	backend State
	order   []string
	pending map[string][]byte
}

func newStagedState(backend State) *stagedState {
	return &stagedState{backend: backend, pending: make(map[string][]byte)}
}

func (s *stagedState) KVGet(key []byte, out interface{}) (bool, error) {
	if raw, ok := s.pending[string(key)]; ok {
		if err := rlp.DecodeBytes(raw, out); err != nil {
			return false, err
		}
		return true, nil
	}
	return s.backend.KVGet(key, out)
}

func (s *stagedState) KVPut(key []byte, value interface{}) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	k := string(key)
	if _, ok := s.pending[k]; !ok {
		s.order = append(s.order, k)
	}
	s.pending[k] = raw
	return nil
}

// flush writes the staged records through to the backend in first-write
// order. The records are already encoded, so they pass through as raw values.
func (s *stagedState) flush() error {
	for _, k := range s.order {
		if err := s.backend.KVPut([]byte(k), rlp.RawValue(s.pending[k])); err != nil {
			return err
		}
	}
	s.order = nil
	s.pending = make(map[string][]byte)
	return nil
}

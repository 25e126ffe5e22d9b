package authorizer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// nonceCheckpoint is the on-disk shape of the nonce table.
type nonceCheckpoint struct {
	Nonces    map[string]uint64 `json:"nonces"`
	UpdatedAt string            `json:"updated_at"`
}

// NonceCheckpointStore persists the nonce table to disk so replay
// protection survives a restart.
type NonceCheckpointStore struct {
	path    string
	enabled bool
}

// NewNonceCheckpointStore creates a store. A disabled store loads nothing
// and saves nothing.
func NewNonceCheckpointStore(path string, enabled bool) *NonceCheckpointStore {
	return &NonceCheckpointStore{path: path, enabled: enabled}
}

// Load reads the persisted nonce table, if any.
func (c *NonceCheckpointStore) Load() (map[common.Address]uint64, bool, error) {
	if !c.enabled {
		return nil, false, nil
	}

	stat, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("stat nonce checkpoint: %w", err)
	}
	if stat.IsDir() {
		return nil, false, fmt.Errorf("nonce checkpoint path is a directory")
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, false, fmt.Errorf("read nonce checkpoint: %w", err)
	}

	var cp nonceCheckpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, false, fmt.Errorf("parse nonce checkpoint: %w", err)
	}

	nonces := make(map[common.Address]uint64, len(cp.Nonces))
	for addr, nonce := range cp.Nonces {
		nonces[common.HexToAddress(addr)] = nonce
	}
	return nonces, true, nil
}

// Save writes the nonce table atomically (write-then-rename).
func (c *NonceCheckpointStore) Save(nonces map[common.Address]uint64) error {
	if !c.enabled {
		return nil
	}

	dir := filepath.Dir(c.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	cp := nonceCheckpoint{
		Nonces:    make(map[string]uint64, len(nonces)),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	for addr, nonce := range nonces {
		cp.Nonces[addr.Hex()] = nonce
	}

	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal nonce checkpoint: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write nonce checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename nonce checkpoint: %w", err)
	}

	return nil
}

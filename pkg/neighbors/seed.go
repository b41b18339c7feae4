package neighbors

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
)

// LoadSeed reads a JSON list of neighbors from the given file and stores
// every entry, overwriting records that share an address. It returns the
// number of neighbors loaded.
func LoadSeed(fs afero.Fs, path string, storage Storage) (int, error) {
	payload, err := afero.ReadFile(fs, path)
	if err != nil {
		return 0, fmt.Errorf("failed to read seed file: %w", err)
	}
	var seeded []Neighbor
	if err := json.Unmarshal(payload, &seeded); err != nil {
		return 0, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	for _, neighbor := range seeded {
		if _, err := neighbor.Peer(); err != nil {
			return 0, err
		}
		if err := storage.Store(neighbor); err != nil {
			return 0, err
		}
	}
	return len(seeded), nil
}

package throttle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type stateFile struct {
	UpdatedAt   time.Time `json:"updated_at"`
	Instruments Snapshot  `json:"instruments"`
}

// LoadState reads a throttle checkpoint. Returns an empty snapshot if the file doesn't exist.
func LoadState(filePath string) (Snapshot, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, nil
		}
		return nil, err
	}
	var sf stateFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("decode throttle state %s: %w", filePath, err)
	}
	if sf.Instruments == nil {
		sf.Instruments = Snapshot{}
	}
	return sf.Instruments, nil
}

// SaveState writes the snapshot to filePath via a temp file and rename.
func SaveState(filePath string, snap Snapshot) error {
	data, err := json.MarshalIndent(stateFile{UpdatedAt: time.Now(), Instruments: snap}, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, filePath)
}

// Checkpoint saves the throttler's current state.
func (t *Throttler) Checkpoint(filePath string) error {
	return SaveState(filePath, t.Snapshot())
}

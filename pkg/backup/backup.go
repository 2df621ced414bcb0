package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/santaclaude2025/flowsync/pkg/logger"
)

const (
	fileExt = ".json.zst"
	// timeLayout sorts lexically in time order
	timeLayout = "20060102T150405.000000000Z"
)

// ErrNotFound is returned when no backup matches
var ErrNotFound = errors.New("backup not found")

// Backup describes one saved remote definition
type Backup struct {
	FlowID string
	Time   time.Time
	Path   string
	// Size is the compressed size on disk
	Size int64
}

// Manager stores zstd compressed snapshots of remote definitions, one
// directory per flow.
type Manager struct {
	dir string
}

// NewManager returns a manager rooted at dir
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// Dir returns the backup root
func (m *Manager) Dir() string {
	return m.dir
}

func (m *Manager) flowDir(flowID string) (string, error) {
	if flowID == "" || flowID == "." || flowID == ".." || strings.ContainsAny(flowID, `/\`) {
		return "", fmt.Errorf("invalid flow id for backup: %q", flowID)
	}
	return filepath.Join(m.dir, flowID), nil
}

// Save writes doc as a new backup of flowID taken at now
func (m *Manager) Save(flowID string, doc []byte, now time.Time) (*Backup, error) {
	dir, err := m.flowDir(flowID)
	if err != nil {
		return nil, err
	}
	// Backups hold the unredacted definition
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	defer encoder.Close()
	compressed := encoder.EncodeAll(doc, make([]byte, 0, len(doc)/2))

	ts := now.UTC()
	path := filepath.Join(dir, ts.Format(timeLayout)+fileExt)
	if err := os.WriteFile(path, compressed, 0600); err != nil {
		return nil, fmt.Errorf("failed to write backup: %w", err)
	}

	logger.Info("Backed up flow %s to %s (%d -> %d bytes)", flowID, path, len(doc), len(compressed))
	return &Backup{FlowID: flowID, Time: ts, Path: path, Size: int64(len(compressed))}, nil
}

// List returns backups of flowID, newest first. An empty flowID lists every flow.
func (m *Manager) List(flowID string) ([]Backup, error) {
	var flows []string
	if flowID != "" {
		if _, err := m.flowDir(flowID); err != nil {
			return nil, err
		}
		flows = []string{flowID}
	} else {
		entries, err := os.ReadDir(m.dir)
		if os.IsNotExist(err) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read backup directory: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				flows = append(flows, e.Name())
			}
		}
	}

	var out []Backup
	for _, flow := range flows {
		entries, err := os.ReadDir(filepath.Join(m.dir, flow))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read backups of %s: %w", flow, err)
		}

		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !strings.HasSuffix(name, fileExt) {
				continue
			}
			ts, err := time.Parse(timeLayout, strings.TrimSuffix(name, fileExt))
			if err != nil {
				logger.Debug("Skipping unrecognised backup file %s", name)
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			out = append(out, Backup{
				FlowID: flow,
				Time:   ts,
				Path:   filepath.Join(m.dir, flow, name),
				Size:   info.Size(),
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Time.After(out[j].Time)
	})
	return out, nil
}

// Latest returns the newest backup of flowID
func (m *Manager) Latest(flowID string) (*Backup, error) {
	backups, err := m.List(flowID)
	if err != nil {
		return nil, err
	}
	if len(backups) == 0 {
		return nil, fmt.Errorf("%w for flow %s", ErrNotFound, flowID)
	}
	return &backups[0], nil
}

// Read returns the decompressed definition stored in a backup file
func Read(path string) ([]byte, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read backup: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer decoder.Close()

	doc, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress backup %s: %w", path, err)
	}
	return doc, nil
}

// Prune keeps the newest keep backups of flowID and removes the rest.
// It returns the number of files removed.
func (m *Manager) Prune(flowID string, keep int) (int, error) {
	if keep < 1 {
		keep = 1
	}
	backups, err := m.List(flowID)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, b := range backups[min(keep, len(backups)):] {
		if err := os.Remove(b.Path); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("failed to remove backup %s: %w", b.Path, err)
		}
		removed++
	}
	return removed, nil
}

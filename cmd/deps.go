package cmd

import (
	"fmt"

	"github.com/santaclaude2025/flowsync/pkg/backup"
	"github.com/santaclaude2025/flowsync/pkg/classifier"
	"github.com/santaclaude2025/flowsync/pkg/config"
	"github.com/santaclaude2025/flowsync/pkg/extractor"
	"github.com/santaclaude2025/flowsync/pkg/flowapi"
	"github.com/santaclaude2025/flowsync/pkg/flowsync"
	"github.com/santaclaude2025/flowsync/pkg/history"
	"github.com/santaclaude2025/flowsync/pkg/logger"
	"github.com/santaclaude2025/flowsync/pkg/mappingstore"
)

func openStore(cfg *config.Config) (*mappingstore.Store, error) {
	path, err := cfg.StoreFile()
	if err != nil {
		return nil, err
	}
	return mappingstore.New(path)
}

// loadClassifier returns the builtin classifier widened by ~/.flowsync/preserve.yaml
func loadClassifier() (*classifier.Classifier, error) {
	path, err := config.GetRulesPath()
	if err != nil {
		return nil, err
	}
	c, err := classifier.NewFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load preserve rules from %s: %w", path, err)
	}
	return c, nil
}

func openHistory() (*history.DB, error) {
	path, err := config.GetHistoryPath()
	if err != nil {
		return nil, err
	}
	return history.Open(path)
}

func backupManager(cfg *config.Config) (*backup.Manager, error) {
	dir, err := cfg.BackupDirectory()
	if err != nil {
		return nil, err
	}
	return backup.NewManager(dir), nil
}

// newSyncer wires a Syncer for a configured remote. The returned close
// function releases the history database.
func newSyncer(cfg *config.Config) (*flowsync.Syncer, func(), error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	c, err := loadClassifier()
	if err != nil {
		return nil, nil, err
	}

	backups, err := backupManager(cfg)
	if err != nil {
		return nil, nil, err
	}

	db, err := openHistory()
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := db.Close(); err != nil {
			logger.Warn("Failed to close history database: %v", err)
		}
	}

	syncer := flowsync.New(flowapi.NewClient(cfg), store, flowsync.Options{
		Extractor:  extractor.New(c),
		Backups:    backups,
		History:    db,
		MaxRetries: cfg.Retries(),
	})
	return syncer, closeFn, nil
}

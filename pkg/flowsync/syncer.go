package flowsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/santaclaude2025/flowsync/pkg/backup"
	"github.com/santaclaude2025/flowsync/pkg/config"
	"github.com/santaclaude2025/flowsync/pkg/extractor"
	"github.com/santaclaude2025/flowsync/pkg/history"
	fshttp "github.com/santaclaude2025/flowsync/pkg/http"
	"github.com/santaclaude2025/flowsync/pkg/logger"
	"github.com/santaclaude2025/flowsync/pkg/mappingstore"
	"github.com/santaclaude2025/flowsync/pkg/rehydrator"
	"github.com/santaclaude2025/flowsync/pkg/utils"
)

// ErrUnknownFlow is returned by Push when no flow id was given and the
// file has no pull on record
var ErrUnknownFlow = errors.New("cannot tell which flow this file belongs to; pass --flow")

// DefaultKeepBackups is how many backups per flow survive pruning
const DefaultKeepBackups = 20

// Remote is the workflow definition API
type Remote interface {
	Fetch(ctx context.Context, flowID string) ([]byte, error)
	Update(ctx context.Context, flowID string, doc []byte) error
}

// Options configures a Syncer. A nil Backups or History disables that
// feature; MaxRetries of zero means a single attempt.
type Options struct {
	Extractor   *extractor.Extractor
	Backups     *backup.Manager
	History     *history.DB
	MaxRetries  int
	BaseDelay   time.Duration
	KeepBackups int
	Now         func() time.Time
}

// Syncer drives pull and push between a remote flow and a local file
type Syncer struct {
	remote      Remote
	store       *mappingstore.Store
	extractor   *extractor.Extractor
	backups     *backup.Manager
	history     *history.DB
	maxRetries  int
	baseDelay   time.Duration
	keepBackups int
	now         func() time.Time
}

// New creates a Syncer
func New(remote Remote, store *mappingstore.Store, opts Options) *Syncer {
	s := &Syncer{
		remote:      remote,
		store:       store,
		extractor:   opts.Extractor,
		backups:     opts.Backups,
		history:     opts.History,
		maxRetries:  opts.MaxRetries,
		baseDelay:   opts.BaseDelay,
		keepBackups: opts.KeepBackups,
		now:         opts.Now,
	}
	if s.extractor == nil {
		s.extractor = extractor.New(nil)
	}
	if s.maxRetries < 0 {
		s.maxRetries = 0
	}
	if s.baseDelay <= 0 {
		s.baseDelay = config.BaseRetryDelay
	}
	if s.keepBackups <= 0 {
		s.keepBackups = DefaultKeepBackups
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// PullResult summarises a pull
type PullResult struct {
	FlowID string
	Path   string
	Stats  extractor.Stats
}

// Pull fetches flowID, redacts it and writes the redacted document to path.
// The mapping is persisted before the file is written; if that fails the
// file is left untouched.
func (s *Syncer) Pull(ctx context.Context, flowID, path string) (*PullResult, error) {
	target, err := mappingstore.CanonicalPath(path)
	if err != nil {
		return nil, err
	}

	var doc []byte
	err = s.retry(ctx, "fetch flow "+flowID, func() error {
		var fetchErr error
		doc, fetchErr = s.remote.Fetch(ctx, flowID)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	res, err := s.extractor.Extract(doc)
	if err != nil {
		return nil, fmt.Errorf("flow %s: %w", flowID, err)
	}

	if err := s.store.Put(target, res.Mapping); err != nil {
		return nil, fmt.Errorf("failed to persist secret mapping, %s not written: %w", target, err)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", target, err)
	}
	if err := utils.WriteFileAtomic(target, res.Redacted, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", target, err)
	}

	logger.Info("Pulled flow %s into %s (%d placeholders: %d emails, %d urls, %d guids, %d strings)",
		flowID, target, res.Stats.Total(), res.Stats.Emails, res.Stats.URLs, res.Stats.GUIDs, res.Stats.Strings)

	s.record(ctx, history.Record{
		Direction:    history.Pull,
		FlowID:       flowID,
		Path:         target,
		Placeholders: res.Stats.Total(),
	})

	return &PullResult{FlowID: flowID, Path: target, Stats: res.Stats}, nil
}

// PushOptions control a push
type PushOptions struct {
	// FlowID overrides the flow recorded by the last pull of the file
	FlowID string
	// DryRun rehydrates without touching the remote
	DryRun bool
}

// PushResult summarises a push. Document holds secret values and must only
// be shown to the operator on explicit request.
type PushResult struct {
	FlowID      string
	Path        string
	Document    []byte
	Substituted int
	Unused      []string
	Unknown     []string
	BackupPath  string
	DryRun      bool
}

// Push rehydrates the file at path and uploads it to its flow
func (s *Syncer) Push(ctx context.Context, path string, opts PushOptions) (*PushResult, error) {
	source, err := mappingstore.CanonicalPath(path)
	if err != nil {
		return nil, err
	}

	flowID, err := s.resolveFlow(ctx, source, opts.FlowID)
	if err != nil {
		return nil, err
	}

	edited, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", source, err)
	}

	mapping, err := s.store.Get(source)
	if err != nil {
		return nil, err
	}

	rehydrated, err := rehydrator.Rehydrate(edited, mapping)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	if len(rehydrated.Unknown) > 0 {
		logger.Warn("%s contains %d placeholders with no recorded value; they are uploaded as literal text: %v",
			source, len(rehydrated.Unknown), rehydrated.Unknown)
	}
	if len(rehydrated.Unused) > 0 {
		logger.Info("%d placeholders of %s no longer appear in the document", len(rehydrated.Unused), source)
	}

	result := &PushResult{
		FlowID:      flowID,
		Path:        source,
		Document:    rehydrated.Document,
		Substituted: rehydrated.Substituted,
		Unused:      rehydrated.Unused,
		Unknown:     rehydrated.Unknown,
		DryRun:      opts.DryRun,
	}

	if opts.DryRun {
		logger.Info("Dry run: rehydrated %s for flow %s (%d substitutions), nothing uploaded", source, flowID, result.Substituted)
		s.record(ctx, history.Record{
			Direction:    history.Push,
			FlowID:       flowID,
			Path:         source,
			Placeholders: result.Substituted,
			DryRun:       true,
		})
		return result, nil
	}

	backupPath, err := s.backupRemote(ctx, flowID)
	if err != nil {
		return nil, err
	}
	result.BackupPath = backupPath

	err = s.retry(ctx, "update flow "+flowID, func() error {
		return s.remote.Update(ctx, flowID, rehydrated.Document)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Pushed %s to flow %s (%d substitutions)", source, flowID, result.Substituted)
	s.record(ctx, history.Record{
		Direction:    history.Push,
		FlowID:       flowID,
		Path:         source,
		Placeholders: result.Substituted,
		BackupPath:   backupPath,
	})

	return result, nil
}

// Restore uploads a backup file to flowID. The current remote definition
// is backed up first, so a restore can itself be undone.
func (s *Syncer) Restore(ctx context.Context, flowID, backupPath string) (string, error) {
	doc, err := backup.Read(backupPath)
	if err != nil {
		return "", err
	}

	current, err := s.backupRemote(ctx, flowID)
	if err != nil {
		return "", err
	}

	err = s.retry(ctx, "restore flow "+flowID, func() error {
		return s.remote.Update(ctx, flowID, doc)
	})
	if err != nil {
		return "", err
	}

	logger.Info("Restored flow %s from %s", flowID, backupPath)
	s.record(ctx, history.Record{
		Direction:  history.Restore,
		FlowID:     flowID,
		Path:       backupPath,
		BackupPath: current,
	})
	return current, nil
}

func (s *Syncer) resolveFlow(ctx context.Context, source, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if s.history == nil {
		return "", ErrUnknownFlow
	}

	flowID, ok, err := s.history.LastFlowForPath(ctx, source)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w (%s was never pulled)", ErrUnknownFlow, source)
	}
	return flowID, nil
}

// backupRemote snapshots the current remote definition. It returns ""
// when backups are disabled.
func (s *Syncer) backupRemote(ctx context.Context, flowID string) (string, error) {
	if s.backups == nil {
		return "", nil
	}

	var current []byte
	err := s.retry(ctx, "fetch flow "+flowID+" for backup", func() error {
		var fetchErr error
		current, fetchErr = s.remote.Fetch(ctx, flowID)
		return fetchErr
	})
	if err != nil {
		return "", fmt.Errorf("failed to back up flow %s before upload: %w", flowID, err)
	}

	b, err := s.backups.Save(flowID, current, s.now())
	if err != nil {
		return "", fmt.Errorf("failed to back up flow %s before upload: %w", flowID, err)
	}

	if removed, err := s.backups.Prune(flowID, s.keepBackups); err != nil {
		logger.Warn("Failed to prune backups of flow %s: %v", flowID, err)
	} else if removed > 0 {
		logger.Debug("Pruned %d old backups of flow %s", removed, flowID)
	}

	return b.Path, nil
}

// retry runs fn with exponential backoff. Unauthorized and other
// non-retryable failures stop immediately.
func (s *Syncer) retry(ctx context.Context, what string, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.baseDelay
	b.MaxInterval = config.MaxRetryDelay

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.maxRetries)), ctx)

	operation := func() error {
		err := fn()
		if err != nil && !fshttp.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("%s failed, retrying in %s: %v", what, wait.Round(time.Millisecond), err)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

// record writes a history row. History is informational, so failures are logged only.
func (s *Syncer) record(ctx context.Context, r history.Record) {
	if s.history == nil {
		return
	}
	r.Time = s.now()
	if _, err := s.history.Insert(ctx, r); err != nil {
		logger.Warn("Failed to record sync history: %v", err)
	}
}

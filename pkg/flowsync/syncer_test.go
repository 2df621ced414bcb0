package flowsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santaclaude2025/flowsync/pkg/backup"
	"github.com/santaclaude2025/flowsync/pkg/history"
	fshttp "github.com/santaclaude2025/flowsync/pkg/http"
	"github.com/santaclaude2025/flowsync/pkg/mappingstore"
	"github.com/santaclaude2025/flowsync/pkg/placeholder"
)

const remoteFlow = `{
	"definition": {
		"actions": {
			"Send_an_email": {
				"type": "OpenApiConnection",
				"inputs": {
					"to": "finance@contoso.com",
					"subject": "Monthly close is ready",
					"site": "https://contoso.sharepoint.com/sites/ops"
				}
			}
		}
	}
}`

// fakeRemote is an in-memory flow API
type fakeRemote struct {
	mu          sync.Mutex
	flows       map[string][]byte
	fetchErrs   []error
	updateErrs  []error
	fetchCalls  int
	updateCalls int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{flows: map[string][]byte{"flow-1": []byte(remoteFlow)}}
}

func (f *fakeRemote) Fetch(ctx context.Context, flowID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if len(f.fetchErrs) > 0 {
		err := f.fetchErrs[0]
		f.fetchErrs = f.fetchErrs[1:]
		return nil, err
	}
	doc, ok := f.flows[flowID]
	if !ok {
		return nil, &fshttp.StatusError{StatusCode: 404, Body: "not found"}
	}
	return doc, nil
}

func (f *fakeRemote) Update(ctx context.Context, flowID string, doc []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if len(f.updateErrs) > 0 {
		err := f.updateErrs[0]
		f.updateErrs = f.updateErrs[1:]
		return err
	}
	f.flows[flowID] = doc
	return nil
}

type fixture struct {
	dir     string
	remote  *fakeRemote
	store   *mappingstore.Store
	backups *backup.Manager
	history *history.DB
	syncer  *Syncer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	t.Setenv("FLOWSYNC_LOG_DIR", t.TempDir())
	dir := t.TempDir()

	store, err := mappingstore.New(filepath.Join(dir, "state", "secrets.json"))
	require.NoError(t, err)

	db, err := history.Open(filepath.Join(dir, "state", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		dir:     dir,
		remote:  newFakeRemote(),
		store:   store,
		backups: backup.NewManager(filepath.Join(dir, "state", "backups")),
		history: db,
	}

	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	f.syncer = New(f.remote, store, Options{
		Backups:    f.backups,
		History:    db,
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	})
	return f
}

func TestPullWritesRedactedFileAndMapping(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.dir, "work", "flow.json")

	res, err := f.syncer.Pull(context.Background(), "flow-1", path)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stats.Emails)
	assert.Equal(t, 1, res.Stats.URLs)
	assert.Equal(t, 1, res.Stats.Strings)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(written), "finance@contoso.com")
	assert.NotContains(t, string(written), "contoso.sharepoint.com")
	assert.Contains(t, string(written), "{{EMAIL_1}}")
	assert.Contains(t, string(written), "OpenApiConnection")

	mapping, err := f.store.Get(path)
	require.NoError(t, err)
	assert.Equal(t, "finance@contoso.com", mapping["{{EMAIL_1}}"])

	flow, ok, err := f.history.LastFlowForPath(context.Background(), res.Path)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "flow-1", flow)
}

func TestPullStoreFailureLeavesFileUntouched(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.dir, "flow.json")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0644))

	// A directory where the store file should be makes the store update fail
	blocked := filepath.Join(f.dir, "blocked")
	require.NoError(t, os.MkdirAll(filepath.Join(blocked, "secrets.json"), 0700))
	store, err := mappingstore.New(filepath.Join(blocked, "secrets.json"))
	require.NoError(t, err)

	syncer := New(f.remote, store, Options{BaseDelay: time.Millisecond})
	_, err = syncer.Pull(context.Background(), "flow-1", path)
	require.Error(t, err)

	content, _ := os.ReadFile(path)
	assert.Equal(t, "previous", string(content))
}

func TestPullRetriesTransientErrors(t *testing.T) {
	f := newFixture(t)
	f.remote.fetchErrs = []error{errors.New("connection reset"), &fshttp.StatusError{StatusCode: 503}}

	_, err := f.syncer.Pull(context.Background(), "flow-1", filepath.Join(f.dir, "flow.json"))
	require.NoError(t, err)
	assert.Equal(t, 3, f.remote.fetchCalls)
}

func TestPullGivesUpAfterMaxRetries(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 10; i++ {
		f.remote.fetchErrs = append(f.remote.fetchErrs, errors.New("down"))
	}

	_, err := f.syncer.Pull(context.Background(), "flow-1", filepath.Join(f.dir, "flow.json"))
	require.Error(t, err)
	assert.Equal(t, 4, f.remote.fetchCalls)
}

func TestPullDoesNotRetryUnauthorized(t *testing.T) {
	f := newFixture(t)
	f.remote.fetchErrs = []error{fmt.Errorf("%w: status 401", fshttp.ErrUnauthorized)}

	_, err := f.syncer.Pull(context.Background(), "flow-1", filepath.Join(f.dir, "flow.json"))
	assert.True(t, errors.Is(err, fshttp.ErrUnauthorized))
	assert.Equal(t, 1, f.remote.fetchCalls)
}

func TestPullInvalidRemoteDocument(t *testing.T) {
	f := newFixture(t)
	f.remote.flows["broken"] = []byte(`<html>oops</html>`)
	path := filepath.Join(f.dir, "flow.json")

	_, err := f.syncer.Pull(context.Background(), "broken", path)
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
	_, getErr := f.store.Get(path)
	assert.True(t, errors.Is(getErr, mappingstore.ErrNotExtracted))
}

func TestPushRoundTripWithEdits(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.dir, "flow.json")
	ctx := context.Background()

	_, err := f.syncer.Pull(ctx, "flow-1", path)
	require.NoError(t, err)

	// Rename the action, the way a downstream editor would
	redacted, err := os.ReadFile(path)
	require.NoError(t, err)
	edited := strings.Replace(string(redacted), "Send_an_email", "Notify_finance", 1)
	require.NoError(t, os.WriteFile(path, []byte(edited), 0644))

	res, err := f.syncer.Push(ctx, path, PushOptions{})
	require.NoError(t, err)
	assert.Equal(t, "flow-1", res.FlowID)
	assert.Equal(t, 3, res.Substituted)
	assert.NotEmpty(t, res.BackupPath)

	expected := strings.Replace(remoteFlow, "Send_an_email", "Notify_finance", 1)
	assert.JSONEq(t, expected, string(f.remote.flows["flow-1"]))

	// The backup holds the definition as it was before the push
	saved, err := backup.Read(res.BackupPath)
	require.NoError(t, err)
	assert.JSONEq(t, remoteFlow, string(saved))
}

func TestPushDryRunDoesNotUpload(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.dir, "flow.json")
	ctx := context.Background()

	_, err := f.syncer.Pull(ctx, "flow-1", path)
	require.NoError(t, err)

	res, err := f.syncer.Push(ctx, path, PushOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.JSONEq(t, remoteFlow, string(res.Document))
	assert.Equal(t, 0, f.remote.updateCalls)

	backups, err := f.backups.List("flow-1")
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestPushWithoutPull(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.dir, "handmade.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a":"{{EMAIL_1}}"}`), 0644))

	_, err := f.syncer.Push(context.Background(), path, PushOptions{})
	assert.True(t, errors.Is(err, ErrUnknownFlow))

	_, err = f.syncer.Push(context.Background(), path, PushOptions{FlowID: "flow-1"})
	assert.True(t, errors.Is(err, mappingstore.ErrNotExtracted))
	assert.Equal(t, 0, f.remote.updateCalls)
}

func TestPushReportsUnknownPlaceholders(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.dir, "flow.json")
	ctx := context.Background()

	_, err := f.syncer.Pull(ctx, "flow-1", path)
	require.NoError(t, err)

	redacted, _ := os.ReadFile(path)
	edited := strings.Replace(string(redacted), "OpenApiConnection", "{{EMAIL_42}}", 1)
	require.NoError(t, os.WriteFile(path, []byte(edited), 0644))

	res, err := f.syncer.Push(ctx, path, PushOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"{{EMAIL_42}}"}, res.Unknown)
	assert.Contains(t, string(res.Document), "{{EMAIL_42}}")
}

func TestPushInvalidEditedDocument(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.dir, "flow.json")
	ctx := context.Background()

	_, err := f.syncer.Pull(ctx, "flow-1", path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(`{"definition": `), 0644))

	_, err = f.syncer.Push(ctx, path, PushOptions{})
	require.Error(t, err)
	assert.Equal(t, 0, f.remote.updateCalls)
}

func TestPushKeepsStoreUnchanged(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.dir, "flow.json")
	ctx := context.Background()

	_, err := f.syncer.Pull(ctx, "flow-1", path)
	require.NoError(t, err)
	before, err := f.store.Get(path)
	require.NoError(t, err)

	_, err = f.syncer.Push(ctx, path, PushOptions{})
	require.NoError(t, err)

	after, err := f.store.Get(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestTwoFilesStayIsolated(t *testing.T) {
	f := newFixture(t)
	f.remote.flows["flow-2"] = []byte(`{"owner":"bob@b.com"}`)
	ctx := context.Background()

	pathA := filepath.Join(f.dir, "a.json")
	pathB := filepath.Join(f.dir, "b.json")
	_, err := f.syncer.Pull(ctx, "flow-1", pathA)
	require.NoError(t, err)
	_, err = f.syncer.Pull(ctx, "flow-2", pathB)
	require.NoError(t, err)

	a, err := f.store.Get(pathA)
	require.NoError(t, err)
	b, err := f.store.Get(pathB)
	require.NoError(t, err)
	assert.Equal(t, placeholder.Mapping{"{{EMAIL_1}}": "bob@b.com"}, b)
	assert.Equal(t, "finance@contoso.com", a["{{EMAIL_1}}"])

	res, err := f.syncer.Push(ctx, pathB, PushOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, "flow-2", res.FlowID)
	assert.JSONEq(t, `{"owner":"bob@b.com"}`, string(res.Document))
}

func TestRestore(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.dir, "flow.json")
	ctx := context.Background()

	_, err := f.syncer.Pull(ctx, "flow-1", path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(`{"definition":{}}`), 0644))
	pushed, err := f.syncer.Push(ctx, path, PushOptions{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"definition":{}}`, string(f.remote.flows["flow-1"]))

	undo, err := f.syncer.Restore(ctx, "flow-1", pushed.BackupPath)
	require.NoError(t, err)
	assert.NotEmpty(t, undo)
	assert.JSONEq(t, remoteFlow, string(f.remote.flows["flow-1"]))

	records, err := f.history.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, history.Restore, records[0].Direction)
}

func TestRetryStopsOnCanceledContext(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 10; i++ {
		f.remote.fetchErrs = append(f.remote.fetchErrs, errors.New("down"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.syncer.Pull(ctx, "flow-1", filepath.Join(f.dir, "flow.json"))
	require.Error(t, err)
	assert.LessOrEqual(t, f.remote.fetchCalls, 1)
}

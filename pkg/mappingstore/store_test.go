package mappingstore

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/santaclaude2025/flowsync/pkg/placeholder"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("FLOWSYNC_LOG_DIR", t.TempDir())

	s, err := New(filepath.Join(dir, "state", "secrets.json"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s, dir
}

func TestPutGet(t *testing.T) {
	s, dir := newTestStore(t)
	doc := filepath.Join(dir, "flow.json")

	m := placeholder.Mapping{"{{EMAIL_1}}": "a@b.com"}
	if err := s.Put(doc, m); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := s.Get(doc)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got["{{EMAIL_1}}"] != "a@b.com" {
		t.Errorf("Get() = %v, want EMAIL_1 mapped to a@b.com", got)
	}
}

func TestGetNotExtracted(t *testing.T) {
	s, dir := newTestStore(t)

	_, err := s.Get(filepath.Join(dir, "never-pulled.json"))
	if !errors.Is(err, ErrNotExtracted) {
		t.Errorf("Get() error = %v, want ErrNotExtracted", err)
	}
}

func TestPutReplacesOnlyOwnEntry(t *testing.T) {
	s, dir := newTestStore(t)
	docA := filepath.Join(dir, "a.json")
	docB := filepath.Join(dir, "b.json")

	if err := s.Put(docA, placeholder.Mapping{"{{EMAIL_1}}": "alice@a.com"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(docB, placeholder.Mapping{"{{EMAIL_1}}": "bob@b.com"}); err != nil {
		t.Fatal(err)
	}
	// Re-pull A with a different mapping
	if err := s.Put(docA, placeholder.Mapping{"{{STRING_1}}": "new text"}); err != nil {
		t.Fatal(err)
	}

	a, err := s.Get(docA)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := a["{{EMAIL_1}}"]; ok {
		t.Errorf("old entry of a.json should be replaced, got %v", a)
	}

	b, err := s.Get(docB)
	if err != nil {
		t.Fatal(err)
	}
	if b["{{EMAIL_1}}"] != "bob@b.com" {
		t.Errorf("b.json mapping changed: %v", b)
	}
}

func TestPutCopiesMapping(t *testing.T) {
	s, dir := newTestStore(t)
	doc := filepath.Join(dir, "flow.json")

	m := placeholder.Mapping{"{{URL_1}}": "https://a.com"}
	if err := s.Put(doc, m); err != nil {
		t.Fatal(err)
	}
	m["{{URL_1}}"] = "https://changed.com"

	got, _ := s.Get(doc)
	if got["{{URL_1}}"] != "https://a.com" {
		t.Errorf("stored mapping aliased caller map: %v", got)
	}
}

func TestRelativeAndAbsolutePathsShareEntry(t *testing.T) {
	s, dir := newTestStore(t)

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	if err := s.Put("flow.json", placeholder.Mapping{"{{GUID_1}}": "x"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(filepath.Join(dir, "flow.json")); err != nil {
		t.Errorf("absolute lookup after relative put failed: %v", err)
	}
}

func TestForget(t *testing.T) {
	s, dir := newTestStore(t)
	doc := filepath.Join(dir, "flow.json")

	existed, err := s.Forget(doc)
	if err != nil || existed {
		t.Fatalf("Forget() on empty store = %v, %v", existed, err)
	}

	if err := s.Put(doc, placeholder.Mapping{"{{EMAIL_1}}": "a@b.com"}); err != nil {
		t.Fatal(err)
	}
	existed, err = s.Forget(doc)
	if err != nil || !existed {
		t.Fatalf("Forget() = %v, %v, want true, nil", existed, err)
	}
	if _, err := s.Get(doc); !errors.Is(err, ErrNotExtracted) {
		t.Errorf("Get() after Forget() error = %v, want ErrNotExtracted", err)
	}
}

func TestList(t *testing.T) {
	s, dir := newTestStore(t)

	s.Put(filepath.Join(dir, "b.json"), placeholder.Mapping{"{{EMAIL_1}}": "x", "{{URL_1}}": "y"})
	s.Put(filepath.Join(dir, "a.json"), placeholder.Mapping{"{{STRING_1}}": "z"})

	entries := s.List()
	if len(entries) != 2 {
		t.Fatalf("List() returned %d entries, want 2", len(entries))
	}
	if filepath.Base(entries[0].Path) != "a.json" || entries[0].Placeholders != 1 {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if filepath.Base(entries[1].Path) != "b.json" || entries[1].Placeholders != 2 {
		t.Errorf("entries[1] = %+v", entries[1])
	}
}

func TestLoadMissingAndCorrupt(t *testing.T) {
	t.Setenv("FLOWSYNC_LOG_DIR", t.TempDir())
	dir := t.TempDir()

	if got := Load(filepath.Join(dir, "missing.json")); len(got) != 0 {
		t.Errorf("Load(missing) = %v, want empty", got)
	}

	corrupt := filepath.Join(dir, "corrupt.json")
	os.WriteFile(corrupt, []byte("{not json"), 0600)
	if got := Load(corrupt); len(got) != 0 {
		t.Errorf("Load(corrupt) = %v, want empty", got)
	}

	null := filepath.Join(dir, "null.json")
	os.WriteFile(null, []byte("null"), 0600)
	got := Load(null)
	if got == nil || len(got) != 0 {
		t.Errorf("Load(null) = %v, want non-nil empty", got)
	}
}

func TestPutOverCorruptStore(t *testing.T) {
	s, dir := newTestStore(t)
	os.MkdirAll(filepath.Dir(s.Path()), 0700)
	os.WriteFile(s.Path(), []byte("garbage"), 0600)

	doc := filepath.Join(dir, "flow.json")
	if err := s.Put(doc, placeholder.Mapping{"{{EMAIL_1}}": "a@b.com"}); err != nil {
		t.Fatalf("Put() over corrupt store error = %v", err)
	}
	if _, err := s.Get(doc); err != nil {
		t.Errorf("Get() error = %v", err)
	}

	kept, err := os.ReadFile(s.Path() + ".corrupt")
	if err != nil {
		t.Fatalf("corrupt store was not kept aside: %v", err)
	}
	if string(kept) != "garbage" {
		t.Errorf("kept store = %q, want original contents", kept)
	}
}

func TestPutRefusesUnreadableStore(t *testing.T) {
	s, dir := newTestStore(t)

	// A directory in place of the store file cannot be read
	if err := os.MkdirAll(s.Path(), 0700); err != nil {
		t.Fatal(err)
	}

	doc := filepath.Join(dir, "flow.json")
	err := s.Put(doc, placeholder.Mapping{"{{EMAIL_1}}": "a@b.com"})
	if err == nil || !strings.Contains(err.Error(), "failed to read secret store") {
		t.Errorf("Put() error = %v, want read failure", err)
	}
	if _, err := s.Forget(doc); err == nil {
		t.Error("Forget() on unreadable store should fail")
	}
}

func TestPutKeepsOtherEntriesWhenStoreUnreadable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read any file")
	}
	if runtime.GOOS == "windows" {
		t.Skip("permission bits not enforced on Windows")
	}

	s, dir := newTestStore(t)
	other := filepath.Join(dir, "other.json")
	if err := s.Put(other, placeholder.Mapping{"{{EMAIL_1}}": "keep@b.com"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if err := os.Chmod(s.Path(), 0200); err != nil {
		t.Fatal(err)
	}
	err := s.Put(filepath.Join(dir, "flow.json"), placeholder.Mapping{"{{EMAIL_1}}": "a@b.com"})
	if err == nil {
		t.Fatal("Put() over unreadable store should fail")
	}

	os.Chmod(s.Path(), 0600)
	if got, err := s.Get(other); err != nil || got["{{EMAIL_1}}"] != "keep@b.com" {
		t.Errorf("Get(other) = %v, %v; entry of another document was lost", got, err)
	}
}

func TestSaveIsAtomicAndPrivate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.json")

	if err := Save(path, Entries{"/x/flow.json": {"{{EMAIL_1}}": "a@b.com"}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	files, _ := os.ReadDir(dir)
	for _, f := range files {
		if f.Name() != "secrets.json" {
			t.Errorf("leftover file after Save(): %s", f.Name())
		}
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("store permissions = %o, want 600", perm)
		}
	}

	got := Load(path)
	if got["/x/flow.json"]["{{EMAIL_1}}"] != "a@b.com" {
		t.Errorf("Load() after Save() = %v", got)
	}
}

func TestConcurrentPuts(t *testing.T) {
	s, dir := newTestStore(t)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc := filepath.Join(dir, string(rune('a'+i))+".json")
			errs <- s.Put(doc, placeholder.Mapping{"{{STRING_1}}": "v"})
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}
	if got := len(s.List()); got != n {
		t.Errorf("List() after concurrent puts = %d entries, want %d", got, n)
	}
}

func TestCanonicalPathResolvesSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	dir := t.TempDir()
	real := filepath.Join(dir, "real")
	link := filepath.Join(dir, "link")
	if err := os.MkdirAll(real, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(real, link); err != nil {
		t.Fatal(err)
	}

	// Neither file exists yet; the sub directory does not either
	viaLink, err := CanonicalPath(filepath.Join(link, "sub", "flow.json"))
	if err != nil {
		t.Fatal(err)
	}
	viaReal, err := CanonicalPath(filepath.Join(real, "sub", "flow.json"))
	if err != nil {
		t.Fatal(err)
	}
	if viaLink != viaReal {
		t.Errorf("CanonicalPath() via link = %q, via real dir = %q", viaLink, viaReal)
	}
	if filepath.Base(filepath.Dir(viaReal)) != "sub" {
		t.Errorf("missing path components dropped: %q", viaReal)
	}
}

package watch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/filemgr-go/internal/api"
	"github.com/tonimelisma/filemgr-go/internal/browser"
	"github.com/tonimelisma/filemgr-go/testutil"
)

type mockFsWatcher struct {
	events chan fsnotify.Event
	errs   chan error
	added  []string
	closed bool
}

func newMockFsWatcher() *mockFsWatcher {
	return &mockFsWatcher{
		events: make(chan fsnotify.Event, 10),
		errs:   make(chan error, 10),
	}
}

func (m *mockFsWatcher) Add(name string) error         { m.added = append(m.added, name); return nil }
func (m *mockFsWatcher) Close() error                  { m.closed = true; return nil }
func (m *mockFsWatcher) Events() <-chan fsnotify.Event { return m.events }
func (m *mockFsWatcher) Errors() <-chan error          { return m.errs }

type recordingUploader struct {
	mu      sync.Mutex
	batches [][]string
	err     error
	failFor map[string]error
	called  chan struct{}
}

func newRecordingUploader() *recordingUploader {
	return &recordingUploader{called: make(chan struct{}, 10)}
}

func (r *recordingUploader) UploadFiles(_ context.Context, paths []string) error {
	r.mu.Lock()
	r.batches = append(r.batches, append([]string(nil), paths...))
	err := r.err
	if len(paths) == 1 && r.failFor[paths[0]] != nil {
		err = r.failFor[paths[0]]
	}
	r.mu.Unlock()

	r.called <- struct{}{}

	return err
}

func (r *recordingUploader) Batches() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.batches
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestWatcher(t *testing.T, up Uploader) (*Watcher, *mockFsWatcher, string) {
	t.Helper()

	dir := t.TempDir()
	fw := newMockFsWatcher()

	w := New(dir, up, 20*time.Millisecond, testLogger())
	w.newWatcher = func() (FsWatcher, error) { return fw, nil }

	return w, fw, dir
}

func touch(t *testing.T, dir, name string) string {
	t.Helper()

	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(name), 0o600))

	return p
}

func runAsync(ctx context.Context, w *Watcher) <-chan error {
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	return done
}

func waitCalls(t *testing.T, up *recordingUploader, n int) {
	t.Helper()

	for range n {
		waitCalled(t, up)
	}
}

func waitCalled(t *testing.T, up *recordingUploader) {
	t.Helper()

	select {
	case <-up.called:
	case <-time.After(2 * time.Second):
		t.Fatal("uploader not called within 2 seconds")
	}
}

func TestRun_BatchesDebouncedEventsInOrder(t *testing.T) {
	t.Parallel()

	up := newRecordingUploader()
	w, fw, dir := newTestWatcher(t, up)

	a := touch(t, dir, "a.txt")
	b := touch(t, dir, "b.txt")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := runAsync(ctx, w)

	fw.events <- fsnotify.Event{Name: a, Op: fsnotify.Create}
	fw.events <- fsnotify.Event{Name: a, Op: fsnotify.Write}
	fw.events <- fsnotify.Event{Name: b, Op: fsnotify.Create}

	waitCalls(t, up, 2)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, [][]string{{a}, {b}}, up.Batches())
	assert.Equal(t, []string{dir}, fw.added)
	assert.True(t, fw.closed)
}

func TestRun_SkipsIgnoredAndNonRegular(t *testing.T) {
	t.Parallel()

	up := newRecordingUploader()
	w, fw, dir := newTestWatcher(t, up)

	hidden := touch(t, dir, ".hidden")
	partial := touch(t, dir, "movie.mkv.partial")
	backup := touch(t, dir, "notes.txt~")
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	keep := touch(t, dir, "keep.txt")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := runAsync(ctx, w)

	fw.events <- fsnotify.Event{Name: hidden, Op: fsnotify.Create}
	fw.events <- fsnotify.Event{Name: partial, Op: fsnotify.Write}
	fw.events <- fsnotify.Event{Name: backup, Op: fsnotify.Create}
	fw.events <- fsnotify.Event{Name: sub, Op: fsnotify.Create}
	fw.events <- fsnotify.Event{Name: filepath.Join(dir, "gone.txt"), Op: fsnotify.Create}
	fw.events <- fsnotify.Event{Name: keep, Op: fsnotify.Chmod}
	fw.events <- fsnotify.Event{Name: keep, Op: fsnotify.Remove}
	fw.events <- fsnotify.Event{Name: keep, Op: fsnotify.Create}

	waitCalled(t, up)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, [][]string{{keep}}, up.Batches())
}

func TestRun_UploadFailureKeepsWatching(t *testing.T) {
	t.Parallel()

	up := newRecordingUploader()
	up.err = errors.New("disk on fire")
	w, fw, dir := newTestWatcher(t, up)

	a := touch(t, dir, "a.txt")
	b := touch(t, dir, "b.txt")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := runAsync(ctx, w)

	fw.events <- fsnotify.Event{Name: a, Op: fsnotify.Create}
	waitCalled(t, up)

	fw.events <- fsnotify.Event{Name: b, Op: fsnotify.Create}
	waitCalled(t, up)

	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, [][]string{{a}, {b}}, up.Batches())
}

func TestRun_FailedFileDoesNotDropRestOfBatch(t *testing.T) {
	t.Parallel()

	up := newRecordingUploader()
	up.failFor = map[string]error{}
	w, fw, dir := newTestWatcher(t, up)

	a := touch(t, dir, "a.txt")
	big := touch(t, dir, "big.bin")
	b := touch(t, dir, "b.txt")
	up.failFor[big] = errors.New("file too large")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := runAsync(ctx, w)

	fw.events <- fsnotify.Event{Name: a, Op: fsnotify.Create}
	fw.events <- fsnotify.Event{Name: big, Op: fsnotify.Create}
	fw.events <- fsnotify.Event{Name: b, Op: fsnotify.Create}

	waitCalls(t, up, 3)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, [][]string{{a}, {big}, {b}}, up.Batches())
}

func TestRun_FileRemovedBeforeFlushIsSkipped(t *testing.T) {
	t.Parallel()

	up := newRecordingUploader()
	w, fw, dir := newTestWatcher(t, up)
	w.debounce = 200 * time.Millisecond

	a := touch(t, dir, "a.txt")
	b := touch(t, dir, "b.txt")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := runAsync(ctx, w)

	fw.events <- fsnotify.Event{Name: a, Op: fsnotify.Create}
	fw.events <- fsnotify.Event{Name: b, Op: fsnotify.Create}

	// Both events are accepted before the debounce fires; then a.txt goes away.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.Remove(a))

	waitCalled(t, up)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, [][]string{{b}}, up.Batches())
}

func TestRun_UploadsThroughControllerPastMissingFile(t *testing.T) {
	t.Parallel()

	srv := testutil.NewFakeServer()
	t.Cleanup(srv.Close)
	srv.AddUser("alice", "secret")

	client, err := api.NewClient(srv.URL, nil, nil, "test-agent")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl := browser.New(client, browser.WithLogger(testLogger()))
	require.NoError(t, ctrl.Login(ctx, "alice", "secret"))

	fw := newMockFsWatcher()
	dir := t.TempDir()
	w := New(dir, ctrl, 200*time.Millisecond, testLogger())
	w.newWatcher = func() (FsWatcher, error) { return fw, nil }

	a := touch(t, dir, "a.txt")
	b := touch(t, dir, "b.txt")

	done := runAsync(ctx, w)

	fw.events <- fsnotify.Event{Name: a, Op: fsnotify.Create}
	fw.events <- fsnotify.Event{Name: b, Op: fsnotify.Create}

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.Remove(a))

	require.Eventually(t, func() bool {
		return srv.Exists("alice", "b.txt") && ctrl.View().Status == "Upload complete"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	assert.False(t, srv.Exists("alice", "a.txt"))
}

func TestRun_UnauthorizedStops(t *testing.T) {
	t.Parallel()

	up := newRecordingUploader()
	up.err = &api.APIError{StatusCode: 401, Err: api.ErrUnauthorized}
	w, fw, dir := newTestWatcher(t, up)

	a := touch(t, dir, "a.txt")
	done := runAsync(context.Background(), w)

	fw.events <- fsnotify.Event{Name: a, Op: fsnotify.Create}

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, api.IsUnauthorized(err))
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop on unauthorized upload")
	}
}

func TestRun_WatcherErrorsBackOff(t *testing.T) {
	t.Parallel()

	up := newRecordingUploader()
	w, fw, _ := newTestWatcher(t, up)

	var (
		mu     sync.Mutex
		sleeps []time.Duration
	)

	w.sleep = func(_ context.Context, d time.Duration) error {
		mu.Lock()
		sleeps = append(sleeps, d)
		mu.Unlock()

		return nil
	}

	fw.errs <- errors.New("overflow")
	fw.errs <- errors.New("overflow")
	fw.errs <- errors.New("overflow")
	close(fw.errs)

	require.NoError(t, w.Run(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []time.Duration{errInitBackoff, 2 * errInitBackoff, 4 * errInitBackoff}, sleeps)
	assert.Empty(t, up.Batches())
}

func TestRun_ClosedEventsReturns(t *testing.T) {
	t.Parallel()

	w, fw, _ := newTestWatcher(t, newRecordingUploader())
	close(fw.events)

	assert.NoError(t, w.Run(context.Background()))
}

func TestIgnored(t *testing.T) {
	t.Parallel()

	assert.True(t, ignored(".DS_Store"))
	assert.True(t, ignored("a.txt.partial"))
	assert.True(t, ignored("draft~"))
	assert.False(t, ignored("report.pdf"))
}

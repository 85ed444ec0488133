package git

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disoardi/sshmenuc/internal/vcs"
)

const testFile = "config.json.enc"

// requireGit skips the test when git is not installed and isolates it from
// the user's global git configuration.
func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("GIT_AUTHOR_NAME", "Test User")
	t.Setenv("GIT_AUTHOR_EMAIL", "test@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "Test User")
	t.Setenv("GIT_COMMITTER_EMAIL", "test@example.com")
}

func gitCmd(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// newBareRemote creates an empty bare repository and returns its path.
func newBareRemote(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "remote.git")
	gitCmd(t, "", "init", "--bare", "--quiet", dir)
	return dir
}

func newTarget(t *testing.T, url string) vcs.Target {
	t.Helper()
	return vcs.Target{
		URL:        url,
		Branch:     "main",
		RemoteFile: testFile,
		MirrorPath: filepath.Join(t.TempDir(), "mirror"),
	}
}

func commitCount(t *testing.T, bare, branch string) string {
	t.Helper()
	return gitCmd(t, bare, "rev-list", "--count", "refs/heads/"+branch)
}

func initialized(t *testing.T, g *Git, tgt vcs.Target) vcs.Target {
	t.Helper()
	if err := g.EnsureInitialized(context.Background(), tgt); err != nil {
		t.Fatalf("EnsureInitialized() failed: %v", err)
	}
	return tgt
}

func TestOpenRegisteredBackend(t *testing.T) {
	r, err := vcs.Open(vcs.BackendGit, vcs.Options{})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if _, ok := r.(*Git); !ok {
		t.Errorf("Open(git) returned %T", r)
	}
}

func TestVersion(t *testing.T) {
	requireGit(t)

	version, err := New(vcs.Options{}).Version(context.Background())
	if err != nil {
		t.Fatalf("Version() failed: %v", err)
	}
	if version == "" || strings.HasPrefix(version, "git version") {
		t.Errorf("Version() = %q", version)
	}
}

func TestIsReachable(t *testing.T) {
	requireGit(t)
	g := New(vcs.Options{})
	ctx := context.Background()

	if !g.IsReachable(ctx, newBareRemote(t)) {
		t.Error("empty bare repository should be reachable")
	}
	if g.IsReachable(ctx, filepath.Join(t.TempDir(), "missing.git")) {
		t.Error("missing repository reported reachable")
	}
	if g.IsReachable(ctx, "") {
		t.Error("empty URL reported reachable")
	}
}

func TestEnsureInitializedEmptyRemote(t *testing.T) {
	requireGit(t)
	g := New(vcs.Options{})
	tgt := initialized(t, g, newTarget(t, newBareRemote(t)))

	if !isMirror(tgt.MirrorPath) {
		t.Fatal("mirror not created")
	}
	if got := gitCmd(t, tgt.MirrorPath, "config", "--get", "remote.origin.url"); got != tgt.URL {
		t.Errorf("origin = %q, want %q", got, tgt.URL)
	}
	if got := gitCmd(t, tgt.MirrorPath, "symbolic-ref", "HEAD"); got != "refs/heads/main" {
		t.Errorf("HEAD = %q, want refs/heads/main", got)
	}

	// Idempotent.
	if err := g.EnsureInitialized(context.Background(), tgt); err != nil {
		t.Fatalf("second EnsureInitialized() failed: %v", err)
	}
}

func TestEnsureInitializedClonesExistingBranch(t *testing.T) {
	requireGit(t)
	g := New(vcs.Options{})
	bare := newBareRemote(t)

	writer := initialized(t, g, newTarget(t, bare))
	if err := g.Push(context.Background(), writer, []byte(`{"v":1}`)); err != nil {
		t.Fatalf("Push() failed: %v", err)
	}

	reader := initialized(t, g, newTarget(t, bare))
	data, err := os.ReadFile(reader.BlobPath())
	if err != nil {
		t.Fatalf("blob missing after clone: %v", err)
	}
	if string(data) != `{"v":1}` {
		t.Errorf("cloned blob = %q", data)
	}
}

func TestEnsureInitializedRejectsOccupiedPath(t *testing.T) {
	requireGit(t)
	tgt := newTarget(t, newBareRemote(t))
	if err := os.MkdirAll(tgt.MirrorPath, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tgt.MirrorPath, "stray"), nil, 0o600); err != nil {
		t.Fatal(err)
	}

	err := New(vcs.Options{}).EnsureInitialized(context.Background(), tgt)
	if !errors.Is(err, vcs.ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
}

func TestEnsureInitializedRepointsOrigin(t *testing.T) {
	requireGit(t)
	g := New(vcs.Options{})
	tgt := initialized(t, g, newTarget(t, newBareRemote(t)))

	tgt.URL = newBareRemote(t)
	if err := g.EnsureInitialized(context.Background(), tgt); err != nil {
		t.Fatalf("EnsureInitialized() failed: %v", err)
	}
	if got := gitCmd(t, tgt.MirrorPath, "config", "--get", "remote.origin.url"); got != tgt.URL {
		t.Errorf("origin = %q, want %q", got, tgt.URL)
	}
}

func TestEnsureInitializedInvalidTarget(t *testing.T) {
	err := New(vcs.Options{}).EnsureInitialized(context.Background(), vcs.Target{Branch: "main"})
	if !errors.Is(err, vcs.ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
}

func TestPullNotInitialized(t *testing.T) {
	res, err := New(vcs.Options{}).Pull(context.Background(), newTarget(t, "/nowhere.git"))
	if !errors.Is(err, vcs.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if res.Status != vcs.PullOffline {
		t.Errorf("status = %v, want offline", res.Status)
	}
}

func TestPullEmptyRemote(t *testing.T) {
	requireGit(t)
	g := New(vcs.Options{})
	tgt := initialized(t, g, newTarget(t, newBareRemote(t)))

	res, err := g.Pull(context.Background(), tgt)
	if err != nil {
		t.Fatalf("Pull() failed: %v", err)
	}
	if res.Status != vcs.PullNoChange || res.Data != nil {
		t.Errorf("Pull() = %+v, want no-change", res)
	}
}

func TestPushThenPullElsewhere(t *testing.T) {
	requireGit(t)
	g := New(vcs.Options{})
	ctx := context.Background()
	bare := newBareRemote(t)

	a := initialized(t, g, newTarget(t, bare))
	b := initialized(t, g, newTarget(t, bare))

	if err := g.Push(ctx, a, []byte(`{"v":1}`)); err != nil {
		t.Fatalf("Push() failed: %v", err)
	}

	// b was initialized empty before the first push; HEAD is unborn.
	res, err := g.Pull(ctx, b)
	if err != nil {
		t.Fatalf("Pull() failed: %v", err)
	}
	if res.Status != vcs.PullUpdated || string(res.Data) != `{"v":1}` {
		t.Fatalf("Pull() = %v %q", res.Status, res.Data)
	}

	// Pulling again with the mirror already current still returns the blob.
	res, err = g.Pull(ctx, b)
	if err != nil {
		t.Fatalf("second Pull() failed: %v", err)
	}
	if res.Status != vcs.PullUpdated || string(res.Data) != `{"v":1}` {
		t.Errorf("second Pull() = %v %q", res.Status, res.Data)
	}
}

func TestPullFastForward(t *testing.T) {
	requireGit(t)
	g := New(vcs.Options{})
	ctx := context.Background()
	bare := newBareRemote(t)

	a := initialized(t, g, newTarget(t, bare))
	if err := g.Push(ctx, a, []byte(`{"v":1}`)); err != nil {
		t.Fatal(err)
	}
	b := initialized(t, g, newTarget(t, bare))
	if err := g.Push(ctx, a, []byte(`{"v":2}`)); err != nil {
		t.Fatal(err)
	}

	res, err := g.Pull(ctx, b)
	if err != nil {
		t.Fatalf("Pull() failed: %v", err)
	}
	if string(res.Data) != `{"v":2}` {
		t.Errorf("Pull() data = %q, want v2", res.Data)
	}
	if gitCmd(t, b.MirrorPath, "rev-parse", "HEAD") != gitCmd(t, bare, "rev-parse", "refs/heads/main") {
		t.Error("mirror HEAD not fast-forwarded to remote tip")
	}
}

func TestPushNoOpWhenUnchanged(t *testing.T) {
	requireGit(t)
	g := New(vcs.Options{})
	ctx := context.Background()
	bare := newBareRemote(t)
	tgt := initialized(t, g, newTarget(t, bare))

	for i := 0; i < 3; i++ {
		if err := g.Push(ctx, tgt, []byte(`{"same":true}`)); err != nil {
			t.Fatalf("Push() #%d failed: %v", i, err)
		}
	}
	if got := commitCount(t, bare, "main"); got != "1" {
		t.Errorf("remote has %s commits, want 1", got)
	}
	if msg := gitCmd(t, bare, "log", "-1", "--format=%s", "refs/heads/main"); msg != CommitMessage {
		t.Errorf("commit message = %q", msg)
	}
}

func TestPushRejectedAndDivergenceRecovery(t *testing.T) {
	requireGit(t)
	g := New(vcs.Options{})
	ctx := context.Background()
	bare := newBareRemote(t)

	a := initialized(t, g, newTarget(t, bare))
	if err := g.Push(ctx, a, []byte(`{"v":1}`)); err != nil {
		t.Fatal(err)
	}
	b := initialized(t, g, newTarget(t, bare))

	if err := g.Push(ctx, a, []byte(`{"v":2}`)); err != nil {
		t.Fatal(err)
	}

	err := g.Push(ctx, b, []byte(`{"v":3}`))
	if !errors.Is(err, vcs.ErrPushRejected) {
		t.Fatalf("expected ErrPushRejected, got %v", err)
	}
	if !vcs.IsUserActionRequired(err) {
		t.Error("rejection should require user action")
	}

	// b now holds a local commit the remote superseded.
	res, err := g.Pull(ctx, b)
	if err != nil {
		t.Fatalf("Pull() after rejection failed: %v", err)
	}
	if string(res.Data) != `{"v":2}` {
		t.Errorf("Pull() data = %q, want remote v2", res.Data)
	}
	if got := commitCount(t, bare, "main"); got != "2" {
		t.Errorf("remote history rewritten: %s commits", got)
	}
}

func TestPullWhileAheadThenRepublish(t *testing.T) {
	requireGit(t)
	g := New(vcs.Options{})
	ctx := context.Background()
	bare := newBareRemote(t)
	tgt := initialized(t, g, newTarget(t, bare))

	if err := g.Push(ctx, tgt, []byte(`{"v":1}`)); err != nil {
		t.Fatal(err)
	}

	// Take the remote away so the next push commits locally but fails.
	hidden := bare + ".hidden"
	if err := os.Rename(bare, hidden); err != nil {
		t.Fatal(err)
	}
	err := g.Push(ctx, tgt, []byte(`{"v":2}`))
	if !errors.Is(err, vcs.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}

	res, err := g.Pull(ctx, tgt)
	if res.Status != vcs.PullOffline || !errors.Is(err, vcs.ErrTransport) {
		t.Fatalf("Pull() offline = %v, %v", res.Status, err)
	}

	if err := os.Rename(hidden, bare); err != nil {
		t.Fatal(err)
	}

	// The mirror is ahead: pull reports the remote tip, not the local commit.
	res, err = g.Pull(ctx, tgt)
	if err != nil {
		t.Fatalf("Pull() failed: %v", err)
	}
	if string(res.Data) != `{"v":1}` {
		t.Errorf("Pull() data = %q, want remote v1", res.Data)
	}

	// Same bytes again: nothing new to commit, but the stranded commit is pushed.
	if err := g.Push(ctx, tgt, []byte(`{"v":2}`)); err != nil {
		t.Fatalf("republish failed: %v", err)
	}
	if got := gitCmd(t, bare, "show", "refs/heads/main:"+testFile); got != `{"v":2}` {
		t.Errorf("remote blob = %q, want v2", got)
	}
}

func TestHasUnpublishedOnUnbornHead(t *testing.T) {
	requireGit(t)
	g := New(vcs.Options{})
	tgt := initialized(t, g, newTarget(t, newBareRemote(t)))

	pending, err := g.hasUnpublished(context.Background(), tgt.MirrorPath, "main")
	if err != nil {
		t.Fatalf("hasUnpublished() failed: %v", err)
	}
	if pending {
		t.Error("unborn HEAD has nothing to publish")
	}
}

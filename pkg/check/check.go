package check

import (
	"bytes"
	"regexp"
	"time"

	"github.com/hashmap-kz/xftp/config"
	"github.com/hashmap-kz/xftp/pkg/boot"
	"github.com/hashmap-kz/xftp/pkg/common"
	"github.com/hashmap-kz/xftp/pkg/session"
)

// Reporter is the contract with the host test runner; *testing.T
// satisfies it. Assertion failures go through Errorf so the test keeps
// running; only unusable configuration is fatal.
type Reporter interface {
	Helper()
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
}

// Checker exposes remote-filesystem assertions over one session.
type Checker struct {
	t    Reporter
	sess *session.Session
}

// Login is the before-test hook: it validates the configuration, dials
// the configured backend and opens a session. Config problems are
// fatal. Connection and authentication failures are reported, not
// fatal, and yield a nil Checker so the test can observe them.
func Login(t Reporter, cfg *config.Config) *Checker {
	t.Helper()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("remote config: %v", err)
		return nil
	}
	sess, err := boot.NewSession(cfg)
	if err != nil {
		t.Errorf("login: %v", err)
		return nil
	}
	return &Checker{t: t, sess: sess}
}

// New wraps an already-open session.
func New(t Reporter, sess *session.Session) *Checker {
	return &Checker{t: t, sess: sess}
}

// Session exposes the underlying session for operations that return
// values instead of asserting.
func (c *Checker) Session() *session.Session {
	return c.sess
}

// Finish is the after-test hook: logout plus conditional staging-file
// cleanup. Safe to call more than once.
func (c *Checker) Finish() {
	c.t.Helper()
	if err := c.sess.Close(); err != nil {
		c.t.Errorf("logout: %v", err)
	}
}

// --- listing & search ---

// FileExists asserts the exact name is present in the directory
// listing. Case-sensitive.
func (c *Checker) FileExists(name string, path ...string) {
	c.t.Helper()
	names, ok := c.list(path)
	if !ok {
		return
	}
	for _, n := range names {
		if n == name {
			return
		}
	}
	c.t.Errorf("file %q not found in %s", name, c.listedDir(path))
}

// FileAbsent asserts the exact name is missing from the directory
// listing.
func (c *Checker) FileAbsent(name string, path ...string) {
	c.t.Helper()
	names, ok := c.list(path)
	if !ok {
		return
	}
	for _, n := range names {
		if n == name {
			c.t.Errorf("file %q unexpectedly present in %s", name, c.listedDir(path))
			return
		}
	}
}

// AnyFileMatches asserts at least one listing entry matches the
// regular expression; the scan stops at the first match.
func (c *Checker) AnyFileMatches(pattern string, path ...string) {
	c.t.Helper()
	re, err := regexp.Compile(pattern)
	if err != nil {
		c.t.Errorf("bad pattern %q: %v", pattern, err)
		return
	}
	names, ok := c.list(path)
	if !ok {
		return
	}
	for _, n := range names {
		if re.MatchString(n) {
			return
		}
	}
	c.t.Errorf("no entry in %s matches %q", c.listedDir(path), pattern)
}

// NoFileMatches asserts no listing entry matches the regular
// expression; the first match fails immediately.
func (c *Checker) NoFileMatches(pattern string, path ...string) {
	c.t.Helper()
	re, err := regexp.Compile(pattern)
	if err != nil {
		c.t.Errorf("bad pattern %q: %v", pattern, err)
		return
	}
	names, ok := c.list(path)
	if !ok {
		return
	}
	for _, n := range names {
		if re.MatchString(n) {
			c.t.Errorf("entry %q in %s matches %q", n, c.listedDir(path), pattern)
			return
		}
	}
}

func (c *Checker) list(path []string) ([]string, bool) {
	p := ""
	if len(path) > 0 {
		p = path[0]
	}
	names, err := c.sess.ListFiles(p, true)
	if err != nil {
		c.t.Errorf("list %s: %v", c.listedDir(path), err)
		return nil, false
	}
	return names, true
}

func (c *Checker) listedDir(path []string) string {
	if len(path) > 0 && path[0] != "" {
		return c.sess.Resolve(path[0])
	}
	return c.sess.CurrentDirectory()
}

// --- transfer & content ---

// OpenFile downloads a remote file into the open-file buffer.
func (c *Checker) OpenFile(p string) {
	c.t.Helper()
	if err := c.sess.Download(p); err != nil {
		c.t.Errorf("open %q: %v", p, err)
	}
}

// WriteToFile uploads data to a remote path. The open-file buffer holds
// the written bytes even when the remote write fails.
func (c *Checker) WriteToFile(p string, data []byte) {
	c.t.Helper()
	if err := c.sess.Upload(p, data); err != nil {
		c.t.Errorf("write %q: %v", p, err)
	}
}

func (c *Checker) ContentContains(substr string) {
	c.t.Helper()
	buf, ok := c.buffer()
	if !ok {
		return
	}
	if !bytes.Contains(buf.Data, []byte(substr)) {
		c.t.Errorf("file %s does not contain %q", buf.Path, substr)
	}
}

func (c *Checker) ContentNotContains(substr string) {
	c.t.Helper()
	buf, ok := c.buffer()
	if !ok {
		return
	}
	if bytes.Contains(buf.Data, []byte(substr)) {
		c.t.Errorf("file %s unexpectedly contains %q", buf.Path, substr)
	}
}

func (c *Checker) ContentEquals(want string) {
	c.t.Helper()
	buf, ok := c.buffer()
	if !ok {
		return
	}
	if string(buf.Data) != want {
		c.t.Errorf("file %s content mismatch: got %q, want %q", buf.Path, buf.Data, want)
	}
}

func (c *Checker) ContentMatches(pattern string) {
	c.t.Helper()
	re, err := regexp.Compile(pattern)
	if err != nil {
		c.t.Errorf("bad pattern %q: %v", pattern, err)
		return
	}
	buf, ok := c.buffer()
	if !ok {
		return
	}
	if !re.Match(buf.Data) {
		c.t.Errorf("file %s does not match %q", buf.Path, pattern)
	}
}

// ContentSHA256 asserts the buffered content hashes to the given hex
// digest.
func (c *Checker) ContentSHA256(sum string) {
	c.t.Helper()
	buf, ok := c.buffer()
	if !ok {
		return
	}
	if got := common.Sha256FromBytes(buf.Data); got != sum {
		c.t.Errorf("file %s sha256 mismatch: got %s, want %s", buf.Path, got, sum)
	}
}

func (c *Checker) buffer() (*session.OpenFile, bool) {
	buf := c.sess.Buffer()
	if buf == nil {
		c.t.Errorf("no file opened: call OpenFile or WriteToFile first")
		return nil, false
	}
	return buf, true
}

// --- navigation & mutation ---

func (c *Checker) ChangeDir(p string) {
	c.t.Helper()
	if err := c.sess.ChangeDirectory(p); err != nil {
		c.t.Errorf("chdir %q: %v", p, err)
	}
}

func (c *Checker) CurrentDir() string {
	return c.sess.CurrentDirectory()
}

func (c *Checker) MakeDir(p string) {
	c.t.Helper()
	if err := c.sess.MakeDirectory(p); err != nil {
		c.t.Errorf("mkdir %q: %v", p, err)
	}
}

// RenamePath renames a file or directory.
func (c *Checker) RenamePath(from, to string) {
	c.t.Helper()
	if err := c.sess.RenamePath(from, to); err != nil {
		c.t.Errorf("rename %q -> %q: %v", from, to, err)
	}
}

// DeletePath removes a file, or a directory recursively.
func (c *Checker) DeletePath(p string) {
	c.t.Helper()
	if err := c.sess.Delete(p); err != nil {
		c.t.Errorf("delete %q: %v", p, err)
	}
}

// CleanDir empties a directory by deleting and recreating it.
func (c *Checker) CleanDir(p string) {
	c.t.Helper()
	if err := c.sess.ClearDirectory(p); err != nil {
		c.t.Errorf("clean %q: %v", p, err)
	}
}

// CopyDir always reports a failure: the capability does not exist for
// this backend pairing.
func (c *Checker) CopyDir(src, dst string) {
	c.t.Helper()
	c.t.Errorf("%v", c.sess.CopyDirectory(src, dst))
}

// --- metadata ---

// SizeOfFile returns the remote byte size, reporting a failure and
// returning -1 when the backend cannot provide it.
func (c *Checker) SizeOfFile(p string) int64 {
	c.t.Helper()
	n, err := c.sess.FileSize(p)
	if err != nil {
		c.t.Errorf("size %q: %v", p, err)
		return -1
	}
	return n
}

// ModifiedTimeOfFile returns the remote modification time, reporting a
// failure and returning the zero time when the backend cannot provide
// it.
func (c *Checker) ModifiedTimeOfFile(p string) time.Time {
	c.t.Helper()
	t, err := c.sess.FileModifiedTime(p)
	if err != nil {
		c.t.Errorf("mtime %q: %v", p, err)
		return time.Time{}
	}
	return t
}

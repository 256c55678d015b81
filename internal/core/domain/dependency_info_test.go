package domain

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"testing"
	"time"
)

// fakeFS implements StatReader and DigestReader over in-memory files.
type fakeFS struct {
	times   map[string]time.Time
	content map[string]string
	seeded  map[string][]byte
	reads   int
}

func newFakeFS() *fakeFS {
	return &fakeFS{
		times:   make(map[string]time.Time),
		content: make(map[string]string),
		seeded:  make(map[string][]byte),
	}
}

func (f *fakeFS) add(path, content string, ts time.Time) {
	f.times[path] = ts
	f.content[path] = content
}

func (f *fakeFS) Timestamp(path string) (time.Time, error) {
	ts, ok := f.times[path]
	if !ok {
		return time.Time{}, fmt.Errorf("stat %s: no such file", path)
	}
	return ts, nil
}

func (f *fakeFS) FileDigest(path string) ([]byte, error) {
	if seeded, ok := f.seeded[digestKey(path, f.times[path])]; ok {
		return seeded, nil
	}
	content, ok := f.content[path]
	if !ok {
		return nil, fmt.Errorf("open %s: no such file", path)
	}
	f.reads++
	sum := sha256.Sum256([]byte(content))
	return sum[:], nil
}

func (f *fakeFS) SeedDigestCache(path string, ts time.Time, digest []byte) {
	f.seeded[digestKey(path, ts)] = digest
}

func digestKey(path string, ts time.Time) string {
	return fmt.Sprintf("%s@%d", path, ts.UnixNano())
}

func record(fs *fakeFS, targets, args, deps []string) *DependencyInfo {
	d := &DependencyInfo{
		Version:  DependencyVersion,
		Targets:  targets,
		Args:     args,
		DepPaths: deps,
	}
	for _, dep := range deps {
		ts, _ := fs.Timestamp(dep)
		d.DepTimestamps = append(d.DepTimestamps, ts)
	}
	return d
}

func TestFindReasonUpToDate(t *testing.T) {
	fs := newFakeFS()
	now := time.Now()
	fs.add("src.c", "int main;", now)
	fs.add("out.o", "obj", now.Add(time.Second))

	d := record(fs, []string{"out.o"}, []string{"dcc", "-c", "src.c"}, []string{"src.c"})
	reason, ok := d.FindReason(fs, []string{"dcc", "-c", "src.c"}, false)
	if !ok {
		t.Fatalf("FindReason reported stale: %s", reason)
	}
	if !d.IsUpToDate(fs, []string{"dcc", "-c", "src.c"}) {
		t.Error("IsUpToDate disagrees with FindReason")
	}
}

func TestFindReasonMessages(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name   string
		setup  func(fs *fakeFS) *DependencyInfo
		args   []string
		force  bool
		reason string
	}{
		{
			name: "forced",
			setup: func(fs *fakeFS) *DependencyInfo {
				fs.add("out", "x", now)
				return record(fs, []string{"out"}, nil, nil)
			},
			force:  true,
			reason: "rebuild has been forced",
		},
		{
			name: "args changed",
			setup: func(fs *fakeFS) *DependencyInfo {
				fs.add("out", "x", now)
				return record(fs, []string{"out"}, []string{"-O0"}, nil)
			},
			args:   []string{"-O2"},
			reason: `["-O2"] != ["-O0"]`,
		},
		{
			name: "target missing",
			setup: func(fs *fakeFS) *DependencyInfo {
				return record(fs, []string{"out"}, nil, nil)
			},
			reason: "'out' doesn't exist",
		},
		{
			name: "dependency vanished",
			setup: func(fs *fakeFS) *DependencyInfo {
				fs.add("out", "x", now)
				fs.add("src.c", "y", now)
				d := record(fs, []string{"out"}, nil, []string{"src.c"})
				delete(fs.times, "src.c")
				return d
			},
			reason: "'src.c' no longer exists",
		},
		{
			name: "dependency changed",
			setup: func(fs *fakeFS) *DependencyInfo {
				fs.add("out", "x", now)
				fs.add("src.c", "y", now)
				d := record(fs, []string{"out"}, nil, []string{"src.c"})
				fs.add("src.c", "y2", now.Add(time.Minute))
				return d
			},
			reason: "'src.c' has changed since last build",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fs := newFakeFS()
			d := tc.setup(fs)
			reason, ok := d.FindReason(fs, tc.args, tc.force)
			if ok {
				t.Fatal("FindReason reported up to date")
			}
			if reason != tc.reason {
				t.Errorf("reason = %q, want %q", reason, tc.reason)
			}
			// IsUpToDate never forces, so only the unforced cases must agree.
			if !tc.force && d.IsUpToDate(fs, tc.args) {
				t.Error("IsUpToDate disagrees with FindReason")
			}
		})
	}
}

func TestCalculateDigestIgnoresTimestamps(t *testing.T) {
	args := []string{"dcc", "-c", "src.c"}

	fsA := newFakeFS()
	fsA.add("src.c", "content", time.Unix(1000, 0))
	dA := record(fsA, []string{"out.o"}, args, []string{"src.c"})
	digestA, err := dA.CalculateDigest(fsA)
	if err != nil {
		t.Fatal(err)
	}

	// Same content, completely different timestamps.
	fsB := newFakeFS()
	fsB.add("src.c", "content", time.Unix(99999, 42))
	dB := record(fsB, []string{"out.o"}, args, []string{"src.c"})
	digestB, err := dB.CalculateDigest(fsB)
	if err != nil {
		t.Fatal(err)
	}

	if string(digestA) != string(digestB) {
		t.Error("digest differs across timestamp-only changes")
	}
}

func TestCalculateDigestSensitivity(t *testing.T) {
	base := func() (*fakeFS, *DependencyInfo) {
		fs := newFakeFS()
		fs.add("src.c", "content", time.Unix(1000, 0))
		return fs, record(fs, []string{"out.o"}, []string{"-O2"}, []string{"src.c"})
	}

	fs, d := base()
	original, err := d.CalculateDigest(fs)
	if err != nil {
		t.Fatal(err)
	}

	fs, d = base()
	d.Args = []string{"-O3"}
	changedArgs, _ := d.CalculateDigest(fs)
	if string(original) == string(changedArgs) {
		t.Error("digest unchanged after args change")
	}

	fs, d = base()
	fs.content["src.c"] = "different"
	changedContent, _ := d.CalculateDigest(fs)
	if string(original) == string(changedContent) {
		t.Error("digest unchanged after content change")
	}

	fs, d = base()
	d.Targets = []string{"other.o"}
	changedTarget, _ := d.CalculateDigest(fs)
	if string(original) == string(changedTarget) {
		t.Error("digest unchanged after target change")
	}
}

func TestPrimeFileDigestCacheAvoidsRereads(t *testing.T) {
	fs := newFakeFS()
	ts := time.Unix(1000, 0)
	fs.add("src.c", "content", ts)

	d := record(fs, []string{"out.o"}, nil, []string{"src.c"})
	d.DepDigests = [][]byte{[]byte(strings.Repeat("a", 32))}

	d.PrimeFileDigestCache(fs)
	digest, err := fs.FileDigest("src.c")
	if err != nil {
		t.Fatal(err)
	}
	if fs.reads != 0 {
		t.Errorf("file read %d times after priming, want 0", fs.reads)
	}
	if string(digest) != strings.Repeat("a", 32) {
		t.Error("seeded digest not returned")
	}
}

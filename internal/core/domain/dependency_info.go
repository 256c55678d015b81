package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"slices"
	"time"
)

// DependencyVersion is the schema version of DependencyInfo records. A stored
// record with any other version is treated as absent, forcing a rebuild.
const DependencyVersion = 3

// StatReader supplies file modification times for staleness checks. The
// engine implements it with a memoized timestamp cache.
type StatReader interface {
	// Timestamp returns the file's modification time with sub-second
	// precision, or an error if the file cannot be stat'ed.
	Timestamp(path string) (time.Time, error)
}

// DigestReader supplies content digests for content-addressed hashing. The
// engine implements it with a (path, timestamp)-keyed digest cache.
type DigestReader interface {
	// FileDigest returns the content digest of the file at path.
	FileDigest(path string) ([]byte, error)
	// SeedDigestCache primes the digest cache with a known digest for the
	// file as it existed at the given timestamp.
	SeedDigestCache(path string, timestamp time.Time, digest []byte)
}

// DependencyInfo records the facts of one build step at the time it last
// succeeded: its output targets, the arguments it was built with, and the
// timestamp (and optionally content digest) of every dependency. Records are
// superseded whole by the next successful build, never mutated.
type DependencyInfo struct {
	// Version is the schema version the record was written with.
	Version int

	// Targets are the step's output file paths. The first element is the
	// record's storage key.
	Targets []string

	// Args is the step's effective parameter vector. Any difference from the
	// current build's args makes the step stale.
	Args []string

	// DepPaths are the dependency file paths, parallel to DepTimestamps and,
	// when digests were requested, DepDigests.
	DepPaths []string

	// DepTimestamps are the dependency modification times at last build.
	DepTimestamps []time.Time

	// DepDigests are the dependency content digests at last build, or nil if
	// digest-based invalidation was not requested for this step.
	DepDigests [][]byte
}

// FindReason is the single staleness predicate. It returns the human-readable
// reason the step must be rebuilt, or ok=true if the record is current. The
// checks run in order: forced rebuild, changed args, missing targets, changed
// or vanished dependencies. A failed dependency stat counts as "no longer
// exists" rather than an error.
//
// Version checking happens at decode time; a record that exists in memory is
// always of the running schema version.
func (d *DependencyInfo) FindReason(stat StatReader, args []string, force bool) (reason string, ok bool) {
	if force {
		return "rebuild has been forced", false
	}
	if !slices.Equal(args, d.Args) {
		return fmt.Sprintf("%q != %q", args, d.Args), false
	}
	for _, target := range d.Targets {
		if _, err := stat.Timestamp(target); err != nil {
			return fmt.Sprintf("'%s' doesn't exist", target), false
		}
	}
	for i, path := range d.DepPaths {
		current, err := stat.Timestamp(path)
		if err != nil {
			return fmt.Sprintf("'%s' no longer exists", path), false
		}
		if !current.Equal(d.DepTimestamps[i]) {
			return fmt.Sprintf("'%s' has changed since last build", path), false
		}
	}
	return "", true
}

// IsUpToDate reports whether the step's targets are current for the given
// args. It is defined in terms of FindReason so the boolean and the
// reason-producing checks can never disagree.
func (d *DependencyInfo) IsUpToDate(stat StatReader, args []string) bool {
	_, ok := d.FindReason(stat, args, false)
	return ok
}

// PrimeFileDigestCache pushes every recorded (path, timestamp, digest) triple
// into the digest cache so CalculateDigest never re-reads a file that has not
// changed since last build.
func (d *DependencyInfo) PrimeFileDigestCache(digests DigestReader) {
	if len(d.DepDigests) != len(d.DepPaths) || len(d.DepTimestamps) != len(d.DepPaths) {
		return
	}
	for i, path := range d.DepPaths {
		digests.SeedDigestCache(path, d.DepTimestamps[i], d.DepDigests[i])
	}
}

// CalculateDigest produces the step's content-addressed cache key: a digest
// over the target paths in order, the args vector, and each dependency's path
// followed by its content digest. Timestamps never enter the digest, so two
// builds with identical inputs and dependency content hash identically
// regardless of when the files were written.
func (d *DependencyInfo) CalculateDigest(digests DigestReader) ([]byte, error) {
	d.PrimeFileDigestCache(digests)

	hasher := sha256.New()
	writeString := func(s string) {
		var length [4]byte
		binary.LittleEndian.PutUint32(length[:], uint32(len(s)))
		_, _ = hasher.Write(length[:])
		_, _ = hasher.Write([]byte(s))
	}

	for _, target := range d.Targets {
		writeString(target)
	}
	for _, arg := range d.Args {
		writeString(arg)
	}
	for _, path := range d.DepPaths {
		writeString(path)
		digest, err := digests.FileDigest(path)
		if err != nil {
			return nil, err
		}
		_, _ = hasher.Write(digest)
	}
	return hasher.Sum(nil), nil
}

package domain

import (
	"encoding/binary"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"
)

// Dependency records are persisted in an explicit little-endian binary form:
//
//	magic "cdep" | version u32 | targets | args | deps | digests | xxhash64
//
// String lists are a u32 count followed by u32-length-prefixed bytes. Each
// dependency is a path plus its modification time as UnixNano. The digest
// section is a presence byte followed, when set, by one length-prefixed
// digest per dependency. The trailing xxhash64 covers every preceding byte.

var depMagic = [4]byte{'c', 'd', 'e', 'p'}

// EncodeDependencyInfo serializes the record. Encoding the same logical
// record always yields identical bytes.
func EncodeDependencyInfo(d *DependencyInfo) []byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, depMagic[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(d.Version))

	buf = appendStrings(buf, d.Targets)
	buf = appendStrings(buf, d.Args)

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(d.DepPaths)))
	for i, path := range d.DepPaths {
		buf = appendString(buf, path)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(d.DepTimestamps[i].UnixNano()))
	}

	if d.DepDigests == nil {
		buf = append(buf, 0)
	} else {
		buf = append(buf, 1)
		for _, digest := range d.DepDigests {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(len(digest)))
			buf = append(buf, digest...)
		}
	}

	return binary.LittleEndian.AppendUint64(buf, xxhash.Sum64(buf))
}

// DecodeDependencyInfo deserializes a stored record. It returns
// ErrRecordVersionMismatch for a structurally sound record of another schema
// version, and ErrInvalidDependencyRecord for anything malformed.
func DecodeDependencyInfo(blob []byte) (*DependencyInfo, error) {
	if len(blob) < len(depMagic)+4+8 {
		return nil, zerr.Wrap(ErrInvalidDependencyRecord, "record too short")
	}
	if [4]byte(blob[:4]) != depMagic {
		return nil, zerr.Wrap(ErrInvalidDependencyRecord, "bad magic")
	}

	body, trailer := blob[:len(blob)-8], blob[len(blob)-8:]
	if binary.LittleEndian.Uint64(trailer) != xxhash.Sum64(body) {
		return nil, zerr.Wrap(ErrInvalidDependencyRecord, "checksum mismatch")
	}

	r := reader{buf: body[4:]}
	version := int(r.uint32())
	if version != DependencyVersion {
		return nil, zerr.With(ErrRecordVersionMismatch, "version", version)
	}

	d := &DependencyInfo{Version: version}
	d.Targets = r.strings()
	d.Args = r.strings()

	depCount := int(r.uint32())
	if r.failed || depCount > len(r.buf) {
		return nil, zerr.Wrap(ErrInvalidDependencyRecord, "truncated record")
	}
	d.DepPaths = make([]string, 0, depCount)
	d.DepTimestamps = make([]time.Time, 0, depCount)
	for range depCount {
		d.DepPaths = append(d.DepPaths, r.string())
		d.DepTimestamps = append(d.DepTimestamps, time.Unix(0, int64(r.uint64())))
	}

	switch r.byte() {
	case 0:
	case 1:
		d.DepDigests = make([][]byte, 0, depCount)
		for range depCount {
			d.DepDigests = append(d.DepDigests, r.bytes())
		}
	default:
		return nil, zerr.Wrap(ErrInvalidDependencyRecord, "bad digest marker")
	}

	if r.failed || len(r.buf) != 0 {
		return nil, zerr.Wrap(ErrInvalidDependencyRecord, "truncated record")
	}
	return d, nil
}

func appendString(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func appendStrings(buf []byte, ss []string) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(ss)))
	for _, s := range ss {
		buf = appendString(buf, s)
	}
	return buf
}

// reader is a cursor over the record body. Any out-of-bounds read sets failed
// and yields zero values, so callers can check once at the end.
type reader struct {
	buf    []byte
	failed bool
}

func (r *reader) byte() byte {
	if r.failed || len(r.buf) < 1 {
		r.failed = true
		return 0
	}
	b := r.buf[0]
	r.buf = r.buf[1:]
	return b
}

func (r *reader) uint32() uint32 {
	if r.failed || len(r.buf) < 4 {
		r.failed = true
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf)
	r.buf = r.buf[4:]
	return v
}

func (r *reader) uint64() uint64 {
	if r.failed || len(r.buf) < 8 {
		r.failed = true
		return 0
	}
	v := binary.LittleEndian.Uint64(r.buf)
	r.buf = r.buf[8:]
	return v
}

func (r *reader) bytes() []byte {
	n := int(r.uint32())
	if r.failed || len(r.buf) < n {
		r.failed = true
		return nil
	}
	b := make([]byte, n)
	copy(b, r.buf[:n])
	r.buf = r.buf[n:]
	return b
}

func (r *reader) string() string {
	return string(r.bytes())
}

func (r *reader) strings() []string {
	count := int(r.uint32())
	if r.failed || count > len(r.buf) {
		r.failed = true
		return nil
	}
	ss := make([]string, 0, count)
	for range count {
		ss = append(ss, r.string())
	}
	return ss
}

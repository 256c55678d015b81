package domain

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func sampleInfo() *DependencyInfo {
	return &DependencyInfo{
		Version:  DependencyVersion,
		Targets:  []string{"out.o", "out.d"},
		Args:     []string{"dcc", "-c", "src.c", "-o", "out.o"},
		DepPaths: []string{"src.c", "hdr.h"},
		DepTimestamps: []time.Time{
			time.Unix(1700000000, 123456789),
			time.Unix(1700000100, 987654321),
		},
		DepDigests: [][]byte{
			bytes.Repeat([]byte{0xaa}, 32),
			bytes.Repeat([]byte{0xbb}, 32),
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := sampleInfo()
	blob := EncodeDependencyInfo(original)

	decoded, err := DecodeDependencyInfo(blob)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Version != original.Version {
		t.Errorf("version = %d, want %d", decoded.Version, original.Version)
	}
	if len(decoded.Targets) != 2 || decoded.Targets[0] != "out.o" {
		t.Errorf("targets = %v", decoded.Targets)
	}
	if len(decoded.Args) != 5 || decoded.Args[4] != "out.o" {
		t.Errorf("args = %v", decoded.Args)
	}
	for i := range original.DepPaths {
		if decoded.DepPaths[i] != original.DepPaths[i] {
			t.Errorf("dep path %d = %q", i, decoded.DepPaths[i])
		}
		if !decoded.DepTimestamps[i].Equal(original.DepTimestamps[i]) {
			t.Errorf("dep timestamp %d = %v, want %v", i,
				decoded.DepTimestamps[i], original.DepTimestamps[i])
		}
		if !bytes.Equal(decoded.DepDigests[i], original.DepDigests[i]) {
			t.Errorf("dep digest %d mismatch", i)
		}
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	a := EncodeDependencyInfo(sampleInfo())
	b := EncodeDependencyInfo(sampleInfo())
	if !bytes.Equal(a, b) {
		t.Error("encoding the same record twice yields different bytes")
	}
}

func TestDecodeWithoutDigests(t *testing.T) {
	original := sampleInfo()
	original.DepDigests = nil

	decoded, err := DecodeDependencyInfo(EncodeDependencyInfo(original))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.DepDigests != nil {
		t.Errorf("DepDigests = %v, want nil", decoded.DepDigests)
	}
}

func TestDecodeVersionMismatch(t *testing.T) {
	old := sampleInfo()
	old.Version = DependencyVersion - 1

	_, err := DecodeDependencyInfo(EncodeDependencyInfo(old))
	if !errors.Is(err, ErrRecordVersionMismatch) {
		t.Errorf("error = %v, want ErrRecordVersionMismatch", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	valid := EncodeDependencyInfo(sampleInfo())

	cases := []struct {
		name string
		blob []byte
	}{
		{"empty", nil},
		{"too short", []byte("cdep")},
		{"bad magic", append([]byte("nope"), valid[4:]...)},
		{"truncated", valid[:len(valid)-20]},
		{"flipped byte", flipByte(valid, 10)},
		{"trailing junk", append(append([]byte{}, valid...), 0x00)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeDependencyInfo(tc.blob)
			if !errors.Is(err, ErrInvalidDependencyRecord) {
				t.Errorf("error = %v, want ErrInvalidDependencyRecord", err)
			}
		})
	}
}

func flipByte(blob []byte, i int) []byte {
	out := append([]byte{}, blob...)
	out[i] ^= 0xff
	return out
}

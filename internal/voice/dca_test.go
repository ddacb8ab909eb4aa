package voice

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func writeDCA(t *testing.T, frames [][]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loop.dca")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	for _, frame := range frames {
		if err := binary.Write(f, binary.LittleEndian, int16(len(frame))); err != nil {
			t.Fatalf("write length: %v", err)
		}
		if _, err := f.Write(frame); err != nil {
			t.Fatalf("write frame: %v", err)
		}
	}
	return path
}

func TestLoadFrames(t *testing.T) {
	want := [][]byte{{0x01, 0x02, 0x03}, {0x04}, {0x05, 0x06}}
	frames, err := LoadFrames(writeDCA(t, want))
	if err != nil {
		t.Fatalf("LoadFrames: %v", err)
	}
	if len(frames) != len(want) {
		t.Fatalf("expected %d frames, got %d", len(want), len(frames))
	}
	for i := range want {
		if string(frames[i]) != string(want[i]) {
			t.Fatalf("frame %d mismatch: %v != %v", i, frames[i], want[i])
		}
	}
}

func TestLoadFramesEmptyFile(t *testing.T) {
	if _, err := LoadFrames(writeDCA(t, nil)); err == nil {
		t.Fatal("expected error for file with no frames")
	}
}

func TestLoadFramesTruncated(t *testing.T) {
	path := writeDCA(t, [][]byte{{0x01, 0x02}})
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := os.WriteFile(path, data[:len(data)-1], 0o644); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	if _, err := LoadFrames(path); err == nil {
		t.Fatal("expected error for truncated frame")
	}
}

func TestLoadFramesMissing(t *testing.T) {
	if _, err := LoadFrames(filepath.Join(t.TempDir(), "nope.dca")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

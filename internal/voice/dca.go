package voice

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// LoadFrames reads a DCA-encoded audio file into its opus frames. DCA is
// a flat sequence of int16-little-endian length prefixes, each followed
// by one pre-encoded opus frame, so playback needs no encoder at all.
func LoadFrames(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var frames [][]byte
	for {
		var length int16
		err := binary.Read(r, binary.LittleEndian, &length)
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read frame length: %w", err)
		}
		if length <= 0 {
			return nil, fmt.Errorf("invalid frame length %d", length)
		}

		frame := make([]byte, length)
		if _, err := io.ReadFull(r, frame); err != nil {
			return nil, fmt.Errorf("read %d-byte frame: %w", length, err)
		}
		frames = append(frames, frame)
	}

	if len(frames) == 0 {
		return nil, errors.New("audio file contains no frames")
	}
	return frames, nil
}

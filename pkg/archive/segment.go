package archive

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/golang/snappy"
)

// framePrediction marks a frame whose payload is one JSON-encoded
// prediction.
const framePrediction byte = 1

// Frame is one decoded archive record. Payload is the uncompressed bytes.
type Frame struct {
	Seq       uint64
	Kind      byte
	Payload   []byte
	Timestamp int64
}

// writeFrame appends one frame to the writer.
// Format: [Seq:8][Kind:1][PayloadLen:4][Payload:N][Checksum:4][Timestamp:8]
// where Payload is snappy-compressed and the checksum covers the
// compressed bytes.
func writeFrame(w *bufio.Writer, seq uint64, kind byte, payload []byte, ts int64) (int, error) {
	compressed := snappy.Encode(nil, payload)

	if err := binary.Write(w, binary.BigEndian, seq); err != nil {
		return 0, err
	}
	if err := w.WriteByte(kind); err != nil {
		return 0, err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(compressed))); err != nil {
		return 0, err
	}
	if _, err := w.Write(compressed); err != nil {
		return 0, err
	}
	if err := binary.Write(w, binary.BigEndian, crc32.ChecksumIEEE(compressed)); err != nil {
		return 0, err
	}
	if err := binary.Write(w, binary.BigEndian, ts); err != nil {
		return 0, err
	}
	return frameOverhead + len(compressed), w.Flush()
}

// frameOverhead is the fixed byte cost of a frame around its payload.
const frameOverhead = 8 + 1 + 4 + 4 + 8

// readFrames decodes every frame in the reader, verifying checksums.
func readFrames(r *bufio.Reader) ([]Frame, error) {
	var frames []Frame

	for {
		var f Frame

		if err := binary.Read(r, binary.BigEndian, &f.Seq); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}

		kind, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		f.Kind = kind

		var payloadLen uint32
		if err := binary.Read(r, binary.BigEndian, &payloadLen); err != nil {
			return nil, err
		}

		compressed := make([]byte, payloadLen)
		if _, err := io.ReadFull(r, compressed); err != nil {
			return nil, err
		}

		var checksum uint32
		if err := binary.Read(r, binary.BigEndian, &checksum); err != nil {
			return nil, err
		}
		if crc32.ChecksumIEEE(compressed) != checksum {
			return nil, fmt.Errorf("checksum mismatch for frame %d", f.Seq)
		}

		payload, err := snappy.Decode(nil, compressed)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress frame %d: %w", f.Seq, err)
		}
		f.Payload = payload

		if err := binary.Read(r, binary.BigEndian, &f.Timestamp); err != nil {
			return nil, err
		}

		frames = append(frames, f)
	}

	return frames, nil
}

// ReadSegment decodes all frames in one segment file.
func ReadSegment(path string) ([]Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return readFrames(bufio.NewReader(file))
}

// segmentName formats the file name for a segment index.
func segmentName(index uint64) string {
	return fmt.Sprintf("predictions-%06d.seg", index)
}

// listSegments returns the archive's segment paths in index order.
func listSegments(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "predictions-*.seg"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// parseSegmentIndex extracts the index from a segment path.
func parseSegmentIndex(path string) (uint64, error) {
	var index uint64
	if _, err := fmt.Sscanf(filepath.Base(path), "predictions-%d.seg", &index); err != nil {
		return 0, fmt.Errorf("unrecognized segment name %q: %w", filepath.Base(path), err)
	}
	return index, nil
}

// Package archive persists completed predictions to append-only segment
// files with snappy compression, rotating segments at a size bound and
// optionally shipping sealed segments to S3-compatible object storage.
// The in-memory history ring forgets; the archive is what remains.
package archive

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dd0wney/cluso-cascade/pkg/logging"
	"github.com/dd0wney/cluso-cascade/pkg/simulation"
)

// DefaultSegmentMaxBytes rotates segments at 4 MiB.
const DefaultSegmentMaxBytes = 4 << 20

// S3Config points sealed segments at an object store. Endpoint is left
// empty for real AWS and set for MinIO-style deployments.
type S3Config struct {
	Enabled   bool   `yaml:"enabled"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// Config tunes the archive.
type Config struct {
	// Dir holds the segment files.
	Dir string `yaml:"dir"`
	// SegmentMaxBytes rotates the active segment once it grows past this.
	// Zero selects DefaultSegmentMaxBytes.
	SegmentMaxBytes int64 `yaml:"segment_max_bytes"`
	// S3 ships sealed segments off-host when enabled.
	S3 S3Config `yaml:"s3"`
}

// Archiver appends predictions to the active segment. It satisfies the
// history recorder contract so it can sit behind the prediction ring.
type Archiver struct {
	dir      string
	maxBytes int64
	uploader *s3Uploader
	logger   logging.Logger

	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	seq    uint64
	index  uint64
	size   int64
}

// New opens the archive, continuing the newest existing segment when it
// still has room and its sequence numbering either way.
func New(cfg Config, logger logging.Logger) (*Archiver, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("archive directory not set")
	}
	maxBytes := cfg.SegmentMaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultSegmentMaxBytes
	}

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	a := &Archiver{
		dir:      cfg.Dir,
		maxBytes: maxBytes,
		logger:   logging.OrNop(logger),
		index:    1,
	}

	if cfg.S3.Enabled {
		uploader, err := newS3Uploader(context.Background(), cfg.S3)
		if err != nil {
			return nil, err
		}
		a.uploader = uploader
	}

	if err := a.recover(); err != nil {
		return nil, err
	}
	if err := a.openSegment(); err != nil {
		return nil, err
	}

	a.logger.Info("archive opened",
		logging.Component("archive"),
		logging.Any("segment", segmentName(a.index)),
		logging.Any("next_seq", a.seq+1))
	return a, nil
}

// recover scans existing segments to continue index and sequence
// numbering. Only the newest segment's frames need decoding.
func (a *Archiver) recover() error {
	paths, err := listSegments(a.dir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return nil
	}

	latest := paths[len(paths)-1]
	index, err := parseSegmentIndex(latest)
	if err != nil {
		return err
	}

	frames, err := ReadSegment(latest)
	if err != nil {
		return fmt.Errorf("failed to recover from %s: %w", latest, err)
	}
	if len(frames) > 0 {
		a.seq = frames[len(frames)-1].Seq
	}

	info, err := os.Stat(latest)
	if err != nil {
		return err
	}
	if info.Size() >= a.maxBytes {
		a.index = index + 1
		return nil
	}
	a.index = index
	a.size = info.Size()
	return nil
}

// openSegment opens the active segment for appending.
func (a *Archiver) openSegment() error {
	path := filepath.Join(a.dir, segmentName(a.index))
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open segment: %w", err)
	}
	a.file = file
	a.writer = bufio.NewWriter(file)
	return nil
}

// Record appends one prediction frame, rotating first when the active
// segment is full.
func (a *Archiver) Record(ctx context.Context, pred *simulation.Prediction) error {
	payload, err := json.Marshal(pred)
	if err != nil {
		return fmt.Errorf("failed to encode prediction %s: %w", pred.ID, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.size >= a.maxBytes {
		if err := a.rotate(ctx); err != nil {
			return err
		}
	}

	a.seq++
	n, err := writeFrame(a.writer, a.seq, framePrediction, payload, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to append prediction %s: %w", pred.ID, err)
	}
	a.size += int64(n)
	return nil
}

// rotate seals the active segment and opens the next one. Sealed
// segments ship to object storage when configured; an upload failure
// logs and leaves the segment on disk.
func (a *Archiver) rotate(ctx context.Context) error {
	sealed := filepath.Join(a.dir, segmentName(a.index))

	if err := a.writer.Flush(); err != nil {
		return err
	}
	if err := a.file.Sync(); err != nil {
		return err
	}
	if err := a.file.Close(); err != nil {
		return err
	}

	if a.uploader != nil {
		if err := a.uploader.Upload(ctx, sealed); err != nil {
			a.logger.Warn("segment upload failed",
				logging.Component("archive"),
				logging.Any("segment", segmentName(a.index)),
				logging.Error(err))
		}
	}

	a.index++
	a.size = 0
	if err := a.openSegment(); err != nil {
		return err
	}

	a.logger.Info("segment rotated",
		logging.Component("archive"),
		logging.Any("segment", segmentName(a.index)))
	return nil
}

// Replay decodes every archived prediction in sequence order.
func (a *Archiver) Replay() ([]*simulation.Prediction, error) {
	a.mu.Lock()
	if err := a.writer.Flush(); err != nil {
		a.mu.Unlock()
		return nil, err
	}
	paths, err := listSegments(a.dir)
	a.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var preds []*simulation.Prediction
	for _, path := range paths {
		frames, err := ReadSegment(path)
		if err != nil {
			return nil, err
		}
		for _, f := range frames {
			if f.Kind != framePrediction {
				continue
			}
			var pred simulation.Prediction
			if err := json.Unmarshal(f.Payload, &pred); err != nil {
				return nil, fmt.Errorf("failed to decode frame %d: %w", f.Seq, err)
			}
			preds = append(preds, &pred)
		}
	}
	return preds, nil
}

// Close flushes and closes the active segment.
func (a *Archiver) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return nil
	}
	if err := a.writer.Flush(); err != nil {
		return err
	}
	if err := a.file.Sync(); err != nil {
		return err
	}
	err := a.file.Close()
	a.file = nil
	return err
}

package checkpoint

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"yt-transcripts/internal/model"
)

var csvHeader = []string{"id", "transcript"}

// CSVStore keeps the checkpoint as a two-column id,transcript file and
// rewrites a full snapshot on every Record.
type CSVStore struct {
	path    string
	order   []string
	entries map[string]string
}

func NewCSVStore(path string) (*CSVStore, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, fmt.Errorf("checkpoint path is required")
	}
	return &CSVStore{path: p, entries: map[string]string{}}, nil
}

func (s *CSVStore) Path() string {
	return s.path
}

func (s *CSVStore) Load(ctx context.Context) (Checkpoint, error) {
	s.order = nil
	s.entries = map[string]string{}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Checkpoint{}, nil
		}
		return nil, fmt.Errorf("read checkpoint %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Checkpoint{}, nil
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read header: %v", model.ErrCorruptCheckpoint, s.path, err)
	}
	idCol, textCol := columnIndex(header, "id", "video_id"), columnIndex(header, "transcript")
	if idCol < 0 || textCol < 0 {
		return nil, fmt.Errorf("%w: %s: header %v lacks id/transcript columns", model.ErrCorruptCheckpoint, s.path, header)
	}

	cp := Checkpoint{}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", model.ErrCorruptCheckpoint, s.path, err)
		}
		if idCol >= len(rec) {
			return nil, fmt.Errorf("%w: %s: short row %v", model.ErrCorruptCheckpoint, s.path, rec)
		}
		id := strings.TrimSpace(rec[idCol])
		if id == "" {
			continue
		}
		payload := ""
		if textCol < len(rec) {
			payload = rec[textCol]
		}
		outcome, ok := model.DecodePayload(payload)
		if !ok {
			continue
		}
		if _, seen := s.entries[id]; !seen {
			s.order = append(s.order, id)
		}
		s.entries[id] = payload
		cp[id] = outcome
	}
	return cp, nil
}

func (s *CSVStore) Record(ctx context.Context, id string, outcome model.Outcome) error {
	payload, err := validateRecord(id, outcome)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	_, existed := s.entries[id]
	s.entries[id] = payload
	if !existed {
		s.order = append(s.order, id)
	}

	data, err := s.snapshot()
	if err != nil {
		return err
	}
	if err := WriteBytes(s.path, data); err != nil {
		return fmt.Errorf("persist checkpoint: %w", err)
	}
	return nil
}

func (s *CSVStore) Close() error {
	return nil
}

func (s *CSVStore) snapshot() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("encode checkpoint header: %w", err)
	}
	for _, id := range s.order {
		if err := w.Write([]string{id, s.entries[id]}); err != nil {
			return nil, fmt.Errorf("encode checkpoint row %s: %w", id, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode checkpoint: %w", err)
	}
	return buf.Bytes(), nil
}

func columnIndex(header []string, names ...string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for _, n := range names {
			if h == n {
				return i
			}
		}
	}
	return -1
}

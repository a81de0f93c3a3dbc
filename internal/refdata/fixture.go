package refdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Source produces a reference record set.
type Source interface {
	Name() string
	Load(ctx context.Context) (Records, error)
}

// DecodeRecords reads a JSON record set. Unknown fields are rejected so that typos in fixtures fail loudly.
func DecodeRecords(r io.Reader) (Records, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var records Records
	if err := dec.Decode(&records); err != nil {
		return Records{}, fmt.Errorf("refdata: decode records: %w", err)
	}
	return records, nil
}

// FileSource loads records from a JSON fixture on disk.
type FileSource struct {
	Path string
}

func (f FileSource) Name() string { return "file" }

func (f FileSource) Load(ctx context.Context) (Records, error) {
	if err := ctx.Err(); err != nil {
		return Records{}, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return Records{}, fmt.Errorf("refdata: read fixture: %w", err)
	}
	return DecodeRecords(bytes.NewReader(data))
}

// LoadSnapshotFile is a convenience for tools and tests: read, decode and validate a fixture.
func LoadSnapshotFile(path string) (*Snapshot, error) {
	records, err := FileSource{Path: path}.Load(context.Background())
	if err != nil {
		return nil, err
	}
	return NewSnapshot(records)
}

package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"

	"github.com/lborres/rota/core"
)

// Adapter stores the account document as a JSON file. Comments and
// trailing commas are accepted on read.
type Adapter struct {
	path string
}

var _ core.ConfigStorage = (*Adapter)(nil)

func New(path string) *Adapter {
	return &Adapter{path: path}
}

// Load reads the document. A missing file yields an empty document.
func (a *Adapter) Load(ctx context.Context) (*core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(a.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &core.Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", a.path, err)
	}

	doc := &core.Document{}
	if err := json.Unmarshal(jsonc.ToJSON(data), doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", a.path, err)
	}
	return doc, nil
}

// Save writes the document to a temp file in the same directory and
// renames it over the target.
func (a *Adapter) Save(ctx context.Context, doc *core.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(a.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(a.path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, a.path); err != nil {
		return fmt.Errorf("replacing %s: %w", a.path, err)
	}
	return nil
}

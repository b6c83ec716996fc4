package dataset

import (
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/large-farva/antpos/internal/registry"
)

//go:embed share/*.csv
var shareFS embed.FS

// Embedded returns the sample tables compiled into the binary.
func Embedded() (registry.Tables, error) {
	sub, err := fs.Sub(shareFS, "share")
	if err != nil {
		return registry.Tables{}, err
	}
	return FromFS(sub)
}

// FromDir reads the CSV tables from a directory on disk.
func FromDir(dir string) (registry.Tables, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return registry.Tables{}, err
	}
	if !info.IsDir() {
		return registry.Tables{}, fmt.Errorf("%s is not a directory", dir)
	}
	return FromFS(os.DirFS(dir))
}

// FromFS reads <table>.csv for every table from the root of fsys. The HBA
// rotation table is optional.
func FromFS(fsys fs.FS) (registry.Tables, error) {
	var t registry.Tables
	var err error
	if t.Antennas, err = readTable(fsys, registry.TableAntennas); err != nil {
		return registry.Tables{}, err
	}
	if t.PhaseCentres, err = readTable(fsys, registry.TablePhaseCentres); err != nil {
		return registry.Tables{}, err
	}
	if t.References, err = readTable(fsys, registry.TableReferences); err != nil {
		return registry.Tables{}, err
	}
	t.HBARotations, err = readTable(fsys, registry.TableHBARotations)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return registry.Tables{}, err
	}
	return t, nil
}

func readTable(fsys fs.FS, name string) (registry.Table, error) {
	f, err := fsys.Open(name + ".csv")
	if err != nil {
		return registry.Table{}, err
	}
	defer f.Close()

	t, err := ReadCSV(f)
	if err != nil {
		return registry.Table{}, fmt.Errorf("reading %s.csv: %w", name, err)
	}
	t.Name = name
	return t, nil
}

// ReadCSV parses one table. The first record is the header; records may
// carry a varying number of fields and lines starting with # are skipped.
func ReadCSV(r io.Reader) (registry.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	records, err := cr.ReadAll()
	if err != nil {
		return registry.Table{}, err
	}
	if len(records) == 0 {
		return registry.Table{}, errors.New("missing header")
	}
	return registry.Table{Header: records[0], Rows: records[1:]}, nil
}

// WriteCSV writes every non-empty table to dir as <table>.csv. Each file is
// written to a temp file and renamed so readers never see a partial table.
func WriteCSV(dir string, t registry.Tables) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, tab := range []registry.Table{t.Antennas, t.PhaseCentres, t.References, t.HBARotations} {
		if tab.Name == "" || len(tab.Header) == 0 {
			continue
		}
		if err := writeTableAtomic(filepath.Join(dir, tab.Name+".csv"), tab); err != nil {
			return fmt.Errorf("writing %s: %w", tab.Name, err)
		}
	}
	return nil
}

func writeTableAtomic(path string, t registry.Table) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "table-*.tmp")
	if err != nil {
		return err
	}

	w := csv.NewWriter(tmp)
	_ = w.Write(t.Header)
	_ = w.WriteAll(t.Rows)
	if err := w.Error(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), path)
}

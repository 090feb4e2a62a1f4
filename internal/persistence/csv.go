package persistence

import (
	"io"

	"github.com/gocarina/gocsv"

	"github.com/gravitas-games/hexmove/internal/grid"
)

// WriteCellsCSV writes the snapshot cells with a header row.
func WriteCellsCSV(w io.Writer, snap grid.Snapshot) error {
	return gocsv.Marshal(snap.Cells, w)
}

// ReadCellsCSV parses cells written by WriteCellsCSV.
func ReadCellsCSV(r io.Reader) ([]grid.CellRecord, error) {
	var cells []grid.CellRecord
	if err := gocsv.Unmarshal(r, &cells); err != nil {
		return nil, err
	}
	return cells, nil
}

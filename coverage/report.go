package coverage

import (
	"fmt"
	"io"
	"os"
)

// FormatReport prints the snapshot as a text report with the hit count of
// every bin.
func FormatReport(w io.Writer, db DB) error {
	_, err := fmt.Fprintf(w, "TYPE %s\n    Run: %s\n    Samples: %d\n"+
		"    Coverage: %.2f%%\n", db.Group, db.RunID, db.Samples, db.Coverage)
	if err != nil {
		return err
	}

	for start := 0; start < len(db.Bins); {
		end := start
		hit := 0

		for end < len(db.Bins) &&
			db.Bins[end].Kind == db.Bins[start].Kind &&
			db.Bins[end].Point == db.Bins[start].Point {
			if db.Bins[end].Hit() {
				hit++
			}
			end++
		}

		label := "CVP"
		if db.Bins[start].Kind == KindCross {
			label = "CROSS"
		}

		_, err := fmt.Fprintf(w, "    %s %s : %.2f%%\n", label,
			db.Bins[start].Point, 100*float64(hit)/float64(end-start))
		if err != nil {
			return err
		}

		for _, b := range db.Bins[start:end] {
			if _, err := fmt.Fprintf(w, "        %s : %d\n",
				b.Bin, b.Hits); err != nil {
				return err
			}
		}

		start = end
	}

	return nil
}

// AppendReport appends the text report of the snapshot to a file, so that
// the reports of successive runs accumulate.
func AppendReport(path string, db DB) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	return FormatReport(f, db)
}

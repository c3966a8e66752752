package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"replaylistener/internal/replay"
)

// FolderStats summarizes one date folder.
type FolderStats struct {
	Name      string
	Entries   int
	Unique    int
	Malformed int
	Files     int
	Bytes     int64
}

// Stats summarizes the whole download root.
type Stats struct {
	Folders []FolderStats
	Entries int
	Unique  int
	Files   int
	Bytes   int64
}

// Stats walks every date folder and reports ledger and replay file counts.
// Duplicate ledger lines show up as Entries greater than Unique.
func (l *Ledger) Stats() (Stats, error) {
	var out Stats
	folders, err := l.folders()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return out, nil
		}
		return out, err
	}

	all := make(SeenSet)
	for _, name := range folders {
		st := FolderStats{Name: name}
		local := make(SeenSet)
		rs, err := l.readFile(filepath.Join(l.root, name, FileName), func(id replay.ID) {
			local.Add(id)
			all.Add(id)
		})
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return out, err
		}
		st.Entries = rs.entries
		st.Malformed = rs.malformed
		st.Unique = local.Len()

		files, err := afero.ReadDir(l.fs, filepath.Join(l.root, name))
		if err != nil {
			return out, err
		}
		for _, f := range files {
			if f.IsDir() || f.Name() == FileName || strings.HasPrefix(f.Name(), ".") {
				continue
			}
			st.Files++
			st.Bytes += f.Size()
		}

		out.Folders = append(out.Folders, st)
		out.Entries += st.Entries
		out.Files += st.Files
		out.Bytes += st.Bytes
	}
	out.Unique = all.Len()
	return out, nil
}

package browser

import (
	"strconv"

	"github.com/tonimelisma/filemgr-go/internal/api"
)

// ParentName is the name of the synthetic row that leads to the parent directory.
const ParentName = ".."

// Row is one rendered line of the listing.
type Row struct {
	Entry    api.FileEntry
	Parent   bool
	Selected bool
	Type     string
	Size     string
	Modified string
}

// View is the rendered state of the controller. Front ends draw it; they
// never read controller fields directly.
type View struct {
	Username    string
	Path        string
	Rows        []Row
	LoginPrompt bool
	Status      string
	Selected    int
}

// LoggedIn reports whether the view belongs to an authenticated session.
func (v View) LoggedIn() bool {
	return v.Username != ""
}

// SelectedLabel is the visible selection count.
func (v View) SelectedLabel() string {
	if v.Selected == 1 {
		return "Selected: 1 item"
	}

	return "Selected: " + strconv.Itoa(v.Selected) + " items"
}

// buildRows renders entries for path. Non-root paths get a leading ".." row.
func buildRows(path string, entries []api.FileEntry, sel *Selection) []Row {
	rows := make([]Row, 0, len(entries)+1)

	if path != "" {
		rows = append(rows, Row{
			Entry:    api.FileEntry{Name: ParentName, IsDir: true, FullPath: ParentPath(path)},
			Parent:   true,
			Type:     FileType(ParentName, true),
			Size:     "-",
			Modified: "-",
		})
	}

	for _, e := range entries {
		r := Row{
			Entry:    e,
			Selected: !e.IsDir && sel.Has(e.Name),
			Type:     FileType(e.Name, e.IsDir),
			Size:     "-",
			Modified: e.Modified,
		}

		if !e.IsDir {
			r.Size = FormatSize(e.Size)
		}

		if r.Modified == "" {
			r.Modified = "-"
		}

		rows = append(rows, r)
	}

	return rows
}

package browser

import (
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

// sizeUnits are 1024-based; values past the last unit stay in TB.
var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

const sizeBase = 1024

// FormatSize returns a human-readable size with at most two decimals and no
// trailing zeros: 1536 -> "1.5 KB", 0 -> "0 B".
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}

	i := 0
	for v := bytes; v >= sizeBase && i < len(sizeUnits)-1; v /= sizeBase {
		i++
	}

	v := float64(bytes) / math.Pow(sizeBase, float64(i))
	v = math.Round(v*100) / 100

	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}

var fileTypes = map[string]string{
	"txt":  "Text document",
	"pdf":  "PDF document",
	"doc":  "Word document",
	"docx": "Word document",
	"xls":  "Excel spreadsheet",
	"xlsx": "Excel spreadsheet",
	"jpg":  "JPEG image",
	"jpeg": "JPEG image",
	"png":  "PNG image",
	"gif":  "GIF image",
	"mp4":  "MP4 video",
	"mp3":  "MP3 audio",
	"zip":  "Archive",
	"rar":  "Archive",
	"exe":  "Executable",
	"js":   "JavaScript file",
	"html": "Web page",
	"css":  "Stylesheet",
	"py":   "Python script",
}

// FileType returns a human label for an entry based on its extension.
func FileType(name string, isDir bool) string {
	if isDir {
		return "Folder"
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if t, ok := fileTypes[ext]; ok {
		return t
	}

	return "File"
}

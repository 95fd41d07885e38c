package server

import (
	"path"
	"strings"
	"unicode"
)

// defaultUploadName stands in for uploads whose client name is unusable
const defaultUploadName = "photo"

// uploadName reduces a client-supplied file name to a display name. Some
// browsers send a full local path; only the last element is kept. The name
// is echoed in snapshots and logs and never touches the filesystem.
func uploadName(raw string) string {
	base := path.Base(strings.ReplaceAll(raw, "\\", "/"))

	name := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r), strings.ContainsRune(`"<>|*?:`, r):
			return -1
		default:
			return r
		}
	}, base)

	name = strings.Trim(name, " .")
	if name == "" || name == "/" {
		return defaultUploadName
	}
	return name
}

package browser

import "errors"

// Sentinel errors returned by Controller operations. Remote failures are
// returned as wrapped api errors; these cover local checks.
var (
	ErrNotLoggedIn      = errors.New("browser: not logged in")
	ErrEmptyFolderName  = errors.New("browser: folder name is empty")
	ErrNotAFile         = errors.New("browser: entry is not a file")
	ErrNotADirectory    = errors.New("browser: entry is not a directory")
	ErrDeleteNotConfirm = errors.New("browser: delete not confirmed")
	ErrUploadTooLarge   = errors.New("browser: file exceeds maximum upload size")
)

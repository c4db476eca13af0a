//go:build windows

package prop

import "os"

// setAccessLabel is a no-op on Windows: POSIX-style extended attributes
// do not exist on NTFS in a portable form.
func setAccessLabel(file *os.File, label string) error {
	return nil
}

// checkOwnerAndMode is a no-op on Windows: POSIX uid/gid/mode checks do
// not apply.
func checkOwnerAndMode(info os.FileInfo) error {
	return nil
}

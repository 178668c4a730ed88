package pio

import (
	"os"

	"golang.org/x/sys/unix"
)

func fadviseWillNeed(f *os.File, off, n int64) {
	// The advice is only a hint, a failure does not affect reads.
	_ = unix.Fadvise(int(f.Fd()), off, n, unix.FADV_WILLNEED)
}

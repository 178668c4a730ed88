//go:build !linux

package pio

import "os"

func fadviseWillNeed(*os.File, int64, int64) {}

//go:build linux

package commands

import (
	"crashmem/process"
	"crashmem/process_linux"
)

func newOpener() process.Opener {
	return process_linux.NewHelper()
}

//go:build windows

package commands

import (
	"crashmem/process"
	"crashmem/process_windows"
)

func newOpener() process.Opener {
	return process_windows.NewHelper()
}

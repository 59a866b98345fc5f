//go:build windows

package main

import (
	"crashmem/process"
	"crashmem/process_windows"
)

func openPID(pid process.ProcessID) (process.Process, error) {
	return process_windows.NewWithPID(pid)
}

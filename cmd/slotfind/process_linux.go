//go:build linux

package main

import (
	"crashmem/process"
	"crashmem/process_linux"
)

func openPID(pid process.ProcessID) (process.Process, error) {
	return process_linux.NewWithPID(pid)
}

//go:build linux || darwin || freebsd || netbsd || openbsd

package main

import "syscall"

// highNice is the niceness requested. Lowering it below zero needs
// privileges.
const highNice = -10

// raisePriority lowers the nice value of the process.
func raisePriority() error {
	return syscall.Setpriority(syscall.PRIO_PROCESS, 0, highNice)
}

//go:build !windows && !linux && !darwin && !freebsd && !netbsd && !openbsd

package main

import "errors"

func raisePriority() error {
	return errors.New("not supported on this platform")
}

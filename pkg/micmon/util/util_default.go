//go:build !windows

package util

func elevated() bool {
	return false
}

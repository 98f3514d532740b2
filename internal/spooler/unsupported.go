//go:build !windows

package spooler

// Available reports whether this build carries a native spooler binding.
const Available = false

// Native returns nil: there is no RAW spooler facility on this platform.
func Native() Spooler {
	return nil
}

package app

import "errors"

// ExitCode maps an error returned by Run to a process exit status: 0 for
// nil, the code carried by the first error in the chain that implements
// ExitCode() int, and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		if code := coder.ExitCode(); code != 0 {
			return code
		}
	}
	return 1
}

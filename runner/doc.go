// Package runner executes code and shell commands as subprocesses.
//
// Four variants share the Runner interface:
//
//   - General runs a command through the shell and waits for it.
//   - Script writes source to a temporary file and runs an interpreter on it.
//     The file is removed on every exit path.
//   - Stream drains stdout and stderr concurrently while the process runs and
//     returns whatever it collected once both streams close or the maximum
//     wait expires. The process group is always killed and reaped.
//   - Expression passes the code as a single argument to an interpreter
//     such as "osascript -e".
//
// Runners never return Go errors. Spawn failures, non-zero exits and
// timeouts all come back as an Outcome with StatusFailure.
//
// A Registry maps language identifiers to runners and can fall back to a
// General runner for identifiers it does not know.
package runner

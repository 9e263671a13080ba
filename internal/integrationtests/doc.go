// Package integrationtests runs whole commands against real child
// processes. The toolchain and harness are shell scripts configured through
// the workspace file, so the tests need a POSIX shell but no compiler.
package integrationtests

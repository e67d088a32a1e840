// Package version reports the build of the bindctl binary. The variables
// are set with -ldflags "-X" when releasing.
package version

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Build identifiers, overridden at link time.
var (
	Package  = "github.com/vnetkit/bindstate"
	Version  = "v0.1.0+unknown"
	Revision = ""
)

// FprintVersion writes one line naming the binary, the module and the
// build, and the VCS revision when it is known:
//
//	bindctl github.com/vnetkit/bindstate v0.1.0 3f1c2a9
func FprintVersion(w io.Writer) {
	fields := []interface{}{filepath.Base(os.Args[0]), Package, Version}
	if Revision != "" {
		fields = append(fields, Revision)
	}
	fmt.Fprintln(w, fields...)
}

// PrintVersion is FprintVersion on stdout.
func PrintVersion() {
	FprintVersion(os.Stdout)
}

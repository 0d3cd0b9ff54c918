package script

import (
	"fmt"
	"io/fs"

	"github.com/roach88/wtas/internal/ir"
)

// Load reads the script at name, a slash-separated path relative to the
// root of fsys, and parses it.
//
// Read failures are reported as a single KindIO error. Names that are not
// valid fs paths (absolute, or escaping the root with "..") are rejected
// the same way.
func Load(fsys fs.FS, name string) (*ir.Script, ErrorList) {
	if !fs.ValidPath(name) {
		return nil, ErrorList{{Kind: KindIO, Message: fmt.Sprintf("invalid script path %q", name)}}
	}

	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, ErrorList{{Kind: KindIO, Message: fmt.Sprintf("read script: %v", err)}}
	}

	return Parse(string(data))
}

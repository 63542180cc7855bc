package codegen

import (
	"fmt"
	"path/filepath"
)

// Artifact naming is a pure function of (id, platform, suffix). Ids are
// process-unique, so no two live kernels collide on function name or path.
// Ids restart at 0 on every process run, so artifacts from a previous run in
// the same cache directory are silently overwritten; the scheme is
// sequential, not content-addressed.

// FuncNameForID renders the exported symbol name for a kernel id.
func FuncNameForID(id int) string {
	return fmt.Sprintf("func%06d", id)
}

// SourceNameForID renders the cache-relative source file name.
func SourceNameForID(id int, suffix string) string {
	return fmt.Sprintf("tmp%04d.%s", id, suffix)
}

// LibraryNameForID renders the cache-relative shared-library file name for
// the given GOOS. Darwin wants .dylib; everything else gets the source name
// with a .so appended.
func LibraryNameForID(id int, suffix, goos string) string {
	if goos == "darwin" {
		return fmt.Sprintf("tmp%04d.dylib", id)
	}
	return SourceNameForID(id, suffix) + ".so"
}

// UnformattedName returns the sibling path the pre-format source is copied
// to before the formatter runs.
func UnformattedName(sourcePath string) string {
	return sourcePath + "_unformatted"
}

// DisassemblyName returns the sibling path disassembly output is written to.
func DisassemblyName(libraryPath string) string {
	return libraryPath + ".s"
}

func joinCache(folder, name string) string {
	return filepath.Join(folder, name)
}

//go:build !voltex_nocompact

package voltex

// Link the NanoVDB-style encoder into the compact registry. Build with
// -tags voltex_nocompact to leave only the no-op encoder.
import _ "github.com/gogpu/voltex/compact/nanovdb"

package main

import (
	"io"

	"github.com/gogpu/voltex"
	"github.com/gogpu/voltex/vdb"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// reportGrid prints the source grid summary.
func reportGrid(w io.Writer, g vdb.GridBase) {
	bbox := g.EvalActiveVoxelBoundingBox()
	printer.Fprintf(w, "grid      %q (%v, %v)\n", g.Name(), g.ValueType(), g.Class())
	printer.Fprintf(w, "active    %d voxels in %v\n", g.ActiveVoxelCount(), bbox)
	printer.Fprintf(w, "voxel     %v\n", g.Transform().VoxelSize())
}

// reportTexture prints the texture metadata.
func reportTexture(w io.Writer, m voltex.ImageMetaData) {
	printer.Fprintf(w, "texture   %s, %d×%d×%d, %d channel(s)\n", m.Type, m.Width, m.Height, m.Depth, m.Channels)
	dense := m.Voxels() * m.Channels * 4
	if m.IsCompact() {
		printer.Fprintf(w, "bytes     %d compact (%d dense, %.1f%%)\n",
			m.ByteSize, dense, 100*float64(m.ByteSize)/float64(dense))
	} else {
		printer.Fprintf(w, "bytes     %d dense\n", m.PixelBytes())
		if desc, ok := m.TextureDescriptor(""); ok {
			printer.Fprintf(w, "format    %v\n", desc.Format)
		}
	}
	for i, row := range m.Transform {
		head := "          "
		if i == 0 {
			head = "transform "
		}
		printer.Fprintf(w, "%s[% 10.4f % 10.4f % 10.4f % 10.4f]\n", head, row[0], row[1], row[2], row[3])
	}
}

// Command voltex converts a procedural sparse grid into a volume texture,
// reports its metadata and optionally writes a texture cache file and a PNG
// slice preview.
//
//	voltex -shape sdf -size 64 -compact -precision fp16 -out sdf.vtx -png slice.png
//	voltex -read sdf.vtx -png slice.png
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/gogpu/voltex"
	"github.com/gogpu/voltex/compact"
	"github.com/gogpu/voltex/compact/nanovdb"
	"github.com/gogpu/voltex/export"
)

func main() {
	var (
		shape     = flag.String("shape", "fog", "procedural grid: "+strings.Join(shapeNames(), ", "))
		size      = flag.Int("size", 48, "voxels across the shape")
		voxel     = flag.Float64("voxel", 0.1, "world-space voxel size")
		useNano   = flag.Bool("compact", false, "request the compact NanoVDB-style encoding")
		precision = flag.String("precision", "adaptive", "compact scalar precision: adaptive, fp16, fp32")
		tolerance = flag.Float64("tolerance", float64(nanovdb.DefaultTolerance), "adaptive quantization error bound")
		encoder   = flag.String("encoder", "", "compact encoder backend (default: best available)")
		workers   = flag.Int("workers", 0, "dense conversion goroutines (default: GOMAXPROCS)")
		out       = flag.String("out", "", "write a texture cache file")
		codec     = flag.String("codec", "zstd", "cache payload codec: none, lz4, zstd")
		read      = flag.String("read", "", "read a texture cache file instead of building a grid")
		pngOut    = flag.String("png", "", "write a PNG preview of one Z slice")
		slice     = flag.Int("slice", -1, "preview slice (default: middle)")
		scale     = flag.Int("scale", 4, "preview magnification")
		verbose   = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *verbose {
		voltex.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	var (
		tex export.Texture
		err error
	)
	if *read != "" {
		tex, err = readCache(*read)
	} else {
		tex, err = build(buildConfig{
			shape:     *shape,
			size:      int32(*size),
			voxel:     *voxel,
			compact:   *useNano,
			precision: *precision,
			tolerance: float32(*tolerance),
			encoder:   *encoder,
			workers:   *workers,
		})
	}
	if err != nil {
		log.Fatalf("voltex: %v", err)
	}
	reportTexture(os.Stdout, tex.Meta)

	if *out != "" {
		c, err := export.ParseCodec(*codec)
		if err != nil {
			log.Fatalf("voltex: %v", err)
		}
		if err := writeCache(*out, tex, c); err != nil {
			log.Fatalf("voltex: %v", err)
		}
	}

	if *pngOut != "" {
		z := *slice
		if z < 0 {
			z = tex.Meta.Depth / 2
		}
		img, err := slicePreview(tex, z, *scale)
		if err != nil {
			log.Fatalf("voltex: preview: %v", err)
		}
		if err := writePNG(*pngOut, img); err != nil {
			log.Fatalf("voltex: %v", err)
		}
		log.Printf("preview of slice %d saved to %s", z, *pngOut)
	}
}

type buildConfig struct {
	shape     string
	size      int32
	voxel     float64
	compact   bool
	precision string
	tolerance float32
	encoder   string
	workers   int
}

// build generates the grid and loads it through a voltex.Loader.
func build(cfg buildConfig) (export.Texture, error) {
	g, err := buildShape(cfg.shape, cfg.size, cfg.voxel)
	if err != nil {
		return export.Texture{}, err
	}
	reportGrid(os.Stdout, g)

	p, err := compact.ParsePrecision(cfg.precision)
	if err != nil {
		return export.Texture{}, err
	}
	opts := []voltex.LoaderOption{voltex.WithPrecision(p), voltex.WithWorkers(cfg.workers)}
	switch cfg.encoder {
	case "":
		opts = append(opts, voltex.WithEncoderInstance(nanovdb.New(nanovdb.WithTolerance(cfg.tolerance))))
	default:
		opts = append(opts, voltex.WithEncoder(cfg.encoder))
	}

	ld := voltex.NewLoader(g, cfg.shape, opts...)
	defer ld.Cleanup()
	return export.Load(ld, voltex.DeviceFeatures{HasNanoVDB: cfg.compact})
}

func readCache(path string) (export.Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return export.Texture{}, err
	}
	defer f.Close()
	tex, err := export.Read(f)
	if err != nil {
		return export.Texture{}, fmt.Errorf("%s: %w", path, err)
	}
	return tex, nil
}

func writeCache(path string, tex export.Texture, c export.Codec) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	stats, err := export.Write(f, tex, c)
	if err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	printer.Printf("cache     %s: %d bytes %s (%.1f%% of raw)\n", path, stats.StoredSize, stats.Codec, 100*stats.Ratio())
	return nil
}

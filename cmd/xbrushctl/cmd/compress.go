package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/dfryer1193/xbrush/internal/output"
	"github.com/dfryer1193/xbrush/media/application"
	"github.com/dfryer1193/xbrush/media/domain"
	"github.com/dfryer1193/xbrush/shared/raster"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var compressCmd = &cobra.Command{
	Use:   "compress FILE...",
	Short: "Compress images",
	Long: `Scale images to fit within bounds and re-encode them.

The input type is sniffed from the file contents; only JPEG, PNG and WebP
are accepted. Outputs are written to --out as <name>.<ext>; an output that
would replace its own input is refused, as are inputs sharing a name.

Examples:
  xbrushctl compress --preset portfolio a.jpg b.jpg
  xbrushctl compress --max-width 400 --format image/webp --out dist/ logo.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCompress,
}

func init() {
	rootCmd.AddCommand(compressCmd)

	compressCmd.Flags().String("preset", "", "named preset: thumbnail or portfolio")
	compressCmd.Flags().Int("max-width", 0, "maximum output width (default 800)")
	compressCmd.Flags().Int("max-height", 0, "maximum output height (default 800)")
	compressCmd.Flags().Float64("quality", 0, "encoder quality in (0,1] (default 0.8)")
	compressCmd.Flags().String("format", "", "output MIME type (default image/jpeg)")
	compressCmd.Flags().String("out", ".", "output directory")
	compressCmd.Flags().Int("concurrency", runtime.NumCPU(), "files compressed at once")
}

type compressResult struct {
	path       string
	image      *domain.CompressedImage
	outputPath string
	err        error
}

func runCompress(cmd *cobra.Command, args []string) error {
	printer := newPrinter(cmd)

	preset, _ := cmd.Flags().GetString("preset")
	outDir, _ := cmd.Flags().GetString("out")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	opts, err := compressionOptions(cmd, preset)
	if err != nil {
		return err
	}

	if err := checkOutputCollisions(args, outDir); err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	codec := application.NewImageCodec(raster.NewEngine(raster.WithMaxPixels(cfg.MaxDecodePixels)))
	results := make([]compressResult, len(args))

	var g errgroup.Group
	g.SetLimit(max(concurrency, 1))
	for i, path := range args {
		g.Go(func() error {
			results[i] = compressFile(codec, path, opts, outDir)
			return nil
		})
	}
	_ = g.Wait()

	table := output.NewTable(cmd.OutOrStdout(), []string{"FILE", "ORIGINAL", "OUTPUT", "SIZE", "STATUS"})
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			table.AddRow([]string{r.path, "", "", "", printer.Status(false)})
			continue
		}
		table.AddRow([]string{
			r.path,
			fmt.Sprintf("%dx%d", r.image.OriginalWidth, r.image.OriginalHeight),
			fmt.Sprintf("%dx%d %s", r.image.Width, r.image.Height, r.outputPath),
			application.FormatFileSize(r.image.Size),
			printer.Status(true),
		})
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render results: %w", err)
	}

	for _, r := range results {
		if r.err != nil {
			printer.Error("%s: %v", r.path, r.err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	printer.Success("Compressed %d file(s)", len(results))
	return nil
}

func compressionOptions(cmd *cobra.Command, preset string) (domain.CompressionOptions, error) {
	if preset != "" {
		opts, ok := application.PresetOptions(preset)
		if !ok {
			return opts, fmt.Errorf("unknown preset %q", preset)
		}
		return opts, nil
	}

	maxWidth, _ := cmd.Flags().GetInt("max-width")
	maxHeight, _ := cmd.Flags().GetInt("max-height")
	quality, _ := cmd.Flags().GetFloat64("quality")
	format, _ := cmd.Flags().GetString("format")

	return domain.CompressionOptions{
		MaxWidth:     maxWidth,
		MaxHeight:    maxHeight,
		Quality:      quality,
		OutputFormat: domain.OutputFormat(format),
	}, nil
}

func compressFile(codec *application.ImageCodec, path string, opts domain.CompressionOptions, outDir string) compressResult {
	result := compressResult{path: path}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		result.err = fmt.Errorf("%w: %w", domain.ErrRead, err)
		return result
	}

	f, err := os.Open(path)
	if err != nil {
		result.err = fmt.Errorf("%w: %w", domain.ErrRead, err)
		return result
	}
	defer f.Close()

	src := domain.SourceImage{
		Name:     filepath.Base(path),
		MIMEType: mtype.String(),
		Reader:   f,
	}
	if !application.IsValidImage(src) {
		result.err = fmt.Errorf("unsupported image type %s", mtype.String())
		return result
	}

	compressed, err := codec.Compress(src, opts)
	if err != nil {
		result.err = err
		return result
	}
	result.image = compressed

	blob, err := application.Base64ToBlob(compressed.DataURI)
	if err != nil {
		result.err = err
		return result
	}

	result.outputPath = filepath.Join(outDir, outputStem(path)+extensionFor(blob.MIMEType))
	if sameFile(f, result.outputPath) {
		result.err = fmt.Errorf("refusing to overwrite source %s; pass --out to write elsewhere", path)
		return result
	}
	if err := os.WriteFile(result.outputPath, blob.Data, 0644); err != nil {
		result.err = fmt.Errorf("failed to write %s: %w", result.outputPath, err)
	}

	return result
}

func outputStem(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// checkOutputCollisions fails when two inputs would be written to the same
// output name. The extension depends on the encoded format, so names are
// compared without it.
func checkOutputCollisions(paths []string, outDir string) error {
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		key := filepath.Join(outDir, outputStem(path))
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%s and %s would both be written to %s.*", prev, path, key)
		}
		seen[key] = path
	}
	return nil
}

// sameFile reports whether path already names the open file f.
func sameFile(f *os.File, path string) bool {
	target, err := os.Stat(path)
	if err != nil {
		return false
	}
	source, err := f.Stat()
	if err != nil {
		return false
	}
	return os.SameFile(source, target)
}

func extensionFor(mimeType string) string {
	switch domain.OutputFormat(mimeType) {
	case domain.FormatJPEG:
		return ".jpg"
	case domain.FormatWebP:
		return ".webp"
	case domain.FormatPNG:
		return ".png"
	default:
		if mt := mimetype.Lookup(mimeType); mt != nil {
			return mt.Extension()
		}
		return ".bin"
	}
}

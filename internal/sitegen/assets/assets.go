// Package assets processes a job's media references into the output
// media tree: fingerprinted original-resolution copies, thumbnail
// variants, and verbatim video copies. Processing is deduplicated by
// content fingerprint within a job and parallelized per unique file.
package assets

import (
	stdcontext "context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/nfnt/resize"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/homeshow/internal/config"
	"git.home.luguber.info/inful/homeshow/internal/errors"
	"git.home.luguber.info/inful/homeshow/internal/logfields"
	"git.home.luguber.info/inful/homeshow/internal/property"
)

const (
	// ImagesDir and friends are output-root-relative media locations,
	// part of the fixed site layout.
	ImagesDir     = "media/images"
	ThumbnailsDir = "media/thumbnails"
	VideosDir     = "media/videos"

	thumbJPEGQuality = 85
	fingerprintLen   = 12
)

// ProcessedAsset maps one media reference to its output files.
// References with identical source bytes share one ProcessedAsset's
// paths; Reused marks the later duplicates.
type ProcessedAsset struct {
	Source      property.MediaReference
	Kind        property.MediaKind
	Fingerprint string // short content fingerprint used in filenames
	Full        string // output-relative path of the full-resolution copy
	Thumb       string // output-relative thumbnail path, images only
	Caption     string
	Reused      bool
}

// Result is the ordered outcome of one pipeline run. Order follows the
// caller's media reference order; skipped (unknown-kind) references are
// omitted.
type Result struct {
	Assets []ProcessedAsset

	// Processed and Deduplicated count unique files transformed and
	// duplicate references resolved from the dedup map.
	Processed    int
	Deduplicated int
}

// Images returns the image-kind assets in input order. Floor plans are
// excluded; they are images for processing purposes but not slider or
// gallery content.
func (r *Result) Images() []ProcessedAsset {
	var out []ProcessedAsset
	for _, a := range r.Assets {
		if a.Kind == property.KindImage {
			out = append(out, a)
		}
	}
	return out
}

// Fingerprints returns output-relative path → short fingerprint for
// every written file, for the generation manifest.
func (r *Result) Fingerprints() map[string]string {
	out := make(map[string]string, len(r.Assets))
	for _, a := range r.Assets {
		out[a.Full] = a.Fingerprint
		if a.Thumb != "" {
			out[a.Thumb] = a.Fingerprint
		}
	}
	return out
}

// Pipeline transforms media references. One Pipeline is safe for
// concurrent jobs; all per-job state lives in Process.
type Pipeline struct {
	thumbWidth  int
	thumbHeight int
	concurrency int
	log         *slog.Logger
}

// New creates a pipeline from the asset configuration.
func New(cfg config.AssetsConfig, log *slog.Logger) *Pipeline {
	conc := cfg.Concurrency
	if conc <= 0 {
		conc = runtime.NumCPU()
	}
	return &Pipeline{
		thumbWidth:  cfg.ThumbWidth,
		thumbHeight: cfg.ThumbHeight,
		concurrency: conc,
		log:         log,
	}
}

// Process fingerprints, deduplicates, and transforms the given media
// references beneath outRoot. galleryMandatory makes a zero-image
// outcome an error instead of triggering the placeholder fallback.
func (p *Pipeline) Process(ctx stdcontext.Context, media []property.MediaReference, outRoot string, galleryMandatory bool) (*Result, error) {
	res := &Result{}

	// Fingerprint pass is sequential: it establishes the dedup map and
	// the input ordering the renderer relies on.
	type item struct {
		ref property.MediaReference
		fp  string
	}
	var items []item
	firstByFP := make(map[string]int) // fingerprint → index in items of first occurrence
	for _, ref := range media {
		kind := property.ParseMediaKind(string(ref.Kind))
		if !kind.IsImage() && kind != property.KindVideo {
			p.log.Debug("skipping media reference of unknown kind",
				logfields.Path(ref.Path), slog.String("kind", string(ref.Kind)))
			continue
		}
		fp, err := fingerprintFile(ref.Path)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryAsset,
				fmt.Sprintf("unreadable media file %s", ref.Path)).
				WithContext("path", ref.Path)
		}
		ref.Kind = kind
		items = append(items, item{ref: ref, fp: fp})
		if _, seen := firstByFP[fp]; !seen {
			firstByFP[fp] = len(items) - 1
		}
	}

	// Transform pass: unique files only, bounded parallelism. Results
	// land in a slice indexed like items so order never depends on
	// goroutine scheduling.
	processed := make([]ProcessedAsset, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, it := range items {
		if firstByFP[it.fp] != i {
			continue // duplicate, resolved after the group finishes
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			asset, err := p.transform(it.ref, it.fp, outRoot)
			if err != nil {
				return err
			}
			processed[i] = asset
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	for i, it := range items {
		first := firstByFP[it.fp]
		if first == i {
			res.Assets = append(res.Assets, processed[i])
			res.Processed++
			continue
		}
		dup := processed[first]
		dup.Source = it.ref
		dup.Caption = caption(it.ref)
		dup.Reused = true
		res.Assets = append(res.Assets, dup)
		res.Deduplicated++
	}

	if galleryMandatory && len(res.Images()) == 0 {
		return nil, errors.Asset("gallery feature is enabled but the property has no images")
	}
	return res, nil
}

// transform writes the output files for one unique source file.
func (p *Pipeline) transform(ref property.MediaReference, fp, outRoot string) (ProcessedAsset, error) {
	asset := ProcessedAsset{
		Source:      ref,
		Kind:        ref.Kind,
		Fingerprint: fp,
		Caption:     caption(ref),
	}

	ext := strings.ToLower(filepath.Ext(ref.Path))
	if ext == "" {
		ext = ".bin"
	}

	switch {
	case ref.Kind.IsImage():
		asset.Full = filepath.ToSlash(filepath.Join(ImagesDir, fp+ext))
		asset.Thumb = filepath.ToSlash(filepath.Join(ThumbnailsDir, fp+"_thumb.jpg"))
		if err := copyFile(ref.Path, filepath.Join(outRoot, filepath.FromSlash(asset.Full))); err != nil {
			return ProcessedAsset{}, errors.Wrap(err, errors.CategoryAsset,
				fmt.Sprintf("copy image %s", ref.Path)).WithContext("path", ref.Path)
		}
		if err := p.writeThumbnail(ref.Path, filepath.Join(outRoot, filepath.FromSlash(asset.Thumb))); err != nil {
			return ProcessedAsset{}, err
		}
	case ref.Kind == property.KindVideo:
		asset.Full = filepath.ToSlash(filepath.Join(VideosDir, fp+ext))
		if err := copyFile(ref.Path, filepath.Join(outRoot, filepath.FromSlash(asset.Full))); err != nil {
			return ProcessedAsset{}, errors.Wrap(err, errors.CategoryAsset,
				fmt.Sprintf("copy video %s", ref.Path)).WithContext("path", ref.Path)
		}
	}
	return asset, nil
}

// writeThumbnail decodes the source image and writes an
// aspect-preserving thumbnail capped at the configured dimensions.
// Images already inside the bounds are re-encoded without upscaling.
func (p *Pipeline) writeThumbnail(src, dst string) error {
	f, err := os.Open(src) // #nosec G304 -- media paths come from the property record
	if err != nil {
		return errors.Wrap(err, errors.CategoryAsset, fmt.Sprintf("open image %s", src)).
			WithContext("path", src)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return errors.Wrap(err, errors.CategoryAsset, fmt.Sprintf("decode image %s", src)).
			WithContext("path", src)
	}

	thumb := resize.Thumbnail(uint(p.thumbWidth), uint(p.thumbHeight), img, resize.Lanczos3)

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return errors.Wrap(err, errors.CategoryAsset, "create thumbnail directory")
	}
	out, err := os.Create(dst) // #nosec G304 -- destination is inside the staging dir
	if err != nil {
		return errors.Wrap(err, errors.CategoryAsset, fmt.Sprintf("create thumbnail %s", dst))
	}
	defer out.Close()

	if err := jpeg.Encode(out, thumb, &jpeg.Options{Quality: thumbJPEGQuality}); err != nil {
		return errors.Wrap(err, errors.CategoryAsset, fmt.Sprintf("encode thumbnail %s", dst))
	}
	return out.Close()
}

// fingerprintFile hashes the file content and returns the short
// filename-safe fingerprint.
func fingerprintFile(path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 -- media paths come from the property record
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil))[:fingerprintLen], nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 -- media paths come from the property record
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	out, err := os.Create(dst) // #nosec G304 -- destination is inside the staging dir
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// caption prefers the reference's display name over its filename.
func caption(ref property.MediaReference) string {
	if strings.TrimSpace(ref.Name) != "" {
		return ref.Name
	}
	return strings.TrimSuffix(filepath.Base(ref.Path), filepath.Ext(ref.Path))
}

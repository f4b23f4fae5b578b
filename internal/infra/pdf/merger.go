package pdf

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/expense-claim-bfa/internal/domain"
	"github.com/boddenberg/expense-claim-bfa/internal/infra/imaging"
)

// ImageCompressor is the subset of imaging.Compressor the merger uses.
type ImageCompressor interface {
	Compress(data []byte, maxDimension int, quality float64) (*imaging.Compressed, error)
	CompressProgressively(data []byte, maxSizeBytes int64) (*imaging.Compressed, error)
}

// MergerConfig controls image handling while merging.
type MergerConfig struct {
	ImageMaxDimension int
	ImageQuality      float64

	// ImageBudgetFraction is the share of a per-file budget given to the JPEG;
	// the rest covers the single-page PDF wrapper.
	ImageBudgetFraction float64
}

// Merger turns receipt files into PDFs.
type Merger struct {
	images ImageCompressor
	cfg    MergerConfig
	logger *zap.Logger

	// OnDegraded is called with a reason whenever a file is replaced by a placeholder.
	OnDegraded func(reason string)
}

// NewMerger creates a Merger.
func NewMerger(images ImageCompressor, cfg MergerConfig, logger *zap.Logger) *Merger {
	if cfg.ImageMaxDimension <= 0 {
		cfg.ImageMaxDimension = imaging.Presets[0].MaxDimension
	}
	if cfg.ImageQuality <= 0 {
		cfg.ImageQuality = imaging.Presets[0].Quality
	}
	if cfg.ImageBudgetFraction <= 0 {
		cfg.ImageBudgetFraction = 0.7
	}
	return &Merger{images: images, cfg: cfg, logger: logger}
}

// MergeGroup merges files into one PDF in order. Every input file yields at
// least one page: files that cannot be embedded become placeholder pages.
// It returns nil for an empty list. Only a failure of the PDF library itself
// is returned as an error.
func (m *Merger) MergeGroup(ctx context.Context, files []domain.GroupedFile) (*domain.MergedDocument, error) {
	if len(files) == 0 {
		return nil, nil
	}

	ctx, span := tracer.Start(ctx, "Merger.MergeGroup")
	defer span.End()
	span.SetAttributes(attribute.Int("files.count", len(files)))

	parts := make([][]byte, 0, len(files))
	for _, gf := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		part, err := m.filePages(gf)
		if err != nil {
			return nil, &domain.ErrRender{Stage: "merge", Err: err}
		}
		parts = append(parts, part)
	}

	merged, err := mergeAll(parts)
	if err != nil {
		m.logger.Warn("bulk merge failed, merging files one by one", zap.Error(err))
		merged, err = m.mergeIncrementally(files, parts)
		if err != nil {
			return nil, &domain.ErrRender{Stage: "merge", Err: err}
		}
	}

	pages, err := pageCount(merged)
	if err != nil {
		return nil, &domain.ErrRender{Stage: "merge", Err: err}
	}
	span.SetAttributes(attribute.Int("pages", pages), attribute.Int("bytes", len(merged)))

	return &domain.MergedDocument{PDF: merged, PageCount: pages}, nil
}

// filePages renders one file as PDF pages, falling back to a placeholder.
// The error is non-nil only when even the placeholder cannot be produced.
func (m *Merger) filePages(gf domain.GroupedFile) ([]byte, error) {
	f := gf.File

	switch {
	case f.IsPDF():
		if _, err := pageCount(f.Content); err != nil {
			m.degraded("unreadable_pdf", f, err)
			return errorPage(f.FileName, err)
		}
		return f.Content, nil

	case f.IsImage():
		out, err := m.images.Compress(f.Content, m.cfg.ImageMaxDimension, m.cfg.ImageQuality)
		if err != nil {
			m.degraded("image_failed", f, err)
			return errorPage(f.FileName, err)
		}
		page, err := imagePage(out.Bytes, out.Width, out.Height, f.FileName)
		if err != nil {
			m.degraded("image_failed", f, err)
			return errorPage(f.FileName, err)
		}
		return page, nil

	default:
		m.degraded("unsupported", f, domain.ErrUnsupportedFile)
		return unsupportedPage(f.FileName, f.MimeType)
	}
}

// mergeIncrementally appends parts one at a time, swapping any part the
// library rejects for an error placeholder.
func (m *Merger) mergeIncrementally(files []domain.GroupedFile, parts [][]byte) ([]byte, error) {
	var acc []byte
	for i, part := range parts {
		next, err := appendPart(acc, part)
		if err != nil {
			m.degraded("merge_failed", files[i].File, err)
			placeholder, perr := errorPage(files[i].File.FileName, err)
			if perr != nil {
				return nil, perr
			}
			if next, err = appendPart(acc, placeholder); err != nil {
				return nil, err
			}
		}
		acc = next
	}
	return acc, nil
}

func appendPart(acc, part []byte) ([]byte, error) {
	if acc == nil {
		if _, err := pageCount(part); err != nil {
			return nil, err
		}
		return part, nil
	}
	return mergeAll([][]byte{acc, part})
}

// MergeIndividualFile brings one file under maxSizeBytes as a standalone
// PDF. PDFs pass through unchanged when they already fit; images are
// compressed progressively into a share of the budget and wrapped in a
// one-page PDF. Anything else fails with domain.ErrUnsupportedFile.
func (m *Merger) MergeIndividualFile(ctx context.Context, file domain.FileInput, category string, maxSizeBytes int64) (*domain.Attachment, error) {
	_, span := tracer.Start(ctx, "Merger.MergeIndividualFile")
	defer span.End()
	span.SetAttributes(
		attribute.String("file.name", file.FileName),
		attribute.String("category", category),
		attribute.Int64("budget.bytes", maxSizeBytes),
	)

	switch {
	case file.IsPDF():
		if size := int64(len(file.Content)); size > maxSizeBytes {
			return nil, fmt.Errorf("%w: pdf %q is %d bytes, budget %d",
				domain.ErrOverBudget, file.FileName, size, maxSizeBytes)
		}
		att := domain.NewAttachment(file.FileName, "application/pdf", file.Content)
		return &att, nil

	case file.IsImage():
		imageBudget := int64(float64(maxSizeBytes) * m.cfg.ImageBudgetFraction)
		out, err := m.images.CompressProgressively(file.Content, imageBudget)
		if err != nil {
			return nil, fmt.Errorf("compressing %q: %w", file.FileName, err)
		}

		caption := file.FileName
		if category != "" {
			caption = fmt.Sprintf("%s (%s)", file.FileName, category)
		}
		page, err := imagePage(out.Bytes, out.Width, out.Height, caption)
		if err != nil {
			return nil, &domain.ErrRender{Stage: "image page", Err: err}
		}
		if size := int64(len(page)); size > maxSizeBytes {
			return nil, fmt.Errorf("%w: %q is %d bytes as pdf, budget %d",
				domain.ErrOverBudget, file.FileName, size, maxSizeBytes)
		}

		m.logger.Debug("image compressed for individual upload",
			zap.String("file", file.FileName),
			zap.String("preset", out.Preset),
			zap.Int64("jpeg_bytes", out.SizeBytes),
			zap.Int("pdf_bytes", len(page)),
		)
		att := domain.NewAttachment(pdfName(file.FileName), "application/pdf", page)
		return &att, nil

	default:
		return nil, fmt.Errorf("%w: %q (%s)", domain.ErrUnsupportedFile, file.FileName, file.MimeType)
	}
}

func (m *Merger) degraded(reason string, f domain.FileInput, err error) {
	m.logger.Warn("attachment replaced by placeholder",
		zap.String("file", f.FileName),
		zap.String("mime_type", f.MimeType),
		zap.String("reason", reason),
		zap.Error(err),
	)
	if m.OnDegraded != nil {
		m.OnDegraded(reason)
	}
}

func pdfName(name string) string {
	ext := filepath.Ext(name)
	if strings.EqualFold(ext, ".pdf") {
		return name
	}
	return strings.TrimSuffix(name, ext) + ".pdf"
}

// Package pdf renders the claim summary and merges receipt files into one
// PDF per account code.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("pdf")

var disableConfigDir sync.Once

// newConf returns a fresh pdfcpu configuration. pdfcpu mutates the
// configuration it is given, so one is built per call. Relaxed validation
// lets slightly malformed PDFs load.
func newConf() *model.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// pageCount returns the number of pages of a PDF, failing for unreadable
// input. Documents that fail validation, such as owner-password-protected
// PDFs with unusual metadata, are read again without validation.
func pageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), newConf())
	if err == nil {
		return n, nil
	}
	ctx, lerr := readUnvalidated(data)
	if lerr != nil {
		return 0, fmt.Errorf("reading pdf: %w", err)
	}
	return ctx.PageCount, nil
}

// readUnvalidated parses data (decrypting it when the user password is
// empty) without running pdfcpu's validator.
func readUnvalidated(data []byte) (*model.Context, error) {
	conf := newConf()
	conf.Cmd = model.MERGECREATE
	conf.CreateBookmarks = false

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, err
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, err
	}
	if ctx.PageCount <= 0 {
		return nil, errors.New("document has no pages")
	}
	return ctx, nil
}

// mergeAll concatenates the documents in order.
func mergeAll(docs [][]byte) ([]byte, error) {
	switch len(docs) {
	case 0:
		return nil, errors.New("nothing to merge")
	case 1:
		return docs[0], nil
	}

	readers := make([]io.ReadSeeker, len(docs))
	for i, d := range docs {
		readers[i] = bytes.NewReader(d)
	}

	var buf bytes.Buffer
	err := api.MergeRaw(readers, &buf, false, newConf())
	if err == nil {
		return buf.Bytes(), nil
	}

	merged, uerr := mergeUnvalidated(docs)
	if uerr != nil {
		return nil, fmt.Errorf("merging %d documents: %w", len(docs), err)
	}
	return merged, nil
}

// mergeUnvalidated is MergeRaw without validation of the inputs.
func mergeUnvalidated(docs [][]byte) ([]byte, error) {
	dest, err := readUnvalidated(docs[0])
	if err != nil {
		return nil, fmt.Errorf("document 1: %w", err)
	}
	dest.EnsureVersionForWriting()

	for i, d := range docs[1:] {
		src, err := readUnvalidated(d)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i+2, err)
		}
		if dest.Version() < model.V20 && src.Version() == model.V20 {
			return nil, fmt.Errorf("document %d: %w", i+2, pdfcpu.ErrUnsupportedVersion)
		}
		if err := pdfcpu.MergeXRefTables(strconv.Itoa(i), src, dest, false, false); err != nil {
			return nil, fmt.Errorf("document %d: %w", i+2, err)
		}
	}

	if err := api.OptimizeContext(dest); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := api.WriteContext(dest, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

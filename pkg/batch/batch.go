// Package batch converts folders of MIDI files into tick sequences on a bounded
// pool of workers. A file that fails is logged and reported; the rest of the
// batch carries on.
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/tickseq/tickseq/pkg/converter"
	"github.com/tickseq/tickseq/pkg/logging"
	"github.com/tickseq/tickseq/pkg/sequence"
)

// Result is the outcome of converting one file
type Result struct {
	Input       string
	Output      string // empty unless the sequence was written
	Sequence    *sequence.Sequence
	Diagnostics *converter.Diagnostics
	Err         error
}

// Report collects the results of a batch in input order
type Report struct {
	Results []Result
}

// Succeeded returns the number of files converted
func (r *Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the results that carry an error
func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Sequences returns the converted sequences in input order
func (r *Report) Sequences() []*sequence.Sequence {
	var out []*sequence.Sequence
	for _, res := range r.Results {
		if res.Err == nil {
			out = append(out, res.Sequence)
		}
	}
	return out
}

// Loader runs an Importer over many files
type Loader struct {
	importer *converter.Importer
	workers  int
	write    bool
	outDir   string
}

// Option configures a Loader
type Option func(*Loader)

// WithWorkers bounds the number of files converted at once
func WithWorkers(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithOutput writes each sequence as a tick file into dir, or next to its input when dir is empty
func WithOutput(dir string) Option {
	return func(l *Loader) {
		l.write = true
		l.outDir = dir
	}
}

// New creates a Loader around im
func New(im *converter.Importer, opts ...Option) *Loader {
	l := &Loader{importer: im, workers: runtime.NumCPU()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Find lists the MIDI files directly inside dir, sorted by name
func Find(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || converter.DetectFormat(e.Name()) != converter.FormatMIDI {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Run converts every MIDI file in dir
func (l *Loader) Run(ctx context.Context, dir string) (*Report, error) {
	files, err := Find(dir)
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, files)
}

// Load converts files concurrently. Per-file failures end up in the report.
// Once ctx is done no further files are started and its error is returned
// alongside the partial report.
func (l *Loader) Load(ctx context.Context, files []string) (*Report, error) {
	logger := logging.FromContext(ctx)
	report := &Report{Results: make([]Result, len(files))}

	var g errgroup.Group
	g.SetLimit(l.workers)

	scheduled := 0
	for i, file := range files {
		if ctx.Err() != nil {
			break
		}
		scheduled++
		g.Go(func() error {
			report.Results[i] = l.convert(ctx, file)
			return nil
		})
	}
	_ = g.Wait()

	for i := scheduled; i < len(files); i++ {
		report.Results[i] = Result{Input: files[i], Err: ctx.Err()}
	}

	logger.Info("batch finished", "files", len(files), "converted", report.Succeeded(), "failed", len(files)-report.Succeeded())
	return report, ctx.Err()
}

func (l *Loader) convert(ctx context.Context, file string) Result {
	logger := logging.FromContext(ctx).With("file", filepath.Base(file))
	res := Result{Input: file}

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	data, err := os.ReadFile(file)
	if err != nil {
		res.Err = fmt.Errorf("failed to read %s: %w", file, err)
		logger.Warn("skipping file", "err", err)
		return res
	}

	seq, diag, err := l.importer.ImportMIDI(data)
	if err != nil {
		res.Err = fmt.Errorf("failed to import %s: %w", file, err)
		logger.Warn("skipping file", "err", err)
		return res
	}
	res.Sequence, res.Diagnostics = seq, diag

	if diag.HasAnomalies() {
		logger.Debug("import anomalies", "summary", diag.Summary())
	}

	if l.write {
		out := converter.OutputPath(file, converter.FormatTicks)
		if l.outDir != "" {
			out = filepath.Join(l.outDir, filepath.Base(out))
		}
		if err := sequence.WriteFile(out, seq); err != nil {
			res.Err = fmt.Errorf("failed to write %s: %w", out, err)
			logger.Error("write failed", "err", err)
			return res
		}
		res.Output = out
	}

	logger.Info("converted", "ticks", seq.Len(), "anomalies", diag.Total())
	return res
}

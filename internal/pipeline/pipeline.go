// Package pipeline runs one conversion: open the source, read and coerce
// records, group them, and write the result.
//
// The run is a single sequential pass. Context cancellation is checked
// between records and between documents.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"csv2json/internal/config"
	"csv2json/internal/datasource"
	"csv2json/internal/datasource/httpds"
	"csv2json/internal/group"
	"csv2json/internal/metrics"
	"csv2json/internal/output"
	csvparser "csv2json/internal/parser/csv"
	"csv2json/internal/storage"
	"csv2json/internal/transformer"
	"csv2json/internal/transformer/builtin"
	"csv2json/pkg/records"
)

// Env carries the process streams a run uses. Nil fields default to the
// os streams; a nil Progress defaults to os.Stdout.
type Env struct {
	Stdin    io.Reader
	Stdout   io.Writer
	Progress io.Writer
	Verbose  bool
}

func (e Env) withDefaults() Env {
	if e.Stdin == nil {
		e.Stdin = os.Stdin
	}
	if e.Stdout == nil {
		e.Stdout = os.Stdout
	}
	if e.Progress == nil {
		e.Progress = os.Stdout
	}
	return e
}

// Summary reports what a run did.
type Summary struct {
	// Records is the number of body rows read.
	Records int
	// Groups is the number of distinct keys (limitations) or partitions (split).
	Groups int
	// Documents is the number of documents written in split mode.
	Documents int
}

// newSink is a test seam; production code opens sinks through the factory.
var newSink = storage.New

// grouper is the accumulator contract shared by both modes.
type grouper interface {
	Check(h *records.Header) error
	Add(rec records.Record) error
}

// Run executes job. Nothing is written when reading or grouping fails.
func Run(ctx context.Context, job config.Job, env Env) (Summary, error) {
	env = env.withDefaults()
	name := job.Job
	if name == "" {
		name = config.DefaultJobName
	}

	var (
		g        grouper
		lims     *group.Limitations
		splitter *group.Splitter
	)
	switch job.Group.Mode {
	case config.ModeLimitations, "":
		lims = group.NewLimitations()
		g = lims
	case config.ModeSplit:
		splitter = group.NewSplitter(job.Group.Column, job.Group.YearColumn, job.Group.DiseaseColumn)
		g = splitter
	default:
		return Summary{}, fmt.Errorf("pipeline: unknown group mode %q", job.Group.Mode)
	}

	start := time.Now()
	rows, err := read(ctx, job, env, g)
	metrics.RecordStep(name, "read", err, time.Since(start))
	metrics.RecordRecords(name, "read", int64(rows))
	sum := Summary{Records: rows}
	if err != nil {
		return sum, err
	}
	if env.Verbose {
		log.Printf("reader: rows=%d elapsed=%s", rows, time.Since(start).Truncate(time.Millisecond))
	}

	start = time.Now()
	if lims != nil {
		sum.Groups = lims.Len()
		err = writeStream(env.Stdout, lims.Entries(), job.Output)
	} else {
		sum.Groups = len(splitter.Partitions())
		sum.Documents, err = publish(ctx, job, env, name, splitter)
	}
	metrics.RecordStep(name, "write", err, time.Since(start))
	metrics.RecordRecords(name, "grouped", int64(sum.Groups))
	if err != nil {
		return sum, err
	}
	if env.Verbose {
		log.Printf("writer: mode=%s groups=%d documents=%d", modeName(job.Group.Mode), sum.Groups, sum.Documents)
	}
	return sum, nil
}

func modeName(m string) string {
	if m == "" {
		return config.ModeLimitations
	}
	return m
}

// read streams every body row of the source through coercion into g.
func read(ctx context.Context, job config.Job, env Env, g grouper) (int, error) {
	src := datasource.Resolve(job.Source.Path, env.Stdin, httpConfig(job.Source.HTTP))
	rc, err := src.Open(ctx)
	if err != nil {
		return 0, fmt.Errorf("pipeline: open source: %w", err)
	}
	defer rc.Close()

	r, err := csvparser.NewReader(rc, csvparser.OptionsFrom(job.Parser.Options))
	if err != nil {
		return 0, err
	}
	if err := g.Check(r.Header()); err != nil {
		return 0, fmt.Errorf("pipeline: header: %w", err)
	}

	chain := transforms(job.Group)
	for {
		if err := ctx.Err(); err != nil {
			return r.Rows(), err
		}
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return r.Rows(), nil
		}
		if err != nil {
			return r.Rows(), err
		}
		if err := g.Add(chain.Apply(rec)); err != nil {
			return r.Rows(), fmt.Errorf("pipeline: row %d: %w", r.Rows(), err)
		}
	}
}

// transforms builds the per-record chain: optional normalization, then
// numeric coercion.
func transforms(g config.Group) transformer.Chain {
	var chain transformer.Chain
	if g.Normalize {
		chain = append(chain, builtin.Normalize{})
	}
	return append(chain, builtin.Coerce{Keep: g.KeepStrings})
}

// writeStream emits the single-stream document followed by a newline.
func writeStream(w io.Writer, entries []group.LimitationEntry, o config.Output) error {
	if err := output.WriteStream(w, entries, output.Wrap{Callback: o.Callback, Variable: o.Variable, ASCII: o.ASCII}); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("pipeline: write stream: %w", err)
	}
	return nil
}

func publish(ctx context.Context, job config.Job, env Env, name string, s *group.Splitter) (int, error) {
	kind := job.Storage.Kind
	if kind == "" {
		kind = "dir"
	}
	table := job.Storage.DB.Table
	if table == "" {
		table = "documents"
	}
	sink, err := newSink(ctx, storage.Config{
		Kind:            kind,
		Dir:             job.Storage.Dir,
		DSN:             job.Storage.DB.DSN,
		Table:           table,
		AutoCreateTable: job.Storage.DB.AutoCreateTable,
	})
	if err != nil {
		return 0, fmt.Errorf("pipeline: open sink: %w", err)
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil {
			log.Printf("writer: close sink: %v", cerr)
		}
	}()

	p := &output.Publisher{Sink: sink, Progress: env.Progress, Job: name, Kind: kind, ASCII: job.Output.ASCII}
	return p.PublishSplit(ctx, s.Partitions(), s.Catalog())
}

func httpConfig(h config.HTTPSource) httpds.Config {
	cfg := httpds.Config{
		Timeout:            time.Duration(h.TimeoutSeconds) * time.Second,
		MaxRetries:         h.MaxRetries,
		InsecureSkipVerify: h.InsecureSkipVerify,
	}
	if len(h.Headers) > 0 {
		cfg.Headers = http.Header{}
		for k, v := range h.Headers {
			cfg.Headers.Set(k, v)
		}
	}
	return cfg
}

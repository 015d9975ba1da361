// Command csv2json converts delimited records into compact JSON.
//
// In the default "limitations" mode the merged, sorted array is printed to
// standard output, optionally wrapped as a JSONP callback (-p) or a variable
// assignment (-v). In "split" mode one document per distinct value of -column
// is written to the configured sink, followed by catalog_year_diseases.json.
//
// Usage:
//
//	csv2json [flags] [input.csv | - | https://host/input.csv]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"csv2json/internal/config"
	"csv2json/internal/metrics"
	"csv2json/internal/metrics/datadog"
	"csv2json/internal/metrics/prompush"
	"csv2json/internal/pipeline"

	// register all sink backends with the storage factory.
	_ "csv2json/internal/storage/all"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// flags holds raw flag values; only flags set on the command line override
// the job file.
type flags struct {
	config, mode, column, dir, sink, dsn, table, encoding string
	fieldSep, fieldQuote, indent, callback, variable      string
	metricsBackend, pushgatewayURL, statsdAddr            string
	ascii, normalize, validate, verbose                   bool
}

func newFlagSet(stderr io.Writer, f *flags) *flag.FlagSet {
	fs := flag.NewFlagSet("csv2json", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// Original option names, short and long.
	for _, name := range []string{"F", "field-separator"} {
		fs.StringVar(&f.fieldSep, name, ",", "field separator: a character or one of tab, sc, bar")
	}
	for _, name := range []string{"q", "field-quote"} {
		fs.StringVar(&f.fieldQuote, name, `"`, "field quote character; empty disables quoting")
	}
	for _, name := range []string{"i", "indent"} {
		fs.StringVar(&f.indent, name, "", "accepted for compatibility; output is always compact")
	}
	for _, name := range []string{"p", "callback"} {
		fs.StringVar(&f.callback, name, "", "JSONP callback function name")
	}
	for _, name := range []string{"v", "variable"} {
		fs.StringVar(&f.variable, name, "", "assign the output to a JavaScript variable of this name")
	}

	fs.StringVar(&f.config, "config", "", "job config JSON path")
	fs.StringVar(&f.mode, "mode", config.ModeLimitations, "grouping mode: limitations or split")
	fs.StringVar(&f.column, "column", "", "grouping column for split mode")
	fs.StringVar(&f.dir, "dir", "", "destination directory for the dir sink")
	fs.StringVar(&f.sink, "sink", "dir", "split mode sink: dir, sqlite, postgres, mysql, mssql")
	fs.StringVar(&f.dsn, "dsn", "", "database DSN for database sinks")
	fs.StringVar(&f.table, "table", "documents", "table for database sinks")
	fs.StringVar(&f.encoding, "encoding", "", "input charset, e.g. windows-1250")
	fs.BoolVar(&f.ascii, "ascii", false, "escape non-ASCII text as \\uXXXX")
	fs.BoolVar(&f.normalize, "normalize", false, "trim string values and replace non-breaking spaces")
	fs.BoolVar(&f.validate, "validate", false, "validate the configuration and exit")
	fs.StringVar(&f.metricsBackend, "metrics-backend", "none", "metrics backend: none, pushgateway, datadog")
	fs.StringVar(&f.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (falls back to env PUSHGATEWAY_URL)")
	fs.StringVar(&f.statsdAddr, "statsd-addr", "", "DogStatsD address (falls back to env DD_DOGSTATSD_URL)")
	fs.BoolVar(&f.verbose, "verbose", false, "enable verbose logs")
	return fs
}

// buildJob loads the job file, if any, and applies explicitly set flags.
func buildJob(fs *flag.FlagSet, f *flags) (config.Job, error) {
	job := config.Default()
	if f.config != "" {
		var err error
		if job, err = config.Load(f.config); err != nil {
			return job, err
		}
	}

	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "F", "field-separator":
			job.Parser.Options.Set("delimiter", f.fieldSep)
		case "q", "field-quote":
			job.Parser.Options.Set("quote", f.fieldQuote)
		case "i", "indent":
			job.Output.Indent = f.indent
		case "p", "callback":
			job.Output.Callback = f.callback
		case "v", "variable":
			job.Output.Variable = f.variable
		case "encoding":
			job.Parser.Options.Set("encoding", f.encoding)
		case "ascii":
			job.Output.ASCII = f.ascii
		case "normalize":
			job.Group.Normalize = f.normalize
		case "mode":
			job.Group.Mode = f.mode
		case "column":
			job.Group.Column = f.column
		case "dir":
			job.Storage.Dir = f.dir
		case "sink":
			job.Storage.Kind = f.sink
		case "dsn":
			job.Storage.DB.DSN = f.dsn
		case "table":
			job.Storage.DB.Table = f.table
		case "metrics-backend":
			job.Metrics.Backend = f.metricsBackend
		case "pushgateway-url":
			job.Metrics.PushgatewayURL = f.pushgatewayURL
		case "statsd-addr":
			job.Metrics.StatsdAddr = f.statsdAddr
		}
	})

	if args := fs.Args(); len(args) > 0 {
		job.Source.Path = args[0]
	}
	if job.Metrics.PushgatewayURL == "" {
		job.Metrics.PushgatewayURL = os.Getenv("PUSHGATEWAY_URL")
	}
	if job.Metrics.StatsdAddr == "" {
		job.Metrics.StatsdAddr = os.Getenv("DD_DOGSTATSD_URL")
	}
	return job, nil
}

// setupMetrics installs the configured backend and returns its flush func.
func setupMetrics(job config.Job, verbose bool) func() {
	nop := func() {}
	name := job.Job
	if name == "" {
		name = config.DefaultJobName
	}
	var (
		b   metrics.Backend
		err error
	)
	switch job.Metrics.Backend {
	case "pushgateway":
		url := job.Metrics.PushgatewayURL
		if url == "" {
			url = "http://localhost:9091"
		}
		b, err = prompush.NewBackend(name, url)
		if err == nil && verbose {
			log.Printf("metrics: backend=pushgateway url=%s job=%s", url, name)
		}
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       job.Metrics.StatsdAddr,
			Namespace:  job.Metrics.Namespace,
			GlobalTags: append([]string{"job:" + name}, job.Metrics.Tags...),
		})
		if err == nil && verbose {
			log.Printf("metrics: backend=datadog addr=%s", job.Metrics.StatsdAddr)
		}
	case "", "none":
		if verbose {
			log.Printf("metrics: disabled")
		}
		return nop
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", job.Metrics.Backend)
		return nop
	}
	if err != nil {
		log.Printf("metrics: init %s backend: %v; using nop", job.Metrics.Backend, err)
		return nop
	}
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}
}

// run is main without the process exit, returning the exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	log.SetOutput(stderr)

	var f flags
	fs := newFlagSet(stderr, &f)
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	job, err := buildJob(fs, &f)
	if err != nil {
		fmt.Fprintf(stderr, "csv2json: %v\n", err)
		return 1
	}

	issues := config.ValidateJob(job)
	for _, iss := range issues {
		if iss.Severity == config.SeverityError || f.verbose {
			fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		}
	}
	if config.HasErrors(issues) {
		log.Printf("configuration is invalid")
		return 1
	}
	if f.validate {
		log.Printf("configuration is valid")
		return 0
	}

	flush := setupMetrics(job, f.verbose)
	defer flush()

	start := time.Now()
	if f.verbose {
		log.Printf("pipeline: source=%q mode=%s sink=%s", job.Source.Path, job.Group.Mode, job.Storage.Kind)
	}
	_, err = pipeline.Run(ctx, job, pipeline.Env{
		Stdin:    stdin,
		Stdout:   stdout,
		Progress: stdout,
		Verbose:  f.verbose,
	})
	if err != nil {
		fmt.Fprintf(stderr, "csv2json: %v\n", err)
		return 1
	}
	if f.verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
	return 0
}

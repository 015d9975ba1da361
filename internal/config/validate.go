package config

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding that is surfaced but does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Job.
//
// Path is a dotted path into the config (e.g. "group.column").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

var jsIdent = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(\.[A-Za-z_$][A-Za-z0-9_$]*)*$`)

// ValidateJob performs static validation of a Job without mutating it.
func ValidateJob(j Job) []Issue {
	var issues []Issue

	if strings.TrimSpace(j.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "job",
			Message:  fmt.Sprintf("job is empty; metrics will be labeled %q", DefaultJobName),
		})
	}
	issues = append(issues, validateParser(j.Parser)...)
	issues = append(issues, validateGroup(j.Group)...)
	issues = append(issues, validateOutput(j.Group.Mode, j.Output)...)
	if j.Group.Mode == ModeSplit {
		issues = append(issues, validateStorage(j.Storage)...)
	}
	issues = append(issues, validateMetrics(j.Metrics)...)
	return issues
}

func validateParser(p Parser) []Issue {
	var issues []Issue

	switch d := p.Options.String("delimiter", ","); d {
	case "", "tab", "sc", "bar":
	default:
		if utf8.RuneCountInString(d) > 1 {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "parser.options.delimiter",
				Message:  fmt.Sprintf("delimiter %q is not a shorthand; only its first character is used", d),
			})
		}
		if r, _ := utf8.DecodeRuneInString(d); r == '\n' || r == '\r' {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "parser.options.delimiter",
				Message:  "delimiter must not be a line break",
			})
		}
	}

	if q := p.Options.String("quote", `"`); utf8.RuneCountInString(q) > 1 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "parser.options.quote",
			Message:  fmt.Sprintf("quote %q is longer than one character; only its first character is used", q),
		})
	}
	return issues
}

func validateGroup(g Group) []Issue {
	var issues []Issue

	switch g.Mode {
	case ModeLimitations:
		if g.Column != "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "group.column",
				Message:  "group.column is ignored in limitations mode",
			})
		}
	case ModeSplit:
		if strings.TrimSpace(g.Column) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "group.column",
				Message:  "split mode requires a grouping column",
			})
		}
		if g.YearColumn == "" || g.DiseaseColumn == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "group",
				Message:  "split mode requires year_column and disease_column for the catalog",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "group.mode",
			Message:  fmt.Sprintf("unknown mode %q; want %q or %q", g.Mode, ModeLimitations, ModeSplit),
		})
	}
	return issues
}

func validateOutput(mode string, o Output) []Issue {
	var issues []Issue

	if o.Indent != "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "output.indent",
			Message:  "indent is ignored; output is always compact",
		})
	}
	if mode == ModeSplit && (o.Callback != "" || o.Variable != "") {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "output",
			Message:  "callback and variable wrapping are not applied to split documents",
		})
	}
	if o.Callback != "" && o.Variable != "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "output.variable",
			Message:  "both callback and variable are set; callback takes precedence",
		})
	}
	if o.Callback != "" && !jsIdent.MatchString(o.Callback) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.callback",
			Message:  fmt.Sprintf("callback %q is not a JavaScript identifier", o.Callback),
		})
	}
	if o.Variable != "" && !jsIdent.MatchString(o.Variable) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.variable",
			Message:  fmt.Sprintf("variable %q is not a JavaScript identifier", o.Variable),
		})
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue

	switch s.Kind {
	case "dir":
		if strings.TrimSpace(s.Dir) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "storage.dir",
				Message:  "dir storage requires a destination directory",
			})
		}
	case "sqlite", "postgres", "mysql", "mssql":
		if strings.TrimSpace(s.DB.DSN) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "storage.db.dsn",
				Message:  fmt.Sprintf("%s storage requires a dsn", s.Kind),
			})
		}
		if strings.TrimSpace(s.DB.Table) == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "storage.db.table",
				Message:  `storage.db.table is empty; "documents" is used`,
			})
		}
	case "":
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  "storage.kind must not be empty",
		})
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue

	switch m.Backend {
	case "", "none", "pushgateway":
	case "datadog":
		if strings.TrimSpace(m.StatsdAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.statsd_addr",
				Message:  "datadog backend requires statsd_addr",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; metrics disabled", m.Backend),
		})
	}
	return issues
}

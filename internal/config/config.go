// Package config defines the JSON-serializable job model for csv2json. A job
// can be loaded from a file and then overridden by command-line flags; the
// resulting Job is passed through the program unchanged.
//
// Example:
//
//	{
//	  "job":     "diseases-by-year",
//	  "source":  { "path": "data/limitations.csv" },
//	  "parser":  { "options": { "delimiter": "sc", "quote": "\"", "encoding": "windows-1250" } },
//	  "group":   { "mode": "split", "column": "y" },
//	  "storage": { "kind": "dir", "dir": "public/data" },
//	  "metrics": { "backend": "none" }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Grouping modes.
const (
	// ModeLimitations merges records by disease name, limitation text and
	// disease code and writes one sorted array to a single stream.
	ModeLimitations = "limitations"

	// ModeSplit writes one array per distinct value of a column plus a
	// per-year disease catalog.
	ModeSplit = "split"
)

// DefaultJobName labels runs that do not name themselves.
const DefaultJobName = "csv2json"

// Job describes one conversion run.
type Job struct {
	// Job names the run; it is used as the metrics job label.
	Job string `json:"job"`

	Source  Source  `json:"source"`
	Parser  Parser  `json:"parser"`
	Group   Group   `json:"group"`
	Output  Output  `json:"output"`
	Storage Storage `json:"storage"`
	Metrics Metrics `json:"metrics"`
}

// Source identifies the input. An empty path or "-" means standard input; an
// http:// or https:// path is downloaded.
type Source struct {
	Path string     `json:"path"`
	HTTP HTTPSource `json:"http"`
}

// HTTPSource tunes downloads of http(s) sources.
type HTTPSource struct {
	TimeoutSeconds     int               `json:"timeout_seconds"`
	MaxRetries         int               `json:"max_retries"`
	InsecureSkipVerify bool              `json:"insecure_skip_verify"`
	Headers            map[string]string `json:"headers"`
}

// Parser holds the free-form reader options (see parser/csv.OptionsFrom).
type Parser struct {
	Options Options `json:"options"`
}

// Group selects the grouping variant.
type Group struct {
	Mode string `json:"mode"`

	// Column is the grouping column for ModeSplit.
	Column string `json:"column"`

	// YearColumn and DiseaseColumn feed the ModeSplit catalog.
	YearColumn    string `json:"year_column"`
	DiseaseColumn string `json:"disease_column"`

	// KeepStrings lists columns exempt from numeric coercion.
	KeepStrings []string `json:"keep_strings"`

	// Normalize trims string values and replaces non-breaking spaces
	// before coercion.
	Normalize bool `json:"normalize"`
}

// Output controls single-stream wrapping. Indent is accepted for
// compatibility and ignored: output is always compact.
type Output struct {
	Callback string `json:"callback"`
	Variable string `json:"variable"`
	Indent   string `json:"indent"`

	// ASCII escapes non-ASCII text as \uXXXX in every written document.
	ASCII bool `json:"ascii"`
}

// Storage selects where ModeSplit documents are written.
type Storage struct {
	// Kind is one of "dir", "sqlite", "postgres", "mysql", "mssql".
	Kind string `json:"kind"`

	// Dir is the destination directory for the "dir" kind.
	Dir string `json:"dir"`

	DB DBConfig `json:"db"`
}

// DBConfig configures the database sinks.
type DBConfig struct {
	DSN string `json:"dsn"`

	// Table receives one row per document. Defaults to "documents".
	Table string `json:"table"`

	// AutoCreateTable creates the table when missing.
	AutoCreateTable bool `json:"auto_create_table"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is "none", "pushgateway" or "datadog".
	Backend        string   `json:"backend"`
	PushgatewayURL string   `json:"pushgateway_url"`
	StatsdAddr     string   `json:"statsd_addr"`
	Namespace      string   `json:"namespace"`
	Tags           []string `json:"tags"`
}

// Default returns the job used when no file is given.
func Default() Job {
	return Job{
		Job:     DefaultJobName,
		Parser:  Parser{Options: Options{}},
		Group:   Group{Mode: ModeLimitations, YearColumn: "y", DiseaseColumn: "d"},
		Storage: Storage{Kind: "dir", DB: DBConfig{Table: "documents"}},
		Metrics: Metrics{Backend: "none"},
	}
}

// Load decodes a job file on top of Default, so omitted sections keep their
// defaults.
func Load(path string) (Job, error) {
	j := Default()
	f, err := os.Open(path)
	if err != nil {
		return j, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&j); err != nil {
		return j, fmt.Errorf("decode config %s: %w", path, err)
	}
	return j, nil
}

// Options is a small helper to fetch typed values from arbitrary JSON maps
// without introducing third-party configuration libraries. It returns the
// provided defaults when a key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers decode as float64,
// which is accepted and truncated.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object
// whose values are strings. Non-string values are ignored. Returns an empty map
// when the key is missing or the value is not an object.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		switch m := v.(type) {
		case map[string]any:
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		case map[string]string:
			for k, s := range m {
				res[k] = s
			}
		}
	}
	return res
}

// Set stores a value, allocating the map if needed. Flags use it to override
// file settings.
func (o *Options) Set(key string, v any) {
	if *o == nil {
		*o = Options{}
	}
	(*o)[key] = v
}

// UnmarshalJSON implements json.Unmarshaler so that a missing or null "options"
// object in JSON decodes to a non-nil, empty Options map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"csv2json/internal/config"
	"csv2json/internal/group"
	csvparser "csv2json/internal/parser/csv"
	_ "csv2json/internal/storage/dir"
	"csv2json/pkg/records"
)

const limitationsCSV = "y,d,l,n\n" +
	"2010,D1,Limited in 2010 due to X,Flu\n" +
	"2012,D1,Limited in 2012 due to X,Flu\n" +
	"2010,D1,Limited in 2010 due to X,Flu\n" +
	"2011,7,Closed,Cholera\n"

const limitationsJSON = `[{"l":"Closed","d":7,"n":"Cholera","y":[2011]},{"l":"Limited in {{{YEAR}}} due to X","d":"D1","n":"Flu","y":[2010,2012]}]`

const splitCSV = "y;d;v\n" +
	"2011;D2;a\n" +
	"2010;D1;1.5\n" +
	"2011;D1;3\n" +
	"2010;D1;x y\n"

func splitJob(dir string) config.Job {
	j := config.Default()
	j.Group.Mode = config.ModeSplit
	j.Group.Column = "y"
	j.Parser.Options = config.Options{"delimiter": "sc"}
	j.Storage.Dir = dir
	return j
}

func TestRun_LimitationsToStdout(t *testing.T) {
	cases := []struct {
		name string
		out  config.Output
		want string
	}{
		{"bare", config.Output{}, limitationsJSON + "\n"},
		{"callback", config.Output{Callback: "cb", Variable: "ignored"}, "cb(" + limitationsJSON + ");\n"},
		{"variable", config.Output{Variable: "data"}, "var data = " + limitationsJSON + ";\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			j := config.Default()
			j.Output = tc.out
			var stdout bytes.Buffer
			sum, err := Run(context.Background(), j, Env{Stdin: strings.NewReader(limitationsCSV), Stdout: &stdout})
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if got := stdout.String(); got != tc.want {
				t.Fatalf("stdout:\n got  %s\n want %s", got, tc.want)
			}
			if sum.Records != 4 || sum.Groups != 2 {
				t.Fatalf("summary = %+v", sum)
			}
		})
	}
}

func TestRun_LimitationsIdempotent(t *testing.T) {
	var first, second bytes.Buffer
	for _, out := range []*bytes.Buffer{&first, &second} {
		if _, err := Run(context.Background(), config.Default(), Env{Stdin: strings.NewReader(limitationsCSV), Stdout: out}); err != nil {
			t.Fatalf("Run: %v", err)
		}
	}
	if first.String() != second.String() {
		t.Fatalf("runs differ:\n%s\n%s", first.String(), second.String())
	}
}

func TestRun_LimitationsMissingColumnWritesNothing(t *testing.T) {
	var stdout bytes.Buffer
	_, err := Run(context.Background(), config.Default(), Env{Stdin: strings.NewReader("y,d,l\n2010,D1,x\n"), Stdout: &stdout})
	if !errors.Is(err, group.ErrMissingColumn) {
		t.Fatalf("err = %v, want ErrMissingColumn", err)
	}
	if stdout.Len() != 0 {
		t.Fatalf("stdout = %q, want nothing", stdout.String())
	}
}

func TestRun_FieldCountMismatchWritesNothing(t *testing.T) {
	dir := t.TempDir()
	var progress bytes.Buffer
	_, err := Run(context.Background(), splitJob(dir), Env{
		Stdin:    strings.NewReader("y;d;v\n2011;D2;a\n2010;D1\n"),
		Progress: &progress,
	})
	if !errors.Is(err, csvparser.ErrFieldCount) {
		t.Fatalf("err = %v, want ErrFieldCount", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 || progress.Len() != 0 {
		t.Fatalf("wrote %d files, progress %q; want none", len(entries), progress.String())
	}
}

func TestRun_SplitToDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	var progress bytes.Buffer
	sum, err := Run(context.Background(), splitJob(dir), Env{Stdin: strings.NewReader(splitCSV), Progress: &progress})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Records != 4 || sum.Groups != 2 || sum.Documents != 3 {
		t.Fatalf("summary = %+v", sum)
	}

	want := map[string]string{
		"2011.json":                  `[{"y":2011,"d":"D2","v":"a"},{"y":2011,"d":"D1","v":3}]`,
		"2010.json":                  `[{"y":2010,"d":"D1","v":1.5},{"y":2010,"d":"D1","v":"x y"}]`,
		"catalog_year_diseases.json": `[{"name":2011,"label":2011,"diseases":["D2","D1"]},{"name":2010,"label":2010,"diseases":["D1"]}]`,
	}
	got := map[string]string{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		got[e.Name()] = string(b)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("documents mismatch (-want +got):\n%s", diff)
	}

	lines := strings.Split(strings.TrimSpace(progress.String()), "\n")
	wantPrefixes := []string{"writing " + filepath.Join(dir, "2011.json"), "writing " + filepath.Join(dir, "2010.json"), "writing " + filepath.Join(dir, "catalog_year_diseases.json")}
	if len(lines) != len(wantPrefixes) {
		t.Fatalf("progress lines = %q", lines)
	}
	for i, p := range wantPrefixes {
		if !strings.HasPrefix(lines[i], p+" xxh3=") {
			t.Fatalf("progress[%d] = %q, want prefix %q", i, lines[i], p)
		}
	}
}

// Every input record lands in exactly one partition file, and decoding the
// files gives back the coerced records.
func TestRun_SplitPartitionCompletenessAndRoundTrip(t *testing.T) {
	dir := t.TempDir()
	if _, err := Run(context.Background(), splitJob(dir), Env{Stdin: strings.NewReader(splitCSV), Progress: io.Discard}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var decoded []string
	for _, name := range []string{"2010.json", "2011.json"} {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		var recs []records.Record
		if err := json.Unmarshal(b, &recs); err != nil {
			t.Fatalf("decode %s: %v", name, err)
		}
		for _, r := range recs {
			y, _ := r.Get("y")
			if name != records.Text(y)+".json" {
				t.Fatalf("record with y=%v in %s", y, name)
			}
			enc, err := r.MarshalJSON()
			if err != nil {
				t.Fatalf("re-encode: %v", err)
			}
			decoded = append(decoded, string(enc))
		}
	}

	want := []string{
		`{"y":2011,"d":"D2","v":"a"}`,
		`{"y":2010,"d":"D1","v":1.5}`,
		`{"y":2011,"d":"D1","v":3}`,
		`{"y":2010,"d":"D1","v":"x y"}`,
	}
	sort.Strings(want)
	sort.Strings(decoded)
	if diff := cmp.Diff(want, decoded); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_SplitIdempotent(t *testing.T) {
	dir := t.TempDir()
	read := func() map[string]string {
		out := map[string]string{}
		entries, _ := os.ReadDir(dir)
		for _, e := range entries {
			b, _ := os.ReadFile(filepath.Join(dir, e.Name()))
			out[e.Name()] = string(b)
		}
		return out
	}
	var snaps []map[string]string
	for i := 0; i < 2; i++ {
		if _, err := Run(context.Background(), splitJob(dir), Env{Stdin: strings.NewReader(splitCSV), Progress: io.Discard}); err != nil {
			t.Fatalf("Run %d: %v", i, err)
		}
		snaps = append(snaps, read())
	}
	if diff := cmp.Diff(snaps[0], snaps[1]); diff != "" {
		t.Fatalf("second run differs (-first +second):\n%s", diff)
	}
}

func TestRun_HTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, limitationsCSV)
	}))
	defer srv.Close()

	j := config.Default()
	j.Source.Path = srv.URL + "/limitations.csv"
	var stdout bytes.Buffer
	if _, err := Run(context.Background(), j, Env{Stdout: &stdout}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stdout.String() != limitationsJSON+"\n" {
		t.Fatalf("stdout = %s", stdout.String())
	}
}

func TestRun_Errors(t *testing.T) {
	j := config.Default()
	j.Group.Mode = "pivot"
	if _, err := Run(context.Background(), j, Env{Stdin: strings.NewReader(limitationsCSV)}); err == nil {
		t.Fatalf("unknown mode accepted")
	}

	j = config.Default()
	j.Source.Path = filepath.Join(t.TempDir(), "missing.csv")
	if _, err := Run(context.Background(), j, Env{}); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want os.ErrNotExist", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, config.Default(), Env{Stdin: strings.NewReader(limitationsCSV), Stdout: io.Discard}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	j = splitJob(t.TempDir())
	j.Storage.Kind = "s3"
	if _, err := Run(context.Background(), j, Env{Stdin: strings.NewReader(splitCSV), Progress: io.Discard}); err == nil || !strings.Contains(err.Error(), "open sink") {
		t.Fatalf("err = %v, want open sink error", err)
	}
}

func TestRun_KeepStrings(t *testing.T) {
	j := splitJob(t.TempDir())
	j.Group.KeepStrings = []string{"d"}
	in := "y;d;v\n2010;007;1\n"
	if _, err := Run(context.Background(), j, Env{Stdin: strings.NewReader(in), Progress: io.Discard}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(j.Storage.Dir, "2010.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != `[{"y":2010,"d":"007","v":1}]` {
		t.Fatalf("2010.json = %s", b)
	}
}

func TestRun_Normalize(t *testing.T) {
	in := "y,d,l,n\n2010,D1, Limited\u00a0in 2010 ,Flu\u00a0\n"
	cases := []struct {
		normalize bool
		want      string
	}{
		{false, `[{"l":" Limited` + "\u00a0" + `in {{{YEAR}}} ","d":"D1","n":"Flu` + "\u00a0" + `","y":[2010]}]` + "\n"},
		{true, `[{"l":"Limited in {{{YEAR}}}","d":"D1","n":"Flu","y":[2010]}]` + "\n"},
	}
	for _, tc := range cases {
		j := config.Default()
		j.Group.Normalize = tc.normalize
		var out bytes.Buffer
		if _, err := Run(context.Background(), j, Env{Stdin: strings.NewReader(in), Stdout: &out}); err != nil {
			t.Fatalf("normalize=%v: Run: %v", tc.normalize, err)
		}
		if out.String() != tc.want {
			t.Fatalf("normalize=%v:\ngot  %s\nwant %s", tc.normalize, out.String(), tc.want)
		}
	}
}

func TestRun_LimitationsWithoutRows(t *testing.T) {
	for _, in := range []string{"", "a,b\n", "y,d,l,n\n"} {
		var out bytes.Buffer
		sum, err := Run(context.Background(), config.Default(), Env{Stdin: strings.NewReader(in), Stdout: &out})
		if err != nil {
			t.Fatalf("input %q: Run: %v", in, err)
		}
		if out.String() != "[]\n" || sum.Records != 0 {
			t.Fatalf("input %q: stdout %q records %d, want []", in, out.String(), sum.Records)
		}
	}
}

func TestRun_SplitWithoutHeaderFails(t *testing.T) {
	dir := t.TempDir()
	_, err := Run(context.Background(), splitJob(dir), Env{Stdin: strings.NewReader(""), Progress: io.Discard})
	if !errors.Is(err, group.ErrMissingColumn) {
		t.Fatalf("err = %v, want ErrMissingColumn", err)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Fatalf("wrote %d files, want none", len(entries))
	}
}

func TestRun_ASCIIOutput(t *testing.T) {
	j := config.Default()
	j.Output.ASCII = true
	var out bytes.Buffer
	in := "y,d,l,n\n2010,D1,Omezeno,Chřipka\n"
	if _, err := Run(context.Background(), j, Env{Stdin: strings.NewReader(in), Stdout: &out}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := `[{"l":"Omezeno","d":"D1","n":"Chřipka","y":[2010]}]` + "\n"; out.String() != want {
		t.Fatalf("got %s want %s", out.String(), want)
	}
}

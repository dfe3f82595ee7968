package source

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/fbind/internal/config"
	"github.com/vango-dev/fbind/internal/errors"
	"github.com/vango-dev/fbind/pkg/dom"
)

type fakeS3 struct {
	objects map[string]string
	calls   []string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.calls = append(f.calls, key)
	body, ok := f.objects[key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in      string
		want    Location
		wantErr bool
	}{
		{"page.html", Location{Kind: KindFile, Path: "page.html"}, false},
		{"-", Location{Kind: KindStdin}, false},
		{"s3://b/dir/page.html", Location{Kind: KindS3, Bucket: "b", Key: "dir/page.html"}, false},
		{"s3://bucket", Location{}, true},
		{"https://example.com/x", Location{}, true},
		{"", Location{}, true},
	}
	for _, tt := range tests {
		got, err := ParseLocation(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLocation(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ParseLocation(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
		if !tt.wantErr && got.String() != tt.in {
			t.Errorf("String() = %q, want %q", got.String(), tt.in)
		}
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(path, []byte("<p>x</p>"), 0644); err != nil {
		t.Fatal(err)
	}

	l := New()
	data, err := l.Read(context.Background(), path)
	if err != nil || string(data) != "<p>x</p>" {
		t.Fatalf("Read() = %q, %v", data, err)
	}

	_, err = l.Read(context.Background(), filepath.Join(t.TempDir(), "missing.html"))
	if !stderrors.Is(err, ErrNotFound) {
		t.Errorf("missing file err = %v, want ErrNotFound", err)
	}
}

func TestReadStdin(t *testing.T) {
	l := New(WithStdin(strings.NewReader("<b>in</b>")))
	data, err := l.Read(context.Background(), "-")
	if err != nil || string(data) != "<b>in</b>" {
		t.Errorf("Read(-) = %q, %v", data, err)
	}
}

func TestReadS3(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{"site/index.html": "<h1>remote</h1>"}}
	l := New(WithS3(fake))

	doc, err := l.Template(context.Background(), "s3://site/index.html")
	if err != nil {
		t.Fatal(err)
	}
	if h1 := dom.Find(doc, "h1"); h1 == nil || dom.TextContent(h1) != "remote" {
		t.Error("template not parsed from the object body")
	}

	_, err = l.Read(context.Background(), "s3://site/missing.html")
	if !stderrors.Is(err, ErrNotFound) {
		t.Errorf("missing object err = %v, want ErrNotFound", err)
	}
	if diff := cmp.Diff([]string{"site/index.html", "site/missing.html"}, fake.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestReadS3WithoutClient(t *testing.T) {
	_, err := New().Read(context.Background(), "s3://b/k")
	if errors.CodeOf(err) != "S201" {
		t.Errorf("code = %q, want S201", errors.CodeOf(err))
	}
}

func TestScope(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "scope.json")
	yamlPath := filepath.Join(dir, "scope.yaml")
	_ = os.WriteFile(jsonPath, []byte(`{"name": "Sam", "user": {"age": 41}}`), 0644)
	_ = os.WriteFile(yamlPath, []byte("name: Ada\ntags:\n  - a\n  - b\n"), 0644)

	l := New()
	s, err := l.Scope(context.Background(), jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	if age, _ := s.Get("user.age"); age != 41.0 {
		t.Errorf("user.age = %v", age)
	}

	s, err = l.Scope(context.Background(), yamlPath)
	if err != nil {
		t.Fatal(err)
	}
	tags, _ := s.Get("tags")
	if diff := cmp.Diff([]any{"a", "b"}, tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}

	empty, err := l.Scope(context.Background(), "")
	if err != nil || len(empty.Keys()) != 0 {
		t.Errorf("empty location = %v, %v", empty.Keys(), err)
	}
}

func TestParseScopeErrors(t *testing.T) {
	if _, err := ParseScope([]byte(`{"a":`), ".json"); errors.CodeOf(err) != "S202" {
		t.Errorf("bad JSON code = %q", errors.CodeOf(err))
	}
	if _, err := ParseScope([]byte("[1, 2]"), ".json"); err == nil {
		t.Error("a JSON array is not a scope")
	}
	if _, err := ParseScope([]byte("a: [b"), ".yml"); errors.CodeOf(err) != "S202" {
		t.Errorf("bad YAML code = %q", errors.CodeOf(err))
	}
	m, err := ParseScope([]byte("  \n"), ".json")
	if err != nil || len(m) != 0 {
		t.Errorf("blank data = %v, %v", m, err)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"42", 42.0},
		{"true", true},
		{"null", nil},
		{`"quoted"`, "quoted"},
		{`["a"]`, []any{"a"}},
		{"plain text", "plain text"},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, ParseValue(tt.in)); diff != "" {
			t.Errorf("ParseValue(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestNewS3Client(t *testing.T) {
	client := NewS3Client(config.S3Config{Region: "eu-west-1", Endpoint: "http://localhost:9000", UsePathStyle: true})
	opts := client.Options()
	if opts.Region != "eu-west-1" || !opts.UsePathStyle || aws.ToString(opts.BaseEndpoint) != "http://localhost:9000" {
		t.Errorf("options = region %q, path style %v, endpoint %q", opts.Region, opts.UsePathStyle, aws.ToString(opts.BaseEndpoint))
	}

	t.Setenv("AWS_ACCESS_KEY_ID", "")
	if _, err := opts.Credentials.Retrieve(context.Background()); err == nil {
		t.Error("missing credentials should fail")
	}
}

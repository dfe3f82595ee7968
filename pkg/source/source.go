// Package source loads templates and scope data from local files, standard
// input or S3.
//
// Locations are written the way the CLI accepts them:
//
//	page.html             a local file
//	-                     standard input
//	s3://bucket/key.html  an S3 object
//
// Scope data is JSON, or YAML when the location ends in .yaml or .yml.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/fbind/internal/config"
	"github.com/vango-dev/fbind/internal/errors"
	"github.com/vango-dev/fbind/pkg/dom"
	"github.com/vango-dev/fbind/pkg/scope"
)

// ErrNotFound matches errors for missing files and objects.
var ErrNotFound = errors.New("S200")

// Kind is where a location points.
type Kind int

const (
	KindFile Kind = iota
	KindStdin
	KindS3
)

// Location is a parsed source location.
type Location struct {
	Kind   Kind
	Path   string // KindFile
	Bucket string // KindS3
	Key    string // KindS3
}

func (l Location) String() string {
	switch l.Kind {
	case KindStdin:
		return "-"
	case KindS3:
		return "s3://" + l.Bucket + "/" + l.Key
	}
	return l.Path
}

// Ext returns the lower-cased extension of the file or key.
func (l Location) Ext() string {
	name := l.Path
	if l.Kind == KindS3 {
		name = l.Key
	}
	return strings.ToLower(filepath.Ext(name))
}

// ParseLocation parses a file path, "-" or an s3:// URL.
func ParseLocation(loc string) (Location, error) {
	switch {
	case loc == "":
		return Location{}, errors.New("S201").WithDetail("empty location")
	case loc == "-":
		return Location{Kind: KindStdin}, nil
	case strings.HasPrefix(loc, "s3://"):
		bucket, key, _ := strings.Cut(strings.TrimPrefix(loc, "s3://"), "/")
		if bucket == "" || key == "" {
			return Location{}, errors.New("S201").WithDetailf("%q needs a bucket and a key", loc)
		}
		return Location{Kind: KindS3, Bucket: bucket, Key: key}, nil
	case strings.Contains(loc, "://"):
		return Location{}, errors.New("S201").WithDetailf("%q", loc)
	}
	return Location{Kind: KindFile, Path: loc}, nil
}

// ObjectGetter is the part of the S3 client the loader uses.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Loader reads locations.
type Loader struct {
	s3     ObjectGetter
	stdin  io.Reader
	logger *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithS3 sets the client used for s3:// locations.
func WithS3(client ObjectGetter) Option {
	return func(l *Loader) {
		l.s3 = client
	}
}

// WithStdin replaces os.Stdin for the "-" location.
func WithStdin(r io.Reader) Option {
	return func(l *Loader) {
		l.stdin = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Loader. Without WithS3, s3:// locations fail.
func New(opts ...Option) *Loader {
	l := &Loader{
		stdin:  os.Stdin,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Read returns the raw content at loc.
func (l *Loader) Read(ctx context.Context, loc string) ([]byte, error) {
	parsed, err := ParseLocation(loc)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("reading source", "location", parsed.String())

	switch parsed.Kind {
	case KindStdin:
		data, err := io.ReadAll(l.stdin)
		if err != nil {
			return nil, errors.New("S200").WithDetail("standard input").Wrap(err)
		}
		return data, nil
	case KindS3:
		return l.readS3(ctx, parsed)
	}

	data, err := os.ReadFile(parsed.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("S200").WithDetail(parsed.Path)
		}
		return nil, errors.FromError(err, "S200")
	}
	return data, nil
}

func (l *Loader) readS3(ctx context.Context, loc Location) ([]byte, error) {
	if l.s3 == nil {
		return nil, errors.New("S201").
			WithDetailf("%s: no S3 client configured", loc).
			WithSuggestion("Set AWS_REGION or the s3 section of fbind.json")
	}
	out, err := l.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if stderrors.As(err, &missing) {
			return nil, errors.New("S200").WithDetail(loc.String())
		}
		return nil, errors.New("S200").WithDetail(loc.String()).Wrap(err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.New("S200").WithDetail(loc.String()).Wrap(err)
	}
	return data, nil
}

// Template reads and parses a complete HTML document.
func (l *Loader) Template(ctx context.Context, loc string) (*html.Node, error) {
	data, err := l.Read(ctx, loc)
	if err != nil {
		return nil, err
	}
	doc, err := dom.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, errors.New("S203").WithDetail(loc).Wrap(err)
	}
	return doc, nil
}

// Scope reads scope data and wraps it in a reactive scope. An empty
// location yields an empty scope.
func (l *Loader) Scope(ctx context.Context, loc string) (*scope.Object, error) {
	if loc == "" {
		return scope.New(nil), nil
	}
	parsed, err := ParseLocation(loc)
	if err != nil {
		return nil, err
	}
	data, err := l.Read(ctx, loc)
	if err != nil {
		return nil, err
	}
	m, err := ParseScope(data, parsed.Ext())
	if err != nil {
		return nil, errors.FromError(err, "S202").WithDetail(loc)
	}
	return scope.New(m), nil
}

// ParseScope decodes scope data. ext selects YAML for ".yaml" and ".yml";
// anything else is JSON.
func ParseScope(data []byte, ext string) (map[string]any, error) {
	m := map[string]any{}
	if len(bytes.TrimSpace(data)) == 0 {
		return m, nil
	}

	var err error
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &m)
	default:
		err = json.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, errors.New("S202").Wrap(err)
	}
	return m, nil
}

// ParseValue interprets a command-line value: JSON when it parses as JSON
// (numbers, booleans, null, quoted strings, arrays, objects), the raw
// string otherwise.
func ParseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

// NewS3Client builds an S3 client from configuration. Credentials come from
// AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN.
func NewS3Client(cfg config.S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  aws.NewCredentialsCache(envCredentials{}),
		UsePathStyle: cfg.UsePathStyle,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

type envCredentials struct{}

func (envCredentials) Retrieve(context.Context) (aws.Credentials, error) {
	id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.Credentials{}, fmt.Errorf("source: AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
	}
	return aws.Credentials{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "environment",
	}, nil
}

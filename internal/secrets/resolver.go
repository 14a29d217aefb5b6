// Package secrets resolves credential references found in the configuration.
//
// A reference is one of:
//
//	env:NAME                read environment variable NAME
//	file:/path/to/key       read a file, trimming surrounding whitespace
//	docker:name             read /run/secrets/name
//	keeper:UID/field/type   read a Keeper Secrets Manager notation
//
// Anything else is taken literally.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/next-gen-ui/ngui-mcp/internal/config"
)

// Reference prefixes
const (
	PrefixEnv    = "env:"
	PrefixFile   = "file:"
	PrefixDocker = "docker:"
	PrefixKeeper = "keeper:"
)

// ErrNotFound is returned when a reference points at nothing.
var ErrNotFound = errors.New("secret not found")

// NotationSource answers Keeper notation queries.
type NotationSource interface {
	GetNotation(notation string) ([]interface{}, error)
}

// Resolver turns references into secret values.
type Resolver struct {
	secretsDir string
	getenv     func(string) string

	keeperOnce sync.Once
	keeper     NotationSource
	keeperErr  error
	newKeeper  func() (NotationSource, error)
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithSecretsDir overrides the directory used for docker: references.
func WithSecretsDir(dir string) Option {
	return func(r *Resolver) { r.secretsDir = dir }
}

// WithKeeper supplies the notation source used for keeper: references.
func WithKeeper(src NotationSource) Option {
	return func(r *Resolver) {
		r.newKeeper = func() (NotationSource, error) { return src, nil }
	}
}

// WithEnv overrides environment lookup.
func WithEnv(getenv func(string) string) Option {
	return func(r *Resolver) { r.getenv = getenv }
}

// NewResolver creates a resolver. The Keeper client is created lazily on the
// first keeper: reference.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		secretsDir: config.DockerSecretsPath,
		getenv:     os.Getenv,
	}
	r.newKeeper = func() (NotationSource, error) {
		return NewKeeperFromEnvironment(r.getenv, r.secretsDir)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the value ref points to.
func (r *Resolver) Resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case strings.HasPrefix(ref, PrefixEnv):
		name := strings.TrimPrefix(ref, PrefixEnv)
		v := r.getenv(name)
		if v == "" {
			return "", fmt.Errorf("%w: environment variable %s is empty", ErrNotFound, name)
		}
		return v, nil

	case strings.HasPrefix(ref, PrefixFile):
		return readSecretFile(strings.TrimPrefix(ref, PrefixFile))

	case strings.HasPrefix(ref, PrefixDocker):
		name := strings.TrimPrefix(ref, PrefixDocker)
		if name == "" || strings.ContainsAny(name, `/\`) || name == ".." {
			return "", fmt.Errorf("invalid docker secret name %q", name)
		}
		return readSecretFile(filepath.Join(r.secretsDir, name))

	case strings.HasPrefix(ref, PrefixKeeper):
		return r.resolveKeeper(strings.TrimPrefix(ref, PrefixKeeper))

	default:
		return ref, nil
	}
}

func (r *Resolver) resolveKeeper(notation string) (string, error) {
	notation = strings.TrimPrefix(notation, "//")
	if err := ValidateNotation(notation); err != nil {
		return "", err
	}

	r.keeperOnce.Do(func() {
		r.keeper, r.keeperErr = r.newKeeper()
	})
	if r.keeperErr != nil {
		return "", fmt.Errorf("failed to initialise keeper secrets manager: %w", r.keeperErr)
	}

	results, err := r.keeper.GetNotation("keeper://" + notation)
	if err != nil {
		return "", fmt.Errorf("failed to resolve keeper notation: %w", err)
	}
	for _, v := range results {
		if s, ok := v.(string); ok && s != "" {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: keeper notation %s returned no string value", ErrNotFound, notation)
}

func readSecretFile(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty file reference", ErrNotFound)
	}
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}

	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 - path comes from the operator's config
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", fmt.Errorf("failed to read secret file: %w", err)
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrNotFound, path)
	}
	return v, nil
}

// ValidateNotation checks the <uid-or-title>/<field|custom_field>/<name> shape.
func ValidateNotation(notation string) error {
	parts := strings.Split(notation, "/")
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return fmt.Errorf("invalid keeper notation %q: expected <uid>/field/<name>", notation)
	}
	switch parts[1] {
	case "field", "custom_field":
		return nil
	default:
		return fmt.Errorf("invalid keeper notation %q: unsupported selector %q", notation, parts[1])
	}
}

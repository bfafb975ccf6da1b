// Package images turns tagged image path strings in a render context into
// embeddable image handles.
package images

import (
	"errors"
	"io/fs"
	"reflect"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/sistemadual/docgen/pkg/docgen"
)

// Prefix marks a context string as a path to an image file.
const Prefix = "IMAGE_PATH:"

// DefaultWidthMM is the rendered width of substituted images.
const DefaultWidthMM = 40

// Ref returns the tagged form of path.
func Ref(path string) string {
	return Prefix + path
}

// Path returns the file path of a tagged string.
func Path(s string) (string, bool) {
	if !strings.HasPrefix(s, Prefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(s, Prefix)), true
}

// Resolver converts tagged strings found anywhere in a context.
type Resolver struct {
	widthMM float64
	logger  *log.Logger
	load    func(path string, widthMM float64) (*docgen.Image, error)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithWidth sets the image width in millimetres.
func WithWidth(mm float64) Option {
	return func(r *Resolver) {
		if mm > 0 {
			r.widthMM = mm
		}
	}
}

// WithLogger sets the logger used for missing or unreadable images.
func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver returns a Resolver loading files from disk.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		widthMM: DefaultWidthMM,
		logger:  log.Default(),
		load:    docgen.NewImageFromFile,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns a copy of data in which every tagged string, at any depth
// of maps and lists, is replaced by an image handle. A missing or unreadable
// file becomes an empty string. data itself is not modified.
func (r *Resolver) Resolve(data docgen.Data) docgen.Data {
	out := make(docgen.Data, len(data))
	for k, v := range data {
		out[k] = r.value(k, v)
	}
	return out
}

func (r *Resolver) value(key string, v any) any {
	switch val := v.(type) {
	case string:
		path, ok := Path(val)
		if !ok {
			return val
		}
		return r.image(key, path)
	case docgen.Data:
		return r.Resolve(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = r.value(k, item)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(val))
		for i, item := range val {
			out[i] = r.value(key, item).(map[string]any)
		}
		return out
	case []docgen.Data:
		out := make([]docgen.Data, len(val))
		for i, item := range val {
			out[i] = r.Resolve(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = r.value(key, item)
		}
		return out
	case []byte:
		return val
	}
	return r.reflectValue(key, v)
}

// reflectValue walks the remaining slice, array and string-keyed map types.
// Element types may not hold an image handle, so the copy is untyped.
func (r *Resolver) reflectValue(key string, v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return v
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = r.value(key, rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String || rv.IsNil() {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			out[k] = r.value(k, iter.Value().Interface())
		}
		return out
	}
	return v
}

func (r *Resolver) image(key, path string) any {
	if path == "" {
		return ""
	}
	img, err := r.load(path, r.widthMM)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("image not found, leaving blank", "key", key, "path", path)
		} else {
			r.logger.Warn("image unreadable, leaving blank", "key", key, "path", path, "err", err)
		}
		return ""
	}
	return img
}

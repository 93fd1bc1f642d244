// Package flatten re-emits the nested JSON object held in one record field as
// one event per leaf.
//
// For a record {"payload": `{"user": {"name": "alice"}}`} under tag "app.log"
// and Key "payload", the transform emits one event tagged
// rewrite("app.log.payload.user.name") with record {"value": "alice"}.
//
// Records that lack the field, carry an empty value, or hold invalid JSON
// produce no output; the batch is still acknowledged.
package flatten

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/gyaneshwarpardhi/flatten/internal/event"
	"github.com/gyaneshwarpardhi/flatten/internal/metrics"
	"github.com/gyaneshwarpardhi/flatten/internal/value"
)

// DefaultInnerKey wraps each leaf when Config.InnerKey is empty.
const DefaultInnerKey = "value"

var whitespace = regexp.MustCompile(`[\t\n\v\f\r ]+`)

// Config holds the transform options.
type Config struct {
	// Key names the record field holding the nested object.
	Key string
	// InnerKey names the field each leaf is wrapped under.
	InnerKey string
	// ParseJSON decodes record[Key] from a JSON string. When false the
	// field must already be a mapping.
	ParseJSON bool
	// ReplaceSpaceInTag, when non-nil, replaces whitespace runs in output tags.
	ReplaceSpaceInTag *string
}

// DefaultConfig returns a Config with InnerKey "value" and ParseJSON on.
func DefaultConfig(key string) Config {
	return Config{Key: key, InnerKey: DefaultInnerKey, ParseJSON: true}
}

// TagRewriter rewrites the composed "tag.keypath" before emission.
type TagRewriter interface {
	Rewrite(tag string) string
	// RuleCount reports how many rewrite rules are active.
	RuleCount() int
}

// Acker acknowledges that a batch was consumed.
type Acker interface {
	Ack()
}

// AckFunc adapts a function to Acker.
type AckFunc func()

func (f AckFunc) Ack() { f() }

// Transform is immutable after New and safe for concurrent use.
type Transform struct {
	cfg      Config
	rewriter TagRewriter
	logger   *slog.Logger
}

// Option customises a Transform.
type Option func(*Transform)

// WithLogger sets the logger used for dropped-record diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transform) {
		if l != nil {
			t.logger = l
		}
	}
}

// New validates cfg and returns a Transform. It fails with *ConfigError when
// Key is empty or rw has no active rule: without a tag change the output would
// be routed like its input.
func New(cfg Config, rw TagRewriter, opts ...Option) (*Transform, error) {
	if cfg.Key == "" {
		return nil, &ConfigError{Field: "key", Reason: "is required"}
	}
	if rw == nil || rw.RuleCount() == 0 {
		return nil, &ConfigError{
			Field:  "tag_rewrite",
			Reason: "at least one of remove_tag_prefix/remove_tag_suffix/add_tag_prefix/add_tag_suffix is required",
		}
	}
	if cfg.InnerKey == "" {
		cfg.InnerKey = DefaultInnerKey
	}
	t := &Transform{cfg: cfg, rewriter: rw, logger: slog.Default()}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Config returns the effective configuration.
func (t *Transform) Config() Config { return t.cfg }

// Flatten extracts record[Key] and flattens it. A record that cannot produce
// output returns an error matching ErrMalformedPayload.
func (t *Transform) Flatten(record *value.Map) (*Result, error) {
	raw, ok := record.Get(t.cfg.Key)
	if !ok {
		return nil, &malformed{reason: metrics.ReasonMissingKey}
	}
	if raw.Empty() {
		return nil, &malformed{reason: metrics.ReasonEmptyValue}
	}

	root := raw
	if t.cfg.ParseJSON {
		s, ok := raw.AsString()
		if !ok {
			return nil, &malformed{reason: metrics.ReasonNotString, err: fmt.Errorf("field is %s", raw.Kind())}
		}
		// Upstream escapes quotes once too often; undo it before decoding.
		s = strings.ReplaceAll(s, `\"`, `"`)
		v, err := value.Decode([]byte(s))
		if err != nil {
			return nil, &malformed{reason: metrics.ReasonInvalidJSON, err: err}
		}
		root = v
	}
	return FlattenNode(t.cfg.Key, root), nil
}

// OutputTag composes, rewrites and sanitises the tag for one leaf path.
func (t *Transform) OutputTag(tag, path string) string {
	out := t.rewriter.Rewrite(tag + "." + path)
	if t.cfg.ReplaceSpaceInTag != nil {
		out = whitespace.ReplaceAllLiteralString(out, *t.cfg.ReplaceSpaceInTag)
	}
	return out
}

// Apply returns the events produced by one entry. It never fails; entries
// that cannot be flattened yield nil.
func (t *Transform) Apply(tag string, e event.Entry) []event.Event {
	metrics.RecordsProcessed.Inc()

	res, err := t.Flatten(e.Record)
	if err != nil {
		metrics.RecordsDropped.WithLabelValues(DropReason(err)).Inc()
		t.logger.Debug("record dropped", "tag", tag, "key", t.cfg.Key, "err", err)
		return nil
	}

	out := make([]event.Event, 0, res.Len())
	for _, p := range res.Pairs() {
		rec := value.NewMap()
		rec.Set(t.cfg.InnerKey, p.Value)
		out = append(out, event.Event{
			Tag:    t.OutputTag(tag, p.Path),
			Time:   e.Time,
			Record: rec,
		})
	}
	return out
}

// Process applies the transform to every entry of b in order, hands each
// output event to out, and acknowledges b exactly once. It returns the number
// of events emitted. A nil out discards the events.
func (t *Transform) Process(b *event.Batch, out event.Emitter, ack Acker) int {
	if ack != nil {
		defer ack.Ack()
	}
	if out == nil {
		out = event.EmitterFunc(func(event.Event) {})
	}
	emitted := 0
	for _, e := range b.Entries {
		for _, ev := range t.Apply(b.Tag, e) {
			out.Emit(ev)
			emitted++
		}
	}
	metrics.EventsEmitted.Add(float64(emitted))
	return emitted
}

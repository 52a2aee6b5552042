// Package normalize converts versioned riot-style match payloads into the
// canonical match model.
//
// Each supported payload version has its own Mapper. Normalization is a pure
// transform: it never touches shared state and never guesses at payloads it
// does not understand.
package normalize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/riftcoach/insight/internal/domain/model"
)

// Mapper maps one payload version onto the canonical model.
type Mapper interface {
	Version() string
	Map(doc gjson.Result) (*model.CanonicalMatch, error)
}

// Normalizer dispatches payloads to version-specific mappers.
type Normalizer struct {
	mappers map[string]Mapper
}

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithMapper registers or replaces the mapper for its version.
func WithMapper(m Mapper) Option {
	return func(n *Normalizer) {
		if m != nil {
			n.mappers[m.Version()] = m
		}
	}
}

// New constructs a Normalizer with the built-in mappers.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{mappers: make(map[string]Mapper)}
	for _, m := range []Mapper{legacyMapper(), currentMapper()} {
		n.mappers[m.Version()] = m
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Versions lists the supported schema versions in ascending order.
func (n *Normalizer) Versions() []string {
	out := make([]string, 0, len(n.mappers))
	for v := range n.mappers {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Normalize parses raw with the mapper for version. An empty version is
// read from metadata.dataVersion.
func (n *Normalizer) Normalize(raw []byte, version string) (*model.CanonicalMatch, error) {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return nil, schemaErr("$", "malformed json")
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return nil, schemaErr("$", "expected object")
	}

	v := canonicalVersion(version)
	if v == "" {
		v = canonicalVersion(doc.Get("metadata.dataVersion").String())
	}
	if v == "" {
		return nil, fmt.Errorf("%w: no version given and metadata.dataVersion absent", ErrUnsupportedSchema)
	}
	mapper, ok := n.mappers[v]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSchema, v)
	}

	m, err := mapper.Map(doc)
	if err != nil {
		return nil, err
	}
	m.SchemaVersion = v
	finalize(m)
	return m, nil
}

func canonicalVersion(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	return strings.TrimPrefix(v, "v")
}

// finalize sorts events by time, keeping payload order for ties, and
// assigns Seq.
func finalize(m *model.CanonicalMatch) {
	sort.SliceStable(m.Events, func(i, j int) bool {
		return m.Events[i].At < m.Events[j].At
	})
	for i := range m.Events {
		m.Events[i].Seq = i
	}
}

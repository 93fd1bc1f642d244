// Package tagrewrite rewrites output tags by stripping and adding dotted
// prefixes and suffixes.
package tagrewrite

import "strings"

// Rules are the four tag rewrite options. An empty string leaves the rule unset.
type Rules struct {
	RemovePrefix string `yaml:"remove_tag_prefix" json:"remove_tag_prefix,omitempty"`
	RemoveSuffix string `yaml:"remove_tag_suffix" json:"remove_tag_suffix,omitempty"`
	AddPrefix    string `yaml:"add_tag_prefix"    json:"add_tag_prefix,omitempty"`
	AddSuffix    string `yaml:"add_tag_suffix"    json:"add_tag_suffix,omitempty"`
}

// Count returns how many rules are set.
func (r Rules) Count() int {
	n := 0
	for _, s := range []string{r.RemovePrefix, r.RemoveSuffix, r.AddPrefix, r.AddSuffix} {
		if s != "" {
			n++
		}
	}
	return n
}

// Rewriter applies Rules. It is immutable and safe for concurrent use.
type Rewriter struct {
	rules Rules
}

func New(r Rules) *Rewriter {
	return &Rewriter{rules: r}
}

func (w *Rewriter) Rules() Rules { return w.rules }

func (w *Rewriter) RuleCount() int {
	if w == nil {
		return 0
	}
	return w.rules.Count()
}

// Rewrite applies, in order: remove prefix (with one following dot),
// remove suffix (with one preceding dot), add prefix, add suffix. A tag
// emptied by the removals takes the added parts without a stray dot.
//
//	rules{RemovePrefix: "raw", AddSuffix: "flat"}: "raw.app.x" -> "app.x.flat"
func (w *Rewriter) Rewrite(tag string) string {
	r := w.rules
	if r.RemovePrefix != "" && strings.HasPrefix(tag, r.RemovePrefix) {
		tag = strings.TrimPrefix(tag[len(r.RemovePrefix):], ".")
	}
	if r.RemoveSuffix != "" && strings.HasSuffix(tag, r.RemoveSuffix) {
		tag = strings.TrimSuffix(tag[:len(tag)-len(r.RemoveSuffix)], ".")
	}
	if r.AddPrefix != "" {
		tag = join(r.AddPrefix, tag)
	}
	if r.AddSuffix != "" {
		tag = join(tag, r.AddSuffix)
	}
	return tag
}

// join dot-joins two tag parts, skipping the dot when either is empty.
func join(a, b string) string {
	if a == "" || b == "" {
		return a + b
	}
	return a + "." + b
}

// --- START OF FINAL REVISED FILE pkg/converter/frontmatter/frontmatter.go ---
// Package frontmatter reads the metadata block at the top of a Markdown note.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

// ErrInvalidFrontMatter indicates a front matter block that could not be decoded.
var ErrInvalidFrontMatter = errors.New("invalid front matter")

// formats are the delimiters recognized at the top of a note.
var formats = []*frontmatter.Format{
	frontmatter.NewFormat("---", "---", yaml.Unmarshal),
	frontmatter.NewFormat("+++", "+++", toml.Unmarshal),
}

// Meta is the part of a note's front matter the converter uses.
type Meta struct {
	Title   string
	Tags    []string
	Aliases []string
}

type rawMeta struct {
	Title   string      `yaml:"title" toml:"title"`
	Tags    interface{} `yaml:"tags" toml:"tags"`
	Tag     interface{} `yaml:"tag" toml:"tag"`
	Aliases interface{} `yaml:"aliases" toml:"aliases"`
}

// Read decodes the YAML ("---") or TOML ("+++") front matter of content.
// A note without front matter yields an empty Meta. Tags may be written as a
// list or as a comma or space separated string, with or without a leading "#".
func Read(content []byte) (Meta, error) {
	var raw rawMeta
	if _, err := frontmatter.Parse(bytes.NewReader(content), &raw, formats...); err != nil {
		return Meta{}, fmt.Errorf("%w: %w", ErrInvalidFrontMatter, err)
	}
	tags := append(stringList(raw.Tags, tagSeparators), stringList(raw.Tag, tagSeparators)...)
	for i, tag := range tags {
		tags[i] = strings.TrimLeft(tag, "#")
	}
	return Meta{
		Title:   strings.TrimSpace(raw.Title),
		Tags:    compact(tags),
		Aliases: compact(stringList(raw.Aliases, ",")),
	}, nil
}

const tagSeparators = ", \t"

// stringList flattens a scalar or list value into strings. Scalar strings are
// split on any of seps.
func stringList(v interface{}, seps string) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return strings.FieldsFunc(val, func(r rune) bool { return strings.ContainsRune(seps, r) })
	case []interface{}:
		var out []string
		for _, item := range val {
			out = append(out, stringList(item, seps)...)
		}
		return out
	case []string:
		return val
	default:
		return []string{fmt.Sprint(val)}
	}
}

// compact trims entries and drops empty ones and duplicates.
func compact(items []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

// --- END OF FINAL REVISED FILE pkg/converter/frontmatter/frontmatter.go ---

// Package filter narrows a resolved file list by exact names, a regular expression
// and 1-based positional ranges.
package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/glorpus-work/opendata/pkg/errutils"
	"github.com/glorpus-work/opendata/pkg/model"
)

// Filter is one of Name, Regexp or Range.
type Filter interface {
	isFilter()
	String() string
}

// Name keeps entries whose final path segment equals Value.
type Name struct {
	Value string
}

// Regexp keeps entries whose final path segment contains a match of Pattern.
type Regexp struct {
	Pattern *regexp.Regexp
}

// Range keeps the 1-based inclusive slice From..To.
type Range struct {
	From int
	To   int
}

func (Name) isFilter()   {}
func (Regexp) isFilter() {}
func (Range) isFilter()  {}

func (n Name) String() string   { return "name=" + n.Value }
func (r Regexp) String() string { return "regexp=" + r.Pattern.String() }
func (r Range) String() string  { return fmt.Sprintf("range=%d-%d", r.From, r.To) }

// Spec is the ordered set of filters given on the command line.
type Spec []Filter

// Empty reports whether no filter was requested.
func (s Spec) Empty() bool {
	return len(s) == 0
}

// Parse builds a Spec from raw flag values. Every value may itself hold a comma separated list.
func Parse(names []string, pattern string, ranges []string) (Spec, error) {
	var spec Spec
	for _, n := range splitValues(names) {
		spec = append(spec, Name{Value: n})
	}
	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regular expression %q: %w: %w", pattern, errutils.ErrValidation, err)
		}
		spec = append(spec, Regexp{Pattern: re})
	}
	for _, raw := range splitValues(ranges) {
		r, err := ParseRange(raw)
		if err != nil {
			return nil, err
		}
		spec = append(spec, r)
	}
	return spec, nil
}

func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// ParseRange parses "i-j". The upper bound is checked against the list in Select.
func ParseRange(raw string) (Range, error) {
	parts := strings.Split(raw, "-")
	if len(parts) != 2 {
		return Range{}, rangeError(raw, "range should have start and end index(i-j)")
	}
	from, errFrom := strconv.Atoi(strings.TrimSpace(parts[0]))
	to, errTo := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errFrom != nil || errTo != nil {
		return Range{}, rangeError(raw, "range should have start and end index(i-j)")
	}
	if from <= 0 {
		return Range{}, rangeError(raw, "range should start from a positive integer")
	}
	return Range{From: from, To: to}, nil
}

func rangeError(raw, msg string) error {
	return fmt.Errorf("%s: %q: %w", msg, raw, errutils.ErrInvalidRange)
}

// Validate checks the range against the length of the list it will slice.
func (r Range) Validate(count int) error {
	if r.From <= 0 {
		return rangeError(r.String(), "range should start from a positive integer")
	}
	if r.To > count {
		return rangeError(r.String(), "range is too big")
	}
	if r.To < r.From {
		return rangeError(r.String(), "range is not valid")
	}
	return nil
}

// Select applies the filters in the fixed order name, regexp, range. Each stage narrows
// the output of the previous stage that ran. Filters that select nothing yield ErrNoMatchingFiles.
func Select(files []model.FileEntry, spec Spec) ([]model.FileEntry, error) {
	if spec.Empty() {
		return files, nil
	}

	var (
		names   []Name
		pattern *Regexp
		ranges  []Range
	)
	for _, f := range spec {
		switch v := f.(type) {
		case Name:
			names = append(names, v)
		case Regexp:
			if pattern == nil {
				pattern = &v
			}
		case Range:
			ranges = append(ranges, v)
		}
	}

	current := files
	if len(names) > 0 {
		current = byName(current, names)
	}
	if pattern != nil {
		current = byRegexp(current, pattern.Pattern)
	}
	if len(ranges) > 0 {
		var err error
		if current, err = byRange(current, ranges); err != nil {
			return nil, err
		}
	}

	if len(current) == 0 {
		return nil, errutils.ErrNoMatchingFiles
	}
	return current, nil
}

// byName unions the matches of every requested name in request order.
func byName(files []model.FileEntry, names []Name) []model.FileEntry {
	out := []model.FileEntry{}
	for _, n := range names {
		for _, f := range files {
			if f.Name() == n.Value {
				out = append(out, f)
			}
		}
	}
	return out
}

func byRegexp(files []model.FileEntry, re *regexp.Regexp) []model.FileEntry {
	out := []model.FileEntry{}
	for _, f := range files {
		if re.MatchString(f.Name()) {
			out = append(out, f)
		}
	}
	return out
}

// byRange validates every range before slicing; overlapping ranges keep duplicates.
func byRange(files []model.FileEntry, ranges []Range) ([]model.FileEntry, error) {
	for _, r := range ranges {
		if err := r.Validate(len(files)); err != nil {
			return nil, err
		}
	}
	out := []model.FileEntry{}
	for _, r := range ranges {
		out = append(out, files[r.From-1:r.To]...)
	}
	return out, nil
}

package filter

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/dhcgn/quickchat/model"
)

// Options captures the filtering configuration.
type Options struct {
	IncludeRecipient []string
	IncludePayload   []string
	ExcludeRecipient []string
	ExcludePayload   []string
	// Statuses limits matches to the given statuses. Empty means any status.
	Statuses []string
}

// Filter holds compiled regex patterns for selecting records.
type Filter struct {
	includeMode      bool
	excludeMode      bool
	includeRecipient []*regexp.Regexp
	includePayload   []*regexp.Regexp
	excludeRecipient []*regexp.Regexp
	excludePayload   []*regexp.Regexp
	statuses         []model.Status
}

// New creates a new Filter from the provided options.
func New(opts Options) (*Filter, error) {
	includeRecipient, err := compilePatterns(opts.IncludeRecipient)
	if err != nil {
		return nil, fmt.Errorf("compile include-recipient pattern: %w", err)
	}
	includePayload, err := compilePatterns(opts.IncludePayload)
	if err != nil {
		return nil, fmt.Errorf("compile include-payload pattern: %w", err)
	}
	excludeRecipient, err := compilePatterns(opts.ExcludeRecipient)
	if err != nil {
		return nil, fmt.Errorf("compile exclude-recipient pattern: %w", err)
	}
	excludePayload, err := compilePatterns(opts.ExcludePayload)
	if err != nil {
		return nil, fmt.Errorf("compile exclude-payload pattern: %w", err)
	}

	includeActive := len(includeRecipient) > 0 || len(includePayload) > 0
	excludeActive := len(excludeRecipient) > 0 || len(excludePayload) > 0
	if includeActive && excludeActive {
		return nil, fmt.Errorf("include and exclude filters are mutually exclusive")
	}

	statuses, err := parseStatuses(opts.Statuses)
	if err != nil {
		return nil, err
	}

	return &Filter{
		includeMode:      includeActive,
		excludeMode:      excludeActive,
		includeRecipient: includeRecipient,
		includePayload:   includePayload,
		excludeRecipient: excludeRecipient,
		excludePayload:   excludePayload,
		statuses:         statuses,
	}, nil
}

// Allows returns true if the record passes the filter criteria.
func (f *Filter) Allows(rec model.Record) bool {
	if len(f.statuses) > 0 && !slices.Contains(f.statuses, rec.Status) {
		return false
	}

	if f.includeMode {
		return matchAny(f.includeRecipient, rec.Recipient) || matchAny(f.includePayload, rec.Payload)
	}

	if f.excludeMode {
		if matchAny(f.excludeRecipient, rec.Recipient) || matchAny(f.excludePayload, rec.Payload) {
			return false
		}
	}

	return true
}

// Apply returns the records that pass the filter, keeping their order.
func (f *Filter) Apply(records []model.Record) []model.Record {
	out := make([]model.Record, 0, len(records))
	for _, rec := range records {
		if f.Allows(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// parseStatuses accepts status names case-insensitively.
func parseStatuses(names []string) ([]model.Status, error) {
	var out []model.Status
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		matched := false
		for _, s := range []model.Status{model.StatusNew, model.StatusSent, model.StatusStored, model.StatusDisregarded} {
			if strings.EqualFold(name, string(s)) {
				out = append(out, s)
				matched = true
				break
			}
		}
		if !matched {
			return nil, fmt.Errorf("unknown status %q", name)
		}
	}
	return out, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func matchAny(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

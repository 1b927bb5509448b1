package main

import (
	"fmt"

	"github.com/gobwas/glob"
)

// TopicFilter excludes topics whose names match any of its patterns.
// A nil filter excludes nothing.
type TopicFilter struct {
	patterns []glob.Glob
}

func NewTopicFilter(patterns []string) (*TopicFilter, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	f := &TopicFilter{}
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("Invalid topic pattern %q: %v", p, err)
		}
		f.patterns = append(f.patterns, g)
	}

	return f, nil
}

func (f *TopicFilter) Excludes(topic string) bool {
	if f == nil {
		return false
	}

	for _, g := range f.patterns {
		if g.Match(topic) {
			return true
		}
	}

	return false
}

package domain

import "fmt"

type Topic string

// TopicAll is a filter-only wildcard; rooms are never created with it.
const TopicAll Topic = "All"

var topics = []Topic{"Tech", "Music", "Art", "Business", "Social", "Education", "Gaming"}

// Topics returns the fixed set of room topics, without the wildcard.
func Topics() []Topic {
	out := make([]Topic, len(topics))
	copy(out, topics)
	return out
}

// ParseTopic validates a room topic. The wildcard is rejected here; use
// ParseTopicFilter for listing queries.
func ParseTopic(s string) (Topic, error) {
	for _, t := range topics {
		if Topic(s) == t {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown topic %q", s)
}

// ParseTopicFilter accepts any room topic plus the wildcard. An empty
// string means no filter.
func ParseTopicFilter(s string) (Topic, error) {
	if s == "" || Topic(s) == TopicAll {
		return TopicAll, nil
	}
	return ParseTopic(s)
}

package mqtt311

import (
	"errors"
	"strings"
)

// Topic errors.
var (
	ErrInvalidTopicLevel  = errors.New("topic level contains wildcard characters")
	ErrInvalidTopicFilter = errors.New("invalid topic filter")
)

// LevelKind classifies a single level of a topic or topic filter.
type LevelKind int

// Topic level kinds.
const (
	// LevelNormal is a literal, non-empty level such as "sport".
	LevelNormal LevelKind = iota

	// LevelMetadata is a literal level beginning with '$', such as "$SYS".
	// Metadata levels are only valid in the first position and are never
	// matched by wildcards.
	LevelMetadata

	// LevelBlank is an empty level, as in "sport//tennis".
	LevelBlank

	// LevelSingleWildcard is the '+' filter level matching exactly one
	// arbitrary non-metadata level.
	LevelSingleWildcard

	// LevelMultiWildcard is the '#' filter level matching the remainder of
	// a topic. It is only valid in the last position.
	LevelMultiWildcard
)

// Level is one parsed level of a topic or topic filter.
type Level struct {
	Kind  LevelKind
	Value string
}

// ParseLevel parses a single topic level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "+":
		return Level{Kind: LevelSingleWildcard}, nil
	case "#":
		return Level{Kind: LevelMultiWildcard}, nil
	case "":
		return Level{Kind: LevelBlank}, nil
	}

	if strings.ContainsAny(s, "+#") {
		return Level{}, ErrInvalidTopicLevel
	}

	if s[0] == '$' {
		return Level{Kind: LevelMetadata, Value: s}, nil
	}

	return Level{Kind: LevelNormal, Value: s}, nil
}

// String returns the wire form of the level.
func (l Level) String() string {
	switch l.Kind {
	case LevelSingleWildcard:
		return "+"
	case LevelMultiWildcard:
		return "#"
	default:
		return l.Value
	}
}

// matchString reports whether a raw topic level satisfies this filter level.
func (l Level) matchString(s string) bool {
	switch l.Kind {
	case LevelNormal:
		return !isMetadataLevel(s) && s == l.Value
	case LevelMetadata:
		return isMetadataLevel(s) && s == l.Value
	case LevelBlank:
		return s == ""
	case LevelSingleWildcard, LevelMultiWildcard:
		return !isMetadataLevel(s)
	default:
		return false
	}
}

// matchLevel reports whether a parsed topic level satisfies this filter level.
func (l Level) matchLevel(other Level) bool {
	switch l.Kind {
	case LevelNormal:
		return other.Kind == LevelNormal && other.Value == l.Value
	case LevelMetadata:
		return other.Kind == LevelMetadata && other.Value == l.Value
	case LevelBlank:
		return other.Kind == LevelBlank
	case LevelSingleWildcard, LevelMultiWildcard:
		return other.Kind != LevelMetadata
	default:
		return false
	}
}

func isMetadataLevel(s string) bool {
	return strings.HasPrefix(s, "$")
}

// Topic is a parsed topic or topic filter: an ordered sequence of levels.
type Topic []Level

// ParseTopic parses a topic or topic filter and validates its structure:
// a multi level wildcard may only appear last, and a metadata level may only
// appear first.
func ParseTopic(s string) (Topic, error) {
	if s == "" {
		return nil, ErrInvalidTopicFilter
	}

	parts := strings.Split(s, "/")
	topic := make(Topic, 0, len(parts))

	for _, part := range parts {
		level, err := ParseLevel(part)
		if err != nil {
			return nil, err
		}
		topic = append(topic, level)
	}

	if !topic.Valid() {
		return nil, ErrInvalidTopicFilter
	}

	return topic, nil
}

// ParseTopicName parses a concrete topic name, as carried by a PUBLISH
// packet. Names never contain wildcards, but unlike filters they may carry
// '$'-prefixed levels at any position.
func ParseTopicName(s string) (Topic, error) {
	if s == "" || containsWildcard(s) {
		return nil, ErrInvalidTopicName
	}

	parts := strings.Split(s, "/")
	topic := make(Topic, 0, len(parts))

	for _, part := range parts {
		level, err := ParseLevel(part)
		if err != nil {
			return nil, err
		}
		topic = append(topic, level)
	}

	return topic, nil
}

// Valid reports whether the level sequence is structurally valid.
func (t Topic) Valid() bool {
	if len(t) == 0 {
		return false
	}

	for i, level := range t {
		switch level.Kind {
		case LevelMultiWildcard:
			if i != len(t)-1 {
				return false
			}
		case LevelMetadata:
			if i != 0 {
				return false
			}
		}
	}

	return true
}

// String returns the wire form of the topic.
func (t Topic) String() string {
	parts := make([]string, len(t))
	for i, level := range t {
		parts[i] = level.String()
	}
	return strings.Join(parts, "/")
}

// HasWildcards reports whether the topic contains any wildcard level.
func (t Topic) HasWildcards() bool {
	for _, level := range t {
		if level.Kind == LevelSingleWildcard || level.Kind == LevelMultiWildcard {
			return true
		}
	}
	return false
}

// Match reports whether a raw topic name matches this filter.
//
// A single level wildcard consumes exactly one non-metadata level, so
// "sport/+" matches "sport/" but not "sport". A multi level wildcard
// consumes the rest of the topic, including zero levels: "sport/#" matches
// "sport". Wildcards never match levels beginning with '$'.
func (t Topic) Match(topic string) bool {
	i := 0
	for s := range strings.SplitSeq(topic, "/") {
		if i >= len(t) {
			return false
		}

		level := t[i]
		if !level.matchString(s) {
			return false
		}
		if level.Kind == LevelMultiWildcard {
			return true
		}

		i++
	}

	return t.tailMatches(i)
}

// MatchTopic reports whether a parsed topic matches this filter. The other
// topic is expected to be a concrete topic name without wildcards.
func (t Topic) MatchTopic(topic Topic) bool {
	i := 0
	for _, other := range topic {
		if i >= len(t) {
			return false
		}

		level := t[i]
		if !level.matchLevel(other) {
			return false
		}
		if level.Kind == LevelMultiWildcard {
			return true
		}

		i++
	}

	return t.tailMatches(i)
}

// tailMatches handles the topic running out before the filter: the only
// permitted leftover is a single trailing multi level wildcard.
func (t Topic) tailMatches(i int) bool {
	if i >= len(t) {
		return true
	}
	return len(t)-i == 1 && t[i].Kind == LevelMultiWildcard
}

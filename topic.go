package mqttv3

import (
	"errors"
	"strings"
)

var (
	ErrInvalidTopicName   = errors.New("invalid topic name")
	ErrInvalidTopicFilter = errors.New("invalid topic filter")
	ErrEmptyTopic         = errors.New("topic cannot be empty")
)

const (
	topicSeparator      = "/"
	singleLevelWildcard = "+"
	multiLevelWildcard  = "#"
)

// ValidateTopicName validates a PUBLISH topic name. Topic names cannot
// contain wildcards and must be well-formed UTF-8 without control
// characters.
func ValidateTopicName(topic string) error {
	if topic == "" {
		return ErrEmptyTopic
	}

	if len(topic) > maxUint16 {
		return ErrInvalidTopicName
	}

	if err := validateString(topic); err != nil {
		return ErrInvalidTopicName
	}

	if strings.ContainsAny(topic, singleLevelWildcard+multiLevelWildcard) {
		return ErrInvalidTopicName
	}

	return nil
}

// ValidateTopicFilter validates a subscription topic filter. A "+" matches
// exactly one level and must occupy a whole level; a "#" matches all
// remaining levels and must be the final level of the filter.
func ValidateTopicFilter(filter string) error {
	if filter == "" {
		return ErrEmptyTopic
	}

	if len(filter) > maxUint16 {
		return ErrInvalidTopicFilter
	}

	if err := validateString(filter); err != nil {
		return ErrInvalidTopicFilter
	}

	levels := strings.Split(filter, topicSeparator)
	for i, level := range levels {
		switch {
		case level == multiLevelWildcard:
			if i != len(levels)-1 {
				return ErrInvalidTopicFilter
			}

		case strings.Contains(level, multiLevelWildcard):
			return ErrInvalidTopicFilter

		case level == singleLevelWildcard:
			// single-level wildcard occupies the whole level

		case strings.Contains(level, singleLevelWildcard):
			return ErrInvalidTopicFilter
		}
	}

	return nil
}

// TopicMatch reports whether a topic name matches a topic filter. Both
// inputs are assumed to be individually valid.
func TopicMatch(filter, topic string) bool {
	filterLevels := strings.Split(filter, topicSeparator)
	topicLevels := strings.Split(topic, topicSeparator)

	for i, level := range filterLevels {
		if level == multiLevelWildcard {
			return true
		}

		if i >= len(topicLevels) {
			return false
		}

		if level != singleLevelWildcard && level != topicLevels[i] {
			return false
		}
	}

	return len(filterLevels) == len(topicLevels)
}

package model

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML accepts a trust level either as its ordered numeric value or
// as its name ("full_auto"), so configuration documents can use whichever
// form reads better.
func (l *TrustLevel) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("trust level must be a scalar, got %v", node.Kind)
	}
	if value, err := strconv.Atoi(node.Value); err == nil {
		level := TrustLevel(value)
		if _, ok := trustLevelNames[level]; !ok {
			return fmt.Errorf("trust level %d out of range", value)
		}
		*l = level
		return nil
	}
	level, err := ParseTrustLevel(node.Value)
	if err != nil {
		return err
	}
	*l = level
	return nil
}

// MarshalYAML emits the level name.
func (l TrustLevel) MarshalYAML() (interface{}, error) {
	return l.String(), nil
}

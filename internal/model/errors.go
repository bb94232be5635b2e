package model

import "fmt"

// ConfigError reports a defect in the model declaration itself, such as a
// calculated attribute without a formula. Configuration defects are fatal: a
// model that fails construction must not be used.
type ConfigError struct {
	Block  BlockName
	Attr   string
	Reason string
}

func (e *ConfigError) Error() string {
	switch {
	case e.Block == "" && e.Attr == "":
		return fmt.Sprintf("model config: %s", e.Reason)
	case e.Attr == "":
		return fmt.Sprintf("model config: block %q: %s", e.Block, e.Reason)
	default:
		return fmt.Sprintf("model config: %s.%s: %s", e.Block, e.Attr, e.Reason)
	}
}

package layout

import (
	"encoding/json"
	"os"
)

// WriteDebugJSON dumps a layout as indented JSON for inspection and
// visualization tooling.
func WriteDebugJSON(l *Layout, path string) error {
	if l == nil {
		return nil
	}
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

package layers

import (
	"fmt"
	"strings"
)

// UnknownLayerError reports a layer name that is not part of the model.
// Callers recover from it by treating the module as unclassified.
type UnknownLayerError struct {
	Name  string
	Known []string
}

func (e *UnknownLayerError) Error() string {
	return fmt.Sprintf("unknown layer %q (configured: %s)", e.Name, strings.Join(e.Known, ", "))
}

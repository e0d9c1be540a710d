package instr

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes n and its subtree, one node per line, indented by depth and
// prefixed by the role the node plays in its parent.
func Dump(w io.Writer, n Debug) error {
	return dump(w, n, "", 0)
}

func dump(w io.Writer, n Debug, role string, depth int) error {
	prefix := strings.Repeat("  ", depth)
	if role != "" {
		prefix += role + ": "
	}
	if _, err := fmt.Fprintf(w, "%s%s\n", prefix, n.Name()); err != nil {
		return err
	}
	for _, l := range n.Links() {
		if err := dump(w, l.Node, l.Role, depth+1); err != nil {
			return err
		}
	}
	return nil
}

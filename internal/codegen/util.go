package codegen

import (
	"fmt"
	"strings"
)

// VecToList joins values with commas inside the given bracket pair.
// Supported opening brackets: "<", "{", "(" and "" for a bare list.
func VecToList[T any](vals []T, bracket string) string {
	var closing string
	switch bracket {
	case "<":
		closing = ">"
	case "{":
		closing = "}"
	case "(":
		closing = ")"
	case "":
		closing = ""
	default:
		panic(fmt.Sprintf("codegen: unsupported bracket %q", bracket))
	}
	var sb strings.Builder
	sb.WriteString(bracket)
	for i, v := range vals {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, "%v", v)
	}
	sb.WriteString(closing)
	return sb.String()
}

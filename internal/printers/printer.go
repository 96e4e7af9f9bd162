// Package printers holds the text sinks of the satarecon tools.
package printers

import (
	"fmt"
	"strings"
)

// writeHex appends data as rows of 16 space separated bytes, each row
// starting with indent.
func writeHex(sb *strings.Builder, indent string, data []byte) {
	for i := 0; i < len(data); i += 16 {
		end := min(i+16, len(data))
		sb.WriteString(indent)
		sb.WriteString(fmt.Sprintf("%06x: ", i))
		for _, b := range data[i:end] {
			sb.WriteString(fmt.Sprintf("%02x ", b))
		}
		sb.WriteString("\n")
	}
}

package response

import (
	"fmt"

	"github.com/loykin/apicall/internal/util"
)

// Format is the caller-declared format of a response body. It only decides the
// output file extension; the body itself is never inspected or converted.
type Format int

const (
	FormatJSON Format = iota
	FormatXML
	FormatPlain
	FormatBinary
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatXML:
		return "xml"
	case FormatPlain:
		return "plain"
	case FormatBinary:
		return "binary"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// Extension returns the file extension including the leading dot.
func (f Format) Extension() string {
	switch f {
	case FormatXML:
		return ".xml"
	case FormatPlain:
		return ".txt"
	case FormatBinary:
		return ".bin"
	default:
		return ".json"
	}
}

// ParseFormat accepts json, xml, plain/text/txt and binary/bin. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch util.TrimAndLower(s) {
	case "", "json":
		return FormatJSON, nil
	case "xml":
		return FormatXML, nil
	case "plain", "text", "txt":
		return FormatPlain, nil
	case "binary", "bin":
		return FormatBinary, nil
	default:
		return FormatJSON, fmt.Errorf("invalid response format: %s (valid: json, xml, plain, binary)", s)
	}
}

// OutputPath derives `<basePath>.<ext>` for the format.
func OutputPath(basePath string, f Format) string {
	return basePath + f.Extension()
}

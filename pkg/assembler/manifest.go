package assembler

import (
	"bufio"
	"bytes"
	"sort"
	"strings"

	"github.com/arthur-debert/rioship/pkg/errors"
)

const (
	ManifestPath    = "META-INF/MANIFEST.MF"
	manifestVersion = "1.0"
	maxLineBytes    = 72
	maxNameBytes    = 70
)

var reservedAttrs = []string{"Manifest-Version", "Created-By", "Main-Class"}

func isReserved(key string) bool {
	for _, r := range reservedAttrs {
		if strings.EqualFold(key, r) {
			return true
		}
	}
	return false
}

// Manifest holds the main attributes of a jar manifest.
type Manifest struct {
	MainClass string
	CreatedBy string
	// Extra attributes, written after the fixed ones in key order.
	Extra map[string]string
}

// Bytes renders the manifest in jar format: CRLF line endings, lines wrapped
// at 72 bytes with a leading space on continuations, blank line at the end.
func (m Manifest) Bytes() []byte {
	var buf bytes.Buffer
	writeAttr(&buf, "Manifest-Version", manifestVersion)
	if m.CreatedBy != "" {
		writeAttr(&buf, "Created-By", m.CreatedBy)
	}
	writeAttr(&buf, "Main-Class", m.MainClass)

	keys := make([]string, 0, len(m.Extra))
	for k := range m.Extra {
		if isReserved(k) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeAttr(&buf, k, m.Extra[k])
	}
	buf.WriteString("\r\n")
	return buf.Bytes()
}

// Validate rejects attributes that would not survive a round trip: names
// outside the jar header grammar, reserved names among the extras, and values
// containing line breaks or NUL, which would start a new attribute.
func (m Manifest) Validate() error {
	if err := checkValue("Main-Class", m.MainClass); err != nil {
		return err
	}
	if err := checkValue("Created-By", m.CreatedBy); err != nil {
		return err
	}
	for k, v := range m.Extra {
		if !validName(k) {
			return errors.Assembly("invalid manifest attribute name %q", k).WithDetail("attribute", k)
		}
		if isReserved(k) {
			return errors.Assembly("manifest attribute %q is set by the bundle itself", k).WithDetail("attribute", k)
		}
		if err := checkValue(k, v); err != nil {
			return err
		}
	}
	return nil
}

func checkValue(key, value string) error {
	if strings.ContainsAny(value, "\r\n\x00") {
		return errors.Assembly("manifest attribute %q contains a line break or NUL", key).WithDetail("attribute", key)
	}
	return nil
}

// validName follows the jar header grammar: alphanum followed by alphanum,
// '-' or '_', at most 70 bytes.
func validName(name string) bool {
	if name == "" || len(name) > maxNameBytes {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		alnum := c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
		if !alnum && (i == 0 || c != '-' && c != '_') {
			return false
		}
	}
	return true
}

func writeAttr(buf *bytes.Buffer, key, value string) {
	line := key + ": " + value
	limit := maxLineBytes
	for len(line) > limit {
		buf.WriteString(line[:limit])
		buf.WriteString("\r\n ")
		line = line[limit:]
		// continuation lines carry one byte of leading space
		limit = maxLineBytes - 1
	}
	buf.WriteString(line)
	buf.WriteString("\r\n")
}

// ParseManifest reads the main section of a jar manifest.
func ParseManifest(data []byte) Manifest {
	attrs := map[string]string{}
	var order []string
	var lastKey string

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			// end of main section
			break
		}
		if strings.HasPrefix(line, " ") && lastKey != "" {
			attrs[lastKey] += line[1:]
			continue
		}
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		attrs[key] = value
		order = append(order, key)
		lastKey = key
	}

	m := Manifest{
		MainClass: attrs["Main-Class"],
		CreatedBy: attrs["Created-By"],
		Extra:     map[string]string{},
	}
	for _, k := range order {
		if isReserved(k) {
			continue
		}
		m.Extra[k] = attrs[k]
	}
	return m
}

// isSourceMetadata reports entries that must not be carried over from a
// source archive: its manifest and any signature files, which would no
// longer match the merged bundle.
func isSourceMetadata(name string) bool {
	upper := strings.ToUpper(name)
	if upper == ManifestPath {
		return true
	}
	if !strings.HasPrefix(upper, "META-INF/") || strings.Count(upper, "/") != 1 {
		return false
	}
	for _, ext := range []string{".SF", ".RSA", ".DSA", ".EC"} {
		if strings.HasSuffix(upper, ext) {
			return true
		}
	}
	return false
}

package protocol

import (
	"fmt"
	"regexp"
	"strings"
)

// Directive is one device instruction carried by a <command> tag.
type Directive struct {
	DeviceID string `json:"device_id"`
	Value    string `json:"value"`
}

func (d Directive) String() string {
	return fmt.Sprintf("%s:%s", d.DeviceID, d.Value)
}

var directiveRe = regexp.MustCompile(`^([A-Za-z0-9_.-]+)\s*:\s*([A-Za-z0-9_.-]+)$`)

// ParseDirective parses a "target:value" payload. Anything else reports false.
func ParseDirective(payload string) (Directive, bool) {
	m := directiveRe.FindStringSubmatch(strings.TrimSpace(payload))
	if m == nil {
		return Directive{}, false
	}
	return Directive{DeviceID: m[1], Value: m[2]}, true
}

// Directives extracts and parses every command tag of a reply. Payloads that
// do not follow the grammar are returned in skipped, in document order.
func Directives(reply string) (found []Directive, skipped []string) {
	for _, payload := range ExtractCommands(reply) {
		d, ok := ParseDirective(payload)
		if !ok {
			skipped = append(skipped, payload)
			continue
		}
		found = append(found, d)
	}
	return found, skipped
}

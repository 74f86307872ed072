package runner

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// renderPayload flattens an MCP content array into plain text for a
// tool_result block. Text parts contribute their text; anything else (image,
// resource) passes through as raw JSON so no information is dropped.
// Payloads that are not content arrays are returned verbatim.
func renderPayload(payload json.RawMessage) string {
	parsed := gjson.ParseBytes(payload)
	if !parsed.IsArray() {
		return string(payload)
	}

	var parts []string
	parsed.ForEach(func(_, item gjson.Result) bool {
		if item.Get("type").String() == "text" {
			parts = append(parts, item.Get("text").String())
		} else {
			parts = append(parts, item.Raw)
		}
		return true
	})
	return strings.Join(parts, "\n")
}

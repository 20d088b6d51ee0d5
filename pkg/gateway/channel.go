package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	TypeOpenAI      = 1
	TypeAzureOpenAI = 3
	TypeAnthropic   = 14
	TypeGitHub      = 49
)

const (
	StatusAll            = 0
	StatusEnabled        = 1
	StatusManualDisabled = 2
	StatusAutoDisabled   = 3
)

// DefaultGroup is the only group written back on probe and update calls.
const DefaultGroup = "default"

var typeNames = map[int]string{
	TypeOpenAI:      "OpenAI",
	TypeAzureOpenAI: "Azure OpenAI",
	TypeAnthropic:   "Anthropic Claude",
	TypeGitHub:      "GitHub",
}

var statusNames = map[int]string{
	StatusAll:            "all",
	StatusEnabled:        "enabled",
	StatusManualDisabled: "manually disabled",
	StatusAutoDisabled:   "auto disabled",
}

func TypeName(t int) string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "unknown"
}

func StatusName(s int) string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown status"
}

// ValidStatus reports whether s is a usable status filter.
func ValidStatus(s int) bool {
	_, ok := statusNames[s]
	return ok
}

// Channel is one provider connection as returned by the gateway. Raw keeps the
// complete payload so fields this tool does not know about are sent back
// untouched.
type Channel struct {
	ID     int
	Name   string
	Type   int
	Status int
	Raw    json.RawMessage
}

// ParseChannel decodes a channel object. The id field is required.
func ParseChannel(raw []byte) (*Channel, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: channel is not valid json", ErrMalformed)
	}
	r := gjson.ParseBytes(raw)
	if !r.IsObject() {
		return nil, fmt.Errorf("%w: channel is not an object", ErrMalformed)
	}
	id := r.Get("id")
	if id.Type != gjson.Number {
		return nil, fmt.Errorf("%w: channel has no numeric id", ErrMalformed)
	}
	return &Channel{
		ID:     int(id.Int()),
		Name:   r.Get("name").String(),
		Type:   int(r.Get("type").Int()),
		Status: int(r.Get("status").Int()),
		Raw:    append(json.RawMessage(nil), raw...),
	}, nil
}

type field struct {
	path  string
	value any
}

func (c *Channel) patch(fields ...field) ([]byte, error) {
	out := append([]byte(nil), c.Raw...)
	if len(out) == 0 {
		out = []byte("{}")
	}
	for _, f := range fields {
		var err error
		out, err = sjson.SetBytes(out, f.path, f.value)
		if err != nil {
			return nil, fmt.Errorf("set %s: %w", f.path, err)
		}
	}
	return out, nil
}

// ProbePayload is the body sent to the provider model probe: the current
// channel with every model related field blanked.
func (c *Channel) ProbePayload() ([]byte, error) {
	return c.patch(
		field{"models", ""},
		field{"model_mapping", ""},
		field{"model_headers", ""},
		field{"groups", []string{DefaultGroup}},
		field{"is_edit", true},
	)
}

// UpdatePayload is the body of the channel update call.
func (c *Channel) UpdatePayload(models string) ([]byte, error) {
	return c.patch(
		field{"models", models},
		field{"groups", []string{DefaultGroup}},
		field{"is_edit", true},
	)
}

// JoinModels renders a catalog the way the gateway stores it: comma separated,
// provider order, no dedup.
func JoinModels(models []string) string {
	return strings.Join(models, ",")
}

const maskRune = '*'

// MaskName hides a channel name for display. The first and last characters are
// kept, names of one or two characters are masked completely.
func MaskName(name string, mask bool) string {
	if !mask || name == "" {
		return name
	}
	r := []rune(name)
	if len(r) <= 2 {
		return strings.Repeat(string(maskRune), len(r))
	}
	return string(r[0]) + strings.Repeat(string(maskRune), len(r)-2) + string(r[len(r)-1])
}

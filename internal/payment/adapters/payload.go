package adapters

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Text decodes a JSON string or number into its string form. Providers are not
// consistent about quoting ids and amounts.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*t = Text(n.String())
	return nil
}

func (t Text) String() string { return string(t) }

// Int parses the text as an integer amount. Fractional or empty values yield 0.
func (t Text) Int() int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(string(t)), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// First returns the first non-empty value.
func First(values ...Text) string {
	for _, v := range values {
		if s := strings.TrimSpace(string(v)); s != "" {
			return s
		}
	}
	return ""
}

// CustomData is the correlation object echoed back from checkout.
type CustomData struct {
	UserID    Text `json:"user_id"`
	UserIDAlt Text `json:"userId"`
	ProductID Text `json:"product_id"`
}

func (c *CustomData) AccountID() string {
	if c == nil {
		return ""
	}
	return First(c.UserID, c.UserIDAlt)
}

package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is a server-side identifier. The API is not consistent about sending
// ids as numbers or strings, so both are accepted and kept as a string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = ID(n.String())

	return nil
}

func (id ID) String() string {
	return string(id)
}

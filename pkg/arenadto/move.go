package arenadto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Move is a move in UCI or SAN form. On the wire it may also be an object
// {"from":"e7","to":"e8","promotion":"q"}, which is folded into UCI.
type Move string

type moveObject struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

func (m *Move) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*m = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*m = Move(strings.TrimSpace(s))
		return nil
	}
	var obj moveObject
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("move: %w", err)
	}
	if obj.From == "" || obj.To == "" {
		return fmt.Errorf("move: from and to are required")
	}
	*m = Move(strings.ToLower(obj.From + obj.To + obj.Promotion))
	return nil
}

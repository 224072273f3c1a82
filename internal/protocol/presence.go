package protocol

import (
	"encoding/json"
	"fmt"
)

// MemberData is the presence metadata of a participant.
type MemberData struct {
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
}

func EncodeMember(d MemberData) ([]byte, error) {
	bytes, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal member data: %w", err)
	}
	return bytes, nil
}

func DecodeMember(data []byte) (MemberData, error) {
	var d MemberData
	if len(data) == 0 {
		return d, nil
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("unmarshal member data: %w", err)
	}
	return d, nil
}

package websocket

import (
	"encoding/json"
	"errors"
)

// memberRef is a user reference that arrives either as a bare id or as a
// populated user object.
type memberRef string

func (m *memberRef) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*m = memberRef(id)
		return nil
	}

	var user struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &user); err != nil {
		return errors.New("user reference must be an id or an object with _id")
	}
	*m = memberRef(user.ID)
	return nil
}

type relayedMessage struct {
	Sender memberRef `json:"sender"`
	Chat   *struct {
		Users []memberRef `json:"users"`
	} `json:"chat"`
}

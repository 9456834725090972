package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// CurrentSchemaVersion is the envelope version written by EncodeUser.
const CurrentSchemaVersion = 1

const legacySchemaVersion = 0

var (
	errEmptyUserBlob   = errors.New("empty user blob")
	errUserMissingID   = errors.New("user record missing id")
	errUserBlobNotJSON = errors.New("user blob is not a JSON object")
)

type userEnvelope struct {
	Version int   `json:"v"`
	User    *User `json:"user"`
}

// EncodeUser serializes u into the current versioned envelope.
func EncodeUser(u *User) (string, error) {
	if !u.Valid() {
		return "", errUserMissingID
	}
	data, err := json.Marshal(userEnvelope{Version: CurrentSchemaVersion, User: u})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeUser parses a stored user blob and reports the schema version it was
// written with. Bare user objects without an envelope are accepted as the
// legacy version so they can be migrated on read.
func DecodeUser(raw string) (*User, int, error) {
	data := bytes.TrimSpace([]byte(raw))
	if len(data) == 0 {
		return nil, 0, errEmptyUserBlob
	}
	if data[0] != '{' {
		return nil, 0, errUserBlobNotJSON
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, 0, err
	}

	if _, enveloped := fields["v"]; !enveloped {
		u := &User{}
		if err := json.Unmarshal(data, u); err != nil {
			return nil, 0, err
		}
		if !u.Valid() {
			return nil, 0, errUserMissingID
		}
		return u, legacySchemaVersion, nil
	}

	var env userEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, 0, err
	}
	if env.Version != CurrentSchemaVersion {
		return nil, env.Version, fmt.Errorf("unsupported user schema version %d", env.Version)
	}
	if !env.User.Valid() {
		return nil, env.Version, errUserMissingID
	}
	return env.User, env.Version, nil
}

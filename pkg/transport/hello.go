package transport

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/sobelfarm/sobelfarm/pkg/network"
)

// Hello is what a worker tells about itself when it connects.
type Hello struct {
	Id   network.Uid `json:"id"`
	Tag  string      `json:"tag,omitempty"`
	Role string      `json:"role"`
}

// Roles tell which endpoint a connection is meant for.
const (
	RoleTasks   = "tasks"
	RoleResults = "results"
)

func toBase64Json(data any) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func fromBase64Json(data string, obj any) error {
	b, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, obj)
}

var ErrRole = errors.New("wrong endpoint for the role")

// check fails unless the hello is for the endpoint of the role.
func (hi Hello) check(role string) error {
	if hi.Role != role {
		return fmt.Errorf("%w: %q at the %v endpoint", ErrRole, hi.Role, role)
	}
	return nil
}

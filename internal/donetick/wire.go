package donetick

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// The upstream API grew three field-casing families: create requests take
// PascalCase, update requests take camelCase, and every read response comes
// back camelCase. The Chore type in models.go is the read/uniform shape; the
// payload structs below pin the two request encodings so callers only ever
// see one representation.

type choreCreatePayload struct {
	Name                 string           `json:"Name"`
	Description          string           `json:"Description,omitempty"`
	DueDate              string           `json:"DueDate,omitempty"`
	CreatedBy            int64            `json:"CreatedBy,omitempty"`
	FrequencyType        string           `json:"FrequencyType"`
	Frequency            int              `json:"Frequency"`
	FrequencyMetadata    map[string]any   `json:"FrequencyMetadata,omitempty"`
	IsRolling            bool             `json:"IsRolling"`
	AssignedTo           int64            `json:"AssignedTo,omitempty"`
	Assignees            []Assignee       `json:"Assignees,omitempty"`
	AssignStrategy       string           `json:"AssignStrategy"`
	Notification         bool             `json:"Notification"`
	NotificationMetadata NotificationMeta `json:"NotificationMetadata"`
	Priority             int              `json:"Priority,omitempty"`
	Labels               []string         `json:"Labels,omitempty"`
	LabelsV2             []Label          `json:"LabelsV2,omitempty"`
	IsActive             bool             `json:"IsActive"`
	IsPrivate            bool             `json:"IsPrivate"`
	Points               int              `json:"Points,omitempty"`
	SubTasks             []map[string]any `json:"SubTasks,omitempty"`
	ThingChore           map[string]any   `json:"ThingChore,omitempty"`
}

func encodeCreate(c *ChoreCreate) ([]byte, error) {
	p := choreCreatePayload{
		Name:              c.Name,
		Description:       c.Description,
		DueDate:           c.DueDate,
		CreatedBy:         c.CreatedBy,
		FrequencyType:     c.FrequencyType,
		Frequency:         c.Frequency,
		FrequencyMetadata: c.FrequencyMetadata,
		IsRolling:         c.IsRolling,
		AssignedTo:        c.AssignedTo,
		Assignees:         c.Assignees,
		AssignStrategy:    c.AssignStrategy,
		Notification:      c.Notification,
		Priority:          c.Priority,
		Labels:            c.Labels,
		LabelsV2:          c.LabelsV2,
		IsActive:          true,
		IsPrivate:         c.IsPrivate,
		Points:            c.Points,
		SubTasks:          c.SubTasks,
		ThingChore:        c.ThingChore,
	}
	if c.NotificationMetadata != nil {
		p.NotificationMetadata = *c.NotificationMetadata
	}
	if c.IsActive != nil {
		p.IsActive = *c.IsActive
	}
	return json.Marshal(p)
}

type choreUpdatePayload struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	NextDueDate *string `json:"nextDueDate,omitempty"`
}

func encodeUpdate(u *ChoreUpdate) ([]byte, error) {
	return json.Marshal(choreUpdatePayload{
		Name:        u.Name,
		Description: u.Description,
		NextDueDate: u.NextDueDate,
	})
}

// unwrapEnvelope strips the {"res": ...} envelope some upstream endpoints
// wrap their payload in. Bare payloads pass through unchanged.
func unwrapEnvelope(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var envelope struct {
		Res json.RawMessage `json:"res"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err == nil && len(envelope.Res) > 0 {
		return envelope.Res
	}
	return trimmed
}

func decodeChore(body []byte) (*Chore, error) {
	payload := unwrapEnvelope(body)
	var chore Chore
	if err := json.Unmarshal(payload, &chore); err != nil {
		return nil, &ProtocolError{Err: err}
	}
	if chore.ID == 0 {
		return nil, &ProtocolError{Err: fmt.Errorf("chore response missing id")}
	}
	return &chore, nil
}

func decodeChores(body []byte) ([]Chore, error) {
	payload := unwrapEnvelope(body)
	var chores []Chore
	if err := json.Unmarshal(payload, &chores); err != nil {
		return nil, &ProtocolError{Err: err}
	}
	return chores, nil
}

func decodeMembers(body []byte) ([]CircleMember, error) {
	payload := unwrapEnvelope(body)
	var members []CircleMember
	if err := json.Unmarshal(payload, &members); err != nil {
		return nil, &ProtocolError{Err: err}
	}
	return members, nil
}

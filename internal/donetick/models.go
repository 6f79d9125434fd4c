package donetick

import (
	"fmt"
	"strings"
	"time"
)

// Frequency types accepted by the upstream scheduler.
const (
	FrequencyOnce     = "once"
	FrequencyDaily    = "daily"
	FrequencyWeekly   = "weekly"
	FrequencyMonthly  = "monthly"
	FrequencyYearly   = "yearly"
	FrequencyInterval = "interval_based"
)

// Assignment strategies accepted by the upstream rotation logic.
const (
	StrategyLeastCompleted = "least_completed"
	StrategyRoundRobin     = "round_robin"
	StrategyRandom         = "random"
)

var frequencyTypes = []string{
	FrequencyOnce, FrequencyDaily, FrequencyWeekly,
	FrequencyMonthly, FrequencyYearly, FrequencyInterval,
}

var assignStrategies = []string{
	StrategyLeastCompleted, StrategyRoundRobin, StrategyRandom,
}

const (
	maxNameLength        = 200
	maxDescriptionLength = 5000
)

// Assignee is one member a chore can rotate to.
type Assignee struct {
	UserID int64 `json:"userId"`
}

// Label is a v2 label object.
type Label struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// NotificationMeta configures reminder behavior for a chore.
type NotificationMeta struct {
	Nagging bool `json:"nagging"`
	Predue  bool `json:"predue"`
}

// Chore is the uniform in-core representation of the upstream resource.
// Upstream read responses already use this field casing; create and update
// requests do not (see wire.go).
type Chore struct {
	ID                   int64            `json:"id"`
	Name                 string           `json:"name"`
	Description          string           `json:"description,omitempty"`
	FrequencyType        string           `json:"frequencyType"`
	Frequency            int              `json:"frequency"`
	FrequencyMetadata    map[string]any   `json:"frequencyMetadata,omitempty"`
	NextDueDate          string           `json:"nextDueDate,omitempty"`
	IsRolling            bool             `json:"isRolling"`
	AssignedTo           int64            `json:"assignedTo"`
	Assignees            []Assignee       `json:"assignees,omitempty"`
	AssignStrategy       string           `json:"assignStrategy,omitempty"`
	IsActive             bool             `json:"isActive"`
	Notification         bool             `json:"notification"`
	NotificationMetadata NotificationMeta `json:"notificationMetadata"`
	Labels               []string         `json:"labels,omitempty"`
	LabelsV2             []Label          `json:"labelsV2,omitempty"`
	CircleID             int64            `json:"circleId"`
	CreatedAt            string           `json:"createdAt,omitempty"`
	UpdatedAt            string           `json:"updatedAt,omitempty"`
	CreatedBy            int64            `json:"createdBy,omitempty"`
	UpdatedBy            int64            `json:"updatedBy,omitempty"`
	Status               string           `json:"status,omitempty"`
	Priority             int              `json:"priority,omitempty"`
	IsPrivate            bool             `json:"isPrivate"`
	Points               int              `json:"points,omitempty"`
	SubTasks             []map[string]any `json:"subTasks,omitempty"`
	ThingChore           map[string]any   `json:"thingChore,omitempty"`
}

// CircleMember is one user in the circle the credential belongs to.
type CircleMember struct {
	UserID    int64  `json:"userId"`
	UserName  string `json:"userName"`
	UserEmail string `json:"userEmail"`
	Role      string `json:"role"`
}

// ChoreCreate is the caller-facing spec for creating a chore. Zero values
// mean "unset"; Validate fills documented defaults before serialization.
type ChoreCreate struct {
	Name        string
	Description string
	DueDate     string // RFC 3339 or YYYY-MM-DD
	CreatedBy   int64

	FrequencyType     string // default "once"
	Frequency         int    // default 1
	FrequencyMetadata map[string]any
	IsRolling         bool

	AssignedTo     int64
	Assignees      []Assignee
	AssignStrategy string // default "least_completed"

	Notification         bool
	NotificationMetadata *NotificationMeta

	Priority int // 1..5, 0 = unset
	Labels   []string
	LabelsV2 []Label

	IsActive  *bool // default true
	IsPrivate bool

	Points int // 0 = unset

	SubTasks   []map[string]any
	ThingChore map[string]any
}

// Validate normalizes and checks the spec in place. It must pass before any
// rate-limiter token is consumed or any byte hits the wire.
func (c *ChoreCreate) Validate() error {
	c.Name = stripControl(c.Name)
	if c.Name == "" {
		return &ValidationError{Field: "name", Message: "must not be empty"}
	}
	if len(c.Name) > maxNameLength {
		return &ValidationError{Field: "name", Message: fmt.Sprintf("exceeds %d characters", maxNameLength)}
	}

	c.Description = stripControl(c.Description)
	if len(c.Description) > maxDescriptionLength {
		return &ValidationError{Field: "description", Message: fmt.Sprintf("exceeds %d characters", maxDescriptionLength)}
	}

	if c.DueDate != "" {
		if err := validateDate(c.DueDate); err != nil {
			return err
		}
	}

	if c.FrequencyType == "" {
		c.FrequencyType = FrequencyOnce
	}
	c.FrequencyType = strings.ToLower(c.FrequencyType)
	if !contains(frequencyTypes, c.FrequencyType) {
		return &ValidationError{
			Field:   "frequency_type",
			Message: "must be one of: " + strings.Join(frequencyTypes, ", "),
		}
	}

	if c.Frequency == 0 {
		c.Frequency = 1
	}
	if c.Frequency < 1 {
		return &ValidationError{Field: "frequency", Message: "must be at least 1"}
	}

	if c.AssignStrategy == "" {
		c.AssignStrategy = StrategyLeastCompleted
	}
	c.AssignStrategy = strings.ToLower(c.AssignStrategy)
	if !contains(assignStrategies, c.AssignStrategy) {
		return &ValidationError{
			Field:   "assign_strategy",
			Message: "must be one of: " + strings.Join(assignStrategies, ", "),
		}
	}

	if c.Priority != 0 && (c.Priority < 1 || c.Priority > 5) {
		return &ValidationError{Field: "priority", Message: "must be between 1 and 5"}
	}
	if c.Points < 0 {
		return &ValidationError{Field: "points", Message: "must not be negative"}
	}

	return nil
}

// ChoreUpdate is the caller-facing spec for updating a chore. Nil fields are
// left untouched upstream.
type ChoreUpdate struct {
	Name        *string
	Description *string
	NextDueDate *string
}

// Validate normalizes and checks the update spec in place.
func (u *ChoreUpdate) Validate() error {
	if u.Name == nil && u.Description == nil && u.NextDueDate == nil {
		return &ValidationError{Field: "update", Message: "at least one field must be set"}
	}
	if u.Name != nil {
		name := stripControl(*u.Name)
		if name == "" {
			return &ValidationError{Field: "name", Message: "must not be empty"}
		}
		if len(name) > maxNameLength {
			return &ValidationError{Field: "name", Message: fmt.Sprintf("exceeds %d characters", maxNameLength)}
		}
		u.Name = &name
	}
	if u.Description != nil {
		desc := stripControl(*u.Description)
		if len(desc) > maxDescriptionLength {
			return &ValidationError{Field: "description", Message: fmt.Sprintf("exceeds %d characters", maxDescriptionLength)}
		}
		u.Description = &desc
	}
	if u.NextDueDate != nil && *u.NextDueDate != "" {
		if err := validateDate(*u.NextDueDate); err != nil {
			return err
		}
	}
	return nil
}

// validateDate accepts RFC 3339 timestamps or plain YYYY-MM-DD dates, the two
// formats the upstream scheduler understands.
func validateDate(s string) error {
	if _, err := time.Parse(time.RFC3339, s); err == nil {
		return nil
	}
	if _, err := time.Parse("2006-01-02", s); err == nil {
		return nil
	}
	return &ValidationError{
		Field:   "due_date",
		Message: "must be RFC 3339 (2025-11-10T09:00:00Z) or YYYY-MM-DD (2025-11-10)",
	}
}

// stripControl drops control characters except newline, carriage return and
// tab, then trims surrounding whitespace.
func stripControl(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 32 || r == '\n' || r == '\r' || r == '\t' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

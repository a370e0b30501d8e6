package workflow

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ClientNamePlaceholder is the substitution placeholder templates may use
// to reference the client's display name.
const ClientNamePlaceholder = "{{client_name}}"

// fallbackClientName is substituted when a client record is missing its
// display name. Task creation never blocks on cosmetic data.
const fallbackClientName = "client"

// Instantiator binds task templates to concrete clients, producing
// persistable task records. It does not persist anything itself; callers
// persist the returned batch.
type Instantiator struct {
	newID func() string
	now   func() time.Time
}

// NewInstantiator creates an Instantiator with UUID identity and wall
// clock time.
func NewInstantiator() *Instantiator {
	return &Instantiator{
		newID: func() string { return uuid.New().String() },
		now:   time.Now,
	}
}

// Instantiate produces a pending task from a template for the given
// client, stamped with the given provenance. Template fields are copied
// verbatim; the {{client_name}} placeholder in title and description is
// resolved against the client's display name.
func (i *Instantiator) Instantiate(client *Client, tmpl TaskTemplate, provenance Provenance) *Task {
	name := client.DisplayName
	if name == "" {
		name = fallbackClientName
	}

	now := i.now()
	return &Task{
		ID:                       i.newID(),
		ClientID:                 client.ID,
		Title:                    strings.ReplaceAll(tmpl.TitlePattern, ClientNamePlaceholder, name),
		Description:              strings.ReplaceAll(tmpl.DescriptionPattern, ClientNamePlaceholder, name),
		Category:                 tmpl.Category,
		Priority:                 tmpl.Priority,
		Status:                   TaskStatusPending,
		Progress:                 0,
		EstimatedDurationMinutes: tmpl.EstimatedDurationMinutes,
		CompletionTriggers:       append([]string(nil), tmpl.CompletionTriggers...),
		Provenance:               provenance,
		AutoGenerated:            true,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
}

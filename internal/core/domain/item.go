package domain

import (
	"slices"
	"time"
)

// Modality is the content-kind category of an Item.
type Modality string

// Known modalities.
const (
	ModalityMessage     Modality = "message"
	ModalityDocument    Modality = "document"
	ModalityEmail       Modality = "email"
	ModalityFeed        Modality = "feed"
	ModalityIssue       Modality = "issue"
	ModalityNote        Modality = "note"
	ModalityObservation Modality = "observation"
)

// AllModalities returns every known modality.
func AllModalities() []Modality {
	return []Modality{
		ModalityMessage,
		ModalityDocument,
		ModalityEmail,
		ModalityFeed,
		ModalityIssue,
		ModalityNote,
		ModalityObservation,
	}
}

// IsValid returns true if the modality is recognised.
func (m Modality) IsValid() bool {
	return slices.Contains(AllModalities(), m)
}

// String returns the string representation.
func (m Modality) String() string {
	return string(m)
}

// IndexingStatus tracks where an Item is in the ingestion pipeline.
type IndexingStatus string

// Indexing states. Only STORED items have retrievable chunks.
const (
	StatusRaw    IndexingStatus = "RAW"
	StatusQueued IndexingStatus = "QUEUED"
	StatusStored IndexingStatus = "STORED"
	StatusFailed IndexingStatus = "FAILED"
)

// IsValid returns true if the status is recognised.
func (s IndexingStatus) IsValid() bool {
	switch s {
	case StatusRaw, StatusQueued, StatusStored, StatusFailed:
		return true
	default:
		return false
	}
}

// Item is an indexed unit of content.
type Item struct {
	// ID is the unique identifier for the item.
	ID string

	// Modality is the content kind.
	Modality Modality

	// Title is the human-readable title. May be empty.
	Title string

	// Size is the byte size of the original content.
	Size int64

	// Tags are free-text labels.
	Tags []string

	// Sensitivity gates visibility independently of project membership.
	Sensitivity SensitivityLevel

	// ProjectID is empty when the item has not been classified yet.
	ProjectID string

	// CreatorID is the user that created the item. May be empty.
	CreatorID string

	// People are the person IDs attached to the item. Attachment grants
	// visibility regardless of project and sensitivity.
	People []string

	// IndexingStatus is maintained by the ingestion pipeline.
	IndexingStatus IndexingStatus

	// Popularity is a caller-supplied engagement metric. 1 is neutral.
	Popularity float64

	// CreatedAt is when the content was created.
	CreatedAt time.Time
}

// ResourceSensitivity implements Resource.
func (i *Item) ResourceSensitivity() SensitivityLevel { return i.Sensitivity }

// ResourceProject implements Resource.
func (i *Item) ResourceProject() string { return i.ProjectID }

// ResourceCreator implements Resource.
func (i *Item) ResourceCreator() string { return i.CreatorID }

// AttachedPeople implements Resource.
func (i *Item) AttachedPeople() []string { return i.People }

// Chunk is the smallest retrievable unit of text, derived from exactly one Item.
// It carries a copy of the parent metadata needed to rank and filter without
// a join back to the Item.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// ItemID links to the parent Item.
	ItemID string

	// Content is the searchable text.
	Content string

	// Position is the ordinal position within the item.
	Position int

	// Parent metadata, denormalised at ingestion time.
	Modality       Modality
	Title          string
	Tags           []string
	Size           int64
	Sensitivity    SensitivityLevel
	ProjectID      string
	CreatorID      string
	People         []string
	Popularity     float64
	IndexingStatus IndexingStatus
	CreatedAt      time.Time
}

// ChunkFromItem builds a chunk that carries the item's metadata.
func ChunkFromItem(item *Item, id, content string, position int) Chunk {
	return Chunk{
		ID:             id,
		ItemID:         item.ID,
		Content:        content,
		Position:       position,
		Modality:       item.Modality,
		Title:          item.Title,
		Tags:           slices.Clone(item.Tags),
		Size:           item.Size,
		Sensitivity:    item.Sensitivity,
		ProjectID:      item.ProjectID,
		CreatorID:      item.CreatorID,
		People:         slices.Clone(item.People),
		Popularity:     item.Popularity,
		IndexingStatus: item.IndexingStatus,
		CreatedAt:      item.CreatedAt,
	}
}

// ResourceSensitivity implements Resource.
func (c *Chunk) ResourceSensitivity() SensitivityLevel { return c.Sensitivity }

// ResourceProject implements Resource.
func (c *Chunk) ResourceProject() string { return c.ProjectID }

// ResourceCreator implements Resource.
func (c *Chunk) ResourceCreator() string { return c.CreatorID }

// AttachedPeople implements Resource.
func (c *Chunk) AttachedPeople() []string { return c.People }

// Person is a thin identity record, distinct from an authentication account.
type Person struct {
	ID   string
	Name string
}

// User is an authenticated account. It may be linked to a Person.
type User struct {
	// ID is the account identifier.
	ID string

	// PersonID links the account to a Person. Empty if unlinked.
	PersonID string

	// Scopes are the granted permission scopes.
	Scopes []string
}

// SubjectID implements Subject.
func (u *User) SubjectID() string { return u.ID }

// HasScope implements Subject.
func (u *User) HasScope(scope string) bool { return slices.Contains(u.Scopes, scope) }

// LinkedPersonID implements Subject.
func (u *User) LinkedPersonID() string { return u.PersonID }

// ProjectState is the lifecycle state of a project.
type ProjectState string

// Project states.
const (
	ProjectActive   ProjectState = "active"
	ProjectArchived ProjectState = "archived"
)

// Project groups items. Projects may be nested.
type Project struct {
	ID       string
	ParentID string
	Name     string
	State    ProjectState
}

// Team is a group of people that can be assigned to projects.
type Team struct {
	ID   string
	Name string
}

// TeamRole is a person's role within a team.
type TeamRole string

// Team roles.
const (
	TeamRoleMember TeamRole = "member"
	TeamRoleLead   TeamRole = "lead"
	TeamRoleAdmin  TeamRole = "admin"
)

// TeamMembership places a person in a team with a role.
type TeamMembership struct {
	TeamID   string
	PersonID string
	Role     TeamRole
}

// ProjectAssignment assigns a team to a project.
type ProjectAssignment struct {
	ProjectID string
	TeamID    string
}

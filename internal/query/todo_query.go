// Package query translates a (scope, filter, sort) triple into the
// constraint set applied to the todo collection. Composition is purely
// conjunctive: one scope constraint always, one constraint per present
// filter field, and a mandatory trailing order clause.
package query

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mlindgren/collab-todo-api/internal/models"
	"gorm.io/gorm"
)

type SortField string

const (
	SortByTitle     SortField = "title"
	SortByCreatedAt SortField = "createdAt"
	SortByUpdatedAt SortField = "updatedAt"
	SortByDueDate   SortField = "dueDate"
	SortByPriority  SortField = "priority"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

var sortColumns = map[SortField]string{
	SortByTitle:     "todos.title",
	SortByCreatedAt: "todos.created_at",
	SortByUpdatedAt: "todos.updated_at",
	SortByDueDate:   "todos.due_date",
	SortByPriority:  "todos.priority",
}

// ValidSortField reports whether f names a sortable field.
func ValidSortField(f SortField) bool {
	_, ok := sortColumns[f]
	return ok
}

// Scope selects exactly one constraint: all todos of a project, or the
// user's personal todos (no project).
type Scope struct {
	ProjectID string
	UserID    string
}

// ProjectScope scopes the query to a single project.
func ProjectScope(projectID string) Scope {
	return Scope{ProjectID: projectID}
}

// PersonalScope scopes the query to the user's todos with no project.
func PersonalScope(userID string) Scope {
	return Scope{UserID: userID}
}

// Filter holds optional conjunctive constraints. Zero values mean the
// constraint is absent. Tags matches todos whose tag set intersects the
// given set.
type Filter struct {
	Completed  *bool
	Category   string
	AssignedTo string
	Priority   models.Priority
	Tags       []string
}

type Sort struct {
	Field     SortField
	Direction Direction
}

// DefaultSort is applied when the consumer specifies nothing.
func DefaultSort() Sort {
	return Sort{Field: SortByCreatedAt, Direction: Desc}
}

// TodoQuery is a fully specified query against the todo collection. It
// does not execute anything itself; Apply hands the constraint set to
// whichever store call runs it.
type TodoQuery struct {
	Scope  Scope
	Filter Filter
	Sort   Sort
}

// Apply adds the scope constraint, each present filter constraint, and
// the order clause to db.
func (q TodoQuery) Apply(db *gorm.DB) *gorm.DB {
	if q.Scope.ProjectID != "" {
		db = db.Where("todos.project_id = ?", q.Scope.ProjectID)
	} else {
		db = db.Where("todos.user_id = ? AND todos.project_id IS NULL", q.Scope.UserID)
	}

	if q.Filter.Completed != nil {
		db = db.Where("todos.completed = ?", *q.Filter.Completed)
	}
	if q.Filter.Category != "" {
		db = db.Where("todos.category = ?", q.Filter.Category)
	}
	if q.Filter.AssignedTo != "" {
		db = db.Where("todos.assigned_to = ?", q.Filter.AssignedTo)
	}
	if q.Filter.Priority != "" {
		db = db.Where("todos.priority = ?", q.Filter.Priority)
	}
	if len(q.Filter.Tags) > 0 {
		// Tags are stored as a JSON array; intersection is one grouped
		// constraint, still combined conjunctively with the rest.
		group := db.Where("todos.tags LIKE ? ESCAPE '^'", tagPattern(q.Filter.Tags[0]))
		for _, tag := range q.Filter.Tags[1:] {
			group = group.Or("todos.tags LIKE ? ESCAPE '^'", tagPattern(tag))
		}
		db = db.Where(group)
	}

	return db.Order(q.orderClause())
}

func (q TodoQuery) orderClause() string {
	s := q.Sort
	if !ValidSortField(s.Field) {
		s = DefaultSort()
	}
	dir := "ASC"
	if s.Direction == Desc {
		dir = "DESC"
	}

	if s.Field == SortByPriority {
		// Rank semantically rather than lexically; unset priority last.
		return fmt.Sprintf(
			"CASE todos.priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 ELSE 4 END %s", dir)
	}
	if s.Field == SortByDueDate {
		return fmt.Sprintf("CASE WHEN todos.due_date IS NULL THEN 1 ELSE 0 END, todos.due_date %s", dir)
	}
	return fmt.Sprintf("%s %s", sortColumns[s.Field], dir)
}

// Key returns the canonical identity of this query. Two queries with the
// same key share one live subscription.
func (q TodoQuery) Key() string {
	var b strings.Builder

	if q.Scope.ProjectID != "" {
		fmt.Fprintf(&b, "project=%s", q.Scope.ProjectID)
	} else {
		fmt.Fprintf(&b, "personal=%s", q.Scope.UserID)
	}
	if q.Filter.Completed != nil {
		fmt.Fprintf(&b, "|completed=%t", *q.Filter.Completed)
	}
	if q.Filter.Category != "" {
		fmt.Fprintf(&b, "|category=%s", q.Filter.Category)
	}
	if q.Filter.AssignedTo != "" {
		fmt.Fprintf(&b, "|assigned=%s", q.Filter.AssignedTo)
	}
	if q.Filter.Priority != "" {
		fmt.Fprintf(&b, "|priority=%s", q.Filter.Priority)
	}
	if len(q.Filter.Tags) > 0 {
		tags := append([]string(nil), q.Filter.Tags...)
		sort.Strings(tags)
		fmt.Fprintf(&b, "|tags=%s", strings.Join(tags, ","))
	}

	s := q.Sort
	if !ValidSortField(s.Field) {
		s = DefaultSort()
	}
	fmt.Fprintf(&b, "|sort=%s.%s", s.Field, s.Direction)

	return b.String()
}

// MatchesChange reports whether a write affecting (projectID, userID)
// can alter this query's result set. projectID is empty for personal
// todos.
func (q TodoQuery) MatchesChange(projectID, userID string) bool {
	if q.Scope.ProjectID != "" {
		return projectID == q.Scope.ProjectID
	}
	return projectID == "" && userID == q.Scope.UserID
}

var likeEscaper = strings.NewReplacer("^", "^^", "%", "^%", "_", "^_")

// tagPattern builds a LIKE pattern matching the tag as a whole JSON
// string element. The tag is JSON-encoded the same way the serializer
// stores it, then LIKE metacharacters are escaped with '^' so they
// match literally. '^' is used because a backslash escape reads
// differently under MySQL's string syntax.
func tagPattern(tag string) string {
	quoted, _ := json.Marshal(tag)
	return "%" + likeEscaper.Replace(string(quoted)) + "%"
}

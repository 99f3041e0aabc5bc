package task

import (
	"sort"
	"strings"
	"time"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Entry pairs a stored task with the status it shows today.
type Entry struct {
	Task   *Task
	Status Status
}

// ListQuery selects, orders and pages entries. Zero values mean "no filter".
type ListQuery struct {
	Page          int
	Limit         int
	SortField     string
	SortDirection string
	Status        Status
	Priority      Priority
	Search        string
	Date          *time.Time
}

// Pagination describes the page that was returned.
type Pagination struct {
	Total int
	Page  int
	Limit int
	Pages int
}

// Summary aggregates the owner's whole list, ignoring filters.
type Summary struct {
	TodayCount int
	Deadlines  map[string]int
}

// ListResult is one page of entries plus list-wide aggregates.
type ListResult struct {
	Entries    []Entry
	Pagination Pagination
	Summary    Summary
}

var sortFields = map[string]func(a, b *Task) int{
	"createdAt": func(a, b *Task) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"deadline":  func(a, b *Task) int { return a.Deadline.Compare(b.Deadline) },
	"startTime": func(a, b *Task) int { return startOf(a).Compare(startOf(b)) },
	"priority":  func(a, b *Task) int { return priorityRank(a.Priority) - priorityRank(b.Priority) },
	"hours":     func(a, b *Task) int { return a.EstimatedHours - b.EstimatedHours },
	"displayId": func(a, b *Task) int { return cmpInt64(a.Seq, b.Seq) },
	"status":    nil, // compared on derived status
}

// ValidSortField reports whether field can be used as ListQuery.SortField.
func ValidSortField(field string) bool {
	_, ok := sortFields[field]
	return ok
}

// Inactive reports whether the entry belongs to the bottom group of the list.
func (e Entry) Inactive() bool {
	return e.Status == StatusCompleted || e.Status == StatusExpired
}

// Less orders entries for display: active before inactive, inactive by
// deadline descending, active by sequence descending.
func Less(a, b Entry) bool {
	ai, bi := a.Inactive(), b.Inactive()
	if ai != bi {
		return bi
	}
	if ai {
		if !a.Task.Deadline.Equal(b.Task.Deadline) {
			return a.Task.Deadline.After(b.Task.Deadline)
		}
	} else if a.Task.Seq != b.Task.Seq {
		return a.Task.Seq > b.Task.Seq
	}
	if !a.Task.CreatedAt.Equal(b.Task.CreatedAt) {
		return a.Task.CreatedAt.After(b.Task.CreatedAt)
	}
	return a.Task.ID > b.Task.ID
}

// Derive computes display entries for tasks as of today.
func Derive(tasks []*Task, today time.Time) []Entry {
	entries := make([]Entry, len(tasks))
	for i, t := range tasks {
		entries[i] = Entry{Task: t, Status: DerivedStatus(t, today)}
	}
	return entries
}

// List filters, orders and pages the owner's tasks as of today. Nothing is
// written back to the tasks.
func List(tasks []*Task, q ListQuery, today time.Time) ListResult {
	q = normalizeQuery(q)
	all := Derive(tasks, today)

	result := ListResult{Summary: summarize(all, today)}

	filtered := make([]Entry, 0, len(all))
	for _, e := range all {
		if q.matches(e) {
			filtered = append(filtered, e)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return q.less(filtered[i], filtered[j])
	})

	total := len(filtered)
	pages := (total + q.Limit - 1) / q.Limit
	start := (q.Page - 1) * q.Limit
	if start > total {
		start = total
	}
	end := start + q.Limit
	if end > total {
		end = total
	}

	result.Entries = filtered[start:end]
	result.Pagination = Pagination{Total: total, Page: q.Page, Limit: q.Limit, Pages: pages}
	return result
}

func normalizeQuery(q ListQuery) ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	if q.SortDirection != "asc" {
		q.SortDirection = "desc"
	}
	q.Search = strings.ToLower(strings.TrimSpace(q.Search))
	return q
}

func (q ListQuery) matches(e Entry) bool {
	if q.Status != "" && e.Status != q.Status {
		return false
	}
	if q.Priority != "" && e.Task.Priority != q.Priority {
		return false
	}
	if q.Date != nil && !TruncateDay(e.Task.Deadline).Equal(TruncateDay(*q.Date)) {
		return false
	}
	if q.Search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(e.Task.Details), q.Search) ||
		strings.Contains(strings.ToLower(string(e.Status)), q.Search) ||
		strings.Contains(strings.ToLower(string(e.Task.Priority)), q.Search) ||
		strings.Contains(e.Task.DisplayID(), q.Search)
}

func (q ListQuery) less(a, b Entry) bool {
	cmp, ok := sortFields[q.SortField]
	if !ok {
		return Less(a, b)
	}

	var c int
	if cmp == nil {
		c = statusRank(a.Status) - statusRank(b.Status)
	} else {
		c = cmp(a.Task, b.Task)
	}
	if c == 0 {
		return Less(a, b)
	}
	if q.SortDirection == "asc" {
		return c < 0
	}
	return c > 0
}

func summarize(entries []Entry, today time.Time) Summary {
	s := Summary{Deadlines: make(map[string]int)}
	day := TruncateDay(today)
	for _, e := range entries {
		s.Deadlines[FormatDate(e.Task.Deadline)]++
		if e.Status.Active() && TruncateDay(e.Task.Deadline).Equal(day) {
			s.TodayCount++
		}
	}
	return s
}

func startOf(t *Task) time.Time {
	if t.StartTime == nil {
		return time.Time{}
	}
	return *t.StartTime
}

func priorityRank(p Priority) int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

func statusRank(s Status) int {
	switch s {
	case StatusPending:
		return 1
	case StatusInProgress:
		return 2
	case StatusCompleted:
		return 3
	case StatusExpired:
		return 4
	}
	return 0
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

package glpi

import (
	"net/url"
	"strconv"

	"github.com/tphakala/go-glpi/internal/query"
)

// Keys GLPI expects in bracketed form.
var (
	flattenedLists   = []string{"criteria", "forcedisplay", "items"}
	flattenedObjects = []string{"searchText"}
)

// encodeParams flattens params and renders them as a query string.
func encodeParams(params map[string]any) url.Values {
	return query.Encode(query.Flatten(params, flattenedLists, flattenedObjects))
}

// Range selects rows start through end, both inclusive.
type Range struct {
	Start int
	End   int
}

func (r Range) String() string {
	return strconv.Itoa(r.Start) + "-" + strconv.Itoa(r.End)
}

// GetItemOptions controls what GetItem and GetMultipleItems return.
type GetItemOptions struct {
	ExpandDropdowns  bool
	HideHateoas      bool
	GetSha1          bool
	WithDevices      bool
	WithDisks        bool
	WithSoftwares    bool
	WithConnections  bool
	WithNetworkPorts bool
	WithInfocoms     bool
	WithContracts    bool
	WithDocuments    bool
	WithTickets      bool
	WithProblems     bool
	WithChanges      bool
	WithNotes        bool
	WithLogs         bool
}

func (o *GetItemOptions) params() map[string]any {
	p := make(map[string]any)
	if o == nil {
		return p
	}
	flags := []struct {
		key string
		set bool
	}{
		{"expand_dropdowns", o.ExpandDropdowns},
		{"get_sha1", o.GetSha1},
		{"with_devices", o.WithDevices},
		{"with_disks", o.WithDisks},
		{"with_softwares", o.WithSoftwares},
		{"with_connections", o.WithConnections},
		{"with_networkports", o.WithNetworkPorts},
		{"with_infocoms", o.WithInfocoms},
		{"with_contracts", o.WithContracts},
		{"with_documents", o.WithDocuments},
		{"with_tickets", o.WithTickets},
		{"with_problems", o.WithProblems},
		{"with_changes", o.WithChanges},
		{"with_notes", o.WithNotes},
		{"with_logs", o.WithLogs},
	}
	for _, f := range flags {
		if f.set {
			p[f.key] = true
		}
	}
	if o.HideHateoas {
		p["get_hateoas"] = false
	}
	return p
}

// ListOptions controls GetItems and GetSubItems.
type ListOptions struct {
	ExpandDropdowns bool
	HideHateoas     bool
	OnlyID          bool
	IsDeleted       bool
	Range           *Range
	// Sort is a search option ID or field name.
	Sort  string
	Order string
	// SearchText filters on field values, e.g. {"name": "printer"}.
	SearchText   map[string]string
	AddKeysNames []string
}

func (o *ListOptions) params() map[string]any {
	p := make(map[string]any)
	if o == nil {
		return p
	}
	if o.ExpandDropdowns {
		p["expand_dropdowns"] = true
	}
	if o.HideHateoas {
		p["get_hateoas"] = false
	}
	if o.OnlyID {
		p["only_id"] = true
	}
	if o.IsDeleted {
		p["is_deleted"] = true
	}
	if o.Range != nil {
		p["range"] = o.Range.String()
	}
	if o.Sort != "" {
		p["sort"] = o.Sort
	}
	if o.Order != "" {
		p["order"] = o.Order
	}
	if len(o.SearchText) > 0 {
		p["searchText"] = o.SearchText
	}
	if len(o.AddKeysNames) > 0 {
		p["add_keys_names"] = o.AddKeysNames
	}
	return p
}

// Criterion is one search criterion. Criteria nests a group.
type Criterion struct {
	Link       string
	Field      int
	Meta       bool
	ItemType   string
	SearchType string
	Value      any
	Criteria   []Criterion
}

func (c Criterion) params() map[string]any {
	p := make(map[string]any)
	if c.Link != "" {
		p["link"] = c.Link
	}
	if len(c.Criteria) > 0 {
		nested := make([]map[string]any, 0, len(c.Criteria))
		for _, sub := range c.Criteria {
			nested = append(nested, sub.params())
		}
		p["criteria"] = nested
		return p
	}
	p["field"] = c.Field
	if c.Meta {
		p["meta"] = true
	}
	if c.ItemType != "" {
		p["itemtype"] = c.ItemType
	}
	p["searchtype"] = c.SearchType
	if c.Value != nil {
		p["value"] = c.Value
	}
	return p
}

// SearchQuery controls Search.
type SearchQuery struct {
	Criteria     []Criterion
	Sort         int
	Order        string
	Range        *Range
	ForceDisplay []int
	RawData      bool
	WithIndexes  bool
	UIDCols      bool
	GiveItems    bool
}

func (q *SearchQuery) params() map[string]any {
	p := make(map[string]any)
	if q == nil {
		return p
	}
	if len(q.Criteria) > 0 {
		criteria := make([]map[string]any, 0, len(q.Criteria))
		for _, c := range q.Criteria {
			criteria = append(criteria, c.params())
		}
		p["criteria"] = criteria
	}
	if q.Sort != 0 {
		p["sort"] = q.Sort
	}
	if q.Order != "" {
		p["order"] = q.Order
	}
	if q.Range != nil {
		p["range"] = q.Range.String()
	}
	if len(q.ForceDisplay) > 0 {
		p["forcedisplay"] = q.ForceDisplay
	}
	if q.RawData {
		p["rawdata"] = true
	}
	if q.WithIndexes {
		p["withindexes"] = true
	}
	if q.UIDCols {
		p["uid_cols"] = true
	}
	if q.GiveItems {
		p["giveItems"] = true
	}
	return p
}

// DeleteOptions controls DeleteItem and DeleteItems.
type DeleteOptions struct {
	// ForcePurge deletes for good instead of moving to the trash bin.
	ForcePurge bool
	// NoHistory skips the history entry.
	NoHistory bool
}

func (o *DeleteOptions) params() map[string]any {
	p := make(map[string]any)
	if o == nil {
		return p
	}
	if o.ForcePurge {
		p["force_purge"] = true
	}
	if o.NoHistory {
		p["history"] = false
	}
	return p
}

package glpi

import (
	"cmp"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Item is a GLPI item as returned by the API. Field sets depend on the
// item type and on request options, so items stay untyped.
type Item map[string]any

// ID returns the item's "id" field, or 0 when absent.
func (i Item) ID() int {
	switch v := i["id"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

// Bool decodes the loose booleans GLPI emits: true/false, 0/1 and "0"/"1".
type Bool bool

// MarshalJSON implements json.Marshaler.
func (b Bool) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(b))
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Bool) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "true", "1":
		*b = true
	case "false", "0", "", "null":
		*b = false
	default:
		return fmt.Errorf("glpi: invalid boolean %s", data)
	}
	return nil
}

// Entity is an entity the user can access.
type Entity struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	IsRecursive Bool   `json:"is_recursive,omitempty"`
}

// Profile is a user profile with the entities it applies to.
type Profile struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Entities []Entity `json:"entities"`
}

// ActiveEntity describes the session's active entity selection.
type ActiveEntity struct {
	ID        int  `json:"id"`
	Recursive Bool `json:"active_entity_recursive"`
	Entities  []struct {
		ID int `json:"id"`
	} `json:"active_entities"`
}

// ItemRef identifies one item in GetMultipleItems.
type ItemRef struct {
	ItemType string `json:"itemtype"`
	ID       int    `json:"items_id"`
}

// ItemResult is the outcome of creating one item.
type ItemResult struct {
	ID      int    `json:"id"`
	Message string `json:"message"`
}

// ItemStatus is the outcome of updating or deleting one item. GLPI
// encodes it as {"<id>": true, "message": ""}.
type ItemStatus struct {
	ID      int
	OK      bool
	Message string
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *ItemStatus) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*s = ItemStatus{}
	for key, raw := range fields {
		if key == "message" {
			if err := json.Unmarshal(raw, &s.Message); err != nil {
				return err
			}
			continue
		}
		id, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		var ok Bool
		if err := json.Unmarshal(raw, &ok); err != nil {
			return err
		}
		s.ID, s.OK = id, bool(ok)
	}
	return nil
}

// SearchOption describes one searchable field of an item type.
type SearchOption struct {
	Name            string   `json:"name"`
	Table           string   `json:"table"`
	Field           string   `json:"field"`
	DataType        string   `json:"datatype"`
	NoSearch        Bool     `json:"nosearch"`
	NoDisplay       Bool     `json:"nodisplay"`
	AvailableSearch []string `json:"available_searchtypes"`
	UID             string   `json:"uid"`
}

// SearchResult is one page of search results.
type SearchResult struct {
	TotalCount   int    `json:"totalcount"`
	Count        int    `json:"count"`
	ContentRange string `json:"content-range"`

	// Data holds rows as a list, or keyed by item ID with
	// SearchQuery.WithIndexes. Use Rows to decode either form.
	Data json.RawMessage `json:"data"`

	// RawData is present with SearchQuery.RawData.
	RawData map[string]any `json:"rawdata,omitempty"`
}

// Rows decodes Data into rows keyed by search option ID. Indexed data is
// returned in ascending item ID order.
func (r *SearchResult) Rows() ([]map[string]any, error) {
	if len(r.Data) == 0 || string(r.Data) == "null" {
		return nil, nil
	}

	var rows []map[string]any
	if err := json.Unmarshal(r.Data, &rows); err == nil {
		return rows, nil
	}

	var indexed map[string]map[string]any
	if err := json.Unmarshal(r.Data, &indexed); err != nil {
		return nil, fmt.Errorf("glpi: decoding search rows: %w", err)
	}
	keys := slices.SortedFunc(maps.Keys(indexed), func(a, b string) int {
		x, _ := strconv.Atoi(a)
		y, _ := strconv.Atoi(b)
		return cmp.Compare(x, y)
	})
	rows = make([]map[string]any, 0, len(indexed))
	for _, key := range keys {
		rows = append(rows, indexed[key])
	}
	return rows, nil
}

package glpi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tphakala/go-glpi/internal/api"
)

const (
	defaultPageSize = 50
	maxPageSize     = 1000
)

// ItemService provides operations on GLPI items.
//
//go:generate mockery --name=ItemService --output=mocks --outpkg=mocks --filename=item_service.go
type ItemService interface {
	// Get retrieves one item.
	Get(ctx context.Context, itemType string, id int, opts *GetItemOptions, reqOpts ...RequestOption) (Item, error)

	// List returns one page of items of a type.
	List(ctx context.Context, itemType string, opts *ListOptions, reqOpts ...RequestOption) (*ItemPage, error)

	// All returns an iterator over every item of a type.
	// The iterator fetches pages lazily as you iterate.
	All(ctx context.Context, itemType string, opts *ListOptions, reqOpts ...RequestOption) iter.Seq2[Item, error]

	// SubItems returns the items of subItemType linked to an item.
	SubItems(ctx context.Context, itemType string, id int, subItemType string, opts *ListOptions, reqOpts ...RequestOption) (*ItemPage, error)

	// Multiple retrieves several items of any types in one call.
	Multiple(ctx context.Context, refs []ItemRef, opts *GetItemOptions, reqOpts ...RequestOption) ([]Item, error)

	// Create adds one item, or several when input is a slice.
	Create(ctx context.Context, itemType string, input any, reqOpts ...RequestOption) ([]ItemResult, error)

	// Update modifies an item.
	Update(ctx context.Context, itemType string, id int, input any, reqOpts ...RequestOption) ([]ItemStatus, error)

	// Delete removes an item.
	Delete(ctx context.Context, itemType string, id int, opts *DeleteOptions, reqOpts ...RequestOption) ([]ItemStatus, error)

	// DeleteBatch removes several items of one type in one call.
	DeleteBatch(ctx context.Context, itemType string, ids []int, opts *DeleteOptions, reqOpts ...RequestOption) ([]ItemStatus, error)

	// SearchOptions lists the searchable fields of an item type, keyed by
	// search option ID.
	SearchOptions(ctx context.Context, itemType string, raw bool, reqOpts ...RequestOption) (map[int]SearchOption, error)

	// Search runs a search and returns one page of results.
	Search(ctx context.Context, itemType string, q *SearchQuery, reqOpts ...RequestOption) (*SearchResult, error)

	// SearchAll returns an iterator over every row matching q.
	SearchAll(ctx context.Context, itemType string, q *SearchQuery, reqOpts ...RequestOption) iter.Seq2[map[string]any, error]
}

// ItemPage is one page of a list call.
type ItemPage struct {
	Items []Item
	Range *ContentRange
}

// HasMore returns true if there are more pages available.
func (p *ItemPage) HasMore() bool {
	if p.Range == nil {
		return false
	}
	return p.Range.End+1 < p.Range.Total
}

// itemService implements ItemService.
type itemService struct {
	session *Session
}

func newItemService(s *Session) *itemService {
	return &itemService{session: s}
}

// validateItemType checks that an item type is set.
func validateItemType(itemType string) error {
	if itemType == "" {
		return &ValidationError{
			APIError: APIError{Message: ErrEmptyItemType.Error()},
		}
	}
	return nil
}

func itemPath(itemType string, id int, sub ...string) string {
	path := url.PathEscape(itemType) + "/" + strconv.Itoa(id)
	for _, s := range sub {
		path += "/" + url.PathEscape(s)
	}
	return path
}

// Get retrieves one item.
func (s *itemService) Get(ctx context.Context, itemType string, id int, opts *GetItemOptions, reqOpts ...RequestOption) (Item, error) {
	if err := validateItemType(itemType); err != nil {
		return nil, err
	}

	reqCfg := newRequestConfig(reqOpts...)

	var result Item
	_, err := s.session.do(ctx, &api.Request{
		Method:  http.MethodGet,
		Path:    itemPath(itemType, id),
		Query:   encodeParams(opts.params()),
		Headers: reqCfg.headers,
	}, &result)
	if err != nil {
		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			notFound.ItemType, notFound.ItemID = itemType, id
		}
		return nil, err
	}

	return result, nil
}

// List returns one page of items of a type.
func (s *itemService) List(ctx context.Context, itemType string, opts *ListOptions, reqOpts ...RequestOption) (*ItemPage, error) {
	if err := validateItemType(itemType); err != nil {
		return nil, err
	}
	return s.list(ctx, url.PathEscape(itemType), opts, reqOpts)
}

// SubItems returns the items of subItemType linked to an item.
func (s *itemService) SubItems(ctx context.Context, itemType string, id int, subItemType string, opts *ListOptions, reqOpts ...RequestOption) (*ItemPage, error) {
	if err := validateItemType(itemType); err != nil {
		return nil, err
	}
	if err := validateItemType(subItemType); err != nil {
		return nil, err
	}
	return s.list(ctx, itemPath(itemType, id, subItemType), opts, reqOpts)
}

func (s *itemService) list(ctx context.Context, path string, opts *ListOptions, reqOpts []RequestOption) (*ItemPage, error) {
	reqCfg := newRequestConfig(reqOpts...)

	var items []Item
	resp, err := s.session.do(ctx, &api.Request{
		Method:  http.MethodGet,
		Path:    path,
		Query:   encodeParams(opts.params()),
		Headers: reqCfg.headers,
	}, &items)
	if err != nil {
		return nil, err
	}

	page := &ItemPage{Items: items}
	if cr, err := parseContentRange(resp.Headers.Get("Content-Range")); err == nil {
		page.Range = cr
	}
	return page, nil
}

// All returns an iterator over every item of a type.
func (s *itemService) All(ctx context.Context, itemType string, opts *ListOptions, reqOpts ...RequestOption) iter.Seq2[Item, error] {
	pageSize := defaultPageSize
	if opts != nil && opts.Range != nil {
		pageSize = min(max(opts.Range.End-opts.Range.Start+1, 1), maxPageSize)
	}

	return paginate(ctx, pageSize, func(ctx context.Context, r Range) ([]Item, int, error) {
		pageOpts := ListOptions{}
		if opts != nil {
			pageOpts = *opts
		}
		pageOpts.Range = &r

		page, err := s.List(ctx, itemType, &pageOpts, reqOpts...)
		if err != nil {
			return nil, 0, err
		}
		total := r.Start + len(page.Items)
		if page.Range != nil {
			total = page.Range.Total
		}
		return page.Items, total, nil
	})
}

// Multiple retrieves several items of any types in one call.
func (s *itemService) Multiple(ctx context.Context, refs []ItemRef, opts *GetItemOptions, reqOpts ...RequestOption) ([]Item, error) {
	if len(refs) == 0 {
		return nil, &ValidationError{
			APIError: APIError{Message: "no items requested"},
		}
	}

	items := make([]map[string]any, 0, len(refs))
	for _, ref := range refs {
		items = append(items, map[string]any{"itemtype": ref.ItemType, "items_id": ref.ID})
	}
	params := opts.params()
	params["items"] = items

	reqCfg := newRequestConfig(reqOpts...)

	var result []Item
	_, err := s.session.do(ctx, &api.Request{
		Method:  http.MethodGet,
		Path:    "getMultipleItems",
		Query:   encodeParams(params),
		Headers: reqCfg.headers,
	}, &result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Create adds one item, or several when input is a slice.
func (s *itemService) Create(ctx context.Context, itemType string, input any, reqOpts ...RequestOption) ([]ItemResult, error) {
	if err := validateItemType(itemType); err != nil {
		return nil, err
	}

	reqCfg := newRequestConfig(reqOpts...)

	resp, err := s.session.do(ctx, &api.Request{
		Method:  http.MethodPost,
		Path:    url.PathEscape(itemType),
		Body:    map[string]any{"input": input},
		Headers: reqCfg.headers,
	}, nil)
	if err != nil {
		return nil, err
	}

	return decodeOneOrMany[ItemResult](resp.Body)
}

// Update modifies an item.
func (s *itemService) Update(ctx context.Context, itemType string, id int, input any, reqOpts ...RequestOption) ([]ItemStatus, error) {
	if err := validateItemType(itemType); err != nil {
		return nil, err
	}

	reqCfg := newRequestConfig(reqOpts...)

	resp, err := s.session.do(ctx, &api.Request{
		Method:  http.MethodPut,
		Path:    itemPath(itemType, id),
		Body:    map[string]any{"input": input},
		Headers: reqCfg.headers,
	}, nil)
	if err != nil {
		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			notFound.ItemType, notFound.ItemID = itemType, id
		}
		return nil, err
	}

	return decodeOneOrMany[ItemStatus](resp.Body)
}

// Delete removes an item.
func (s *itemService) Delete(ctx context.Context, itemType string, id int, opts *DeleteOptions, reqOpts ...RequestOption) ([]ItemStatus, error) {
	if err := validateItemType(itemType); err != nil {
		return nil, err
	}

	reqCfg := newRequestConfig(reqOpts...)

	resp, err := s.session.do(ctx, &api.Request{
		Method:  http.MethodDelete,
		Path:    itemPath(itemType, id),
		Query:   encodeParams(opts.params()),
		Headers: reqCfg.headers,
	}, nil)
	if err != nil {
		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			notFound.ItemType, notFound.ItemID = itemType, id
		}
		return nil, err
	}

	return decodeOneOrMany[ItemStatus](resp.Body)
}

// DeleteBatch removes several items of one type in one call with
// DELETE {itemType}. The IDs travel as the JSON request body
// {"input": [{"id": n}, ...]}, not as query parameters: GLPI reads input
// from the body, and bracketed query encoding of objects is not part of
// its contract. Options such as force_purge stay in the query.
func (s *itemService) DeleteBatch(ctx context.Context, itemType string, ids []int, opts *DeleteOptions, reqOpts ...RequestOption) ([]ItemStatus, error) {
	if err := validateItemType(itemType); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, &ValidationError{
			APIError: APIError{Message: ErrNoItemIDs.Error()},
		}
	}

	input := make([]map[string]int, 0, len(ids))
	for _, id := range ids {
		input = append(input, map[string]int{"id": id})
	}

	reqCfg := newRequestConfig(reqOpts...)

	resp, err := s.session.do(ctx, &api.Request{
		Method:  http.MethodDelete,
		Path:    url.PathEscape(itemType),
		Query:   encodeParams(opts.params()),
		Body:    map[string]any{"input": input},
		Headers: reqCfg.headers,
	}, nil)
	if err != nil {
		return nil, err
	}

	return decodeOneOrMany[ItemStatus](resp.Body)
}

// decodeOneOrMany decodes a JSON object or array of objects into a slice.
// An empty body decodes to nil.
func decodeOneOrMany[T any](body []byte) ([]T, error) {
	if len(body) == 0 {
		return nil, nil
	}

	var many []T
	if err := json.Unmarshal(body, &many); err == nil {
		return many, nil
	}

	var one T
	if err := json.Unmarshal(body, &one); err != nil {
		return nil, fmt.Errorf("glpi: unmarshaling response: %w", err)
	}
	return []T{one}, nil
}

package glpi

import (
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tphakala/go-glpi/internal/api"
)

// SearchOptions lists the searchable fields of an item type, keyed by
// search option ID. Section headings in the response are skipped.
func (s *itemService) SearchOptions(ctx context.Context, itemType string, raw bool, reqOpts ...RequestOption) (map[int]SearchOption, error) {
	if err := validateItemType(itemType); err != nil {
		return nil, err
	}

	reqCfg := newRequestConfig(reqOpts...)

	params := map[string]any{}
	if raw {
		params["raw"] = true
	}

	var fields map[string]json.RawMessage
	_, err := s.session.do(ctx, &api.Request{
		Method:  http.MethodGet,
		Path:    "listSearchOptions/" + url.PathEscape(itemType),
		Query:   encodeParams(params),
		Headers: reqCfg.headers,
	}, &fields)
	if err != nil {
		return nil, err
	}

	options := make(map[int]SearchOption, len(fields))
	for key, rawOpt := range fields {
		id, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		var opt SearchOption
		if err := json.Unmarshal(rawOpt, &opt); err != nil {
			continue
		}
		options[id] = opt
	}
	return options, nil
}

// Search runs a search and returns one page of results.
func (s *itemService) Search(ctx context.Context, itemType string, q *SearchQuery, reqOpts ...RequestOption) (*SearchResult, error) {
	if err := validateItemType(itemType); err != nil {
		return nil, err
	}

	reqCfg := newRequestConfig(reqOpts...)

	var result SearchResult
	_, err := s.session.do(ctx, &api.Request{
		Method:  http.MethodGet,
		Path:    "search/" + url.PathEscape(itemType),
		Query:   encodeParams(q.params()),
		Headers: reqCfg.headers,
	}, &result)
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// SearchAll returns an iterator over every row matching q.
func (s *itemService) SearchAll(ctx context.Context, itemType string, q *SearchQuery, reqOpts ...RequestOption) iter.Seq2[map[string]any, error] {
	pageSize := defaultPageSize
	if q != nil && q.Range != nil {
		pageSize = min(max(q.Range.End-q.Range.Start+1, 1), maxPageSize)
	}

	return paginate(ctx, pageSize, func(ctx context.Context, r Range) ([]map[string]any, int, error) {
		pageQuery := SearchQuery{}
		if q != nil {
			pageQuery = *q
		}
		pageQuery.Range = &r

		result, err := s.Search(ctx, itemType, &pageQuery, reqOpts...)
		if err != nil {
			return nil, 0, err
		}
		rows, err := result.Rows()
		if err != nil {
			return nil, 0, err
		}
		return rows, result.TotalCount, nil
	})
}

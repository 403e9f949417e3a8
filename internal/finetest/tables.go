package finetest

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fine-dev/fine-go/internal/common/httpx"
)

// Row is one table row.
type Row map[string]any

// Seed appends rows to a table, creating it if needed.
func (s *Server) Seed(table string, rows ...Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tables[table] == nil {
		s.tables[table] = []Row{}
	}
	for _, r := range rows {
		s.tables[table] = append(s.tables[table], copyRow(r))
	}
}

// Rows returns a copy of a table's rows.
func (s *Server) Rows(table string) []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Row, 0, len(s.tables[table]))
	for _, r := range s.tables[table] {
		out = append(out, copyRow(r))
	}
	return out
}

func (s *Server) mountTables(r chi.Router) {
	r.Get("/tables/{table}", httpx.WrapHttpRsp(s.selectRows))
	r.Post("/tables/{table}", httpx.WrapHttpRsp(s.insertRows))
	r.Patch("/tables/{table}", httpx.WrapHttpRsp(s.updateRows))
	r.Delete("/tables/{table}", httpx.WrapHttpRsp(s.deleteRows))
}

type predicate struct {
	column  string
	op      string
	operand string
}

type query struct {
	predicates []predicate
	columns    []string
	order      []string
	limit      int
	offset     int
}

func parseQuery(raw string) (*query, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, err
	}
	q := &query{limit: -1}
	for _, key := range sortedKeys(values) {
		for _, v := range values[key] {
			switch key {
			case "select":
				if v != "*" {
					q.columns = strings.Split(v, ",")
				}
			case "order":
				q.order = append(q.order, v)
			case "limit":
				if q.limit, err = strconv.Atoi(v); err != nil {
					return nil, fmt.Errorf("invalid limit %q", v)
				}
			case "offset":
				if q.offset, err = strconv.Atoi(v); err != nil {
					return nil, fmt.Errorf("invalid offset %q", v)
				}
			default:
				op, operand, ok := strings.Cut(v, ".")
				if !ok {
					return nil, fmt.Errorf("invalid filter %s=%s", key, v)
				}
				q.predicates = append(q.predicates, predicate{column: key, op: op, operand: operand})
			}
		}
	}
	return q, nil
}

func render(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func compare(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}

func likePattern(p string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range p {
		switch r {
		case '%', '*':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

func (p predicate) match(row Row) (bool, error) {
	value := render(row[p.column])
	switch p.op {
	case "eq":
		return value == p.operand, nil
	case "neq":
		return value != p.operand, nil
	case "gt":
		return compare(value, p.operand) > 0, nil
	case "lt":
		return compare(value, p.operand) < 0, nil
	case "like":
		re, err := likePattern(p.operand)
		if err != nil {
			return false, err
		}
		return re.MatchString(value), nil
	case "in":
		for _, item := range splitList(p.operand) {
			if item == value {
				return true, nil
			}
		}
		return false, nil
	}
	return false, fmt.Errorf("unknown operator %q", p.op)
}

func (q *query) matches(row Row) (bool, error) {
	for _, p := range q.predicates {
		ok, err := p.match(row)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (q *query) shape(rows []Row) []Row {
	for i := len(q.order) - 1; i >= 0; i-- {
		column, dir, _ := strings.Cut(q.order[i], ".")
		desc := dir == "desc"
		sort.SliceStable(rows, func(a, b int) bool {
			c := compare(render(rows[a][column]), render(rows[b][column]))
			if desc {
				return c > 0
			}
			return c < 0
		})
	}
	if q.offset > 0 {
		if q.offset >= len(rows) {
			rows = rows[:0]
		} else {
			rows = rows[q.offset:]
		}
	}
	if q.limit >= 0 && q.limit < len(rows) {
		rows = rows[:q.limit]
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		if len(q.columns) == 0 {
			out[i] = copyRow(r)
			continue
		}
		projected := Row{}
		for _, c := range q.columns {
			if v, ok := r[c]; ok {
				projected[c] = v
			}
		}
		out[i] = projected
	}
	return out
}

// filter splits a table into matching and remaining rows.
func (s *Server) filter(r *http.Request) (string, *query, []Row, []Row, error) {
	table := chi.URLParam(r, "table")
	q, err := parseQuery(r.URL.RawQuery)
	if err != nil {
		return "", nil, nil, nil, httpx.ErrInvalidRequest(err.Error())
	}
	rows, ok := s.tables[table]
	if !ok {
		return "", nil, nil, nil, httpx.ErrNotFound("table " + table)
	}
	var matched, rest []Row
	for _, row := range rows {
		ok, err := q.matches(row)
		if err != nil {
			return "", nil, nil, nil, httpx.ErrInvalidRequest(err.Error())
		}
		if ok {
			matched = append(matched, row)
		} else {
			rest = append(rest, row)
		}
	}
	return table, q, matched, rest, nil
}

func (s *Server) selectRows(r *http.Request) (*httpx.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, q, matched, _, err := s.filter(r)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: q.shape(matched)}, nil
}

func (s *Server) insertRows(r *http.Request) (*httpx.Response, error) {
	var body any
	if err := httpx.GetRequestData(r, &body); err != nil {
		return nil, err
	}
	var rows []Row
	switch v := body.(type) {
	case map[string]any:
		rows = []Row{v}
	case []any:
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, httpx.ErrInvalidRequest("rows must be objects")
			}
			rows = append(rows, m)
		}
	default:
		return nil, httpx.ErrInvalidRequest("rows must be objects")
	}

	table := chi.URLParam(r, "table")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		s.tables[table] = append(s.tables[table], copyRow(row))
	}
	return &httpx.Response{StatusCode: http.StatusCreated, Response: rows}, nil
}

func (s *Server) updateRows(r *http.Request) (*httpx.Response, error) {
	var body struct {
		Data map[string]any `json:"data"`
	}
	if err := httpx.GetRequestData(r, &body); err != nil {
		return nil, err
	}
	if body.Data == nil {
		return nil, httpx.ErrInvalidRequest("data is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _, matched, _, err := s.filter(r)
	if err != nil {
		return nil, err
	}
	updated := make([]Row, 0, len(matched))
	for _, row := range matched {
		for k, v := range body.Data {
			row[k] = v
		}
		updated = append(updated, copyRow(row))
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: updated}, nil
}

func (s *Server) deleteRows(r *http.Request) (*httpx.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table, _, _, rest, err := s.filter(r)
	if err != nil {
		return nil, err
	}
	if rest == nil {
		rest = []Row{}
	}
	s.tables[table] = rest
	return &httpx.Response{StatusCode: http.StatusNoContent}, nil
}

func copyRow(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

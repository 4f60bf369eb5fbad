package core

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"ontosim/pkg/domain"
)

const (
	fieldPrimaryKey = "$primaryKey"
	fieldTitle      = "$title"
	pageTokenPrefix = "offset:"
)

// LoadObjects orders, pages and projects an already resolved object list.
func (s *Store) LoadObjects(objects []domain.Object, req domain.LoadObjectsRequest) (domain.ObjectPage, error) {
	if len(objects) == 0 {
		return domain.ObjectPage{Data: []domain.Object{}}, nil
	}
	pageSize := req.PageSize
	switch {
	case pageSize == 0:
		pageSize = domain.DefaultPageSize
	case pageSize < 0:
		return domain.ObjectPage{}, &domain.InvalidArgumentError{Detail: fmt.Sprintf("page size %d must be positive", pageSize)}
	}

	rows := make([]domain.Object, len(objects))
	for i, obj := range objects {
		rows[i] = obj.Clone()
	}
	var securities [][]domain.PropertySecurity
	if req.LoadPropertySecurities {
		if len(rows) != 1 {
			return domain.ObjectPage{}, &domain.InvalidArgumentError{
				Detail: fmt.Sprintf("property securities can only be loaded for exactly one object, got %d", len(rows)),
			}
		}
		redacted, secs, err := s.secured(rows[0])
		if err != nil {
			return domain.ObjectPage{}, err
		}
		rows[0] = redacted
		securities = [][]domain.PropertySecurity{secs}
	}

	if err := s.orderObjects(rows, securities, req.OrderBy); err != nil {
		return domain.ObjectPage{}, err
	}

	offset := 0
	if req.PageToken != "" {
		var ok bool
		offset, ok = decodePageToken(req.PageToken)
		if !ok || offset <= 0 || offset >= len(rows) {
			return domain.ObjectPage{}, &domain.NotFoundError{Kind: "page", Detail: fmt.Sprintf("token %q", req.PageToken)}
		}
	}
	end := offset + pageSize
	if end > len(rows) {
		end = len(rows)
	}
	page := domain.ObjectPage{TotalCount: len(rows)}
	if end < len(rows) {
		page.NextPageToken = encodePageToken(end)
	}
	for i := offset; i < end; i++ {
		obj, err := s.project(rows[i], req)
		if err != nil {
			return domain.ObjectPage{}, err
		}
		page.Data = append(page.Data, obj)
		if securities != nil {
			page.PropertySecurities = append(page.PropertySecurities, projectSecurities(securities[i], req.Select))
		}
	}
	return page, nil
}

// secured returns the redacted variant and its securities, or the object
// itself with no securities when it was not registered with security.
func (s *Store) secured(obj domain.Object) (domain.Object, []domain.PropertySecurity, error) {
	loc, err := obj.Locator()
	if err != nil {
		return domain.Object{}, nil, &domain.InvalidArgumentError{Detail: err.Error()}
	}
	s.mu.RLock()
	entry, ok := s.state.secured[loc]
	s.mu.RUnlock()
	if !ok {
		return obj, []domain.PropertySecurity{}, nil
	}
	return entry.redacted.Clone(), append([]domain.PropertySecurity(nil), entry.securities...), nil
}

func (s *Store) orderObjects(rows []domain.Object, securities [][]domain.PropertySecurity, clauses []domain.OrderClause) error {
	if len(clauses) == 0 {
		return nil
	}
	for _, c := range clauses {
		if c.Direction != "" && c.Direction != domain.SortAsc && c.Direction != domain.SortDesc {
			return &domain.InvalidArgumentError{Detail: fmt.Sprintf("unknown sort direction %q", c.Direction)}
		}
		if c.Field == fieldPrimaryKey || c.Field == fieldTitle {
			continue
		}
		for _, typ := range distinctTypes(rows) {
			def, err := s.ontology.ObjectType(typ)
			if err != nil {
				return err
			}
			if _, ok := def.Property(c.Field); !ok {
				return &domain.PropertyError{ObjectType: typ, Property: c.Field, Detail: "cannot order by undeclared property"}
			}
		}
	}
	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		a, b := rows[idx[i]], rows[idx[j]]
		for _, c := range clauses {
			av, bv := orderValue(a, c.Field), orderValue(b, c.Field)
			cmp := domain.CompareValues(av, bv)
			if cmp == 0 {
				continue
			}
			if c.Direction == domain.SortDesc && av != nil && bv != nil {
				cmp = -cmp
			}
			return cmp < 0
		}
		return false
	})
	sortedRows := make([]domain.Object, len(rows))
	for i, k := range idx {
		sortedRows[i] = rows[k]
	}
	copy(rows, sortedRows)
	if securities != nil {
		sortedSecs := make([][]domain.PropertySecurity, len(securities))
		for i, k := range idx {
			sortedSecs[i] = securities[k]
		}
		copy(securities, sortedSecs)
	}
	return nil
}

func orderValue(obj domain.Object, field string) any {
	switch field {
	case fieldPrimaryKey:
		return obj.PrimaryKey
	case fieldTitle:
		if obj.Title == "" {
			return nil
		}
		return obj.Title
	default:
		return obj.Properties[field]
	}
}

func distinctTypes(rows []domain.Object) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range rows {
		if _, ok := seen[r.ObjectType]; ok {
			continue
		}
		seen[r.ObjectType] = struct{}{}
		out = append(out, r.ObjectType)
	}
	return out
}

func (s *Store) project(obj domain.Object, req domain.LoadObjectsRequest) (domain.Object, error) {
	if req.ExcludeRID {
		obj.RID = ""
	}
	if len(req.Select) == 0 {
		return obj, nil
	}
	def, err := s.ontology.ObjectType(obj.ObjectType)
	if err != nil {
		return domain.Object{}, err
	}
	props := make(map[string]any, len(req.Select)+1)
	for _, name := range req.Select {
		if _, ok := def.Property(name); !ok {
			return domain.Object{}, &domain.PropertyError{ObjectType: obj.ObjectType, Property: name, Detail: "cannot select undeclared property"}
		}
		if v, ok := obj.Properties[name]; ok {
			props[name] = v
		}
	}
	if v, ok := obj.Properties[def.PrimaryKey]; ok {
		props[def.PrimaryKey] = v
	}
	obj.Properties = props
	return obj, nil
}

func projectSecurities(secs []domain.PropertySecurity, selected []string) []domain.PropertySecurity {
	if len(selected) == 0 {
		return secs
	}
	out := make([]domain.PropertySecurity, 0, len(secs))
	for _, sec := range secs {
		if containsString(selected, sec.Property) {
			out = append(out, sec)
		}
	}
	return out
}

func encodePageToken(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(pageTokenPrefix + strconv.Itoa(offset)))
}

func decodePageToken(token string) (int, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, false
	}
	body, ok := strings.CutPrefix(string(raw), pageTokenPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(body)
	if err != nil {
		return 0, false
	}
	return n, true
}

package repository

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Field is a column that filters and orderings may reference. Only the
// constants below are accepted, so user input never reaches SQL as an identifier.
type Field string

const (
	FieldID               Field = "id"
	FieldStatus           Field = "status"
	FieldRequesterID      Field = "requester_id"
	FieldCreatedByID      Field = "created_by_id"
	FieldDepartmentID     Field = "department_id"
	FieldTeamID           Field = "team_id"
	FieldEmergencyRelated Field = "emergency_related"
	FieldRequestID        Field = "request_id"
	FieldApproverID       Field = "approver_id"
	FieldHierarchy        Field = "hierarchy"
	FieldRecipientID      Field = "recipient_id"
	FieldRaisedByID       Field = "raised_by_id"
	FieldAnsweredOn       Field = "answered_on"
	FieldFileName         Field = "file_name"
	FieldRequestedDate    Field = "requested_date"
	FieldCreatedAt        Field = "created_at"
)

var knownFields = map[Field]struct{}{
	FieldID: {}, FieldStatus: {}, FieldRequesterID: {}, FieldCreatedByID: {},
	FieldDepartmentID: {}, FieldTeamID: {}, FieldEmergencyRelated: {}, FieldRequestID: {},
	FieldApproverID: {}, FieldHierarchy: {}, FieldRecipientID: {}, FieldRaisedByID: {},
	FieldAnsweredOn: {}, FieldFileName: {}, FieldRequestedDate: {}, FieldCreatedAt: {},
}

// ParseField validates a column name coming from a query string.
func ParseField(s string) (Field, error) {
	f := Field(s)
	if _, ok := knownFields[f]; !ok {
		return "", fmt.Errorf("unknown field %q", s)
	}
	return f, nil
}

type operator int

const (
	opEq operator = iota
	opNe
)

type condition struct {
	field Field
	op    operator
	value interface{}
}

type ordering struct {
	field Field
	desc  bool
}

// Filter is a conjunction of equality tests plus ordering and limit.
// Values are always bound as parameters.
type Filter struct {
	conds  []condition
	orders []ordering
	limit  int
}

func NewFilter() *Filter {
	return &Filter{}
}

func (f *Filter) Eq(field Field, value interface{}) *Filter {
	f.conds = append(f.conds, condition{field: field, op: opEq, value: value})
	return f
}

func (f *Filter) Ne(field Field, value interface{}) *Filter {
	f.conds = append(f.conds, condition{field: field, op: opNe, value: value})
	return f
}

// IsNull matches rows where field is unset.
func (f *Filter) IsNull(field Field) *Filter {
	return f.Eq(field, nil)
}

func (f *Filter) NotNull(field Field) *Filter {
	return f.Ne(field, nil)
}

func (f *Filter) OrderBy(field Field, desc bool) *Filter {
	f.orders = append(f.orders, ordering{field: field, desc: desc})
	return f
}

func (f *Filter) Limit(n int) *Filter {
	f.limit = n
	return f
}

// Where applies only the conditions, for use in COUNT queries.
func (f *Filter) Where(db *gorm.DB) *gorm.DB {
	if f == nil {
		return db
	}
	for _, c := range f.conds {
		col := clause.Column{Name: string(c.field)}
		switch c.op {
		case opEq:
			db = db.Where(clause.Eq{Column: col, Value: c.value})
		case opNe:
			db = db.Where(clause.Neq{Column: col, Value: c.value})
		}
	}
	return db
}

// Apply applies conditions, ordering and limit.
func (f *Filter) Apply(db *gorm.DB) *gorm.DB {
	if f == nil {
		return db
	}
	db = f.Where(db)
	for _, o := range f.orders {
		db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: string(o.field)}, Desc: o.desc})
	}
	if f.limit > 0 {
		db = db.Limit(f.limit)
	}
	return db
}

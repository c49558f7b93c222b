package recordings

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"paricus-portal/internal/config"
)

// Dialect selects placeholder syntax. Predicate semantics are the same in every dialect.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

// DialectFor maps a database/sql driver name to its Dialect.
func DialectFor(driverName string) Dialect {
	if driverName == config.DriverSQLite {
		return SQLite
	}
	return Postgres
}

const (
	tableName     = "interactions"
	recordColumns = "interactionid, calltype, starttime, endtime, customerphonenumber, agentname, audiofilename, tags"
	orderClause   = "ORDER BY starttime DESC, interactionid DESC"

	// Always applied: only inbound calls, never test or demo traffic.
	baselinePredicate = "(calltype = 'inbound'" +
		" AND LOWER(COALESCE(tags, '')) NOT LIKE '%test%'" +
		" AND LOWER(COALESCE(tags, '')) NOT LIKE '%demo%')"

	lowerTags = "LOWER(COALESCE(tags, ''))"
)

// Query is rendered SQL with its bound arguments, in placeholder order.
type Query struct {
	SQL  string
	Args []any
}

// Predicates is a compiled FilterSet: clauses joined with AND, and their arguments.
type Predicates struct {
	Clauses []string
	Args    []any
}

// Where renders the clauses as a WHERE body.
func (p Predicates) Where() string {
	return strings.Join(p.Clauses, " AND ")
}

type builder struct {
	dialect Dialect
	clauses []string
	args    []any
}

// bind records v and returns its placeholder. Values never enter the SQL text.
func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	if b.dialect == Postgres {
		return fmt.Sprintf("$%d", len(b.args))
	}
	return "?"
}

func (b *builder) add(clause string) {
	b.clauses = append(b.clauses, clause)
}

func (b *builder) predicates() Predicates {
	return Predicates{Clauses: b.clauses, Args: b.args}
}

// Compile turns f into predicates. Each set field adds one clause; the baseline comes last.
func Compile(d Dialect, f FilterSet) Predicates {
	b := &builder{dialect: d}
	b.filters(f)
	b.add(baselinePredicate)
	return b.predicates()
}

func (b *builder) filters(f FilterSet) {
	if f.StartDate != nil {
		b.add("starttime >= " + b.bind(f.StartDate.UTC()))
	}
	if f.EndDate != nil {
		b.add("starttime <= " + b.bind(f.EndDate.UTC()))
	}
	if f.AgentName != "" {
		b.add(`agentname LIKE ` + b.bind(escapeLike(f.AgentName)+"%") + ` ESCAPE '\'`)
	}
	if f.CallType != "" {
		b.add("calltype = " + b.bind(f.CallType))
	}
	if f.CustomerPhone != "" {
		b.add(`customerphonenumber LIKE ` + b.bind(escapeLike(f.CustomerPhone)+"%") + ` ESCAPE '\'`)
	}
	if f.InteractionID != "" {
		b.add("interactionid = " + b.bind(f.InteractionID))
	}
	if f.Company != "" {
		if c, ok := b.company(f.Company); ok {
			b.add(c)
		}
	}
	switch {
	case f.HasAudio == nil:
	case *f.HasAudio:
		b.add("(audiofilename IS NOT NULL AND audiofilename <> '')")
	default:
		b.add("(audiofilename IS NULL OR audiofilename = '')")
	}
}

// company expands a tenant into tag predicates that agree with ResolveTenant: the tags must
// hit one of the tenant's substrings and none belonging to an earlier rule.
// Unknown tenants produce no clause.
func (b *builder) company(name string) (string, bool) {
	idx, ok := tenantRuleIndex(name)
	if !ok {
		return "", false
	}

	hits := make([]string, 0, len(tenantRules[idx].substrings))
	for _, s := range tenantRules[idx].substrings {
		hits = append(hits, b.containsTag(s, false))
	}
	parts := []string{"(" + strings.Join(hits, " OR ") + ")"}
	for _, earlier := range tenantRules[:idx] {
		for _, s := range earlier.substrings {
			parts = append(parts, b.containsTag(s, true))
		}
	}
	return "(" + strings.Join(parts, " AND ") + ")", true
}

func (b *builder) containsTag(sub string, negate bool) string {
	op := "LIKE"
	if negate {
		op = "NOT LIKE"
	}
	return lowerTags + " " + op + " " + b.bind("%"+escapeLike(sub)+"%") + ` ESCAPE '\'`
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// SelectPage renders the paginated data query.
func SelectPage(d Dialect, f FilterSet, limit, offset int) Query {
	b := &builder{dialect: d}
	b.filters(f)
	b.add(baselinePredicate)
	p := b.predicates()
	text := "SELECT " + recordColumns + " FROM " + tableName +
		" WHERE " + p.Where() + " " + orderClause +
		" LIMIT " + b.bind(limit) + " OFFSET " + b.bind(offset)
	return Query{SQL: text, Args: b.args}
}

// SelectCount renders the total-count query for f.
func SelectCount(d Dialect, f FilterSet) Query {
	p := Compile(d, f)
	return Query{SQL: "SELECT COUNT(*) FROM " + tableName + " WHERE " + p.Where(), Args: p.Args}
}

// SelectByID renders a single-record lookup. Excluded records are not found.
func SelectByID(d Dialect, id string) Query {
	p := Compile(d, FilterSet{InteractionID: id})
	return Query{SQL: "SELECT " + recordColumns + " FROM " + tableName + " WHERE " + p.Where() + " LIMIT 1", Args: p.Args}
}

// distinctColumns are the columns SelectDistinct accepts.
var distinctColumns = map[string]bool{"agentname": true, "calltype": true, "tags": true}

// SelectDistinct renders the sorted distinct non-empty values of column over visible records.
func SelectDistinct(d Dialect, column string) (Query, error) {
	if !distinctColumns[column] {
		return Query{}, fmt.Errorf("%w: no distinct listing for column %q", ErrInvalidFilter, column)
	}
	return Query{SQL: "SELECT DISTINCT " + column + " FROM " + tableName +
		" WHERE " + baselinePredicate +
		" AND " + column + " IS NOT NULL AND " + column + " <> ''" +
		" ORDER BY " + column}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc rowScanner) (CallRecord, error) {
	var (
		r                            CallRecord
		start, end                   sqlTime
		callType, phone, agent, tags sql.NullString
		audio                        sql.NullString
	)
	if err := sc.Scan(&r.InteractionID, &callType, &start, &end, &phone, &agent, &audio, &tags); err != nil {
		return CallRecord{}, err
	}
	r.CallType = callType.String
	r.StartTime = start.Time
	r.EndTime = end.Time
	r.CustomerPhoneNumber = phone.String
	r.AgentName = agent.String
	r.Tags = tags.String
	if audio.Valid {
		a := audio.String
		r.AudioFileName = &a
	}
	return r.annotate(), nil
}

// sqlTime scans timestamps from drivers that return time.Time (pgx) as well as from
// SQLite extracts that store them as text.
type sqlTime struct {
	Time time.Time
}

var sqlTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func (t *sqlTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	case int64:
		t.Time = time.Unix(v, 0).UTC()
		return nil
	}
	return fmt.Errorf("recordings: cannot scan %T into timestamp", src)
}

func (t *sqlTime) parse(s string) error {
	for _, layout := range sqlTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("recordings: unrecognized timestamp %q", s)
}

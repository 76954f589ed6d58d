package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/alumnihub/backend/core"
	"github.com/alumnihub/backend/core/alumni"
)

const (
	alumniTable = "alumni"

	uniqueViolation = "23505"
)

var (
	psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	alumniColumns = []string{
		"id", "full_name", "email", "phone", "enrollment_year", "graduation_year",
		"department", "college", "course", "is_verified", "is_active", "role",
		"city", "country", "latitude", "longitude", "password_hash",
		"created_at", "updated_at", "last_login",
	}

	// orderExpressions maps orderable fields to SQL expressions.
	orderExpressions = map[string]string{
		"full_name":       "LOWER(full_name)",
		"email":           "email",
		"created_at":      "created_at",
		"graduation_year": "graduation_year",
		"enrollment_year": "enrollment_year",
		"department":      "LOWER(department)",
		"country":         "LOWER(country)",
		"is_verified":     "is_verified",
		"is_active":       "is_active",
		"role":            "CASE role WHEN 'SUPERADMIN' THEN 30 WHEN 'ADMIN' THEN 20 ELSE 1 END",
	}

	locatedCond = sq.And{
		sq.Eq{"is_verified": true},
		sq.NotEq{"latitude": nil},
		sq.NotEq{"longitude": nil},
	}
)

type alumniRow struct {
	ID             string       `db:"id"`
	FullName       string       `db:"full_name"`
	Email          string       `db:"email"`
	Phone          string       `db:"phone"`
	EnrollmentYear int          `db:"enrollment_year"`
	GraduationYear int          `db:"graduation_year"`
	Department     string       `db:"department"`
	College        string       `db:"college"`
	Course         string       `db:"course"`
	IsVerified     bool         `db:"is_verified"`
	IsActive       bool         `db:"is_active"`
	Role           string       `db:"role"`
	City           null.String  `db:"city"`
	Country        null.String  `db:"country"`
	Latitude       null.Float64 `db:"latitude"`
	Longitude      null.Float64 `db:"longitude"`
	PasswordHash   null.Bytes   `db:"password_hash"`
	CreatedAt      time.Time    `db:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at"`
	LastLogin      null.Time    `db:"last_login"`
}

func toRow(a alumni.Alumni) alumniRow {
	return alumniRow{
		ID:             a.ID,
		FullName:       a.FullName,
		Email:          a.Email,
		Phone:          a.Phone,
		EnrollmentYear: a.EnrollmentYear,
		GraduationYear: a.GraduationYear,
		Department:     a.Department,
		College:        a.College,
		Course:         a.Course,
		IsVerified:     a.IsVerified,
		IsActive:       a.IsActive,
		Role:           a.Role,
		City:           null.NewString(a.City, a.City != ""),
		Country:        null.NewString(a.Country, a.Country != ""),
		Latitude:       null.Float64FromPtr(a.Latitude),
		Longitude:      null.Float64FromPtr(a.Longitude),
		PasswordHash:   null.NewBytes(a.PasswordHash, len(a.PasswordHash) > 0),
		CreatedAt:      a.CreatedAt.UTC(),
		UpdatedAt:      a.UpdatedAt.UTC(),
		LastLogin:      null.NewTime(a.LastLogin.UTC(), !a.LastLogin.IsZero()),
	}
}

func (row alumniRow) toAlumni() alumni.Alumni {
	return alumni.Alumni{
		ID:             row.ID,
		FullName:       row.FullName,
		Email:          row.Email,
		Phone:          row.Phone,
		EnrollmentYear: row.EnrollmentYear,
		GraduationYear: row.GraduationYear,
		Department:     row.Department,
		College:        row.College,
		Course:         row.Course,
		IsVerified:     row.IsVerified,
		IsActive:       row.IsActive,
		Role:           row.Role,
		City:           row.City.String,
		Country:        row.Country.String,
		Latitude:       row.Latitude.Ptr(),
		Longitude:      row.Longitude.Ptr(),
		PasswordHash:   row.PasswordHash.Bytes,
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
		LastLogin:      row.LastLogin.Time.UTC(),
	}
}

func (row alumniRow) values() map[string]interface{} {
	return map[string]interface{}{
		"full_name":       row.FullName,
		"email":           row.Email,
		"phone":           row.Phone,
		"enrollment_year": row.EnrollmentYear,
		"graduation_year": row.GraduationYear,
		"department":      row.Department,
		"college":         row.College,
		"course":          row.Course,
		"is_verified":     row.IsVerified,
		"is_active":       row.IsActive,
		"role":            row.Role,
		"city":            row.City,
		"country":         row.Country,
		"latitude":        row.Latitude,
		"longitude":       row.Longitude,
		"password_hash":   row.PasswordHash,
		"created_at":      row.CreatedAt,
		"updated_at":      row.UpdatedAt,
		"last_login":      row.LastLogin,
	}
}

type alumniRepository struct {
	exec core.DBExecutor
}

var _ alumni.Repository = (*alumniRepository)(nil) // interface compliance check

func NewAlumniRepository(exec core.DBExecutor) *alumniRepository {
	return &alumniRepository{exec: exec}
}

func (repo alumniRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

// trapErr maps "no rows" to alumni.ErrNotFound and unique violations to alumni.ErrEmailExists.
func trapErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return alumni.ErrNotFound
	}
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
		return alumni.ErrEmailExists
	}
	return errors.Wrap(err, msg)
}

func (repo alumniRepository) selectRows(ctx context.Context, exec core.DBExecutor, qb sq.SelectBuilder) ([]alumni.Alumni, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []alumniRow
	if err = sqlx.SelectContext(ctx, exec, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "selecting alumni")
	}
	items := make([]alumni.Alumni, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toAlumni())
	}
	return items, nil
}

func checkEmailBuilder(email string, excluded []alumni.Alumni) sq.SelectBuilder {
	qb := psql.Select("COUNT(*)").From(alumniTable).Where(sq.Eq{"email": email})
	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, a := range excluded {
			ids = append(ids, a.ID)
		}
		qb = qb.Where(sq.NotEq{"id": ids})
	}
	return qb
}

func (repo alumniRepository) CheckEmailUniqueness(ctx context.Context, email string, excluded []alumni.Alumni, exec ...core.DBExecutor) error {
	query, args, err := checkEmailBuilder(email, excluded).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	var cnt int
	if err = sqlx.GetContext(ctx, repo.getExec(exec), &cnt, query, args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if cnt > 0 {
		return alumni.ErrEmailExists
	}
	return nil
}

func (repo alumniRepository) CreateAlumni(ctx context.Context, a alumni.Alumni, exec ...core.DBExecutor) (alumni.Alumni, error) {
	a.ID = uuid.New().String()
	row := toRow(a)
	vals := row.values()
	vals["id"] = row.ID

	query, args, err := psql.Insert(alumniTable).SetMap(vals).ToSql()
	if err != nil {
		return alumni.Alumni{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.getExec(exec).ExecContext(ctx, query, args...); err != nil {
		return alumni.Alumni{}, trapErr(err, "inserting alumni")
	}
	return row.toAlumni(), nil
}

func queryAlumniBuilder(filter *alumni.QueryFilter, ordering []core.DBOrdering) sq.SelectBuilder {
	qb := psql.Select(alumniColumns...).From(alumniTable)

	if filter != nil {
		// alumni with FullName, Email or Course matching the search keyword
		if filter.Search != "" {
			pattern := likePattern(filter.Search)
			qb = qb.Where(sq.Or{
				sq.ILike{"full_name": pattern},
				sq.ILike{"email": pattern},
				sq.ILike{"course": pattern},
			})
		}
		qb = whereEqualFold(qb, "department", filter.Department)
		qb = whereEqualFold(qb, "college", filter.College)
		qb = whereEqualFold(qb, "course", filter.Course)
		qb = whereEqualFold(qb, "country", filter.Country)
		qb = whereEqualFold(qb, "city", filter.City)
		if len(filter.Roles) > 0 {
			qb = qb.Where(sq.Eq{"role": filter.Roles})
		}
		if filter.IsVerified != nil {
			qb = qb.Where(sq.Eq{"is_verified": *filter.IsVerified})
		}
		if filter.IsActive != nil {
			qb = qb.Where(sq.Eq{"is_active": *filter.IsActive})
		}
		if filter.GraduationYearFrom > 0 {
			qb = qb.Where(sq.GtOrEq{"graduation_year": filter.GraduationYearFrom})
		}
		if filter.GraduationYearTo > 0 {
			qb = qb.Where(sq.LtOrEq{"graduation_year": filter.GraduationYearTo})
		}
		if !filter.CreatedFrom.IsZero() {
			qb = qb.Where(sq.GtOrEq{"created_at": filter.CreatedFrom.UTC()})
		}
		if !filter.CreatedTo.IsZero() {
			qb = qb.Where(sq.LtOrEq{"created_at": filter.CreatedTo.UTC()})
		}
	}

	orderList := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if expr, ok := orderExpressions[ord.Field]; ok {
			orderList = append(orderList, core.DBOrdering{Field: expr, Ascending: ord.Ascending}.String())
		}
	}
	orderList = append(orderList, "id ASC")
	return qb.OrderBy(orderList...)
}

func (repo alumniRepository) QueryAlumni(ctx context.Context, filter *alumni.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]alumni.Alumni, error) {
	return repo.selectRows(ctx, repo.getExec(exec), queryAlumniBuilder(filter, ordering))
}

func queryLocationsBuilder(filter *alumni.LocationFilter) sq.SelectBuilder {
	qb := psql.Select(alumniColumns...).From(alumniTable).
		Where(sq.Eq{"is_active": true}).
		Where(locatedCond)

	if filter != nil {
		if filter.Search != "" {
			pattern := likePattern(filter.Search)
			qb = qb.Where(sq.Or{
				sq.ILike{"full_name": pattern},
				sq.ILike{"course": pattern},
				sq.ILike{"department": pattern},
				sq.ILike{"city": pattern},
				sq.ILike{"country": pattern},
			})
		}
		qb = whereEqualFold(qb, "department", filter.Department)
		qb = whereEqualFold(qb, "college", filter.College)
		qb = whereEqualFold(qb, "course", filter.Course)
		qb = whereEqualFold(qb, "country", filter.Country)
		if filter.GraduationYear > 0 {
			qb = qb.Where(sq.Eq{"graduation_year": filter.GraduationYear})
		}
	}
	return qb.OrderBy("LOWER(full_name) ASC", "id ASC")
}

func (repo alumniRepository) QueryLocations(ctx context.Context, filter *alumni.LocationFilter, exec ...core.DBExecutor) ([]alumni.Alumni, error) {
	return repo.selectRows(ctx, repo.getExec(exec), queryLocationsBuilder(filter))
}

func (repo alumniRepository) GetAlumni(ctx context.Context, filter alumni.GetFilter, exec ...core.DBExecutor) (alumni.Alumni, error) {
	qb := psql.Select(alumniColumns...).From(alumniTable)
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return alumni.Alumni{}, alumni.ErrNotFound
		}
		qb = qb.Where(sq.Eq{"id": filter.ID})
	case filter.Email != "":
		qb = qb.Where(sq.Eq{"email": filter.Email})
	default:
		return alumni.Alumni{}, alumni.ErrNotFound
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return alumni.Alumni{}, errors.Wrap(err, "building query")
	}
	var row alumniRow
	if err = sqlx.GetContext(ctx, repo.getExec(exec), &row, query, args...); err != nil {
		return alumni.Alumni{}, trapErr(err, "finding alumni")
	}
	return row.toAlumni(), nil
}

type statTotals struct {
	Total     int `db:"total"`
	Verified  int `db:"verified"`
	Located   int `db:"located"`
	Countries int `db:"countries"`
}

func statTotalsBuilder() sq.SelectBuilder {
	return psql.Select(
		"COUNT(*) AS total",
		"COUNT(*) FILTER (WHERE is_verified) AS verified",
		"COUNT(*) FILTER (WHERE is_verified AND latitude IS NOT NULL AND longitude IS NOT NULL) AS located",
		"COUNT(DISTINCT country) FILTER (WHERE is_verified AND latitude IS NOT NULL AND longitude IS NOT NULL AND country <> '') AS countries",
	).From(alumniTable).Where(sq.Eq{"is_active": true})
}

func groupCountBuilder(labelExpr, groupBy string, conds ...sq.Sqlizer) sq.SelectBuilder {
	qb := psql.Select(labelExpr+" AS label", "COUNT(*) AS count").
		From(alumniTable).
		Where(sq.Eq{"is_active": true})
	for _, cond := range conds {
		qb = qb.Where(cond)
	}
	return qb.GroupBy(groupBy).OrderBy("count DESC", "label ASC")
}

func (repo alumniRepository) groupCount(ctx context.Context, exec core.DBExecutor, qb sq.SelectBuilder) ([]alumni.StatCount, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	scs := make([]alumni.StatCount, 0)
	var rows []struct {
		Label string `db:"label"`
		Count int    `db:"count"`
	}
	if err = sqlx.SelectContext(ctx, exec, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "counting alumni")
	}
	for _, row := range rows {
		scs = append(scs, alumni.StatCount{Label: row.Label, Count: row.Count})
	}
	alumni.SortStatCounts(scs)
	return scs, nil
}

func (repo alumniRepository) GetStats(ctx context.Context, exec ...core.DBExecutor) (alumni.Stats, error) {
	exe := repo.getExec(exec)

	query, args, err := statTotalsBuilder().ToSql()
	if err != nil {
		return alumni.Stats{}, errors.Wrap(err, "building query")
	}
	var totals statTotals
	if err = sqlx.GetContext(ctx, exe, &totals, query, args...); err != nil {
		return alumni.Stats{}, errors.Wrap(err, "counting alumni")
	}

	st := alumni.Stats{
		TotalAlumni:         totals.Total,
		VerifiedAlumni:      totals.Verified,
		PendingVerification: totals.Total - totals.Verified,
		LocatedAlumni:       totals.Located,
		Countries:           totals.Countries,
	}
	if st.ByCountry, err = repo.groupCount(ctx, exe, groupCountBuilder("country", "country", locatedCond, sq.NotEq{"country": ""})); err != nil {
		return alumni.Stats{}, errors.Wrap(err, "counting by country")
	}
	if st.ByDepartment, err = repo.groupCount(ctx, exe, groupCountBuilder("department", "department", sq.NotEq{"department": ""})); err != nil {
		return alumni.Stats{}, errors.Wrap(err, "counting by department")
	}
	if st.ByGraduationYear, err = repo.groupCount(ctx, exe, groupCountBuilder("graduation_year::text", "graduation_year", sq.Gt{"graduation_year": 0})); err != nil {
		return alumni.Stats{}, errors.Wrap(err, "counting by graduation year")
	}
	return st, nil
}

func (repo alumniRepository) UpdateAlumni(ctx context.Context, a alumni.Alumni, exec ...core.DBExecutor) (alumni.Alumni, error) {
	if _, err := uuid.Parse(a.ID); err != nil {
		return alumni.Alumni{}, alumni.ErrNotFound
	}
	row := toRow(a)
	vals := row.values()
	delete(vals, "created_at")

	query, args, err := psql.Update(alumniTable).SetMap(vals).Where(sq.Eq{"id": row.ID}).ToSql()
	if err != nil {
		return alumni.Alumni{}, errors.Wrap(err, "building query")
	}
	res, err := repo.getExec(exec).ExecContext(ctx, query, args...)
	if err != nil {
		return alumni.Alumni{}, trapErr(err, "updating alumni")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return alumni.Alumni{}, alumni.ErrNotFound
	}
	return row.toAlumni(), nil
}

func (repo alumniRepository) UpdateOrCreateAlumni(ctx context.Context, a alumni.Alumni, exec ...core.DBExecutor) (alumni.Alumni, error) {
	if a.ID == "" {
		return repo.CreateAlumni(ctx, a, exec...)
	}
	return repo.UpdateAlumni(ctx, a, exec...)
}

func (repo alumniRepository) DeleteAlumniByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return 0, nil
	}

	query, args, err := psql.Delete(alumniTable).Where(sq.Eq{"id": valid}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := repo.getExec(exec).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting alumni")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting alumni")
	}
	return int(cnt), nil
}

func whereEqualFold(qb sq.SelectBuilder, column, val string) sq.SelectBuilder {
	if val == "" {
		return qb
	}
	return qb.Where(sq.Expr("LOWER("+column+") = ?", strings.ToLower(val)))
}

// likePattern escapes the LIKE wildcards in s and wraps it for a "contains" match.
func likePattern(s string) string {
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}

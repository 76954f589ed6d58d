package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/alumnihub/backend/core"
	"github.com/alumnihub/backend/core/alumni"
)

type alumniRepository struct {
	db *alumniTable
}

var _ alumni.Repository = (*alumniRepository)(nil) // interface compliance check

func NewAlumniRepository(db *DB) alumni.Repository {
	return &alumniRepository{db: db.alumni}
}

// query returns copies of every row. The caller must hold the lock.
func (repo *alumniRepository) query() []alumni.Alumni {
	items := make([]alumni.Alumni, 0, len(repo.db.table))
	for _, a := range repo.db.table {
		items = append(items, *a)
	}
	return items
}

func (repo *alumniRepository) CheckEmailUniqueness(_ context.Context, email string, excluded []alumni.Alumni, _ ...core.DBExecutor) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, a := range repo.db.table {
		if a.Email == email && !isExcluded(*a, excluded) {
			return alumni.ErrEmailExists
		}
	}
	return nil
}

func (repo *alumniRepository) CreateAlumni(_ context.Context, a alumni.Alumni, _ ...core.DBExecutor) (alumni.Alumni, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, other := range repo.db.table {
		if other.Email == a.Email {
			return alumni.Alumni{}, alumni.ErrEmailExists
		}
	}
	a.ID = uuid.New().String()
	repo.db.table[a.ID] = &a
	return a, nil
}

func (repo *alumniRepository) QueryAlumni(_ context.Context, filter *alumni.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]alumni.Alumni, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	items := make([]alumni.Alumni, 0)
	for _, a := range repo.query() {
		if matchQueryFilter(a, filter) {
			items = append(items, a)
		}
	}
	sortAlumni(items, ordering)
	return items, nil
}

func (repo *alumniRepository) QueryLocations(_ context.Context, filter *alumni.LocationFilter, _ ...core.DBExecutor) ([]alumni.Alumni, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	items := make([]alumni.Alumni, 0)
	for _, a := range repo.query() {
		if a.IsVerified && a.IsActive && a.HasLocation() && matchLocationFilter(a, filter) {
			items = append(items, a)
		}
	}
	sortAlumni(items, []core.DBOrdering{{Field: "full_name", Ascending: true}})
	return items, nil
}

func (repo *alumniRepository) GetAlumni(_ context.Context, filter alumni.GetFilter, _ ...core.DBExecutor) (alumni.Alumni, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if a, ok := repo.db.table[filter.ID]; ok {
			return *a, nil
		}
		return alumni.Alumni{}, alumni.ErrNotFound
	}
	if filter.Email != "" {
		for _, a := range repo.db.table {
			if a.Email == filter.Email {
				return *a, nil
			}
		}
	}
	return alumni.Alumni{}, alumni.ErrNotFound
}

func (repo *alumniRepository) GetStats(_ context.Context, _ ...core.DBExecutor) (alumni.Stats, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return alumni.ComputeStats(repo.query()), nil
}

func (repo *alumniRepository) UpdateAlumni(_ context.Context, a alumni.Alumni, _ ...core.DBExecutor) (alumni.Alumni, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[a.ID]; !ok {
		return alumni.Alumni{}, alumni.ErrNotFound
	}
	for id, other := range repo.db.table {
		if id != a.ID && other.Email == a.Email {
			return alumni.Alumni{}, alumni.ErrEmailExists
		}
	}
	repo.db.table[a.ID] = &a
	return a, nil
}

func (repo *alumniRepository) UpdateOrCreateAlumni(ctx context.Context, a alumni.Alumni, exec ...core.DBExecutor) (alumni.Alumni, error) {
	if a.ID == "" {
		return repo.CreateAlumni(ctx, a, exec...)
	}
	return repo.UpdateAlumni(ctx, a, exec...)
}

func (repo *alumniRepository) DeleteAlumniByID(_ context.Context, ids []string, _ ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.table[id]; ok {
			delete(repo.db.table, id)
			cnt++
		}
	}
	return cnt, nil
}

func isExcluded(a alumni.Alumni, excluded []alumni.Alumni) bool {
	for _, ex := range excluded {
		if ex.ID == a.ID {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// equalFoldOrEmpty reports whether want is empty or matches s case-insensitively.
func equalFoldOrEmpty(s, want string) bool {
	return want == "" || strings.EqualFold(s, want)
}

func matchQueryFilter(a alumni.Alumni, filter *alumni.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Search != "" &&
		!(containsFold(a.FullName, filter.Search) || containsFold(a.Email, filter.Search) || containsFold(a.Course, filter.Search)) {
		return false
	}
	if !(equalFoldOrEmpty(a.Department, filter.Department) &&
		equalFoldOrEmpty(a.College, filter.College) &&
		equalFoldOrEmpty(a.Course, filter.Course) &&
		equalFoldOrEmpty(a.Country, filter.Country) &&
		equalFoldOrEmpty(a.City, filter.City)) {
		return false
	}
	if len(filter.Roles) > 0 {
		var found bool
		for _, role := range filter.Roles {
			if a.Role == role {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.IsVerified != nil && a.IsVerified != *filter.IsVerified {
		return false
	}
	if filter.IsActive != nil && a.IsActive != *filter.IsActive {
		return false
	}
	if filter.GraduationYearFrom > 0 && a.GraduationYear < filter.GraduationYearFrom {
		return false
	}
	if filter.GraduationYearTo > 0 && a.GraduationYear > filter.GraduationYearTo {
		return false
	}
	if !filter.CreatedFrom.IsZero() && a.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && a.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

func matchLocationFilter(a alumni.Alumni, filter *alumni.LocationFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Search != "" &&
		!(containsFold(a.FullName, filter.Search) ||
			containsFold(a.Course, filter.Search) ||
			containsFold(a.Department, filter.Search) ||
			containsFold(a.City, filter.Search) ||
			containsFold(a.Country, filter.Search)) {
		return false
	}
	if filter.GraduationYear > 0 && a.GraduationYear != filter.GraduationYear {
		return false
	}
	return equalFoldOrEmpty(a.Department, filter.Department) &&
		equalFoldOrEmpty(a.College, filter.College) &&
		equalFoldOrEmpty(a.Course, filter.Course) &&
		equalFoldOrEmpty(a.Country, filter.Country)
}

// sortAlumni sorts items by the given orderings, falling back to the ID to keep the order stable.
func sortAlumni(items []alumni.Alumni, ordering []core.DBOrdering) {
	sort.SliceStable(items, func(i, j int) bool {
		for _, ord := range ordering {
			c := compareField(items[i], items[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return items[i].ID < items[j].ID
	})
}

func compareField(a, b alumni.Alumni, field string) int {
	switch field {
	case "full_name":
		return strings.Compare(strings.ToLower(a.FullName), strings.ToLower(b.FullName))
	case "email":
		return strings.Compare(a.Email, b.Email)
	case "created_at":
		return compareInt64(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano())
	case "graduation_year":
		return compareInt64(int64(a.GraduationYear), int64(b.GraduationYear))
	case "enrollment_year":
		return compareInt64(int64(a.EnrollmentYear), int64(b.EnrollmentYear))
	case "department":
		return strings.Compare(strings.ToLower(a.Department), strings.ToLower(b.Department))
	case "country":
		return strings.Compare(strings.ToLower(a.Country), strings.ToLower(b.Country))
	case "is_verified":
		return compareBool(a.IsVerified, b.IsVerified)
	case "is_active":
		return compareBool(a.IsActive, b.IsActive)
	case "role":
		return compareInt64(int64(alumni.RolePriority(a.Role)), int64(alumni.RolePriority(b.Role)))
	}
	return 0
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a: // false < true, as in postgres
		return -1
	}
	return 1
}

package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/locvowork/attendance_bot/internal/domain"
)

// memStore is an in-memory stand-in for the Postgres repositories. It
// enforces the same uniqueness rules as the schema.
type memStore struct {
	mu        sync.Mutex
	employees []domain.Employee
	marks     []domain.AttendanceMark
	// failWith, when set, is returned by every call.
	failWith error
	queries  int
}

func newMemStore() *memStore { return &memStore{} }

func (s *memStore) enter() error {
	s.queries++
	return s.failWith
}

// ---- domain.EmployeeRepository ----

func (s *memStore) Create(ctx context.Context, e domain.NewEmployee) (*domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(); err != nil {
		return nil, err
	}
	if e.TelegramID != nil {
		for _, existing := range s.employees {
			if existing.TelegramID != nil && *existing.TelegramID == *e.TelegramID {
				return nil, fmt.Errorf("create employee: %w", domain.ErrDuplicateBinding)
			}
		}
	}
	created := domain.Employee{
		ID:             int64(len(s.employees) + 1),
		FullName:       e.FullName,
		Position:       e.Position,
		TelegramID:     e.TelegramID,
		IsActive:       true,
		RegisteredDate: time.Now(),
	}
	s.employees = append(s.employees, created)
	return &created, nil
}

func (s *memStore) GetByID(ctx context.Context, id int64) (*domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(); err != nil {
		return nil, err
	}
	for _, e := range s.employees {
		if e.ID == id {
			e := e
			return &e, nil
		}
	}
	return nil, fmt.Errorf("get employee: %w", domain.ErrNotFound)
}

func (s *memStore) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(); err != nil {
		return nil, err
	}
	for _, e := range s.employees {
		if e.TelegramID != nil && *e.TelegramID == telegramID {
			e := e
			return &e, nil
		}
	}
	return nil, fmt.Errorf("get employee by principal: %w", domain.ErrNotFound)
}

func (s *memStore) List(ctx context.Context, filter domain.EmployeeFilter) ([]domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(); err != nil {
		return nil, err
	}
	out := []domain.Employee{}
	for _, e := range s.employees {
		if filter.ActiveOnly && !e.IsActive {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsActive != out[j].IsActive {
			return out[i].IsActive
		}
		return out[i].FullName < out[j].FullName
	})
	return out, nil
}

func (s *memStore) Count(ctx context.Context, filter domain.EmployeeFilter) (int, error) {
	list, err := s.List(ctx, filter)
	return len(list), err
}

// ---- domain.AttendanceRepository ----

type memAttendance struct{ *memStore }

func (a memAttendance) Mark(ctx context.Context, employeeID int64, day domain.Date) (*domain.AttendanceMark, error) {
	s := a.memStore
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(); err != nil {
		return nil, err
	}
	for _, m := range s.marks {
		if m.EmployeeID == employeeID && m.CheckDate == day {
			return nil, fmt.Errorf("mark attendance: %w", domain.ErrAlreadyMarked)
		}
	}
	m := domain.AttendanceMark{
		ID:         int64(len(s.marks) + 1),
		EmployeeID: employeeID,
		CheckDate:  day,
		MarkedDate: time.Now(),
	}
	s.marks = append(s.marks, m)
	return &m, nil
}

func (a memAttendance) ListByEmployee(ctx context.Context, employeeID int64) ([]domain.AttendanceMark, error) {
	s := a.memStore
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(); err != nil {
		return nil, err
	}
	out := []domain.AttendanceMark{}
	for _, m := range s.marks {
		if m.EmployeeID == employeeID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckDate.After(out[j].CheckDate) })
	return out, nil
}

// ---- domain.ReportRepository ----

type memReports struct{ *memStore }

func (r memReports) General(ctx context.Context) (*domain.GeneralReport, error) {
	s := r.memStore
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(); err != nil {
		return nil, err
	}
	rep := &domain.GeneralReport{TotalEmployees: len(s.employees), TotalMarks: len(s.marks)}
	dates := map[domain.Date]bool{}
	for _, m := range s.marks {
		dates[m.CheckDate] = true
	}
	rep.DistinctDates = len(dates)
	for _, e := range s.employees {
		if e.IsActive {
			rep.ActiveEmployees++
		}
	}
	rep.PerEmployee = s.countsLocked(func(domain.Date) bool { return true }, true)
	return rep, nil
}

func (r memReports) Period(ctx context.Context, start, end domain.Date) ([]domain.EmployeeMarkCount, error) {
	s := r.memStore
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(); err != nil {
		return nil, err
	}
	return s.countsLocked(func(d domain.Date) bool { return !d.Before(start) && !d.After(end) }, false), nil
}

func (s *memStore) countsLocked(in func(domain.Date) bool, keepInactive bool) []domain.EmployeeMarkCount {
	out := []domain.EmployeeMarkCount{}
	for _, e := range s.employees {
		c := domain.EmployeeMarkCount{EmployeeID: e.ID, FullName: e.FullName, IsActive: e.IsActive}
		for _, m := range s.marks {
			if m.EmployeeID == e.ID && in(m.CheckDate) {
				c.Marks++
			}
		}
		if c.Marks == 0 && !e.IsActive && !keepInactive {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Marks != out[j].Marks {
			return out[i].Marks > out[j].Marks
		}
		if out[i].FullName != out[j].FullName {
			return out[i].FullName < out[j].FullName
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out
}

// ---- domain.AdminRepository ----

type memAdmins struct {
	mu       sync.Mutex
	ids      map[int64]string
	failWith error
	checks   int
}

func newMemAdmins(ids ...int64) *memAdmins {
	a := &memAdmins{ids: map[int64]string{}}
	for _, id := range ids {
		a.ids[id] = ""
	}
	return a
}

func (a *memAdmins) Exists(ctx context.Context, userID int64) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.checks++
	if a.failWith != nil {
		return false, a.failWith
	}
	_, ok := a.ids[userID]
	return ok, nil
}

func (a *memAdmins) Add(ctx context.Context, userID int64, username string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failWith != nil {
		return false, a.failWith
	}
	if _, ok := a.ids[userID]; ok {
		return false, nil
	}
	a.ids[userID] = username
	return true, nil
}

func (a *memAdmins) Remove(ctx context.Context, userID int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failWith != nil {
		return a.failWith
	}
	delete(a.ids, userID)
	return nil
}

func (a *memAdmins) List(ctx context.Context) ([]domain.AdminPrincipal, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failWith != nil {
		return nil, a.failWith
	}
	out := []domain.AdminPrincipal{}
	for id := range a.ids {
		out = append(out, domain.AdminPrincipal{UserID: id})
	}
	return out, nil
}

func newTestLedger(s *memStore, today domain.Date) *Ledger {
	l := NewLedger(s, memAttendance{s}, memReports{s}, time.UTC)
	l.now = func() time.Time { return today.Time().Add(12 * time.Hour) }
	return l
}

func strPtr(s string) *string { return &s }
func int64Ptr(i int64) *int64 { return &i }

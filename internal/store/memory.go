package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
)

// MemoryStore is a Store held in process memory. Reads return copies.
type MemoryStore struct {
	mu          sync.RWMutex
	students    map[int64]Student
	mentors     map[int64]Mentor
	companies   map[int64]Company
	projects    map[int64]Project
	subjects    map[int64]Subject
	enrollments map[int64]Enrollment
	competences map[int64]Competence
	activities  map[int64]Activity
	grades      map[int64]map[int64]int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		students:    make(map[int64]Student),
		mentors:     make(map[int64]Mentor),
		companies:   make(map[int64]Company),
		projects:    make(map[int64]Project),
		subjects:    make(map[int64]Subject),
		enrollments: make(map[int64]Enrollment),
		competences: make(map[int64]Competence),
		activities:  make(map[int64]Activity),
		grades:      make(map[int64]map[int64]int),
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) Project(_ context.Context, id int64) (*Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	p = m.joinProject(p)
	return &p, nil
}

func (m *MemoryStore) ProjectsByMentor(_ context.Context, mentorID int64) ([]Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Project
	for _, id := range sortedKeys(m.projects) {
		if p := m.projects[id]; p.MentorID == mentorID {
			out = append(out, m.joinProject(p))
		}
	}
	return out, nil
}

func (m *MemoryStore) joinProject(p Project) Project {
	if s, ok := m.students[p.StudentID]; ok {
		p.Student = &s
	}
	if mt, ok := m.mentors[p.MentorID]; ok {
		p.Mentor = &mt
	}
	if c, ok := m.companies[p.CompanyID]; ok {
		p.Company = &c
	}
	return p
}

func (m *MemoryStore) Enrollments(_ context.Context, studentID, periodID int64) ([]Enrollment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Enrollment
	for _, id := range sortedKeys(m.enrollments) {
		e := m.enrollments[id]
		if e.StudentID != studentID || e.PeriodID != periodID {
			continue
		}
		if s, ok := m.subjects[e.SubjectID]; ok {
			e.Subject = &s
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *MemoryStore) Competences(_ context.Context, subjectIDs []int64) ([]Competence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Competence
	for _, c := range m.competences {
		if !slices.Contains(subjectIDs, c.SubjectID) {
			continue
		}
		if s, ok := m.subjects[c.SubjectID]; ok {
			c.Subject = &s
		}
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Competence) int {
		return cmp.Or(
			cmp.Compare(a.SubjectID, b.SubjectID),
			cmp.Compare(a.Numero, b.Numero),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return out, nil
}

func (m *MemoryStore) Activities(_ context.Context, competenceIDs []int64) ([]Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Activity
	for _, a := range m.activities {
		if slices.Contains(competenceIDs, a.CompetenceID) {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b Activity) int {
		return cmp.Or(cmp.Compare(a.CompetenceID, b.CompetenceID), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (m *MemoryStore) Grades(_ context.Context, projectID int64) (map[int64]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[int64]int, len(m.grades[projectID]))
	for k, v := range m.grades[projectID] {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) SaveGrades(_ context.Context, projectID int64, grades map[int64]int, average int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[projectID]
	if !ok {
		return fmt.Errorf("update project %d: %w", projectID, ErrNotFound)
	}
	saved := m.grades[projectID]
	if saved == nil {
		saved = make(map[int64]int, len(grades))
		m.grades[projectID] = saved
	}
	for k, v := range grades {
		saved[k] = v
	}
	p.CalificacionUE = average
	m.projects[projectID] = p
	return nil
}

func (m *MemoryStore) MarkAnexo54Sent(_ context.Context, projectID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[projectID]
	if !ok {
		return fmt.Errorf("mark project %d: %w", projectID, ErrNotFound)
	}
	p.Anexo54Enviado = true
	m.projects[projectID] = p
	return nil
}

func (m *MemoryStore) Seed(_ context.Context, d Dataset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range d.Students {
		m.students[v.ID] = v
	}
	for _, v := range d.Mentors {
		m.mentors[v.ID] = v
	}
	for _, v := range d.Companies {
		m.companies[v.ID] = v
	}
	for _, v := range d.Projects {
		v.Student, v.Mentor, v.Company = nil, nil, nil
		m.projects[v.ID] = v
	}
	for _, v := range d.Subjects {
		m.subjects[v.ID] = v
	}
	for _, v := range d.Enrollments {
		v.Subject = nil
		m.enrollments[v.ID] = v
	}
	for _, v := range d.Competences {
		v.Subject = nil
		m.competences[v.ID] = v
	}
	for _, v := range d.Activities {
		m.activities[v.ID] = v
	}
	return nil
}

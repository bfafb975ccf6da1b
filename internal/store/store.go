// Package store reads and writes the records that feed document contexts.
package store

import (
	"context"
	"errors"
	"slices"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the data access used by the evaluation workflow. Reads of a
// record with foreign keys return the referenced records joined in.
type Store interface {
	// Project returns a project with its student, mentor and company.
	Project(ctx context.Context, id int64) (*Project, error)
	// ProjectsByMentor lists the projects supervised by a mentor.
	ProjectsByMentor(ctx context.Context, mentorID int64) ([]Project, error)
	// Enrollments lists a student's subjects in a period, with the subject.
	Enrollments(ctx context.Context, studentID, periodID int64) ([]Enrollment, error)
	// Competences lists the competences of any of the subjects.
	Competences(ctx context.Context, subjectIDs []int64) ([]Competence, error)
	// Activities lists the activities of any of the competences.
	Activities(ctx context.Context, competenceIDs []int64) ([]Activity, error)
	// Grades returns the activity levels recorded for a project.
	Grades(ctx context.Context, projectID int64) (map[int64]int, error)
	// SaveGrades upserts activity levels and stores the project average.
	SaveGrades(ctx context.Context, projectID int64, grades map[int64]int, average int) error
	// MarkAnexo54Sent flags the project's evaluation document as delivered.
	MarkAnexo54Sent(ctx context.Context, projectID int64) error
	// Seed upserts a dataset.
	Seed(ctx context.Context, d Dataset) error
	Close() error
}

// Dataset is a batch of records for seeding a store.
type Dataset struct {
	Students    []Student    `yaml:"alumnos"`
	Mentors     []Mentor     `yaml:"mentores_ue"`
	Companies   []Company    `yaml:"unidades_economicas"`
	Projects    []Project    `yaml:"proyectos_dual"`
	Subjects    []Subject    `yaml:"asignaturas"`
	Enrollments []Enrollment `yaml:"inscripciones_asignaturas"`
	Competences []Competence `yaml:"asignatura_competencias"`
	Activities  []Activity   `yaml:"actividades_aprendizaje"`
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() Dataset {
	return Dataset{
		Students: []Student{{
			ID: 1, Matricula: "A001", Nombre: "Ana", ApPaterno: "López", ApMaterno: "Ruiz",
			EmailPersonal: "ana@mail.com", EmailInstitucional: "a001@uni.mx", Carrera: "Sistemas",
		}},
		Mentors:   []Mentor{{ID: 7, NombreCompleto: "Luis Pérez", Email: "luis@acme.mx", Cargo: "Gerente"}},
		Companies: []Company{{ID: 3, Nombre: "ACME"}},
		Projects: []Project{
			{ID: 10, StudentID: 1, PeriodID: 2, MentorID: 7, CompanyID: 3, Nombre: "Portal"},
			{ID: 11, StudentID: 1, PeriodID: 3, MentorID: 8, CompanyID: 3, Nombre: "Otro"},
		},
		Subjects: []Subject{
			{ID: 20, Clave: "RED-1", Nombre: "Redes"},
			{ID: 21, Clave: "SO-1", Nombre: "Sistemas Operativos"},
			{ID: 22, Clave: "X", Nombre: "Sin inscribir"},
		},
		Enrollments: []Enrollment{
			{ID: 30, StudentID: 1, PeriodID: 2, SubjectID: 20},
			{ID: 31, StudentID: 1, PeriodID: 2, SubjectID: 21},
			{ID: 32, StudentID: 1, PeriodID: 9, SubjectID: 22},
		},
		Competences: []Competence{
			{ID: 41, SubjectID: 21, Numero: 1, Descripcion: "Administra Linux"},
			{ID: 40, SubjectID: 20, Numero: 2, Descripcion: "Configura VLAN"},
			{ID: 42, SubjectID: 20, Numero: 1, Descripcion: "Diseña redes"},
			{ID: 43, SubjectID: 22, Numero: 1, Descripcion: "Fuera"},
		},
		Activities: []Activity{
			{ID: 51, CompetenceID: 42, Descripcion: "Topología", Evidencia: "Diagrama", Horas: 10},
			{ID: 50, CompetenceID: 42, Descripcion: "Cableado", Evidencia: "Fotos", Horas: 5},
			{ID: 52, CompetenceID: 41, Descripcion: "Usuarios", Evidencia: "Script", Horas: 8},
			{ID: 53, CompetenceID: 43, Descripcion: "Fuera", Horas: 1},
		},
	}
}

func implementations(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	sqlStore, err := Open(ctx, "file:"+filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlStore.Close() })

	stores := map[string]Store{
		"sql":    sqlStore,
		"memory": NewMemoryStore(),
	}
	for _, s := range stores {
		require.NoError(t, s.Seed(ctx, fixture()))
	}
	return stores
}

func TestProjectJoins(t *testing.T) {
	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			p, err := s.Project(context.Background(), 10)
			require.NoError(t, err)
			assert.Equal(t, "Portal", p.Nombre)
			require.NotNil(t, p.Student)
			require.NotNil(t, p.Mentor)
			require.NotNil(t, p.Company)
			assert.Equal(t, "Ana López Ruiz", p.Student.FullName())
			assert.Equal(t, "a001@uni.mx", p.Student.Email())
			assert.Equal(t, "Luis Pérez", p.Mentor.NombreCompleto)
			assert.Equal(t, "ACME", p.Company.Nombre)
			assert.False(t, p.Anexo54Enviado)
		})
	}
}

func TestProjectNotFound(t *testing.T) {
	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Project(context.Background(), 999)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, s.MarkAnexo54Sent(context.Background(), 999), ErrNotFound)
			assert.ErrorIs(t, s.SaveGrades(context.Background(), 999, nil, 0), ErrNotFound)
		})
	}
}

func TestProjectsByMentor(t *testing.T) {
	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			projects, err := s.ProjectsByMentor(context.Background(), 7)
			require.NoError(t, err)
			require.Len(t, projects, 1)
			assert.Equal(t, int64(10), projects[0].ID)
			require.NotNil(t, projects[0].Student)
			assert.Equal(t, "A001", projects[0].Student.Matricula)

			none, err := s.ProjectsByMentor(context.Background(), 99)
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestCurriculumReads(t *testing.T) {
	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			enrollments, err := s.Enrollments(ctx, 1, 2)
			require.NoError(t, err)
			require.Len(t, enrollments, 2)
			var subjectIDs []int64
			var subjects []string
			for _, e := range enrollments {
				require.NotNil(t, e.Subject)
				subjectIDs = append(subjectIDs, e.SubjectID)
				subjects = append(subjects, e.Subject.Nombre)
			}
			assert.Equal(t, []string{"Redes", "Sistemas Operativos"}, subjects)

			competences, err := s.Competences(ctx, subjectIDs)
			require.NoError(t, err)
			var ids []int64
			for _, c := range competences {
				require.NotNil(t, c.Subject)
				ids = append(ids, c.ID)
			}
			assert.Equal(t, []int64{42, 40, 41}, ids)

			activities, err := s.Activities(ctx, ids)
			require.NoError(t, err)
			var activityIDs []int64
			for _, a := range activities {
				activityIDs = append(activityIDs, a.ID)
			}
			assert.Equal(t, []int64{52, 50, 51}, activityIDs)

			empty, err := s.Competences(ctx, nil)
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestSaveGrades(t *testing.T) {
	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.SaveGrades(ctx, 10, map[int64]int{50: 80, 51: 100}, 90))
			require.NoError(t, s.SaveGrades(ctx, 10, map[int64]int{51: 70, 52: 90}, 80))

			grades, err := s.Grades(ctx, 10)
			require.NoError(t, err)
			assert.Equal(t, map[int64]int{50: 80, 51: 70, 52: 90}, grades)

			p, err := s.Project(ctx, 10)
			require.NoError(t, err)
			assert.Equal(t, 80, p.CalificacionUE)

			other, err := s.Grades(ctx, 11)
			require.NoError(t, err)
			assert.Empty(t, other)
		})
	}
}

func TestMarkAnexo54Sent(t *testing.T) {
	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.MarkAnexo54Sent(ctx, 10))
			p, err := s.Project(ctx, 10)
			require.NoError(t, err)
			assert.True(t, p.Anexo54Enviado)
		})
	}
}

func TestSeedUpserts(t *testing.T) {
	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			d := Dataset{Students: []Student{{ID: 1, Matricula: "A001", Nombre: "Ana María"}}}
			require.NoError(t, s.Seed(ctx, d))
			p, err := s.Project(ctx, 10)
			require.NoError(t, err)
			require.NotNil(t, p.Student)
			assert.Equal(t, "Ana María", p.Student.FullName())
			assert.Equal(t, "", p.Student.Email())
		})
	}
}

func TestStudentEmailFallback(t *testing.T) {
	assert.Equal(t, "p@mail.com", Student{EmailPersonal: "p@mail.com"}.Email())
	assert.Equal(t, "Ana", Student{Nombre: "Ana"}.FullName())
}

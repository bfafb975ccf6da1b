package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

var models = []any{
	(*Student)(nil),
	(*Mentor)(nil),
	(*Company)(nil),
	(*Project)(nil),
	(*Subject)(nil),
	(*Enrollment)(nil),
	(*Competence)(nil),
	(*Activity)(nil),
	(*Grade)(nil),
}

// SQLStore is a Store on a SQLite database.
type SQLStore struct {
	db *bun.DB
}

var _ Store = (*SQLStore)(nil)

// Open connects to the SQLite database at dsn and creates missing tables.
func Open(ctx context.Context, dsn string) (*SQLStore, error) {
	sqlDB, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)

	db := bun.NewDB(sqlDB, sqlitedialect.New())
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	return &SQLStore{db: db}, nil
}

// DB exposes the underlying bun handle.
func (s *SQLStore) DB() *bun.DB { return s.db }

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) Project(ctx context.Context, id int64) (*Project, error) {
	p := new(Project)
	err := s.db.NewSelect().
		Model(p).
		Relation("Student").
		Relation("Mentor").
		Relation("Company").
		Where("p.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("project %d: %w", id, err)
	}
	return p, nil
}

func (s *SQLStore) ProjectsByMentor(ctx context.Context, mentorID int64) ([]Project, error) {
	var projects []Project
	err := s.db.NewSelect().
		Model(&projects).
		Relation("Student").
		Relation("Mentor").
		Relation("Company").
		Where("p.mentor_ue_id = ?", mentorID).
		Order("p.id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("projects of mentor %d: %w", mentorID, err)
	}
	return projects, nil
}

func (s *SQLStore) Enrollments(ctx context.Context, studentID, periodID int64) ([]Enrollment, error) {
	var enrollments []Enrollment
	err := s.db.NewSelect().
		Model(&enrollments).
		Relation("Subject").
		Where("i.alumno_id = ?", studentID).
		Where("i.periodo_id = ?", periodID).
		Order("i.id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("enrollments of student %d: %w", studentID, err)
	}
	return enrollments, nil
}

func (s *SQLStore) Competences(ctx context.Context, subjectIDs []int64) ([]Competence, error) {
	if len(subjectIDs) == 0 {
		return nil, nil
	}
	var competences []Competence
	err := s.db.NewSelect().
		Model(&competences).
		Relation("Subject").
		Where("c.asignatura_id IN (?)", bun.In(subjectIDs)).
		Order("c.asignatura_id", "c.numero_competencia", "c.id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("competences: %w", err)
	}
	return competences, nil
}

func (s *SQLStore) Activities(ctx context.Context, competenceIDs []int64) ([]Activity, error) {
	if len(competenceIDs) == 0 {
		return nil, nil
	}
	var activities []Activity
	err := s.db.NewSelect().
		Model(&activities).
		Where("act.competencia_id IN (?)", bun.In(competenceIDs)).
		Order("act.competencia_id", "act.id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("activities: %w", err)
	}
	return activities, nil
}

func (s *SQLStore) Grades(ctx context.Context, projectID int64) (map[int64]int, error) {
	var grades []Grade
	err := s.db.NewSelect().
		Model(&grades).
		Where("g.proyecto_id = ?", projectID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("grades of project %d: %w", projectID, err)
	}
	out := make(map[int64]int, len(grades))
	for _, g := range grades {
		out[g.ActivityID] = g.Level
	}
	return out, nil
}

func (s *SQLStore) SaveGrades(ctx context.Context, projectID int64, grades map[int64]int, average int) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if len(grades) > 0 {
			rows := make([]Grade, 0, len(grades))
			for _, id := range sortedKeys(grades) {
				rows = append(rows, Grade{ProjectID: projectID, ActivityID: id, Level: grades[id]})
			}
			_, err := tx.NewInsert().
				Model(&rows).
				On("CONFLICT (proyecto_id, actividad_id) DO UPDATE").
				Set("nivel = EXCLUDED.nivel").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("save grades of project %d: %w", projectID, err)
			}
		}
		res, err := tx.NewUpdate().
			Model((*Project)(nil)).
			Set("calificacion_ue = ?", average).
			Where("p.id = ?", projectID).
			Exec(ctx)
		return affected(res, err, "update project %d", projectID)
	})
}

func (s *SQLStore) MarkAnexo54Sent(ctx context.Context, projectID int64) error {
	res, err := s.db.NewUpdate().
		Model((*Project)(nil)).
		Set("anexo_54_enviado = ?", true).
		Where("p.id = ?", projectID).
		Exec(ctx)
	return affected(res, err, "mark project %d", projectID)
}

func (s *SQLStore) Seed(ctx context.Context, d Dataset) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, batch := range []struct {
			name string
			rows any
			n    int
		}{
			{"alumnos", &d.Students, len(d.Students)},
			{"mentores_ue", &d.Mentors, len(d.Mentors)},
			{"unidades_economicas", &d.Companies, len(d.Companies)},
			{"proyectos_dual", &d.Projects, len(d.Projects)},
			{"asignaturas", &d.Subjects, len(d.Subjects)},
			{"inscripciones_asignaturas", &d.Enrollments, len(d.Enrollments)},
			{"asignatura_competencias", &d.Competences, len(d.Competences)},
			{"actividades_aprendizaje", &d.Activities, len(d.Activities)},
		} {
			if batch.n == 0 {
				continue
			}
			if _, err := tx.NewInsert().Model(batch.rows).On("CONFLICT (id) DO UPDATE").Exec(ctx); err != nil {
				return fmt.Errorf("seed %s: %w", batch.name, err)
			}
		}
		return nil
	})
}

func affected(res sql.Result, err error, format string, args ...any) error {
	if err != nil {
		return fmt.Errorf(format+": %w", append(args, err)...)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf(format+": %w", append(args, err)...)
	}
	if n == 0 {
		return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
	}
	return nil
}

// Package anexo assembles the Anexo 5.4 evaluation report from stored
// project records and runs the mentor evaluation workflow.
package anexo

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sistemadual/docgen/internal/store"
	"github.com/sistemadual/docgen/internal/synth"
	"github.com/sistemadual/docgen/pkg/docgen"
)

// Levels is the grading scale a mentor picks from for each activity.
var Levels = []int{0, 70, 80, 90, 100}

// ChartKey is the context key of the ring chart image.
const ChartKey = "grafica_ue"

// DateLayout formats dates in the report.
const DateLayout = "02/01/2006"

// Mark fills the level column that matches an activity's grade.
const Mark = "X"

// ValidLevel reports whether n is on the grading scale.
func ValidLevel(n int) bool { return slices.Contains(Levels, n) }

// Average is the integer part of the mean grade, 0 when there are none.
func Average(grades map[int64]int) int {
	if len(grades) == 0 {
		return 0
	}
	sum := 0
	for _, g := range grades {
		sum += g
	}
	return sum / len(grades)
}

// Curriculum is what a project's student is evaluated on: the competences
// of the subjects enrolled in the project's period and their activities.
type Curriculum struct {
	Competences []store.Competence
	Activities  map[int64][]store.Activity
}

// ActivityIDs lists every activity in competence order.
func (c Curriculum) ActivityIDs() []int64 {
	var ids []int64
	for _, comp := range c.Competences {
		for _, a := range c.Activities[comp.ID] {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// LoadCurriculum reads the curriculum of a project.
func LoadCurriculum(ctx context.Context, st store.Store, p *store.Project) (Curriculum, error) {
	enrollments, err := st.Enrollments(ctx, p.StudentID, p.PeriodID)
	if err != nil {
		return Curriculum{}, err
	}
	subjectIDs := make([]int64, 0, len(enrollments))
	for _, e := range enrollments {
		subjectIDs = append(subjectIDs, e.SubjectID)
	}
	competences, err := st.Competences(ctx, subjectIDs)
	if err != nil {
		return Curriculum{}, err
	}
	competenceIDs := make([]int64, 0, len(competences))
	for _, c := range competences {
		competenceIDs = append(competenceIDs, c.ID)
	}
	activities, err := st.Activities(ctx, competenceIDs)
	if err != nil {
		return Curriculum{}, err
	}
	byCompetence := make(map[int64][]store.Activity, len(competences))
	for _, a := range activities {
		byCompetence[a.CompetenceID] = append(byCompetence[a.CompetenceID], a)
	}
	return Curriculum{Competences: competences, Activities: byCompetence}, nil
}

// Report holds the fields typed by the mentor alongside the grades.
type Report struct {
	Month  string
	Number int
	Date   time.Time
}

// BuildContext returns the render context of the Anexo 5.4 report. The
// chart percentage is the grade average; the chart image itself is added
// by the generator under ChartKey.
func BuildContext(p *store.Project, cur Curriculum, grades map[int64]int, r Report) docgen.Data {
	average := Average(grades)
	data := docgen.Data{
		"porcentaje_ue":   average,
		"mes_evaluado":    r.Month,
		"numero_reporte":  r.Number,
		"fecha":           r.Date.Format(DateLayout),
		"nombre_proyecto": p.Nombre,
	}
	if s := p.Student; s != nil {
		data["nombre_alumno"] = s.FullName()
		data["matricula"] = s.Matricula
		data["carrera"] = s.Carrera
		data["email_alumno"] = s.Email()
	}
	if m := p.Mentor; m != nil {
		data["mentor_ue"] = m.NombreCompleto
		data["cargo_mentor"] = m.Cargo
	}
	if c := p.Company; c != nil {
		data["nombre_empresa"] = c.Nombre
	}

	firma := ""
	if p.Mentor != nil {
		firma = p.Mentor.NombreCompleto + "\n" + r.Date.Format(DateLayout)
	}

	competences := make([]map[string]any, 0, len(cur.Competences))
	evaluations := make([]map[string]any, 0, len(cur.Competences))
	for i, c := range cur.Competences {
		subject := ""
		if c.Subject != nil {
			subject = c.Subject.Nombre
		}
		competences = append(competences, map[string]any{
			"numero_consecutivo":       i + 1,
			"competencia_desarrollada": c.Descripcion,
			"asignaturas_cubre":        subject,
			"conocimientos_teoricos":   c.ConocimientosTeoricos,
			"descripcion_actividades":  c.DescripcionActividades,
		})

		activities := make([]map[string]any, 0, len(cur.Activities[c.ID]))
		for _, a := range cur.Activities[c.ID] {
			activities = append(activities, activityRecord(a, grades[a.ID]))
		}
		evaluations = append(evaluations, map[string]any{
			"competencia_alcanzada": c.Descripcion,
			"firma_y_fecha":         firma,
			"actividades":           activities,
		})
	}
	data[synth.CompetencesKey] = competences
	data[synth.EvaluationsKey] = evaluations
	return data
}

func activityRecord(a store.Activity, grade int) map[string]any {
	rec := map[string]any{
		"descripcion_actividad": a.Descripcion,
		"evidencia":             a.Evidencia,
		"horas":                 a.Horas,
	}
	for _, level := range Levels {
		mark := ""
		if level == grade {
			mark = Mark
		}
		rec[fmt.Sprintf("p%d", level)] = mark
	}
	return rec
}

// OutputName is the artifact name of a student's final report.
func OutputName(matricula string) string {
	return "Anexo_5.4_Final_" + strings.TrimSpace(matricula)
}

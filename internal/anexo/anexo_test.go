package anexo

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sistemadual/docgen/internal/convert"
	"github.com/sistemadual/docgen/internal/docxtest"
	"github.com/sistemadual/docgen/internal/notify"
	"github.com/sistemadual/docgen/internal/pipeline"
	"github.com/sistemadual/docgen/internal/store"
	"github.com/sistemadual/docgen/pkg/docgen"
	"github.com/sistemadual/docgen/pkg/docgen/xml"
)

type recorder struct {
	sent []notify.Message
	err  error
}

func (r *recorder) Send(_ context.Context, m notify.Message) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, m)
	return nil
}

func seeded(t *testing.T) *store.MemoryStore {
	t.Helper()
	st := store.NewMemoryStore()
	require.NoError(t, st.Seed(context.Background(), store.Dataset{
		Students: []store.Student{{
			ID: 1, Matricula: "A001", Nombre: "Ana", ApPaterno: "López", ApMaterno: "Ruiz",
			EmailPersonal: "ana@mail.com", EmailInstitucional: "a001@uni.mx",
		}},
		Mentors:   []store.Mentor{{ID: 7, NombreCompleto: "Luis Pérez", Email: "luis@acme.mx"}},
		Companies: []store.Company{{ID: 3, Nombre: "ACME"}},
		Projects:  []store.Project{{ID: 10, StudentID: 1, PeriodID: 2, MentorID: 7, CompanyID: 3, Nombre: "Portal"}},
		Subjects:  []store.Subject{{ID: 20, Nombre: "Redes"}, {ID: 21, Nombre: "Sistemas Operativos"}},
		Enrollments: []store.Enrollment{
			{ID: 30, StudentID: 1, PeriodID: 2, SubjectID: 20},
			{ID: 31, StudentID: 1, PeriodID: 2, SubjectID: 21},
		},
		Competences: []store.Competence{
			{ID: 40, SubjectID: 20, Numero: 1, Descripcion: "Diseña redes", ConocimientosTeoricos: "TCP/IP"},
			{ID: 41, SubjectID: 21, Numero: 1, Descripcion: "Administra Linux"},
		},
		Activities: []store.Activity{
			{ID: 50, CompetenceID: 40, Descripcion: "Cableado", Evidencia: "Fotos", Horas: 5},
			{ID: 51, CompetenceID: 40, Descripcion: "Topología", Evidencia: "Diagrama", Horas: 10},
		},
	}))
	return st
}

func TestAverage(t *testing.T) {
	tests := []struct {
		name   string
		grades map[int64]int
		want   int
	}{
		{"none", nil, 0},
		{"exact", map[int64]int{1: 100, 2: 70}, 85},
		{"truncated", map[int64]int{1: 70, 2: 80, 3: 80}, 76},
		{"zeros count", map[int64]int{1: 0, 2: 90}, 45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Average(tt.grades))
		})
	}
}

func TestValidLevel(t *testing.T) {
	for _, n := range Levels {
		assert.True(t, ValidLevel(n))
	}
	assert.False(t, ValidLevel(75))
	assert.False(t, ValidLevel(-1))
}

func TestBuildContext(t *testing.T) {
	st := seeded(t)
	ctx := context.Background()
	p, err := st.Project(ctx, 10)
	require.NoError(t, err)
	cur, err := LoadCurriculum(ctx, st, p)
	require.NoError(t, err)
	assert.Equal(t, []int64{50, 51}, cur.ActivityIDs())

	date := time.Date(2026, 10, 3, 0, 0, 0, 0, time.UTC)
	data := BuildContext(p, cur, map[int64]int{50: 90, 51: 70}, Report{Month: "Octubre 2026", Number: 2, Date: date})

	assert.Equal(t, 80, data["porcentaje_ue"])
	assert.Equal(t, "Ana López Ruiz", data["nombre_alumno"])
	assert.Equal(t, "A001", data["matricula"])
	assert.Equal(t, "ACME", data["nombre_empresa"])
	assert.Equal(t, "Luis Pérez", data["mentor_ue"])
	assert.Equal(t, "03/10/2026", data["fecha"])
	assert.Equal(t, "Octubre 2026", data["mes_evaluado"])

	competences := data["lista_competencias"].([]map[string]any)
	require.Len(t, competences, 2)
	assert.Equal(t, 1, competences[0]["numero_consecutivo"])
	assert.Equal(t, 2, competences[1]["numero_consecutivo"])
	assert.Equal(t, "Redes", competences[0]["asignaturas_cubre"])
	assert.Equal(t, "TCP/IP", competences[0]["conocimientos_teoricos"])

	evaluations := data["evaluaciones"].([]map[string]any)
	require.Len(t, evaluations, 2)
	assert.Equal(t, "Luis Pérez\n03/10/2026", evaluations[0]["firma_y_fecha"])
	acts := evaluations[0]["actividades"].([]map[string]any)
	require.Len(t, acts, 2)
	assert.Equal(t, map[string]any{
		"descripcion_actividad": "Cableado", "evidencia": "Fotos", "horas": 5,
		"p0": "", "p70": "", "p80": "", "p90": "X", "p100": "",
	}, acts[0])
	assert.Equal(t, "X", acts[1]["p70"])
	assert.Empty(t, evaluations[1]["actividades"])
}

type env struct {
	st     *store.MemoryStore
	sender *recorder
	out    string
	wf     *Workflow
}

func setup(t *testing.T) env {
	t.Helper()
	templates := t.TempDir()
	docxtest.WriteFile(t, templates, DefaultTemplate,
		docxtest.Paragraph("Alumno: {{ nombre_alumno }} ({{ matricula }})")+
			docxtest.Paragraph("{{ grafica_ue }}")+
			docxtest.Table(
				docxtest.Row("[[TABLA_COMPETENCIAS]]"),
				docxtest.Row("{{ c.competencia_desarrollada }}"),
				docxtest.Row("3.- EVALUACIÓN"),
				docxtest.Row("[[TABLA_EVALUACION]]"),
			))
	e := env{st: seeded(t), sender: &recorder{}, out: t.TempDir()}
	logger := log.New(io.Discard)
	gen := pipeline.New(
		pipeline.WithTemplatesDir(templates),
		pipeline.WithTempDir(t.TempDir()),
		pipeline.WithOutputDir(e.out),
		pipeline.WithConverter(convert.Nop{}),
		pipeline.WithLogger(logger),
	)
	e.wf = NewWorkflow(e.st, gen, e.sender, WithLogger(logger))
	return e
}

func TestEvaluate(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	out, err := e.wf.Evaluate(ctx, Evaluation{
		ProjectID: 10,
		Grades:    map[int64]int{50: 100, 51: 80},
		Report:    Report{Month: "Octubre 2026", Number: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 90, out.Average)
	assert.True(t, out.Result.OK)
	assert.Equal(t, filepath.Join(e.out, "Anexo_5.4_Final_A001.docx"), out.Result.Path)
	assert.Equal(t, []string{"a001@uni.mx", "luis@acme.mx"}, out.Notified)

	require.Len(t, e.sender.sent, 2)
	assert.Equal(t, StudentSubject, e.sender.sent[0].Subject)
	assert.Contains(t, e.sender.sent[0].Body, "**Luis Pérez**")
	assert.Equal(t, MentorSubject, e.sender.sent[1].Subject)
	assert.Contains(t, e.sender.sent[1].Body, "**Ana López**")
	for _, m := range e.sender.sent {
		assert.Equal(t, []string{out.Result.Path}, m.Attachments)
	}

	p, err := e.st.Project(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 90, p.CalificacionUE)
	assert.True(t, p.Anexo54Enviado)
	grades, err := e.st.Grades(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{50: 100, 51: 80}, grades)

	pkg, err := docgen.OpenFile(out.Result.Path)
	require.NoError(t, err)
	doc, err := pkg.Document()
	require.NoError(t, err)
	body := xml.Body(doc.Root())
	assert.Equal(t, "Alumno: Ana López Ruiz (A001)", xml.ParagraphText(xml.Paragraphs(body)[0]))
	assert.Len(t, body.Find("w:drawing"), 1, "ring chart")
	assert.Equal(t, 1, out.Result.Stats.Synth.CompetenceTables)
	assert.Equal(t, 1, out.Result.Stats.Synth.EvaluationTables)
}

func TestEvaluateMissingGradesAreZero(t *testing.T) {
	e := setup(t)
	out, err := e.wf.Evaluate(context.Background(), Evaluation{
		ProjectID: 10,
		Grades:    map[int64]int{50: 90},
		Report:    Report{Month: "Octubre 2026"},
	})
	require.NoError(t, err)
	assert.Equal(t, 45, out.Average)
}

func TestEvaluateRejectsInput(t *testing.T) {
	tests := []struct {
		name string
		ev   Evaluation
		want string
	}{
		{"no month", Evaluation{ProjectID: 10}, "evaluated month is required"},
		{"bad level", Evaluation{ProjectID: 10, Grades: map[int64]int{50: 75}, Report: Report{Month: "m"}}, "grade 75"},
		{"foreign activity", Evaluation{ProjectID: 10, Grades: map[int64]int{99: 70}, Report: Report{Month: "m"}}, "activity 99"},
		{"unknown project", Evaluation{ProjectID: 404, Report: Report{Month: "m"}}, "record not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := setup(t)
			_, err := e.wf.Evaluate(context.Background(), tt.ev)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Empty(t, e.sender.sent)

			grades, err := e.st.Grades(context.Background(), 10)
			require.NoError(t, err)
			assert.Empty(t, grades, "nothing is saved")
		})
	}
}

func TestEvaluateGenerationFailureKeepsGrades(t *testing.T) {
	e := setup(t)
	e.wf.template = "missing.docx"
	_, err := e.wf.Evaluate(context.Background(), Evaluation{
		ProjectID: 10, Grades: map[int64]int{50: 70, 51: 70}, Report: Report{Month: "m"},
	})
	require.ErrorIs(t, err, docgen.ErrTemplateNotFound)
	assert.Contains(t, err.Error(), "grades saved")

	p, err := e.st.Project(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 70, p.CalificacionUE)
	assert.False(t, p.Anexo54Enviado)
	assert.Empty(t, e.sender.sent)
}

func TestEvaluateNotificationFailure(t *testing.T) {
	e := setup(t)
	e.sender.err = errors.New("smtp down")
	_, err := e.wf.Evaluate(context.Background(), Evaluation{
		ProjectID: 10, Grades: map[int64]int{50: 70}, Report: Report{Month: "m"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notify a001@uni.mx: smtp down")

	p, err := e.st.Project(context.Background(), 10)
	require.NoError(t, err)
	assert.False(t, p.Anexo54Enviado)
}

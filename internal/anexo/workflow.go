package anexo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sistemadual/docgen/internal/notify"
	"github.com/sistemadual/docgen/internal/pipeline"
	"github.com/sistemadual/docgen/internal/store"
)

// DefaultTemplate is the Anexo 5.4 template file name.
const DefaultTemplate = "Anexo_5.4_Reporte_de_Actividades.docx"

// Notification subjects.
const (
	StudentSubject = "Resultados Evaluación Empresarial DUAL (Anexo 5.4)"
	MentorSubject  = "Confirmación de Evaluación al Estudiante"
)

// ErrMonthRequired is returned when an evaluation has no evaluated month.
var ErrMonthRequired = errors.New("evaluated month is required")

// Generator produces documents.
type Generator interface {
	Generate(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// Evaluation is a mentor's grading of a project. Activities without a
// grade are graded 0.
type Evaluation struct {
	ProjectID int64
	Grades    map[int64]int
	Report    Report
}

// Outcome reports what an evaluation did.
type Outcome struct {
	Average  int
	Result   pipeline.Result
	Notified []string
}

// Workflow records evaluations and delivers the resulting report.
type Workflow struct {
	store    store.Store
	gen      Generator
	sender   notify.Sender
	template string
	logger   *log.Logger
	now      func() time.Time
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithTemplate sets the report template name or path.
func WithTemplate(name string) Option {
	return func(w *Workflow) {
		if name != "" {
			w.template = name
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(w *Workflow) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWorkflow returns a Workflow.
func NewWorkflow(st store.Store, gen Generator, sender notify.Sender, opts ...Option) *Workflow {
	w := &Workflow{
		store:    st,
		gen:      gen,
		sender:   sender,
		template: DefaultTemplate,
		logger:   log.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Evaluate saves the grades and their average, generates the student's
// report, emails it to the student and the mentor, and marks the project as
// sent. Grades stay saved when a later step fails.
func (w *Workflow) Evaluate(ctx context.Context, ev Evaluation) (Outcome, error) {
	var out Outcome
	if ev.Report.Month == "" {
		return out, ErrMonthRequired
	}
	if ev.Report.Date.IsZero() {
		ev.Report.Date = w.now()
	}
	logger := w.logger.With("project", ev.ProjectID)

	project, err := w.store.Project(ctx, ev.ProjectID)
	if err != nil {
		return out, err
	}
	cur, err := LoadCurriculum(ctx, w.store, project)
	if err != nil {
		return out, err
	}
	grades, err := completeGrades(cur, ev.Grades)
	if err != nil {
		return out, err
	}

	out.Average = Average(grades)
	if err := w.store.SaveGrades(ctx, project.ID, grades, out.Average); err != nil {
		return out, err
	}
	logger.Info("evaluation saved", "activities", len(grades), "average", out.Average)

	matricula := ""
	if project.Student != nil {
		matricula = project.Student.Matricula
	}
	out.Result, err = w.gen.Generate(ctx, pipeline.Request{
		ID:         fmt.Sprintf("anexo54_%d", project.ID),
		Template:   w.template,
		Context:    BuildContext(project, cur, grades, ev.Report),
		OutputName: OutputName(matricula),
		Charts:     map[string]int{ChartKey: out.Average},
	})
	if err != nil {
		return out, fmt.Errorf("grades saved but the report was not generated: %w", err)
	}

	if out.Notified, err = w.notify(ctx, project, out.Result.Path); err != nil {
		return out, err
	}
	if err := w.store.MarkAnexo54Sent(ctx, project.ID); err != nil {
		return out, err
	}
	logger.Info("report delivered", "path", out.Result.Path, "notified", out.Notified)
	return out, nil
}

// completeGrades checks every grade is on the scale and belongs to the
// curriculum, and grades missing activities 0.
func completeGrades(cur Curriculum, grades map[int64]int) (map[int64]int, error) {
	ids := cur.ActivityIDs()
	known := make(map[int64]bool, len(ids))
	out := make(map[int64]int, len(ids))
	for _, id := range ids {
		known[id] = true
		out[id] = 0
	}
	for id, g := range grades {
		if !known[id] {
			return nil, fmt.Errorf("activity %d is not part of the project's curriculum", id)
		}
		if !ValidLevel(g) {
			return nil, fmt.Errorf("activity %d: grade %d is not one of %v", id, g, Levels)
		}
		out[id] = g
	}
	return out, nil
}

func (w *Workflow) notify(ctx context.Context, p *store.Project, attachment string) ([]string, error) {
	studentName, mentorName := "", "Mentor"
	studentEmail, mentorEmail := "", ""
	if p.Student != nil {
		studentName = p.Student.Nombre + " " + p.Student.ApPaterno
		studentEmail = p.Student.Email()
	}
	if p.Mentor != nil {
		mentorName = p.Mentor.NombreCompleto
		mentorEmail = p.Mentor.Email
	}

	var messages []notify.Message
	if studentEmail != "" {
		messages = append(messages, notify.Message{
			To:      []string{studentEmail},
			Subject: StudentSubject,
			Title:   "Evaluación Empresarial Recibida",
			Body: fmt.Sprintf("Hola **%s**,\n\n"+
				"Tu Mentor en la Unidad Económica (**%s**) concluyó exitosamente tu evaluación práctica "+
				"correspondiente al 70%% de tu calificación DUAL.\n\n"+
				"Adjuntamos el **Anexo 5.4 Oficial** para tus registros o portafolio de evidencias.",
				studentName, mentorName),
			Attachments: []string{attachment},
		})
	}
	if mentorEmail != "" {
		messages = append(messages, notify.Message{
			To:      []string{mentorEmail},
			Subject: MentorSubject,
			Title:   "Registro de Evaluación Confirmado",
			Body: fmt.Sprintf("Estimado/a **%s**,\n\n"+
				"Gracias por calificar el desempeño del estudiante **%s**.\n\n"+
				"El sistema ha enlazado automáticamente estos puntajes y generado el **Anexo 5.4** "+
				"adjunto para los archivos de la Universidad.\n\n"+
				"La Coordinación le agradece su valioso apoyo e integración en el programa DUAL.",
				mentorName, studentName),
			Attachments: []string{attachment},
		})
	}

	var sent []string
	for _, m := range messages {
		if err := w.sender.Send(ctx, m); err != nil {
			return sent, fmt.Errorf("notify %s: %w", m.To[0], err)
		}
		sent = append(sent, m.To...)
	}
	return sent, nil
}

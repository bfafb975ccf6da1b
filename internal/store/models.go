package store

import "github.com/uptrace/bun"

// Student is a row of alumnos.
type Student struct {
	bun.BaseModel `bun:"table:alumnos,alias:a"`

	ID                 int64  `bun:"id,pk" yaml:"id"`
	Matricula          string `bun:"matricula,unique" yaml:"matricula"`
	Nombre             string `bun:"nombre" yaml:"nombre"`
	ApPaterno          string `bun:"ap_paterno" yaml:"ap_paterno"`
	ApMaterno          string `bun:"ap_materno" yaml:"ap_materno"`
	EmailPersonal      string `bun:"email_personal" yaml:"email_personal"`
	EmailInstitucional string `bun:"email_institucional" yaml:"email_institucional"`
	Carrera            string `bun:"carrera" yaml:"carrera"`
}

// FullName joins the name parts.
func (s Student) FullName() string {
	name := s.Nombre
	for _, part := range []string{s.ApPaterno, s.ApMaterno} {
		if part != "" {
			name += " " + part
		}
	}
	return name
}

// Email prefers the institutional address.
func (s Student) Email() string {
	if s.EmailInstitucional != "" {
		return s.EmailInstitucional
	}
	return s.EmailPersonal
}

// Mentor is a row of mentores_ue.
type Mentor struct {
	bun.BaseModel `bun:"table:mentores_ue,alias:m"`

	ID             int64  `bun:"id,pk" yaml:"id"`
	NombreCompleto string `bun:"nombre_completo" yaml:"nombre_completo"`
	Email          string `bun:"email" yaml:"email"`
	Cargo          string `bun:"cargo" yaml:"cargo"`
}

// Company is a row of unidades_economicas.
type Company struct {
	bun.BaseModel `bun:"table:unidades_economicas,alias:ue"`

	ID     int64  `bun:"id,pk" yaml:"id"`
	Nombre string `bun:"nombre" yaml:"nombre"`
}

// Project is a row of proyectos_dual joined with its student, mentor and
// company.
type Project struct {
	bun.BaseModel `bun:"table:proyectos_dual,alias:p"`

	ID             int64  `bun:"id,pk" yaml:"id"`
	StudentID      int64  `bun:"alumno_id" yaml:"alumno_id"`
	PeriodID       int64  `bun:"periodo_id" yaml:"periodo_id"`
	MentorID       int64  `bun:"mentor_ue_id" yaml:"mentor_ue_id"`
	CompanyID      int64  `bun:"ue_id" yaml:"ue_id"`
	Nombre         string `bun:"nombre_proyecto" yaml:"nombre_proyecto"`
	CalificacionUE int    `bun:"calificacion_ue" yaml:"calificacion_ue"`
	Anexo54Enviado bool   `bun:"anexo_54_enviado" yaml:"anexo_54_enviado"`

	Student *Student `bun:"rel:belongs-to,join:alumno_id=id" yaml:"-"`
	Mentor  *Mentor  `bun:"rel:belongs-to,join:mentor_ue_id=id" yaml:"-"`
	Company *Company `bun:"rel:belongs-to,join:ue_id=id" yaml:"-"`
}

// Subject is a row of asignaturas.
type Subject struct {
	bun.BaseModel `bun:"table:asignaturas,alias:s"`

	ID     int64  `bun:"id,pk" yaml:"id"`
	Clave  string `bun:"clave_asignatura" yaml:"clave_asignatura"`
	Nombre string `bun:"nombre" yaml:"nombre"`
}

// Enrollment is a row of inscripciones_asignaturas.
type Enrollment struct {
	bun.BaseModel `bun:"table:inscripciones_asignaturas,alias:i"`

	ID        int64 `bun:"id,pk" yaml:"id"`
	StudentID int64 `bun:"alumno_id" yaml:"alumno_id"`
	PeriodID  int64 `bun:"periodo_id" yaml:"periodo_id"`
	SubjectID int64 `bun:"asignatura_id" yaml:"asignatura_id"`

	Subject *Subject `bun:"rel:belongs-to,join:asignatura_id=id" yaml:"-"`
}

// Competence is a row of asignatura_competencias.
type Competence struct {
	bun.BaseModel `bun:"table:asignatura_competencias,alias:c"`

	ID                     int64  `bun:"id,pk" yaml:"id"`
	SubjectID              int64  `bun:"asignatura_id" yaml:"asignatura_id"`
	Numero                 int    `bun:"numero_competencia" yaml:"numero_competencia"`
	Descripcion            string `bun:"descripcion_competencia" yaml:"descripcion_competencia"`
	ConocimientosTeoricos  string `bun:"conocimientos_teoricos" yaml:"conocimientos_teoricos"`
	DescripcionActividades string `bun:"descripcion_actividades" yaml:"descripcion_actividades"`

	Subject *Subject `bun:"rel:belongs-to,join:asignatura_id=id" yaml:"-"`
}

// Activity is a row of actividades_aprendizaje.
type Activity struct {
	bun.BaseModel `bun:"table:actividades_aprendizaje,alias:act"`

	ID           int64  `bun:"id,pk" yaml:"id"`
	CompetenceID int64  `bun:"competencia_id" yaml:"competencia_id"`
	Descripcion  string `bun:"descripcion_actividad" yaml:"descripcion_actividad"`
	Evidencia    string `bun:"evidencia" yaml:"evidencia"`
	Horas        int    `bun:"horas_dedicacion" yaml:"horas_dedicacion"`
}

// Grade is the performance level a mentor gave to one activity of a project.
type Grade struct {
	bun.BaseModel `bun:"table:calificaciones_actividades,alias:g"`

	ProjectID  int64 `bun:"proyecto_id,pk" yaml:"proyecto_id"`
	ActivityID int64 `bun:"actividad_id,pk" yaml:"actividad_id"`
	Level      int   `bun:"nivel" yaml:"nivel"`
}

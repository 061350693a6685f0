package orchestrator

import (
	"bytes"
	"text/template"

	"github.com/Iron-Ham/agentcrew/internal/config"
	"github.com/Iron-Ham/agentcrew/internal/question"
	"github.com/Iron-Ham/agentcrew/internal/scheduler"
)

// ContextData is available to every context template.
type ContextData struct {
	PRDFile          string
	ArchitectureFile string
	QuestionsDir     string
	// Area and Tickets are set for developer sessions.
	Area    string
	Tickets []int
	// Question and ResponseFile are set for delegated answers.
	Question     *question.Question
	ResponseFile string
}

const questionHowTo = `If you need a decision you cannot make yourself, write a question file to
{{.QuestionsDir}} (see the question format in your prompt) and exit with code 2.
`

var (
	poTemplate = template.Must(template.New("po").Parse(
		`You are the product owner.
Write the product requirements document to: {{.PRDFile}}
` + questionHowTo))

	techLeadTemplate = template.Must(template.New("tech_lead").Parse(
		`You are the tech lead.
Read the product requirements document at: {{.PRDFile}}
Write the architecture document to: {{.ArchitectureFile}}
File one issue per unit of work and label each with its area.
` + questionHowTo))

	devTemplate = template.Must(template.New("dev").Parse(
		`You are the developer for the "{{.Area}}" area.
Tickets: {{range $i, $t := .Tickets}}{{if $i}}, {{end}}#{{$t}}{{end}}
Product requirements: {{.PRDFile}}
Architecture: {{.ArchitectureFile}}
` + questionHowTo))

	answerTemplate = template.Must(template.New("answer").Parse(
		`{{with .Question}}{{if .FromAgent}}{{.FromAgent}}{{else}}An agent{{end}} needs an answer from you.
{{if .Context}}
Context:
{{.Context}}
{{end}}
Question:
{{.Question}}
{{if .Options}}
Options:
{{range .Options}}- {{.}}
{{end}}{{end}}{{end}}
Write your answer to {{.ResponseFile}} or print it on standard output.
`))
)

// ContextRenderer builds the context argument handed to each role.
type ContextRenderer struct {
	base ContextData
}

// NewContextRenderer resolves the deliverable paths in cfg against baseDir.
func NewContextRenderer(cfg *config.Config, baseDir string) *ContextRenderer {
	return &ContextRenderer{base: ContextData{
		PRDFile:          cfg.Paths.ResolvePRD(baseDir),
		ArchitectureFile: cfg.Paths.ResolveArchitecture(baseDir),
		QuestionsDir:     cfg.Paths.Layout(baseDir).QuestionsDir,
	}}
}

// PO renders the product owner context.
func (r *ContextRenderer) PO() string {
	return render(poTemplate, r.base)
}

// TechLead renders the tech lead context.
func (r *ContextRenderer) TechLead() string {
	return render(techLeadTemplate, r.base)
}

// Dev renders the context of one developer session.
func (r *ContextRenderer) Dev(s scheduler.Session) string {
	data := r.base
	data.Area = s.Area
	data.Tickets = s.Tickets
	return render(devTemplate, data)
}

// Answer renders the context of a delegated answer.
func (r *ContextRenderer) Answer(q *question.Question) string {
	data := r.base
	data.Question = q
	data.ResponseFile = question.ResponsePath(q.FilePath)
	return render(answerTemplate, data)
}

func render(tmpl *template.Template, data ContextData) string {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return ""
	}
	return buf.String()
}

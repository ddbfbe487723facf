package http

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/marwamagdy-create/DEPI/ml"
)

//go:embed templates/index.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var (
	noticePolicy     *bluemonday.Policy
	noticePolicyOnce sync.Once
)

// sanitizeNotice 使用UGC策略清理页面公告中的HTML
func sanitizeNotice(raw string) template.HTML {
	noticePolicyOnce.Do(func() {
		noticePolicy = bluemonday.UGCPolicy()
	})
	return template.HTML(noticePolicy.Sanitize(raw))
}

// Page 渲染预测表单页面
type Page struct {
	tmpl        *template.Template
	title       string
	notice      template.HTML
	modelSource string
}

// NewPage 解析内嵌模板
func NewPage(title, notice, modelSource string) (*Page, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	return &Page{
		tmpl:        tmpl,
		title:       title,
		notice:      sanitizeNotice(notice),
		modelSource: modelSource,
	}, nil
}

type pageBounds struct {
	MinAge, MaxAge                   int
	MinBMI, MaxBMI                   float64
	MinHbA1c, MaxHbA1c               float64
	MinBloodGlucose, MaxBloodGlucose int
}

// formValues 保留用户提交的原始字符串，便于出错时回填
type formValues struct {
	Age            string
	BMI            string
	HbA1c          string
	BloodGlucose   string
	Gender         string
	Race           string
	SmokingHistory string
}

type resultView struct {
	Label    int
	RiskText string
	HighRisk bool
	Banner   string
}

type pageData struct {
	Title            string
	Notice           template.HTML
	Bounds           pageBounds
	Form             formValues
	Errors           map[string]string
	Error            string
	Genders          []string
	Races            []string
	SmokingHistories []string
	Result           *resultView
	ModelSource      string
}

func formFromInput(input ml.PatientInput) formValues {
	return formValues{
		Age:            fmt.Sprint(input.Age),
		BMI:            fmt.Sprintf("%.2f", input.BMI),
		HbA1c:          fmt.Sprintf("%.2f", input.HbA1c),
		BloodGlucose:   fmt.Sprint(input.BloodGlucose),
		Gender:         string(input.Gender),
		Race:           string(input.Race),
		SmokingHistory: string(input.SmokingHistory),
	}
}

func newResultView(p ml.Prediction) *resultView {
	return &resultView{
		Label:    p.Label,
		RiskText: p.RiskText(),
		HighRisk: p.HighRisk(),
		Banner:   p.Banner(),
	}
}

func (p *Page) data(form formValues) pageData {
	data := pageData{
		Title:  p.title,
		Notice: p.notice,
		Bounds: pageBounds{
			MinAge: ml.MinAge, MaxAge: ml.MaxAge,
			MinBMI: ml.MinBMI, MaxBMI: ml.MaxBMI,
			MinHbA1c: ml.MinHbA1c, MaxHbA1c: ml.MaxHbA1c,
			MinBloodGlucose: ml.MinBloodGlucose, MaxBloodGlucose: ml.MaxBloodGlucose,
		},
		Form:        form,
		Errors:      map[string]string{},
		ModelSource: p.modelSource,
	}
	for _, g := range ml.Genders() {
		data.Genders = append(data.Genders, string(g))
	}
	for _, r := range ml.Races() {
		data.Races = append(data.Races, string(r))
	}
	for _, s := range ml.SmokingHistories() {
		data.SmokingHistories = append(data.SmokingHistories, string(s))
	}
	return data
}

// Render 写出完整页面
func (p *Page) Render(w io.Writer, data pageData) error {
	return p.tmpl.Execute(w, data)
}

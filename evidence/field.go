package evidence

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"strings"
)

var (
	ErrRequired      = errors.New("evidence: field is required")
	ErrInvalidOption = errors.New("evidence: value is not one of the field options")
	ErrInvalidValue  = errors.New("evidence: value has the wrong shape")
)

const maxTextareaLength = 5000

// Field is a renderable, validatable evidence question. The concrete types
// below are the only implementations.
type Field interface {
	Config() Config
	Render(value string) template.HTML
	Validate(value any) error
	isField()
}

type base struct{ cfg Config }

func (b base) Config() Config { return b.cfg }
func (base) isField()         {}

type (
	TextField     struct{ base }
	TextareaField struct{ base }
	CheckboxField struct{ base }
	RadioField    struct{ base }
	SelectField   struct{ base }
	FileField     struct{ base }
)

// FieldFromConfig picks the concrete field for cfg.Type. Unknown or empty
// types render as a plain text input.
func FieldFromConfig(cfg Config) Field {
	b := base{cfg: cfg}
	switch cfg.Type {
	case TypeTextarea:
		return TextareaField{b}
	case TypeCheckbox:
		return CheckboxField{b}
	case TypeRadio:
		return RadioField{b}
	case TypeSelect:
		return SelectField{b}
	case TypeFile:
		return FileField{b}
	default:
		return TextField{b}
	}
}

var fieldTemplates = template.Must(template.New("fields").Parse(`
{{define "label"}}<label for="ev-{{.Cfg.Key}}">{{.Cfg.Label}}{{if .Cfg.IsRequired}} <span class="cm-required">*</span>{{end}}</label>{{if .Cfg.HelpText}}<p class="cm-help">{{.Cfg.HelpText}}</p>{{end}}{{end}}
{{define "text"}}<div class="cm-field cm-field-text">{{template "label" .}}<input type="text" id="ev-{{.Cfg.Key}}" name="{{.Cfg.Key}}" value="{{.Value}}" placeholder="{{.Cfg.Placeholder}}"{{if .Cfg.IsRequired}} required{{end}}></div>{{end}}
{{define "textarea"}}<div class="cm-field cm-field-textarea">{{template "label" .}}<textarea id="ev-{{.Cfg.Key}}" name="{{.Cfg.Key}}" rows="4" placeholder="{{.Cfg.Placeholder}}"{{if .Cfg.IsRequired}} required{{end}}>{{.Value}}</textarea></div>{{end}}
{{define "checkbox"}}<div class="cm-field cm-field-checkbox"><label><input type="checkbox" id="ev-{{.Cfg.Key}}" name="{{.Cfg.Key}}" value="true"{{if .Checked}} checked{{end}}{{if .Cfg.IsRequired}} required{{end}}> {{.Cfg.Label}}</label>{{if .Cfg.HelpText}}<p class="cm-help">{{.Cfg.HelpText}}</p>{{end}}</div>{{end}}
{{define "radio"}}<fieldset class="cm-field cm-field-radio"><legend>{{.Cfg.Label}}{{if .Cfg.IsRequired}} <span class="cm-required">*</span>{{end}}</legend>{{range .Cfg.Options}}<label><input type="radio" name="{{$.Cfg.Key}}" value="{{.}}"{{if eq . $.Value}} checked{{end}}> {{.}}</label>{{end}}</fieldset>{{end}}
{{define "select"}}<div class="cm-field cm-field-select">{{template "label" .}}<select id="ev-{{.Cfg.Key}}" name="{{.Cfg.Key}}"{{if .Cfg.IsRequired}} required{{end}}><option value="">Select…</option>{{range .Cfg.Options}}<option value="{{.}}"{{if eq . $.Value}} selected{{end}}>{{.}}</option>{{end}}</select></div>{{end}}
{{define "file"}}<div class="cm-field cm-field-file">{{template "label" .}}<input type="file" id="ev-{{.Cfg.Key}}" name="{{.Cfg.Key}}" accept="image/*,application/pdf"{{if .Cfg.IsRequired}} required{{end}}></div>{{end}}
`))

type renderData struct {
	Cfg     Config
	Value   string
	Checked bool
}

func render(name string, cfg Config, value string) template.HTML {
	var buf bytes.Buffer
	data := renderData{Cfg: cfg, Value: value, Checked: truthy(value)}
	if err := fieldTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return ""
	}
	return template.HTML(buf.String())
}

func (f TextField) Render(v string) template.HTML     { return render("text", f.cfg, v) }
func (f TextareaField) Render(v string) template.HTML { return render("textarea", f.cfg, v) }
func (f CheckboxField) Render(v string) template.HTML { return render("checkbox", f.cfg, v) }
func (f RadioField) Render(v string) template.HTML    { return render("radio", f.cfg, v) }
func (f SelectField) Render(v string) template.HTML   { return render("select", f.cfg, v) }
func (f FileField) Render(v string) template.HTML     { return render("file", f.cfg, v) }

func (f TextField) Validate(v any) error {
	return validateText(f.cfg, v, 0)
}

func (f TextareaField) Validate(v any) error {
	return validateText(f.cfg, v, maxTextareaLength)
}

func (f CheckboxField) Validate(v any) error {
	var checked bool
	switch x := v.(type) {
	case nil:
	case bool:
		checked = x
	case string:
		checked = truthy(x)
	default:
		return fieldErr(ErrInvalidValue, f.cfg)
	}
	if f.cfg.IsRequired && !checked {
		return fieldErr(ErrRequired, f.cfg)
	}
	return nil
}

func (f RadioField) Validate(v any) error  { return validateChoice(f.cfg, v) }
func (f SelectField) Validate(v any) error { return validateChoice(f.cfg, v) }

func (f FileField) Validate(v any) error {
	var ref string
	switch x := v.(type) {
	case nil:
	case string:
		ref = strings.TrimSpace(x)
	case map[string]any:
		s, _ := x["url"].(string)
		ref = strings.TrimSpace(s)
	default:
		return fieldErr(ErrInvalidValue, f.cfg)
	}
	if ref == "" {
		if f.cfg.IsRequired {
			return fieldErr(ErrRequired, f.cfg)
		}
		return nil
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fieldErr(ErrInvalidValue, f.cfg)
	}
	return nil
}

func validateText(cfg Config, v any, maxLen int) error {
	var s string
	switch x := v.(type) {
	case nil:
	case string:
		s = strings.TrimSpace(x)
	default:
		return fieldErr(ErrInvalidValue, cfg)
	}
	if s == "" {
		if cfg.IsRequired {
			return fieldErr(ErrRequired, cfg)
		}
		return nil
	}
	if maxLen > 0 && len([]rune(s)) > maxLen {
		return fieldErr(ErrInvalidValue, cfg)
	}
	return nil
}

func validateChoice(cfg Config, v any) error {
	var s string
	switch x := v.(type) {
	case nil:
	case string:
		s = strings.TrimSpace(x)
	default:
		return fieldErr(ErrInvalidValue, cfg)
	}
	if s == "" {
		if cfg.IsRequired {
			return fieldErr(ErrRequired, cfg)
		}
		return nil
	}
	for _, opt := range cfg.Options {
		if opt == s {
			return nil
		}
	}
	return fieldErr(ErrInvalidOption, cfg)
}

func fieldErr(err error, cfg Config) error {
	return fmt.Errorf("%w: %s", err, cfg.Key)
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "on", "yes", "1":
		return true
	}
	return false
}

package proxy

import (
	"fmt"
	"html/template"
	"io"

	"chargemind/client"
	"chargemind/evidence"
)

// PageData is everything the hub bootstrap fragment needs.
type PageData struct {
	Shop      string
	ClientID  string
	APIBase   string
	AssetURL  string
	Branding  client.Branding
	Policies  client.Policies
	FieldSets []FieldSet
}

// FieldSet holds the pre-rendered evidence questions of one problem type.
type FieldSet struct {
	ProblemType evidence.ProblemType
	Fields      []RenderedField
}

type RenderedField struct {
	Key      string        `json:"key"`
	Label    string        `json:"label"`
	Type     string        `json:"type"`
	Required bool          `json:"required"`
	HTML     template.HTML `json:"-"`
}

// hubData is serialized into window.CHARGEMIND_DATA.
type hubData struct {
	Shop     string                     `json:"shop"`
	ClientID string                     `json:"clientId"`
	APIBase  string                     `json:"apiBase"`
	Branding hubBranding                `json:"branding"`
	Policies hubPolicies                `json:"policies"`
	Evidence map[string][]RenderedField `json:"evidenceFields"`
}

type hubBranding struct {
	PrimaryColor   string `json:"primaryColor"`
	SecondaryColor string `json:"secondaryColor"`
	AccentColor    string `json:"accentColor"`
	TextColor      string `json:"textColor"`
	LogoURL        string `json:"logoUrl"`
}

type hubPolicies struct {
	Refund   string `json:"refundPolicyUrl"`
	Shipping string `json:"shippingPolicyUrl"`
	Terms    string `json:"termsUrl"`
}

var page = template.Must(template.New("hub").Parse(`<div id="chargemind-hub" class="chargemind-hub" style="--primary-color: {{.Theme.PrimaryColor}}; --secondary-color: {{.Theme.SecondaryColor}}; --accent-color: {{.Theme.AccentColor}}; --text-color: {{.Theme.TextColor}};">
{{- if .Theme.LogoURL}}
  <img class="cm-logo" src="{{.Theme.LogoURL}}" alt="{{.Shop}}">
{{- end}}
  <div id="chargemind-root"></div>
{{- range .FieldSets}}
  <template data-problem-type="{{.ProblemType}}">
{{- range .Fields}}
    {{.HTML}}
{{- end}}
  </template>
{{- end}}
</div>
<script>window.CHARGEMIND_DATA = {{.Data}};</script>
{{- if .AssetURL}}
<script src="{{.AssetURL}}" defer></script>
{{- end}}
`))

// Renderer writes the App Proxy fragment that bootstraps the hub inside the
// merchant's theme.
type Renderer struct{}

func NewRenderer() *Renderer { return &Renderer{} }

func (r *Renderer) Render(w io.Writer, data PageData) error {
	theme := data.Branding.WithDefaults()
	payload := hubData{
		Shop:     data.Shop,
		ClientID: data.ClientID,
		APIBase:  data.APIBase,
		Branding: hubBranding{
			PrimaryColor:   theme.PrimaryColor,
			SecondaryColor: theme.SecondaryColor,
			AccentColor:    theme.AccentColor,
			TextColor:      theme.TextColor,
			LogoURL:        theme.LogoURL,
		},
		Policies: hubPolicies{
			Refund:   data.Policies.RefundURL,
			Shipping: data.Policies.ShippingURL,
			Terms:    data.Policies.TermsURL,
		},
		Evidence: make(map[string][]RenderedField, len(data.FieldSets)),
	}
	for _, fs := range data.FieldSets {
		payload.Evidence[string(fs.ProblemType)] = fs.Fields
	}

	err := page.Execute(w, struct {
		Shop      string
		Theme     client.Branding
		FieldSets []FieldSet
		Data      hubData
		AssetURL  string
	}{data.Shop, theme, data.FieldSets, payload, data.AssetURL})
	if err != nil {
		return fmt.Errorf("proxy: render: %w", err)
	}
	return nil
}

// RenderFields turns evidence fields into their empty-form HTML.
func RenderFields(fields []evidence.Field) []RenderedField {
	out := make([]RenderedField, 0, len(fields))
	for _, f := range fields {
		cfg := f.Config()
		out = append(out, RenderedField{
			Key:      cfg.Key,
			Label:    cfg.Label,
			Type:     string(cfg.Type),
			Required: cfg.IsRequired,
			HTML:     f.Render(""),
		})
	}
	return out
}

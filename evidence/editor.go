package evidence

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrFallbackReadOnly is returned for edits attempted while the editor is
	// showing built-in defaults.
	ErrFallbackReadOnly = errors.New("evidence: editor is in fallback mode; changes are not saved")
	// ErrPredefined signals an attempt to delete a built-in field.
	ErrPredefined = errors.New("evidence: predefined fields cannot be deleted")
	// ErrInvalidProblemType signals an unknown category.
	ErrInvalidProblemType = errors.New("evidence: unknown problem type")
	// ErrInvalidField signals a malformed custom field definition.
	ErrInvalidField = errors.New("evidence: invalid field definition")
)

// Editor lets merchant staff manage the evidence questions per category.
type Editor struct {
	store Store
	log   *zap.Logger
	newID func() string
}

func NewEditor(store Store, log *zap.Logger) *Editor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Editor{store: store, log: log, newID: uuid.NewString}
}

// Load returns the configured fields, seeding the defaults on first access.
// When the store fails the built-in defaults are returned with Fallback set.
func (e *Editor) Load(ctx context.Context, clientID string, problem ProblemType) (View, error) {
	if !problem.Valid() {
		return View{}, ErrInvalidProblemType
	}

	configs, err := e.store.List(ctx, clientID, problem)
	if err == nil && len(configs) == 0 {
		if err = e.store.Seed(ctx, clientID, problem, Defaults(problem)); err == nil {
			configs, err = e.store.List(ctx, clientID, problem)
		}
	}
	if err != nil {
		e.log.Warn("evidence fields unavailable, serving defaults",
			zap.String("client_id", clientID),
			zap.String("problem_type", string(problem)),
			zap.Error(err))
		return fallbackView(clientID, problem), nil
	}
	return View{ProblemType: problem, Configs: configs}, nil
}

// Change is a staff edit. Fallback echoes the flag of the view the edit was
// made against.
type Change struct {
	ClientID    string
	ProblemType ProblemType
	Key         string
	Fallback    bool
}

func (e *Editor) SetVisibility(ctx context.Context, ch Change, visible bool) (Config, error) {
	if err := checkChange(ch); err != nil {
		return Config{}, err
	}
	return e.store.UpdateFlags(ctx, ch.ClientID, ch.ProblemType, ch.Key, &visible, nil)
}

func (e *Editor) SetRequired(ctx context.Context, ch Change, required bool) (Config, error) {
	if err := checkChange(ch); err != nil {
		return Config{}, err
	}
	return e.store.UpdateFlags(ctx, ch.ClientID, ch.ProblemType, ch.Key, nil, &required)
}

// AddCustom appends a merchant-defined question to the category.
func (e *Editor) AddCustom(ctx context.Context, ch Change, in NewCustomField) (Config, error) {
	if ch.Fallback {
		return Config{}, ErrFallbackReadOnly
	}
	if !ch.ProblemType.Valid() {
		return Config{}, ErrInvalidProblemType
	}
	label := strings.TrimSpace(in.Label)
	if label == "" {
		return Config{}, fmt.Errorf("%w: label required", ErrInvalidField)
	}
	fieldType := in.Type
	if fieldType == "" {
		fieldType = TypeText
	}
	options := make([]string, 0, len(in.Options))
	for _, o := range in.Options {
		if o = strings.TrimSpace(o); o != "" {
			options = append(options, o)
		}
	}
	if (fieldType == TypeRadio || fieldType == TypeSelect) && len(options) < 2 {
		return Config{}, fmt.Errorf("%w: %s fields need at least two options", ErrInvalidField, fieldType)
	}

	return e.store.InsertCustom(ctx, Config{
		ClientID:    ch.ClientID,
		ProblemType: ch.ProblemType,
		Key:         customKey(label, e.newID()),
		Label:       label,
		Type:        fieldType,
		HelpText:    strings.TrimSpace(in.HelpText),
		Options:     options,
		IsVisible:   true,
		IsRequired:  in.IsRequired,
		IsCustom:    true,
	})
}

// DeleteCustom removes a custom question; predefined ones can only be hidden.
func (e *Editor) DeleteCustom(ctx context.Context, ch Change) error {
	if err := checkChange(ch); err != nil {
		return err
	}
	deleted, err := e.store.DeleteCustom(ctx, ch.ClientID, ch.ProblemType, ch.Key)
	if err != nil {
		return err
	}
	if !deleted {
		for _, d := range Defaults(ch.ProblemType) {
			if d.Key == ch.Key {
				return ErrPredefined
			}
		}
		return ErrNotFound
	}
	return nil
}

// Fields returns the visible fields of a category in display order, ready to
// render.
func (e *Editor) Fields(ctx context.Context, clientID string, problem ProblemType) ([]Field, error) {
	view, err := e.Load(ctx, clientID, problem)
	if err != nil {
		return nil, err
	}
	out := make([]Field, 0, len(view.Configs))
	for _, c := range view.Configs {
		if c.IsVisible {
			out = append(out, FieldFromConfig(c))
		}
	}
	return out, nil
}

// ValidateSubmission checks customer evidence against the visible fields of
// the category. All field errors are reported together.
func (e *Editor) ValidateSubmission(ctx context.Context, clientID string, problem ProblemType, data map[string]any) error {
	fields, err := e.Fields(ctx, clientID, problem)
	if err != nil {
		return err
	}
	var errs []error
	for _, f := range fields {
		if err := f.Validate(data[f.Config().Key]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func checkChange(ch Change) error {
	if ch.Fallback {
		return ErrFallbackReadOnly
	}
	if !ch.ProblemType.Valid() {
		return ErrInvalidProblemType
	}
	if strings.TrimSpace(ch.Key) == "" {
		return fmt.Errorf("%w: key required", ErrInvalidField)
	}
	return nil
}

func fallbackView(clientID string, problem ProblemType) View {
	configs := Defaults(problem)
	for i := range configs {
		configs[i].ClientID = clientID
	}
	return View{ProblemType: problem, Configs: configs, Fallback: true}
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func customKey(label, id string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(label), "_"), "_")
	if len(slug) > 32 {
		slug = strings.TrimRight(slug[:32], "_")
	}
	suffix := strings.ReplaceAll(id, "-", "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	if slug == "" {
		return "custom_" + suffix
	}
	return "custom_" + slug + "_" + suffix
}

package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"strings"
	"unicode"

	"github.com/hpungsan/stopka/internal/contact"
	"github.com/hpungsan/stopka/internal/errors"
)

//go:embed templates/*.html
var templateFS embed.FS

// TemplateID names one of the two footer layouts.
type TemplateID string

const (
	WithPhoto    TemplateID = "with_photo"
	WithoutPhoto TemplateID = "without_photo"
)

// FileName returns the template file name for id.
func (id TemplateID) FileName() string {
	return string(id) + ".html"
}

// Select picks the layout for a record.
func Select(usesPhoto bool) TemplateID {
	if usesPhoto {
		return WithPhoto
	}
	return WithoutPhoto
}

// Data is the value passed to a footer template.
type Data struct {
	FirstName              string
	LastName               string
	Locality               string
	Region                 string
	Phone                  string
	NormalizedPhone        string
	TransliteratedFullName string
	LoginHandle            string
}

// NewData combines a record with its derived fields.
func NewData(r contact.Record, d contact.Derived) Data {
	return Data{
		FirstName:              r.FirstName,
		LastName:               r.LastName,
		Locality:               r.Locality,
		Region:                 r.Region,
		Phone:                  r.Phone,
		NormalizedPhone:        d.NormalizedPhone,
		TransliteratedFullName: d.TransliteratedFullName,
		LoginHandle:            d.LoginHandle,
	}
}

// Renderer holds both parsed footer layouts.
type Renderer struct {
	templates map[TemplateID]*template.Template
}

// New parses the layouts from dir, or the embedded defaults when dir is empty.
func New(dir string) (*Renderer, error) {
	if dir == "" {
		sub, err := fs.Sub(templateFS, "templates")
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		return NewFromFS(sub)
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("template_dir %q is not a directory", dir))
	}
	return NewFromFS(os.DirFS(dir))
}

// NewFromFS parses with_photo.html and without_photo.html from fsys.
func NewFromFS(fsys fs.FS) (*Renderer, error) {
	templates := make(map[TemplateID]*template.Template, 2)
	for _, id := range []TemplateID{WithPhoto, WithoutPhoto} {
		t, err := template.New(id.FileName()).Option("missingkey=error").ParseFS(fsys, id.FileName())
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("failed to parse template %s: %v", id.FileName(), err))
		}
		templates[id] = t
	}
	return &Renderer{templates: templates}, nil
}

// Render executes the layout id with data.
func (r *Renderer) Render(id TemplateID, data Data) (string, error) {
	t, ok := r.templates[id]
	if !ok {
		return "", errors.NewInvalidRequest(fmt.Sprintf("unknown template %q", id))
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", errors.NewInternal(fmt.Errorf("render %s: %w", id, err))
	}
	return buf.String(), nil
}

// OutputFileName returns "<TransliteratedFullName>.html" with anything that
// is not safe in a plain file name replaced by "_".
func OutputFileName(d contact.Derived) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
			return '_'
		case unicode.IsControl(r):
			return '_'
		}
		return r
	}, d.TransliteratedFullName)

	name = strings.Trim(name, ". ")
	if name == "" {
		name = "footer"
	}
	return name + ".html"
}

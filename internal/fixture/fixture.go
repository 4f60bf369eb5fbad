// Package fixture loads YAML graph fixtures into a core.Store.
//
// A fixture lists objects (optionally with a redacted variant), explicit
// links, time series, media and attachments. Sections are applied in that
// order, except media and attachments, which are uploaded before links so
// that the owning objects already carry their references.
package fixture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"ontosim/internal/core"
	"ontosim/pkg/domain"
)

// Document is the YAML shape of a fixture file.
type Document struct {
	Objects     []ObjectDoc     `yaml:"objects"`
	Links       []LinkDoc       `yaml:"links"`
	TimeSeries  []SeriesDoc     `yaml:"timeSeries"`
	Media       []MediaDoc      `yaml:"media"`
	Attachments []AttachmentDoc `yaml:"attachments"`
}

// ObjectDoc declares one object. Redacted, when present, registers the
// object through the security-aware path.
type ObjectDoc struct {
	ObjectType string                    `yaml:"objectType"`
	PrimaryKey any                       `yaml:"primaryKey"`
	Title      string                    `yaml:"title"`
	Properties map[string]any            `yaml:"properties"`
	Redacted   map[string]any            `yaml:"redacted"`
	Securities []domain.PropertySecurity `yaml:"securities"`
}

// Ref addresses an object by type and primary key.
type Ref struct {
	ObjectType string `yaml:"objectType"`
	PrimaryKey any    `yaml:"primaryKey"`
}

// LinkDoc asserts an edge between two objects.
type LinkDoc struct {
	From    Ref    `yaml:"from"`
	Link    string `yaml:"link"`
	To      Ref    `yaml:"to"`
	Reverse string `yaml:"reverse"`
}

// SeriesDoc attaches time series points to an object property.
type SeriesDoc struct {
	Ref `yaml:",inline"`

	Property string                   `yaml:"property"`
	SeriesID string                   `yaml:"seriesId"`
	Points   []domain.TimeSeriesPoint `yaml:"points"`
}

// MediaDoc uploads content and points the object's property at it. Content
// is taken literally, or read from File relative to the fixture file.
type MediaDoc struct {
	Ref `yaml:",inline"`

	Property  string `yaml:"property"`
	MediaType string `yaml:"mediaType"`
	Path      string `yaml:"path"`
	Content   string `yaml:"content"`
	File      string `yaml:"file"`
}

// AttachmentDoc uploads an attachment and stores its RID on the property.
type AttachmentDoc struct {
	Ref `yaml:",inline"`

	Property  string `yaml:"property"`
	Filename  string `yaml:"filename"`
	MediaType string `yaml:"mediaType"`
	Content   string `yaml:"content"`
	File      string `yaml:"file"`
}

// Uploader stores attachment bytes. core.BlobAttachmentStore satisfies it.
type Uploader interface {
	Upload(ctx context.Context, filename, mediaType string, content []byte) (domain.AttachmentMetadata, error)
}

// Report counts what a load applied.
type Report struct {
	Objects     int `json:"objects"`
	Links       int `json:"links"`
	TimeSeries  int `json:"timeSeries"`
	Media       int `json:"media"`
	Attachments int `json:"attachments"`
}

// Loader applies fixture documents to a store.
type Loader struct {
	store    *core.Store
	uploader Uploader
	baseDir  string
}

// NewLoader binds a loader to a store. uploader may be nil when fixtures
// carry no attachments.
func NewLoader(store *core.Store, uploader Uploader) *Loader {
	return &Loader{store: store, uploader: uploader, baseDir: "."}
}

// LoadFile parses and applies a fixture file. Relative media and attachment
// files resolve against the fixture's directory.
func (l *Loader) LoadFile(ctx context.Context, path string) (Report, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied fixture path
	if err != nil {
		return Report{}, fmt.Errorf("read fixture %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return Report{}, fmt.Errorf("fixture %s: %w", path, err)
	}
	scoped := *l
	scoped.baseDir = filepath.Dir(path)
	return scoped.Apply(ctx, doc)
}

// Parse decodes a fixture document.
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse fixture: %w", err)
	}
	return doc, nil
}

// Apply registers everything in doc. It stops at the first failure; whatever
// was applied before it stays in the store.
func (l *Loader) Apply(ctx context.Context, doc Document) (Report, error) {
	var rep Report
	for i, od := range doc.Objects {
		if err := l.applyObject(od); err != nil {
			return rep, fmt.Errorf("objects[%d]: %w", i, err)
		}
		rep.Objects++
	}
	for i, md := range doc.Media {
		if err := l.applyMedia(ctx, md); err != nil {
			return rep, fmt.Errorf("media[%d]: %w", i, err)
		}
		rep.Media++
	}
	for i, ad := range doc.Attachments {
		if err := l.applyAttachment(ctx, ad); err != nil {
			return rep, fmt.Errorf("attachments[%d]: %w", i, err)
		}
		rep.Attachments++
	}
	for i, ld := range doc.Links {
		if err := l.applyLink(ld); err != nil {
			return rep, fmt.Errorf("links[%d]: %w", i, err)
		}
		rep.Links++
	}
	for i, sd := range doc.TimeSeries {
		if err := l.store.RegisterTimeSeriesData(sd.ObjectType, sd.PrimaryKey, sd.Property, sd.SeriesID, sd.Points); err != nil {
			return rep, fmt.Errorf("timeSeries[%d]: %w", i, err)
		}
		rep.TimeSeries++
	}
	return rep, nil
}

func (l *Loader) applyObject(od ObjectDoc) error {
	obj := domain.Object{ObjectType: od.ObjectType, PrimaryKey: od.PrimaryKey, Title: od.Title, Properties: od.Properties}
	if od.Redacted == nil {
		_, err := l.store.RegisterObject(obj)
		return err
	}
	redacted := domain.Object{ObjectType: od.ObjectType, PrimaryKey: od.PrimaryKey, Title: od.Title, Properties: od.Redacted}
	_, err := l.store.RegisterObjectWithSecurity(obj, redacted, od.Securities)
	return err
}

func (l *Loader) applyLink(ld LinkDoc) error {
	from, err := l.store.GetObjectOrThrow(ld.From.ObjectType, ld.From.PrimaryKey)
	if err != nil {
		return err
	}
	to, err := l.store.GetObjectOrThrow(ld.To.ObjectType, ld.To.PrimaryKey)
	if err != nil {
		return err
	}
	reverse := ld.Reverse
	if reverse == "" {
		sides, err := l.store.Ontology().LinkSides(ld.From.ObjectType, ld.Link)
		if err != nil {
			return err
		}
		reverse = sides.Target.APIName
	}
	return l.store.RegisterLink(from, ld.Link, to, reverse)
}

func (l *Loader) applyMedia(ctx context.Context, md MediaDoc) error {
	content, err := l.content(md.Content, md.File)
	if err != nil {
		return err
	}
	obj, err := l.store.GetObjectOrThrow(md.ObjectType, md.PrimaryKey)
	if err != nil {
		return err
	}
	ref, err := l.store.RegisterMedia(ctx, md.ObjectType, md.Property, content, md.MediaType, md.Path)
	if err != nil {
		return err
	}
	_, err = l.store.ReplaceObjectOrThrow(obj.With(md.Property, ref))
	return err
}

func (l *Loader) applyAttachment(ctx context.Context, ad AttachmentDoc) error {
	if l.uploader == nil {
		return fmt.Errorf("fixture has attachments but no attachment uploader is configured")
	}
	content, err := l.content(ad.Content, ad.File)
	if err != nil {
		return err
	}
	obj, err := l.store.GetObjectOrThrow(ad.ObjectType, ad.PrimaryKey)
	if err != nil {
		return err
	}
	meta, err := l.uploader.Upload(ctx, ad.Filename, ad.MediaType, content)
	if err != nil {
		return err
	}
	_, err = l.store.ReplaceObjectOrThrow(obj.With(ad.Property, meta.RID))
	return err
}

func (l *Loader) content(inline, file string) ([]byte, error) {
	if file == "" {
		return []byte(inline), nil
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(l.baseDir, file)
	}
	data, err := os.ReadFile(file) // #nosec G304 -- path named by the fixture
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	return data, nil
}

package model

import (
	"encoding/json"
	"fmt"
)

// BackgroundKind tags the active variant of a Background.
type BackgroundKind string

const (
	BackgroundColor    BackgroundKind = "color"
	BackgroundTemplate BackgroundKind = "template"
)

// DefaultColor is the strip colour before the user picks anything.
const DefaultColor = "#ffffff"

// Background is either a solid colour or a template. Build one with
// SolidColor or TemplateBackground; exactly one payload is set.
type Background struct {
	kind     BackgroundKind
	color    string
	template *Template
}

// SolidColor returns a colour background.
func SolidColor(hex string) Background {
	return Background{kind: BackgroundColor, color: hex}
}

// TemplateBackground returns a template background.
func TemplateBackground(t Template) Background {
	cp := t
	cp.FixedStickers = append([]FixedSticker(nil), t.FixedStickers...)
	return Background{kind: BackgroundTemplate, template: &cp}
}

// Kind reports the active variant. The zero Background is the default colour.
func (b Background) Kind() BackgroundKind {
	if b.kind == "" {
		return BackgroundColor
	}
	return b.kind
}

// Color returns the fill colour and true for colour backgrounds.
func (b Background) Color() (string, bool) {
	if b.Kind() != BackgroundColor {
		return "", false
	}
	if b.color == "" {
		return DefaultColor, true
	}
	return b.color, true
}

// Template returns the template and true for template backgrounds.
func (b Background) Template() (Template, bool) {
	if b.Kind() != BackgroundTemplate || b.template == nil {
		return Template{}, false
	}
	return *b.template, true
}

// IsTemplate is shorthand for Kind() == BackgroundTemplate.
func (b Background) IsTemplate() bool {
	return b.Kind() == BackgroundTemplate
}

type backgroundJSON struct {
	Kind     BackgroundKind `json:"kind"`
	Color    string         `json:"color,omitempty"`
	Template *Template      `json:"template,omitempty"`
}

func (b Background) MarshalJSON() ([]byte, error) {
	out := backgroundJSON{Kind: b.Kind()}
	if c, ok := b.Color(); ok {
		out.Color = c
	}
	if t, ok := b.Template(); ok {
		out.Template = &t
	}
	return json.Marshal(out)
}

func (b *Background) UnmarshalJSON(data []byte) error {
	var in backgroundJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Kind {
	case BackgroundColor, "":
		*b = SolidColor(in.Color)
	case BackgroundTemplate:
		if in.Template == nil {
			return fmt.Errorf("template background without template")
		}
		*b = TemplateBackground(*in.Template)
	default:
		return fmt.Errorf("unknown background kind %q", in.Kind)
	}
	return nil
}

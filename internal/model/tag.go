package model

import (
	"encoding/json"
	"strings"
)

// Tipo is the top-level business type of an account.
type Tipo string

const (
	TipoIngresos   Tipo = "Ingresos"
	TipoEgresos    Tipo = "Egresos"
	TipoIndefinido Tipo = "" // unset
)

// Sentinel strings the ledger export uses for unset tag fields.
const (
	SentinelTipo          = "Indefinido"
	SentinelCategoria     = "Sin Categoría"
	SentinelSubcategoria  = "Sin Subcategoría"
	SentinelClasificacion = "Sin Clasificación"
)

// ParseTipo maps an export string onto a Tipo. Anything unrecognised is Indefinido.
func ParseTipo(s string) Tipo {
	switch {
	case strings.EqualFold(strings.TrimSpace(s), string(TipoIngresos)):
		return TipoIngresos
	case strings.EqualFold(strings.TrimSpace(s), string(TipoEgresos)):
		return TipoEgresos
	default:
		return TipoIndefinido
	}
}

// IsSet reports whether the tipo carries a real value.
func (t Tipo) IsSet() bool {
	return t == TipoIngresos || t == TipoEgresos
}

// Field is an optional free-form tag value. The zero value is unset.
type Field struct {
	value string
	set   bool
}

// Value returns a set field. An empty or blank string yields an unset field.
func Value(s string) Field {
	s = strings.TrimSpace(s)
	if s == "" {
		return Field{}
	}
	return Field{value: s, set: true}
}

// Unset returns an unset field.
func Unset() Field { return Field{} }

// ParseField is Value, except that the given sentinel also maps to unset.
func ParseField(s, sentinel string) Field {
	if strings.EqualFold(strings.TrimSpace(s), sentinel) {
		return Field{}
	}
	return Value(s)
}

// Get returns the value and whether it is set.
func (f Field) Get() (string, bool) { return f.value, f.set }

// IsSet reports whether the field carries a value.
func (f Field) IsSet() bool { return f.set }

// Or returns the value, or fallback when unset.
func (f Field) Or(fallback string) string {
	if !f.set {
		return fallback
	}
	return f.value
}

// Tag is the four-field business classification attached to a record.
type Tag struct {
	Tipo          Tipo
	Categoria     Field
	Subcategoria  Field
	Clasificacion Field
}

// NewTag builds a Tag from export strings, mapping sentinels to unset.
func NewTag(tipo, categoria, subcategoria, clasificacion string) Tag {
	return Tag{
		Tipo:          ParseTipo(tipo),
		Categoria:     ParseField(categoria, SentinelCategoria),
		Subcategoria:  ParseField(subcategoria, SentinelSubcategoria),
		Clasificacion: ParseField(clasificacion, SentinelClasificacion),
	}
}

// Complete reports whether tipo, categoria and clasificacion are all set.
// Subcategoria is not required.
func (t Tag) Complete() bool {
	return t.Tipo.IsSet() && t.Categoria.IsSet() && t.Clasificacion.IsSet()
}

// TagWire is the string form of a Tag used in JSON, CSV and YAML.
type TagWire struct {
	Tipo          string `json:"tipo" yaml:"tipo"`
	Categoria     string `json:"categoria_1" yaml:"categoria_1"`
	Subcategoria  string `json:"sub_categoria" yaml:"sub_categoria"`
	Clasificacion string `json:"clasificacion" yaml:"clasificacion"`
}

// Wire renders the tag with sentinels for unset fields.
func (t Tag) Wire() TagWire {
	tipo := SentinelTipo
	if t.Tipo.IsSet() {
		tipo = string(t.Tipo)
	}
	return TagWire{
		Tipo:          tipo,
		Categoria:     t.Categoria.Or(SentinelCategoria),
		Subcategoria:  t.Subcategoria.Or(SentinelSubcategoria),
		Clasificacion: t.Clasificacion.Or(SentinelClasificacion),
	}
}

// Tag parses the wire form.
func (w TagWire) Tag() Tag {
	return NewTag(w.Tipo, w.Categoria, w.Subcategoria, w.Clasificacion)
}

// MarshalJSON implements json.Marshaler.
func (t Tag) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Wire())
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Tag) UnmarshalJSON(data []byte) error {
	var w TagWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*t = w.Tag()
	return nil
}

// TagUpdate is a partial edit; nil fields keep their current value.
type TagUpdate struct {
	Tipo          *string `json:"tipo,omitempty"`
	Categoria     *string `json:"categoria_1,omitempty"`
	Subcategoria  *string `json:"sub_categoria,omitempty"`
	Clasificacion *string `json:"clasificacion,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u TagUpdate) Empty() bool {
	return u.Tipo == nil && u.Categoria == nil && u.Subcategoria == nil && u.Clasificacion == nil
}

// Apply returns tag with the update's set fields replaced.
func (u TagUpdate) Apply(tag Tag) Tag {
	if u.Tipo != nil {
		tag.Tipo = ParseTipo(*u.Tipo)
	}
	if u.Categoria != nil {
		tag.Categoria = ParseField(*u.Categoria, SentinelCategoria)
	}
	if u.Subcategoria != nil {
		tag.Subcategoria = ParseField(*u.Subcategoria, SentinelSubcategoria)
	}
	if u.Clasificacion != nil {
		tag.Clasificacion = ParseField(*u.Clasificacion, SentinelClasificacion)
	}
	return tag
}

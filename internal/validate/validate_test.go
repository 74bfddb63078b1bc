package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/sitecontent/internal/types"
)

func newValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := Default()
	require.NoError(t, err)
	return v
}

func validCandidates() map[types.Kind]map[string]any {
	return map[types.Kind]map[string]any{
		types.KindStatistic: {
			"title": "Proyectos", "value": 250, "suffix": "+", "label": "proyectos entregados", "icon": "Award",
		},
		types.KindPillar: {
			"title": "Calidad", "description": "Hacemos las cosas bien", "icon": "Shield", "image": "/images/calidad.jpg",
		},
		types.KindPolicy: {
			"title": "Seguridad", "description": "Cero accidentes", "image": "https://cdn.example.com/seg.png",
		},
		types.KindService: {
			"title": "Diseño", "description": "Ingeniería de detalle",
			"icon_url": "/icons/diseno.svg",
			"cta":      map[string]any{"text": "Cotizar", "url": "/contacto"},
		},
		types.KindProject: {
			"name": "Torre Norte", "title": "Edificio de oficinas", "type": "comercial", "image_url": "/images/torre.jpg",
		},
	}
}

func TestValidate_ValidCandidates(t *testing.T) {
	v := newValidator(t)
	for kind, c := range validCandidates() {
		t.Run(string(kind), func(t *testing.T) {
			assert.Empty(t, v.Validate(kind, c))
		})
	}
}

func TestValidate_MissingRequiredField(t *testing.T) {
	v := newValidator(t)
	for kind, c := range validCandidates() {
		ks := v.Registry().Kind(kind)
		for _, key := range ks.RequiredKeys() {
			t.Run(string(kind)+"/"+key, func(t *testing.T) {
				candidate := types.Patch{key: nil}.Apply(c)
				errs := v.Validate(kind, candidate)
				assert.Contains(t, errs, key)
			})
		}
	}
}

func TestValidate_PillarMissingTitle(t *testing.T) {
	v := newValidator(t)
	errs := v.Validate(types.KindPillar, map[string]any{"description": "Sin título"})
	assert.Equal(t, ErrorMap{"title": "Título es requerido"}, errs)
}

func TestValidate_BlankStringIsEmpty(t *testing.T) {
	v := newValidator(t)
	errs := v.Validate(types.KindPillar, map[string]any{"title": "   ", "description": "x"})
	assert.Equal(t, "Título es requerido", errs["title"])
}

func TestValidate_StatisticIcon(t *testing.T) {
	v := newValidator(t)
	c := validCandidates()[types.KindStatistic]
	c["icon"] = "NotARealIcon"

	errs := v.Validate(types.KindStatistic, c)
	assert.Equal(t, ErrorMap{"icon": "Icono no es un icono válido"}, errs)
}

func TestValidate_StatisticCrossFieldRules(t *testing.T) {
	v := newValidator(t)
	c := validCandidates()[types.KindStatistic]
	delete(c, "label")
	c["suffix"] = ""

	errs := v.Validate(types.KindStatistic, c)
	assert.Equal(t, ErrorMap{
		"label":  "La etiqueta es requerida",
		"suffix": "El sufijo es requerido",
	}, errs)
}

func TestValidate_Number(t *testing.T) {
	v := newValidator(t)
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"float", 12.5, ""},
		{"numeric string", "42", ""},
		{"zero is allowed", 0, ""},
		{"not a number", "muchos", "Valor debe ser un número"},
		{"bool", true, "Valor debe ser un número"},
		{"below min", -1, "Valor debe ser mayor o igual a 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCandidates()[types.KindStatistic]
			c["value"] = tt.value
			errs := v.Validate(types.KindStatistic, c)
			if tt.want == "" {
				assert.Empty(t, errs)
				return
			}
			assert.Equal(t, tt.want, errs["value"])
		})
	}
}

func TestValidate_Links(t *testing.T) {
	v := newValidator(t)
	tests := []struct {
		value string
		ok    bool
	}{
		{"https://cdn.example.com/a.png", true},
		{"http://example.com/a.png", true},
		{"/images/a.png", true},
		{"", true},
		{"images/a.png", false},
		{"ftp://example.com/a.png", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			c := validCandidates()[types.KindPillar]
			c["image"] = tt.value
			errs := v.Validate(types.KindPillar, c)
			if tt.ok {
				assert.Empty(t, errs)
			} else {
				assert.Equal(t, "Imagen debe comenzar con http o /", errs["image"])
			}
		})
	}
}

func TestValidate_NestedField(t *testing.T) {
	v := newValidator(t)
	c := validCandidates()[types.KindService]
	c["cta"] = map[string]any{"text": "Ver", "url": "contacto"}

	errs := v.Validate(types.KindService, c)
	assert.Equal(t, ErrorMap{"cta.url": "Enlace del botón debe comenzar con http o /"}, errs)
}

func TestValidate_TextMustBeString(t *testing.T) {
	v := newValidator(t)

	c := validCandidates()[types.KindPillar]
	c["title"] = 123.0
	c["description"] = true
	assert.Equal(t, ErrorMap{
		"title":       "Título debe ser texto",
		"description": "Descripción debe ser texto",
	}, v.Validate(types.KindPillar, c))

	s := validCandidates()[types.KindStatistic]
	s["label"] = 7.0
	s["suffix"] = []any{"+"}
	assert.Equal(t, ErrorMap{
		"label":  "La etiqueta debe ser texto",
		"suffix": "El sufijo debe ser texto",
	}, v.Validate(types.KindStatistic, s))

	svc := validCandidates()[types.KindService]
	svc["cta"] = map[string]any{"text": 5.0}
	assert.Equal(t, ErrorMap{"cta.text": "Texto del botón debe ser texto"}, v.Validate(types.KindService, svc))
}

func TestValidate_NestedParentMustBeObject(t *testing.T) {
	v := newValidator(t)
	c := validCandidates()[types.KindService]
	c["cta"] = "Cotizar"
	assert.Equal(t, ErrorMap{"cta": "cta debe ser un objeto"}, v.Validate(types.KindService, c))

	errs, err := v.ValidatePatch(types.KindService, validCandidates()[types.KindService], types.Patch{"cta": 1.0})
	require.NoError(t, err)
	assert.Contains(t, errs, "cta")

	c["cta"] = nil
	assert.Empty(t, v.Validate(types.KindService, c))
}

func TestValidate_SelectOptions(t *testing.T) {
	v := newValidator(t)
	c := validCandidates()[types.KindProject]
	c["type"] = "espacial"

	errs := v.Validate(types.KindProject, c)
	assert.Equal(t, "Tipo debe ser una de: residencial, comercial, industrial, infraestructura", errs["type"])
}

func TestValidate_Enabled(t *testing.T) {
	v := newValidator(t)
	c := validCandidates()[types.KindPolicy]
	c["enabled"] = "yes"
	assert.Contains(t, v.Validate(types.KindPolicy, c), "enabled")

	c["enabled"] = false
	assert.Empty(t, v.Validate(types.KindPolicy, c))
}

func TestValidate_UnknownKind(t *testing.T) {
	v := newValidator(t)
	errs := v.Validate("banner", map[string]any{})
	assert.Equal(t, []string{"kind"}, errs.Keys())
}

func TestValidateElement(t *testing.T) {
	v := newValidator(t)

	ok := types.Statistic{Base: types.NewBase("Clientes", ""), Value: 80, Suffix: "%", Label: "satisfechos", Icon: "Users"}
	assert.True(t, ValidateElement(v, ok).OK())

	bad := types.Project{Base: types.NewBase("", ""), Name: "Planta", Type: "industrial", ImageURL: "/p.jpg"}
	assert.Equal(t, []string{"title"}, ValidateElement(v, bad).Keys())
}

func TestValidatePatch(t *testing.T) {
	v := newValidator(t)
	current := validCandidates()[types.KindService]

	errs, err := v.ValidatePatch(types.KindService, current, types.Patch{"cta": map[string]any{"url": "mailto:x"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"cta.url"}, errs.Keys())

	errs, err = v.ValidatePatch(types.KindService, current, types.Patch{"title": "Nuevo", "id": 5})
	require.NoError(t, err)
	assert.True(t, errs.OK())
	assert.Equal(t, "Diseño", current["title"], "current must not change")

	_, err = v.ValidatePatch("banner", current, types.Patch{})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestCoerce(t *testing.T) {
	v := newValidator(t)
	in := map[string]any{"value": " 42.5", "label": "12"}

	out := v.Coerce(types.KindStatistic, in)
	assert.Equal(t, 42.5, out["value"])
	assert.Equal(t, "12", out["label"], "only number fields are converted")
	assert.Equal(t, " 42.5", in["value"])

	out = v.Coerce(types.KindStatistic, map[string]any{"value": "muchos"})
	assert.Equal(t, "muchos", out["value"])
}

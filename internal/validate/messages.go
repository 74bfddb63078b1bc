package validate

import (
	"fmt"
	"strconv"
	"strings"
)

// User-facing messages are in Spanish, the language of the dashboard.

func msgRequired(label string) string {
	return label + " es requerido"
}

func msgNotNumber(label string) string {
	return label + " debe ser un número"
}

func msgMin(label string, min float64) string {
	return fmt.Sprintf("%s debe ser mayor o igual a %s", label, formatNumber(min))
}

func msgMax(label string, max float64) string {
	return fmt.Sprintf("%s debe ser menor o igual a %s", label, formatNumber(max))
}

func msgNotText(label string) string {
	return label + " debe ser texto"
}

func msgNotObject(key string) string {
	return key + " debe ser un objeto"
}

func msgIcon(label string) string {
	return label + " no es un icono válido"
}

func msgLink(label string) string {
	return label + " debe comenzar con http o /"
}

func msgOption(label string, options []string) string {
	return label + " debe ser una de: " + strings.Join(options, ", ")
}

const (
	msgUnknownKind       = "tipo de elemento desconocido"
	msgStatisticLabel    = "La etiqueta es requerida"
	msgStatisticSuffix   = "El sufijo es requerido"
	msgEnabledNotBoolean = "Visible debe ser verdadero o falso"
)

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

package domain

import (
	"errors"
	"time"
)

// ErrNotFound lo devuelven los stores cuando la clave buscada no existe.
var ErrNotFound = errors.New("not found")

// ChartColor es el veredicto de color dominante de un frame.
type ChartColor string

const (
	ColorGreen   ChartColor = "green"
	ColorRed     ChartColor = "red"
	ColorNeutral ChartColor = "neutral"
)

// ParseChartColor normaliza el color que devuelve un clasificador.
// Cualquier valor desconocido es neutral.
func ParseChartColor(s string) ChartColor {
	switch s {
	case "green", "GREEN", "Green":
		return ColorGreen
	case "red", "RED", "Red":
		return ColorRed
	default:
		return ColorNeutral
	}
}

// ColorSample es una observación de clasificación para un trade.
type ColorSample struct {
	TimeElapsed int        `json:"timeElapsed"` // segundos desde StartTime
	Color       ChartColor `json:"chartColor"`
	Confidence  float64    `json:"confidence"` // 0-100
	Timestamp   time.Time  `json:"timestamp"`
}

// IsWin devuelve true si el sample estaba en verde (in the money).
func (s ColorSample) IsWin() bool {
	return s.Color == ColorGreen
}

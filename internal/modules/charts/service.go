// Package charts renders dashboard visuals as PNG images: allocation pie,
// deviation bars and price history lines. Correlation data is served as JSON
// by the API layer and rendered client side.
package charts

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/vicanso/go-charts/v2"

	"github.com/heisenbergtrx/portfolio-dashboard/internal/domain"
	"github.com/heisenbergtrx/portfolio-dashboard/internal/modules/analytics"
)

const (
	chartWidth  = 800
	chartHeight = 600
)

// Service renders snapshot data to PNG.
type Service struct {
	log zerolog.Logger
}

// NewService creates a chart renderer.
func NewService(log zerolog.Logger) *Service {
	return &Service{log: log.With().Str("service", "charts").Logger()}
}

// Allocation renders the current portfolio weights as a pie chart. Only
// assets with a computed weight appear.
func (s *Service) Allocation(snap *analytics.Snapshot) ([]byte, error) {
	var values []float64
	var labels []string
	for _, a := range snap.Assets {
		if a.Weight == nil {
			continue
		}
		values = append(values, *a.Weight)
		labels = append(labels, fmt.Sprintf("%s (%.1f%%)", a.Code, *a.Weight))
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no valued assets to chart")
	}

	p, err := charts.PieRender(
		values,
		charts.TitleTextOptionFunc("Portfolio Allocation"),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: labels,
			Top:  charts.PositionTop,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(chartWidth),
		charts.HeightOptionFunc(chartHeight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render allocation chart: %w", err)
	}
	return p.Bytes()
}

// Deviation renders each asset's deviation from its target weight as bars.
func (s *Service) Deviation(snap *analytics.Snapshot) ([]byte, error) {
	var values []float64
	var codes []string
	for _, a := range snap.Assets {
		if a.Deviation == nil {
			continue
		}
		values = append(values, *a.Deviation)
		codes = append(codes, a.Code)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no valued assets to chart")
	}

	p, err := charts.BarRender(
		[][]float64{values},
		charts.TitleTextOptionFunc("Deviation From Target Weight (points)"),
		charts.XAxisDataOptionFunc(codes),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(chartWidth),
		charts.HeightOptionFunc(chartHeight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render deviation chart: %w", err)
	}
	return p.Bytes()
}

// History renders the price series of one asset as a line chart.
func (s *Service) History(series *domain.Series) ([]byte, error) {
	if series == nil || len(series.Points) < 2 {
		return nil, fmt.Errorf("not enough points to chart")
	}

	closes := make([]float64, len(series.Points))
	dates := make([]string, len(series.Points))
	yMin, yMax := series.Points[0].Close, series.Points[0].Close
	for i, p := range series.Points {
		closes[i] = p.Close
		dates[i] = p.Date
		if p.Close < yMin {
			yMin = p.Close
		}
		if p.Close > yMax {
			yMax = p.Close
		}
	}
	pad := (yMax - yMin) * 0.05
	if pad < yMax*0.002 {
		pad = yMax * 0.002
	}
	yMin -= pad
	if yMin < 0 {
		yMin = 0
	}
	yMax += pad

	title := series.Code
	if series.Name != "" && series.Name != series.Code {
		title = fmt.Sprintf("%s (%s)", series.Code, series.Name)
	}

	p, err := charts.LineRender(
		[][]float64{closes},
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        dates,
			BoundaryGap: charts.FalseFlag(),
			SplitNumber: 6,
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(chartWidth),
		charts.HeightOptionFunc(chartHeight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render history chart: %w", err)
	}
	return p.Bytes()
}

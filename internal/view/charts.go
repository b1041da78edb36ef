package view

import (
	"fmt"

	"github.com/go-analyze/charts"
)

// RenderCategoryPie renders the per-category breakdown as a PNG pie chart.
func (c *SummaryController) RenderCategoryPie() ([]byte, error) {
	shares := c.Shares()
	if len(shares) == 0 {
		return nil, fmt.Errorf("no expenses to chart")
	}

	values := make([]float64, 0, len(shares))
	names := make([]string, 0, len(shares))
	for _, share := range shares {
		values = append(values, share.Total.InexactFloat64())
		names = append(names, share.Name)
	}

	p, err := charts.PieRender(
		values,
		charts.TitleOptionFunc(charts.TitleOption{
			Text: "Spending by Category",
		}),
		charts.LegendLabelsOptionFunc(names),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf, nil
}

// RenderDailyBars renders the daily-spend series as a PNG bar chart.
func (c *SummaryController) RenderDailyBars() ([]byte, error) {
	series := c.DailySeries()
	if len(series) == 0 {
		return nil, fmt.Errorf("no expenses to chart")
	}

	values := make([]float64, 0, len(series))
	labels := make([]string, 0, len(series))
	for _, point := range series {
		values = append(values, point.Total.InexactFloat64())
		labels = append(labels, point.Label)
	}

	p, err := charts.BarRender(
		[][]float64{values},
		charts.TitleOptionFunc(charts.TitleOption{
			Text: "Daily Spending",
		}),
		charts.XAxisLabelsOptionFunc(labels),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf, nil
}

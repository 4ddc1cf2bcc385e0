package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/coursematrix/internal/model"
	"github.com/sadopc/coursematrix/internal/progress"
	"github.com/sadopc/coursematrix/internal/semester"
)

type reportMode int

const (
	reportByTask reportMode = iota
	reportByCourse
)

type reportsModel struct {
	engine *semester.Engine
	width  int
	height int

	mode     reportMode
	semester model.Semester
	summary  progress.Summary

	chart barchart.Model
}

func newReportsModel(e *semester.Engine) reportsModel {
	return reportsModel{
		engine:   e,
		semester: e.ActiveSemester(),
		chart:    barchart.New(60, 12),
	}
}

func (r *reportsModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

type reportsDataMsg struct {
	semester model.Semester
	summary  progress.Summary
}

func (r reportsModel) refresh() tea.Cmd {
	e, s := r.engine, r.semester
	return func() tea.Msg {
		return reportsDataMsg{semester: s, summary: progress.Summarize(e.Snapshot(s))}
	}
}

func (r reportsModel) update(msg tea.Msg) (reportsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case reportsDataMsg:
		if msg.semester != r.semester {
			return r, nil
		}
		r.summary = msg.summary
		r.buildChart()
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left), key.Matches(msg, keys.Right):
			r.semester = r.semester.Other()
			return r, r.refresh()
		case key.Matches(msg, keys.Toggle):
			if r.mode == reportByTask {
				r.mode = reportByCourse
			} else {
				r.mode = reportByTask
			}
			r.buildChart()
			return r, nil
		}
	}
	return r, nil
}

func (r reportsModel) rows() []progress.Row {
	if r.mode == reportByCourse {
		return r.summary.ByCourse
	}
	return r.summary.ByTask
}

func (r *reportsModel) buildChart() {
	chartWidth := max(r.width-8, 20)
	chartHeight := 12
	if r.height > 30 {
		chartHeight = 16
	}

	r.chart = barchart.New(chartWidth, chartHeight, barchart.WithMaxValue(100))

	var bars []barchart.BarData
	for _, row := range r.rows() {
		bars = append(bars, barchart.BarData{
			Label: truncate(row.Name, 8),
			Values: []barchart.BarValue{{
				Name:  row.Name,
				Value: float64(row.Percent),
				Style: barStyle(row.Percent),
			}},
		})
	}

	r.chart.PushAll(bars)
	r.chart.Draw()
}

func (r reportsModel) view() string {
	w := r.width - 4

	taskTab := inactiveTabStyle.Render("By Task")
	courseTab := inactiveTabStyle.Render("By Course")
	if r.mode == reportByTask {
		taskTab = activeTabStyle.Render("By Task")
	} else {
		courseTab = activeTabStyle.Render("By Course")
	}
	modeTabs := lipgloss.JoinHorizontal(lipgloss.Bottom, taskTab, courseTab)

	overall := percentStyle(r.summary.Overall).Render(fmt.Sprintf("%d%% overall", r.summary.Overall))
	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Reports"), "  ", modeTabs, "  ", mutedStyle.Render(r.semester.Label()), "  ", overall,
	)

	nav := mutedStyle.Render("  ←/→: semester  space: switch mode")

	if len(r.rows()) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			header, "", mutedStyle.Render("  No data for this semester"), "", nav,
		))
	}

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", r.chart.View(), "", r.renderTable(w), "", nav,
		),
	)
}

func (r reportsModel) renderTable(w int) string {
	label := "Task Type"
	if r.mode == reportByCourse {
		label = "Course"
	}

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-20s %9s %10s %8s", label, "Complete", "Applicable", "Percent")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 50))))

	for _, row := range r.rows() {
		pct := percentStyle(row.Percent).Render(fmt.Sprintf("%7d%%", row.Percent))
		rows = append(rows, fmt.Sprintf("  %-20s %9d %10d %s",
			truncate(row.Name, 20), row.Completed, row.Applicable, pct,
		))
	}

	return strings.Join(rows, "\n")
}

func barStyle(p int) lipgloss.Style {
	if p >= 100 {
		return lipgloss.NewStyle().Foreground(colorSuccess)
	}
	return lipgloss.NewStyle().Foreground(colorSecondary)
}

package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/Th3drata/Tomodoro/internal/database"
	"github.com/Th3drata/Tomodoro/internal/stats"
)

func okLine(msg string) string {
	return color.GreenString("✓") + " " + msg
}

func failLine(err error) string {
	return color.RedString("✗") + " " + err.Error()
}

func renderMigrations(migrations []database.Migration) string {
	if len(migrations) == 0 {
		return "No migrations found\n"
	}

	var sb strings.Builder
	sb.WriteString(color.CyanString("Migrations\n"))
	sb.WriteString(strings.Repeat("─", 40) + "\n")
	for _, m := range migrations {
		status := color.YellowString("pending")
		if m.Applied {
			status = color.GreenString("applied")
		}
		fmt.Fprintf(&sb, "%03d  %-28s %s\n", m.Version, m.Name, status)
	}
	return sb.String()
}

func renderSummary(user string, s stats.Summary) string {
	var sb strings.Builder
	sb.WriteString(color.CyanString("Focus statistics for %s\n", user))
	sb.WriteString(strings.Repeat("─", 40) + "\n")

	row := func(label string, w stats.Window) {
		fmt.Fprintf(&sb, "%-8s %4d pomodoros  %5d min\n", label, w.Count, w.Minutes)
	}
	row("Today", s.Today)
	row("Week", s.Week)
	row("Month", s.Month)
	row("Total", s.Total)

	sb.WriteString("\n" + color.HiBlackString("Last %d days", len(s.LastDays)) + "\n")
	for _, d := range s.LastDays {
		fmt.Fprintf(&sb, "%-4s %3d  %s\n", d.Label, d.Count, strings.Repeat("█", d.Count))
	}

	if len(s.Categories) > 0 {
		sb.WriteString("\n" + color.HiBlackString("By category") + "\n")
		for _, c := range s.Categories {
			fmt.Fprintf(&sb, "%-12s %4d  %5d min\n", c.Label, c.Count, c.Minutes)
		}
	}
	return sb.String()
}

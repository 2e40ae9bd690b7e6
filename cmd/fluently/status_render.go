package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"fluently/internal/api"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 16
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	if colorize {
		line = ansiBlue + line + ansiReset
	}
	return line
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func renderStatus(out io.Writer, status api.DaemonStatus) {
	colorize := shouldColorize(out)
	lines := make([]string, 0, 16)

	lines = append(lines, renderSectionHeader("Daemon", colorize))
	if status.Running {
		lines = append(lines, renderStatusLine("Fluently", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize))
	} else {
		lines = append(lines, renderStatusLine("Fluently", statusWarn, "Not running (run `fluently daemon`)", colorize))
	}
	if status.ModelVersion > 0 {
		lines = append(lines, renderStatusLine("Model", statusOK, fmt.Sprintf("version %d", status.ModelVersion), colorize))
	}
	if status.DBPath != "" {
		lines = append(lines, renderStatusLine("Database", statusInfo, status.DBPath, colorize))
	}

	lines = append(lines, "", renderSectionHeader("Queue", colorize))
	queue := status.Queue
	lines = append(lines, renderTable(
		[]string{"Pending", "Processing", "Completed", "Failed", "Total"},
		[][]string{{
			strconv.Itoa(queue.Pending),
			strconv.Itoa(queue.Processing),
			strconv.Itoa(queue.Completed),
			strconv.Itoa(queue.Failed),
			strconv.Itoa(queue.Total),
		}},
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight},
	))

	if len(status.Dependencies) > 0 {
		lines = append(lines, "", renderSectionHeader("Dependencies", colorize))
		for _, dep := range status.Dependencies {
			if dep.Available {
				lines = append(lines, renderStatusLine(dep.Name, statusOK, dep.Command, colorize))
				continue
			}
			kind := statusError
			if dep.Optional {
				kind = statusWarn
			}
			lines = append(lines, renderStatusLine(dep.Name, kind, dep.Detail, colorize))
		}
	}

	fmt.Fprintln(out, strings.Join(lines, "\n"))
}

// Package diagfmt renders diagnostics for humans and machines. It only reads
// the bag; sorting and deduplication stay the caller's concern.
package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"flint/internal/diag"
	"flint/internal/source"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
	noteColor    = color.New(color.FgBlue)
	caretColor   = color.New(color.FgGreen, color.Bold)
)

func severityColor(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return errorColor
	case diag.SevWarning:
		return warningColor
	default:
		return infoColor
	}
}

func formatPath(f *source.File, fs *source.FileSet, mode PathMode) string {
	switch mode {
	case PathModeAbsolute:
		if abs, err := source.AbsolutePath(f.Path); err == nil {
			return abs
		}
	case PathModeBasename:
		return source.BaseName(f.Path)
	default:
		if rel, err := source.RelativePath(f.Path, fs.BaseDir()); err == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	return f.Path
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
// <path>:<line>:<col>: <SEV> <CODE>: <Message>
// затем контекст строки с подчёркиванием ^~~~ по Span, затем Notes.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	paint := func(c *color.Color, format string, args ...any) string {
		if opts.Color {
			return c.Sprintf(format, args...)
		}
		return fmt.Sprintf(format, args...)
	}

	for _, d := range bag.Items() {
		if d.Primary == (source.Span{}) {
			fmt.Fprintf(w, "%s: %s\n",
				paint(severityColor(d.Severity), "%s %s", d.Severity, d.Code),
				d.Message)
			continue
		}

		f := fs.Get(d.Primary.File)
		start, end := fs.Resolve(d.Primary)
		fmt.Fprintf(w, "%s:%d:%d: %s: %s\n",
			formatPath(f, fs, opts.PathMode), start.Line, start.Col,
			paint(severityColor(d.Severity), "%s %s", d.Severity, d.Code),
			d.Message)

		if opts.ShowPreview {
			writePreview(w, f, start, end, paint)
		}
		if opts.ShowNotes {
			for _, note := range d.Notes {
				if note.Span == (source.Span{}) {
					fmt.Fprintf(w, "  %s: %s\n", paint(noteColor, "note"), note.Msg)
					continue
				}
				nf := fs.Get(note.Span.File)
				nstart, _ := fs.Resolve(note.Span)
				fmt.Fprintf(w, "  %s: %s:%d:%d: %s\n", paint(noteColor, "note"),
					formatPath(nf, fs, opts.PathMode), nstart.Line, nstart.Col, note.Msg)
			}
		}
	}
}

// writePreview печатает строку исходника и подчёркивание под спаном.
// Многострочные спаны подчёркиваются только в первой строке.
func writePreview(w io.Writer, f *source.File, start, end source.LineCol, paint func(*color.Color, string, ...any) string) {
	line := f.GetLine(start.Line)
	if line == "" && start.Line != 1 {
		return
	}
	fmt.Fprintf(w, "  %s\n", strings.TrimRight(line, "\r"))

	col := int(start.Col)
	if col < 1 {
		col = 1
	}
	width := 1
	if end.Line == start.Line && end.Col > start.Col {
		width = int(end.Col - start.Col)
	}
	marker := "^"
	if width > 1 {
		marker += strings.Repeat("~", width-1)
	}
	fmt.Fprintf(w, "  %s%s\n", strings.Repeat(" ", col-1), paint(caretColor, "%s", marker))
}

// Summary returns the one-line build verdict, e.g. "2 errors, 1 warning".
func Summary(bag *diag.Bag) string {
	errs := bag.ErrorCount()
	warns := 0
	for _, d := range bag.Items() {
		if d.Severity == diag.SevWarning {
			warns++
		}
	}
	parts := make([]string, 0, 2)
	if errs > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", errs, plural("error", errs)))
	}
	if warns > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", warns, plural("warning", warns)))
	}
	if len(parts) == 0 {
		return "no diagnostics"
	}
	return strings.Join(parts, ", ")
}

func plural(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
//
// Letter grades are colored by band: A and B pass comfortably, C and D are borderline, E and F
// need attention.
type Palette struct {
	title  lipgloss.Style
	ok     lipgloss.Style
	err    lipgloss.Style
	warn   lipgloss.Style
	help   lipgloss.Style
	field  lipgloss.Style
	grades map[string]lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
		field: NewBold(t).Width(14),
		grades: map[string]lipgloss.Style{
			"A": NewBold(s),
			"B": NewStyle(s),
			"C": NewBold(w),
			"D": NewStyle(w),
			"E": NewStyle(e),
			"F": NewBold(e),
		},
	}
}

// grade returns the style for a letter grade, unstyled for anything else.
func (p *Palette) grade(letter string) lipgloss.Style {
	if s, ok := p.grades[letter]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

package main

import "github.com/fatih/color"

var (
	focalColor  = color.New(color.FgHiGreen, color.Bold)
	subtleColor = color.New(color.FgHiBlack)
	infoColor   = color.New(color.FgCyan)
	hopColors   = []*color.Color{
		focalColor,
		color.New(color.FgYellow),
		color.New(color.FgWhite),
	}
)

// hopColor returns the color used for people at the given hop distance.
func hopColor(degree *int) *color.Color {
	if degree == nil || *degree < 0 || *degree >= len(hopColors) {
		return infoColor
	}
	return hopColors[*degree]
}

// Package charts maps dashboard aggregates onto renderer-neutral chart specs.
// Specs render as quickchart.io image URLs or, offline, as PNG images drawn
// with gonum/plot for embedding in workbooks.
package charts
